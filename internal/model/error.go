package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

// Stable error codes for API responses.
const (
	ErrCodeInvalidJSON    = "INVALID_JSON"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeUnknownProduct = "UNKNOWN_PRODUCT"
	ErrCodeOutOfStock     = "OUT_OF_STOCK"
	ErrCodePaymentGateway = "PAYMENT_GATEWAY_ERROR"
	ErrCodeOrderNotFound  = "ORDER_NOT_FOUND"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnauthorised   = "UNAUTHORIZED"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// DomainError is a business-logic error with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION_ERROR with a specific reason.
func NewValidationError(reason string) *DomainError {
	return NewDomainError(ErrCodeValidation, reason)
}

// Common domain errors. Handlers compare with errors.Is to pick a status code.
var (
	ErrUnknownProduct = NewDomainError(ErrCodeUnknownProduct, "one or more products not found")
	ErrOutOfStock     = NewDomainError(ErrCodeOutOfStock, "insufficient stock for one or more products")
	ErrPaymentGateway = NewDomainError(ErrCodePaymentGateway, "payment gateway request failed")
	ErrOrderNotFound  = NewDomainError(ErrCodeOrderNotFound, "order not found")
)
