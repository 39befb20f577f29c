package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the normalized, closed set of order states. The raw gateway
// status is kept separately in Order.PaymentStatus.
type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusApproved OrderStatus = "approved"
	StatusRejected OrderStatus = "rejected"
)

// Terminal reports whether no further transition may leave this status.
func (s OrderStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// DeliveryMode selects between home delivery and in-store pickup.
type DeliveryMode string

const (
	DeliveryModeDelivery DeliveryMode = "delivery"
	DeliveryModePickup   DeliveryMode = "pickup"
)

// DeliveryAddress is the structured address stored on delivery orders.
// Floor is optional; every other field is required when the order's
// delivery mode is "delivery".
type DeliveryAddress struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Floor      string `json:"floor,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
}

// Order represents one checkout attempt.
type Order struct {
	ID                  uuid.UUID        `json:"id"`
	Status              OrderStatus      `json:"status"`
	Email               string           `json:"email"`
	Name                string           `json:"name,omitempty"`
	Phone               string           `json:"phone,omitempty"`
	Notes               string           `json:"notes,omitempty"`
	DeliveryMode        DeliveryMode     `json:"deliveryMode"`
	DeliveryAddress     *DeliveryAddress `json:"deliveryAddress,omitempty"`
	TotalCents          int64            `json:"totalCents"`
	PaymentPreferenceID *string          `json:"paymentPreferenceId,omitempty"`
	PaymentInitURL      *string          `json:"paymentInitUrl,omitempty"`
	PaymentID           *string          `json:"paymentId,omitempty"`
	PaymentStatus       *string          `json:"paymentStatus,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
	Items               []OrderItem      `json:"items"`
}

// OrderItem represents one priced line of an order.
type OrderItem struct {
	ID             uuid.UUID `json:"-"`
	OrderID        uuid.UUID `json:"-"`
	Title          string    `json:"title"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Currency       string    `json:"currency"`
}

// DefaultCurrency is the single operating currency.
const DefaultCurrency = "ARS"

// MaxItemTitleLength bounds the stored line title, matching the gateway's limit.
const MaxItemTitleLength = 256

// CheckoutItem is one cart line in a checkout request.
type CheckoutItem struct {
	ProductID string `json:"productId" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CheckoutDelivery carries the requested delivery mode and, for home
// delivery, the destination address.
type CheckoutDelivery struct {
	Mode    DeliveryMode     `json:"mode" validate:"required,oneof=delivery pickup"`
	Address *DeliveryAddress `json:"address,omitempty"`
}

// CheckoutRequest is the payload for POST /api/checkout. TotalCents is
// optional; when present it is cross-checked against the server-computed
// total and a mismatch rejects the checkout.
type CheckoutRequest struct {
	Email      string           `json:"email" validate:"required,email"`
	Name       string           `json:"name"`
	Phone      string           `json:"phone"`
	Notes      string           `json:"notes"`
	Delivery   CheckoutDelivery `json:"delivery" validate:"required"`
	Items      []CheckoutItem   `json:"items" validate:"required,min=1,dive"`
	TotalCents *int64           `json:"totalCents,omitempty"`
}

// CheckoutResponse is returned on successful checkout. InitURL is the
// gateway-hosted payment page the client must redirect to.
type CheckoutResponse struct {
	OrderID      uuid.UUID `json:"orderId"`
	PreferenceID string    `json:"preferenceId"`
	InitURL      string    `json:"initUrl"`
}

// OrderStats is the admin reporting summary.
type OrderStats struct {
	TotalOrders  int          `json:"totalOrders"`
	RevenueCents int64        `json:"revenueCents"`
	TopProducts  []TopProduct `json:"topProducts"`
}

// TopProduct is one row of the best-sellers report.
type TopProduct struct {
	Title    string `json:"title"`
	Quantity int64  `json:"quantity"`
}
