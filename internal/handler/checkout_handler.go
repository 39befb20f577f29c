package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/service"

	"github.com/rs/zerolog"
)

// CheckoutHandler handles checkout HTTP requests.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(svc service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Create handles POST /api/checkout requests.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, model.ErrCodeValidation, "method not allowed", h.logger)
		return
	}

	var req model.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.Checkout(r.Context(), &req)
	if err != nil {
		// The order survives a gateway failure as pending; tell the client
		// which order to retry for.
		var gw *service.GatewayFailure
		if errors.As(err, &gw) {
			writeJSON(w, http.StatusBadGateway, model.ErrorResponse{
				Error:   model.ErrCodePaymentGateway,
				Message: "payment gateway request failed, order is pending",
				OrderID: gw.OrderID.String(),
			})
			return
		}
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}
