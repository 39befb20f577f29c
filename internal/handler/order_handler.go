package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles admin order reporting requests.
type OrderHandler struct {
	service service.OrderAdminService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new admin order handler.
func NewOrderHandler(svc service.OrderAdminService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// List handles GET /api/admin/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /api/admin/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/admin/orders/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, model.ErrCodeOrderNotFound, "order not found", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Export handles GET /api/admin/orders/export requests with a CSV dump.
func (h *OrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)

	cw := csv.NewWriter(w)
	header := []string{"id", "status", "email", "name", "phone", "delivery_mode", "total_cents", "payment_id", "payment_status", "created_at"}
	if err := cw.Write(header); err != nil {
		h.logger.Error().Err(err).Msg("failed to write csv header")
		return
	}
	for _, o := range orders {
		record := []string{
			o.ID.String(),
			string(o.Status),
			o.Email,
			o.Name,
			o.Phone,
			string(o.DeliveryMode),
			strconv.FormatInt(o.TotalCents, 10),
			stringOrEmpty(o.PaymentID),
			stringOrEmpty(o.PaymentStatus),
			o.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			h.logger.Error().Err(err).Msg("failed to write csv record")
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error().Err(err).Msg("failed to flush csv")
	}
}

// Stats handles GET /api/admin/stats requests.
func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if stats.TopProducts == nil {
		stats.TopProducts = []model.TopProduct{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
