package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/service"

	"github.com/rs/zerolog"
)

// reconcileTimeout bounds the post-acknowledgement gateway fetch and
// store transition for one delivery.
const reconcileTimeout = 30 * time.Second

// WebhookHandler receives payment gateway notifications. Deliveries are
// acknowledged unconditionally before any processing: the gateway retries
// on non-acknowledgement, and reconciliation failures must not trigger
// redundant redeliveries of the acknowledgement itself.
type WebhookHandler struct {
	service  service.ReconcileService
	logger   zerolog.Logger
	inflight sync.WaitGroup
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(svc service.ReconcileService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: svc,
		logger:  logger.With().Str("handler", "webhook").Logger(),
	}
}

// webhookBody is the lenient shape of a gateway notification. Only the
// payment id is extracted; everything else is untrusted.
type webhookBody struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Resource string `json:"resource"`
}

// Receive handles POST /api/webhook requests.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", h.logger)
		return
	}

	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		// Malformed bodies are still acknowledged; some notification
		// modes deliver the id via query parameters only.
		h.logger.Debug().Err(err).Msg("webhook body not decodable")
	}

	paymentID := body.Data.ID
	if paymentID == "" {
		paymentID = body.Resource
	}
	if paymentID == "" {
		paymentID = r.URL.Query().Get("id")
	}

	// ACK first: nothing past this point is visible to the gateway.
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	if paymentID == "" {
		h.logger.Warn().Msg("webhook without payment id, acknowledged and dropped")
		return
	}

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()
		if err := h.service.Reconcile(ctx, paymentID); err != nil {
			h.logger.Error().Err(err).Str("payment_id", paymentID).Msg("webhook reconciliation failed")
		}
	}()
}

// Wait blocks until all in-flight reconciliations finish. Used during
// graceful shutdown.
func (h *WebhookHandler) Wait() {
	h.inflight.Wait()
}
