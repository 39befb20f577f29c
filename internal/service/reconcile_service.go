package service

import (
	"context"
	"fmt"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/notify"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/repository"

	"github.com/rs/zerolog"
)

// reconcileService implements ReconcileService.
type reconcileService struct {
	orders   repository.OrderStore
	gateway  PaymentGateway
	notifier notify.Notifier
	statuses StatusMap
	logger   zerolog.Logger
}

// NewReconcileService creates the webhook reconciliation service. A nil
// statuses map falls back to DefaultStatusMap.
func NewReconcileService(
	orders repository.OrderStore,
	pg PaymentGateway,
	notifier notify.Notifier,
	statuses StatusMap,
	logger zerolog.Logger,
) ReconcileService {
	if statuses == nil {
		statuses = DefaultStatusMap()
	}
	return &reconcileService{
		orders:   orders,
		gateway:  pg,
		notifier: notifier,
		statuses: statuses,
		logger:   logger.With().Str("service", "reconcile").Logger(),
	}
}

// Reconcile fetches the authoritative payment detail and applies the
// idempotent terminal transition. The webhook payload is never trusted for
// the final state; only the gateway's payment-detail endpoint decides.
func (s *reconcileService) Reconcile(ctx context.Context, paymentID string) error {
	logger := s.logger.With().Str("payment_id", paymentID).Logger()

	detail, err := s.gateway.GetPaymentDetail(ctx, paymentID)
	if err != nil {
		// Recoverable: the gateway redelivers, or manual reconciliation
		// catches the stuck pending order.
		logger.Warn().Err(err).Msg("payment detail fetch failed")
		return fmt.Errorf("payment detail fetch failed: %w", err)
	}
	if detail.ExternalReference == "" {
		logger.Warn().Str("raw_status", detail.Status).Msg("payment has no external reference, skipping")
		return nil
	}

	status, terminal := s.statuses[detail.Status]
	if !terminal {
		logger.Info().
			Str("raw_status", detail.Status).
			Str("order_id", detail.ExternalReference).
			Msg("non-terminal payment status, no transition")
		return nil
	}

	result, err := s.orders.ApplyPaymentOutcome(ctx, detail.ExternalReference, paymentID, status, detail.Status)
	if err != nil {
		logger.Error().
			Err(err).
			Str("order_id", detail.ExternalReference).
			Msg("failed to apply payment outcome")
		return fmt.Errorf("failed to apply payment outcome: %w", err)
	}

	if !result.Changed {
		logger.Debug().
			Str("order_id", detail.ExternalReference).
			Str("status", string(result.Order.Status)).
			Msg("replayed webhook, order already terminal")
		return nil
	}

	switch status {
	case model.StatusApproved:
		s.send(ctx, fmt.Sprintf("✅ Pago aprobado para orden %s (pago %s).", detail.ExternalReference, paymentID))
	case model.StatusRejected:
		s.send(ctx, fmt.Sprintf("❌ Pago rechazado para orden %s (pago %s).", detail.ExternalReference, paymentID))
	}

	logger.Info().
		Str("order_id", detail.ExternalReference).
		Str("status", string(status)).
		Msg("order reconciled")

	return nil
}

func (s *reconcileService) send(ctx context.Context, text string) {
	if err := s.notifier.Send(ctx, text); err != nil {
		s.logger.Warn().Err(err).Msg("reconciliation notification failed")
	}
}
