package service

import (
	"context"
	"fmt"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/gateway"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"

	"github.com/google/uuid"
)

// PaymentGateway is the outbound contract to the payment provider.
type PaymentGateway interface {
	CreatePreference(ctx context.Context, in gateway.CreatePreferenceInput) (*gateway.Preference, error)
	GetPaymentDetail(ctx context.Context, paymentID string) (*gateway.PaymentDetail, error)
}

// CheckoutService validates a cart, persists the pending order and
// requests a payment preference from the gateway.
type CheckoutService interface {
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)
}

// ReconcileService applies gateway-authoritative payment outcomes to
// orders. It runs after the webhook has already been acknowledged, so
// its errors are operational signals only.
type ReconcileService interface {
	Reconcile(ctx context.Context, paymentID string) error
}

// ProductService exposes the public and admin catalog operations.
type ProductService interface {
	List(ctx context.Context) ([]model.Product, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
	Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error)
	Update(ctx context.Context, id uuid.UUID, req *model.ProductRequest) (*model.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderAdminService exposes read-only order reporting for the admin panel.
type OrderAdminService interface {
	List(ctx context.Context) ([]model.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Stats(ctx context.Context) (*model.OrderStats, error)
}

// StatusMap translates the gateway's raw status vocabulary into the local
// closed enumeration. Raw statuses absent from the map are non-terminal
// and never transition an order.
type StatusMap map[string]model.OrderStatus

// DefaultStatusMap returns the production normalization table.
func DefaultStatusMap() StatusMap {
	return StatusMap{
		"approved":  model.StatusApproved,
		"rejected":  model.StatusRejected,
		"cancelled": model.StatusRejected,
	}
}

// GatewayFailure reports that the order was persisted but the payment
// preference could not be created. The order survives as pending and the
// client may retry.
type GatewayFailure struct {
	OrderID uuid.UUID
	Err     error
}

func (e *GatewayFailure) Error() string {
	return fmt.Sprintf("payment preference creation failed for order %s: %v", e.OrderID, e.Err)
}

func (e *GatewayFailure) Unwrap() error { return e.Err }

// formatCents renders an integer-cent amount as a currency-unit string.
func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
