package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/config"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/database"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderDraft is the validated input for CreateOrder. Items carry the
// server-resolved unit price; the product IDs are only used for the
// conditional stock decrement inside the creation transaction.
type OrderDraft struct {
	Email           string
	Name            string
	Phone           string
	Notes           string
	DeliveryMode    model.DeliveryMode
	DeliveryAddress *model.DeliveryAddress
	TotalCents      int64
	Items           []OrderDraftItem
}

// OrderDraftItem is one priced line of an order draft.
type OrderDraftItem struct {
	ProductID      uuid.UUID
	Title          string
	Quantity       int
	UnitPriceCents int64
	Currency       string
}

// ApplyResult reports the outcome of ApplyPaymentOutcome. Changed is false
// when the order was already in a terminal state (webhook replay).
type ApplyResult struct {
	Order   *model.Order
	Changed bool
}

// OrderStore is the persistence contract for orders. Every mutating
// operation is atomic from the caller's point of view regardless of the
// backing store, and safe under concurrent callers for the same order.
type OrderStore interface {
	// CreateOrder persists the order, its items and the stock decrement of
	// each referenced product in one all-or-nothing unit. It returns
	// model.ErrOutOfStock when any product has insufficient remaining stock.
	CreateOrder(ctx context.Context, draft *OrderDraft) (uuid.UUID, error)

	// AttachPaymentPreference records the gateway checkout preference on the
	// order. Calling it again with the same values is a safe overwrite.
	AttachPaymentPreference(ctx context.Context, orderID uuid.UUID, preferenceID, initURL string) error

	// ApplyPaymentOutcome transitions the order identified by externalRef
	// from pending to the given terminal status. If the order is already
	// terminal it returns the existing state with Changed=false.
	ApplyPaymentOutcome(ctx context.Context, externalRef, paymentID string, status model.OrderStatus, rawStatus string) (*ApplyResult, error)

	// GetOrderByID retrieves an order with its items, or (nil, nil) when
	// no such order exists.
	GetOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListOrders retrieves all orders with items, newest first.
	ListOrders(ctx context.Context) ([]model.Order, error)

	// OrderStats summarises order volume, approved revenue and best sellers.
	OrderStats(ctx context.Context) (*model.OrderStats, error)
}

// ProductStore is the persistence contract for the product catalog.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]model.Product, error)

	// GetProductByID returns (nil, nil) when no such product exists.
	GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetProductBySlug returns (nil, nil) when no such product exists.
	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)

	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// Store is a complete storage backend.
type Store interface {
	OrderStore
	ProductStore

	// InitSchema idempotently ensures all tables and indexes exist.
	// Safe to call on every process start.
	InitSchema(ctx context.Context) error

	Close()
}

// Open selects the storage backend from the configured URL: postgres://
// URLs get the networked pgx-backed store, anything else is treated as a
// SQLite file path.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (Store, error) {
	if cfg.IsPostgres() {
		pool, err := database.NewPool(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return NewPostgresStore(pool, logger), nil
	}

	db, err := database.OpenSQLite(cfg.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	return NewSQLiteStore(db, logger), nil
}

// stockDemand is the aggregated quantity to decrement for one product.
type stockDemand struct {
	ProductID uuid.UUID
	Quantity  int
}

// validate rejects drafts that must never reach the database.
func (d *OrderDraft) validate() error {
	if len(d.Items) == 0 {
		return model.NewValidationError("order must contain at least one item")
	}
	for i, it := range d.Items {
		if it.Quantity < 1 {
			return model.NewValidationError(fmt.Sprintf("item %d: quantity must be at least 1", i))
		}
		if it.UnitPriceCents <= 0 {
			return model.NewValidationError(fmt.Sprintf("item %d: unit price must be positive", i))
		}
	}
	return nil
}

// stockDemands aggregates quantities per product, ordered by product ID so
// concurrent transactions lock product rows in a consistent order.
func (d *OrderDraft) stockDemands() []stockDemand {
	byProduct := make(map[uuid.UUID]int, len(d.Items))
	for _, it := range d.Items {
		byProduct[it.ProductID] += it.Quantity
	}
	demands := make([]stockDemand, 0, len(byProduct))
	for id, qty := range byProduct {
		demands = append(demands, stockDemand{ProductID: id, Quantity: qty})
	}
	sort.Slice(demands, func(i, j int) bool {
		return demands[i].ProductID.String() < demands[j].ProductID.String()
	})
	return demands
}
