package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SQLiteStore implements Store over an embedded single-file database,
// for single-instance deployments without a Postgres server.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore creates a new SQLite-backed store.
func NewSQLiteStore(db *sql.DB, logger zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger.With().Str("store", "sqlite").Logger(),
	}
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Error().Err(err).Msg("failed to close sqlite database")
	}
}

// InitSchema idempotently ensures all tables and indexes exist.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price_cents INTEGER NOT NULL,
			unit TEXT NOT NULL DEFAULT 'kg',
			image_url TEXT,
			stock INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'pending',
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			delivery_mode TEXT NOT NULL,
			delivery_address TEXT,
			total_cents INTEGER NOT NULL DEFAULT 0,
			payment_preference_id TEXT,
			payment_init_url TEXT,
			payment_id TEXT,
			payment_status TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			unit_price_cents INTEGER NOT NULL,
			currency TEXT NOT NULL DEFAULT 'ARS',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_payment_preference_id ON orders (payment_preference_id)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}

	s.logger.Debug().Msg("schema initialised")
	return nil
}

// CreateOrder persists order, items and stock decrements in one transaction.
func (s *SQLiteStore) CreateOrder(ctx context.Context, draft *OrderDraft) (uuid.UUID, error) {
	if err := draft.validate(); err != nil {
		return uuid.Nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, d := range draft.stockDemands() {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`,
			d.Quantity, d.ProductID, d.Quantity)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			s.logger.Warn().
				Str("product_id", d.ProductID.String()).
				Int("quantity", d.Quantity).
				Msg("stock decrement rejected")
			return uuid.Nil, model.ErrOutOfStock
		}
	}

	orderID := uuid.New()
	now := time.Now().UTC()

	var address any
	if draft.DeliveryAddress != nil {
		encoded, err := json.Marshal(draft.DeliveryAddress)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to encode delivery address: %w", err)
		}
		address = string(encoded)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, status, email, name, phone, notes, delivery_mode, delivery_address, total_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		orderID, model.StatusPending, draft.Email, draft.Name, draft.Phone, draft.Notes,
		draft.DeliveryMode, address, draft.TotalCents, now, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, it := range draft.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, title, quantity, unit_price_cents, currency, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New(), orderID, it.Title, it.Quantity, it.UnitPriceCents, it.Currency, now)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit order: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Int64("total_cents", draft.TotalCents).
		Int("item_count", len(draft.Items)).
		Msg("order created")

	return orderID, nil
}

// AttachPaymentPreference records the gateway preference; re-attaching the
// same values is a safe overwrite.
func (s *SQLiteStore) AttachPaymentPreference(ctx context.Context, orderID uuid.UUID, preferenceID, initURL string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET payment_preference_id = ?, payment_init_url = ?, updated_at = ? WHERE id = ?`,
		preferenceID, initURL, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("failed to attach payment preference: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// ApplyPaymentOutcome performs the one-way pending->terminal transition
// via a conditional update; replays observe zero affected rows.
func (s *SQLiteStore) ApplyPaymentOutcome(ctx context.Context, externalRef, paymentID string, status model.OrderStatus, rawStatus string) (*ApplyResult, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("cannot apply non-terminal status %q", status)
	}

	orderID, err := uuid.Parse(externalRef)
	if err != nil {
		return nil, model.ErrOrderNotFound
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders
		    SET status = ?, payment_id = ?, payment_status = ?, updated_at = ?
		  WHERE id = ? AND status = ?`,
		status, paymentID, rawStatus, time.Now().UTC(), orderID, model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to apply payment outcome: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	changed := affected == 1

	order, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if changed {
		s.logger.Info().
			Str("order_id", orderID.String()).
			Str("status", string(status)).
			Str("payment_id", paymentID).
			Msg("payment outcome applied")
	} else {
		s.logger.Debug().
			Str("order_id", orderID.String()).
			Str("status", string(order.Status)).
			Msg("payment outcome replay ignored")
	}

	return &ApplyResult{Order: order, Changed: changed}, nil
}

// GetOrderByID retrieves an order with its items, or (nil, nil) when missing.
func (s *SQLiteStore) GetOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, email, name, phone, notes, delivery_mode, delivery_address, total_cents,
		        payment_preference_id, payment_init_url, payment_id, payment_status, created_at, updated_at
		   FROM orders WHERE id = ?`, id)

	order, err := scanSQLiteOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, title, quantity, unit_price_cents, currency
		   FROM order_items WHERE order_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Title, &it.Quantity, &it.UnitPriceCents, &it.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return order, nil
}

// ListOrders retrieves all orders with items, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, email, name, phone, notes, delivery_mode, delivery_address, total_cents,
		        payment_preference_id, payment_init_url, payment_id, payment_status, created_at, updated_at
		   FROM orders ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		order, err := scanSQLiteOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		index[order.ID] = len(orders)
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	itemRows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, title, quantity, unit_price_cents, currency
		   FROM order_items ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it model.OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.Title, &it.Quantity, &it.UnitPriceCents, &it.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return orders, nil
}

// OrderStats summarises order volume, approved revenue and best sellers.
func (s *SQLiteStore) OrderStats(ctx context.Context) (*model.OrderStats, error) {
	stats := &model.OrderStats{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&stats.TotalOrders); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_cents), 0) FROM orders WHERE status = ?`,
		model.StatusApproved).Scan(&stats.RevenueCents); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, SUM(quantity) AS qty FROM order_items GROUP BY title ORDER BY qty DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tp model.TopProduct
		if err := rows.Scan(&tp.Title, &tp.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan top product: %w", err)
		}
		stats.TopProducts = append(stats.TopProducts, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top products: %w", err)
	}

	return stats, nil
}

// sqlRow abstracts *sql.Row and *sql.Rows for shared scanning.
type sqlRow interface {
	Scan(dest ...any) error
}

func scanSQLiteOrder(row sqlRow) (*model.Order, error) {
	var (
		order   model.Order
		address []byte
	)
	err := row.Scan(
		&order.ID, &order.Status, &order.Email, &order.Name, &order.Phone, &order.Notes,
		&order.DeliveryMode, &address, &order.TotalCents,
		&order.PaymentPreferenceID, &order.PaymentInitURL, &order.PaymentID, &order.PaymentStatus,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(address) > 0 {
		order.DeliveryAddress = &model.DeliveryAddress{}
		if err := json.Unmarshal(address, order.DeliveryAddress); err != nil {
			return nil, fmt.Errorf("failed to decode delivery address: %w", err)
		}
	}
	return &order, nil
}
