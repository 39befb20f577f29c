package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/database"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)

	store := NewSQLiteStore(db, zerolog.Nop())
	require.NoError(t, store.InitSchema(context.Background()))
	t.Cleanup(store.Close)

	return store
}

func seedProduct(t *testing.T, store *SQLiteStore, name string, priceCents int64, stock int) *model.Product {
	t.Helper()

	p := &model.Product{
		Name:       name,
		Slug:       name,
		PriceCents: priceCents,
		Unit:       "kg",
		Stock:      stock,
	}
	require.NoError(t, store.CreateProduct(context.Background(), p))
	return p
}

func draftFor(products []*model.Product, quantities []int) *OrderDraft {
	draft := &OrderDraft{
		Email:        "cliente@example.com",
		Name:         "Cliente",
		Phone:        "+5491100000000",
		DeliveryMode: model.DeliveryModePickup,
	}
	for i, p := range products {
		draft.Items = append(draft.Items, OrderDraftItem{
			ProductID:      p.ID,
			Title:          p.Name,
			Quantity:       quantities[i],
			UnitPriceCents: p.PriceCents,
			Currency:       model.DefaultCurrency,
		})
		draft.TotalCents += p.PriceCents * int64(quantities[i])
	}
	return draft
}

func TestSQLiteStore_InitSchema_Idempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InitSchema(context.Background()))
	require.NoError(t, store.InitSchema(context.Background()))
}

func TestSQLiteStore_CreateOrder_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	asado := seedProduct(t, store, "asado", 1550, 10)
	chorizo := seedProduct(t, store, "chorizo", 800, 5)

	draft := draftFor([]*model.Product{asado, chorizo}, []int{2, 1})
	draft.DeliveryMode = model.DeliveryModeDelivery
	draft.DeliveryAddress = &model.DeliveryAddress{
		Street:     "Av. Siempreviva",
		Number:     "742",
		City:       "Rosario",
		Province:   "Santa Fe",
		PostalCode: "2000",
	}
	draft.Notes = "tocar timbre"

	orderID, err := store.CreateOrder(ctx, draft)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, orderID)

	order, err := store.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, "cliente@example.com", order.Email)
	assert.Equal(t, "tocar timbre", order.Notes)
	assert.Equal(t, int64(2*1550+800), order.TotalCents)
	assert.Equal(t, model.DeliveryModeDelivery, order.DeliveryMode)
	require.NotNil(t, order.DeliveryAddress)
	assert.Equal(t, "Rosario", order.DeliveryAddress.City)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "asado", order.Items[0].Title)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, int64(1550), order.Items[0].UnitPriceCents)
	assert.Equal(t, "ARS", order.Items[0].Currency)
	assert.Nil(t, order.PaymentPreferenceID)
	assert.Nil(t, order.PaymentID)

	// Stock was held inside the same transaction
	p, err := store.GetProductByID(ctx, asado.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock)

	p, err = store.GetProductByID(ctx, chorizo.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)
}

func TestSQLiteStore_CreateOrder_OutOfStockRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	asado := seedProduct(t, store, "asado", 1550, 10)
	vacio := seedProduct(t, store, "vacio", 2100, 1)

	draft := draftFor([]*model.Product{asado, vacio}, []int{2, 3})
	_, err := store.CreateOrder(ctx, draft)
	require.ErrorIs(t, err, model.ErrOutOfStock)

	// Neither decrement nor order may survive the abort
	p, err := store.GetProductByID(ctx, asado.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)

	orders, err := store.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSQLiteStore_CreateOrder_RejectsInvalidDrafts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, store, "asado", 1550, 10)

	tests := []struct {
		name  string
		draft *OrderDraft
	}{
		{"empty items", &OrderDraft{Email: "a@b.com", DeliveryMode: model.DeliveryModePickup}},
		{"zero quantity", draftFor([]*model.Product{p}, []int{0})},
		{"non-positive price", func() *OrderDraft {
			d := draftFor([]*model.Product{p}, []int{1})
			d.Items[0].UnitPriceCents = 0
			return d
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.CreateOrder(ctx, tt.draft)
			require.Error(t, err)

			var domainErr *model.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, model.ErrCodeValidation, domainErr.Code)
		})
	}
}

func TestSQLiteStore_AttachPaymentPreference(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, store, "asado", 1550, 10)
	orderID, err := store.CreateOrder(ctx, draftFor([]*model.Product{p}, []int{1}))
	require.NoError(t, err)

	require.NoError(t, store.AttachPaymentPreference(ctx, orderID, "pref-1", "https://mp.example/init"))

	// Re-attaching the same preference is a safe overwrite
	require.NoError(t, store.AttachPaymentPreference(ctx, orderID, "pref-1", "https://mp.example/init"))

	order, err := store.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, order.PaymentPreferenceID)
	assert.Equal(t, "pref-1", *order.PaymentPreferenceID)
	require.NotNil(t, order.PaymentInitURL)
	assert.Equal(t, "https://mp.example/init", *order.PaymentInitURL)

	err = store.AttachPaymentPreference(ctx, uuid.New(), "pref-2", "https://mp.example/init")
	require.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestSQLiteStore_ApplyPaymentOutcome(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, store, "asado", 1550, 10)
	orderID, err := store.CreateOrder(ctx, draftFor([]*model.Product{p}, []int{1}))
	require.NoError(t, err)

	result, err := store.ApplyPaymentOutcome(ctx, orderID.String(), "pay-1", model.StatusApproved, "approved")
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, model.StatusApproved, result.Order.Status)
	require.NotNil(t, result.Order.PaymentID)
	assert.Equal(t, "pay-1", *result.Order.PaymentID)
	require.NotNil(t, result.Order.PaymentStatus)
	assert.Equal(t, "approved", *result.Order.PaymentStatus)

	// Same-outcome replay observes the terminal state without changing it
	result, err = store.ApplyPaymentOutcome(ctx, orderID.String(), "pay-1", model.StatusApproved, "approved")
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, model.StatusApproved, result.Order.Status)

	// Conflicting replay never overwrites the first terminal outcome
	result, err = store.ApplyPaymentOutcome(ctx, orderID.String(), "pay-2", model.StatusRejected, "rejected")
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, model.StatusApproved, result.Order.Status)
	assert.Equal(t, "pay-1", *result.Order.PaymentID)
}

func TestSQLiteStore_ApplyPaymentOutcome_UnknownOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ApplyPaymentOutcome(ctx, uuid.New().String(), "pay-1", model.StatusApproved, "approved")
	require.ErrorIs(t, err, model.ErrOrderNotFound)

	_, err = store.ApplyPaymentOutcome(ctx, "not-a-uuid", "pay-1", model.StatusApproved, "approved")
	require.ErrorIs(t, err, model.ErrOrderNotFound)

	_, err = store.ApplyPaymentOutcome(ctx, uuid.New().String(), "pay-1", model.StatusPending, "pending")
	require.Error(t, err)
}

func TestSQLiteStore_ApplyPaymentOutcome_ConcurrentDeliveries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, store, "asado", 1550, 10)
	orderID, err := store.CreateOrder(ctx, draftFor([]*model.Product{p}, []int{1}))
	require.NoError(t, err)

	const deliveries = 8
	results := make(chan bool, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := store.ApplyPaymentOutcome(ctx, orderID.String(), "pay-1", model.StatusApproved, "approved")
			if err != nil {
				return
			}
			results <- result.Changed
		}()
	}
	wg.Wait()
	close(results)

	changed := 0
	for c := range results {
		if c {
			changed++
		}
	}
	assert.Equal(t, 1, changed, "exactly one delivery may win the transition")

	order, err := store.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, order.Status)
}

func TestSQLiteStore_CreateOrder_ConcurrentStockBound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const stock = 5
	const shoppers = 12
	p := seedProduct(t, store, "asado", 1550, stock)

	var wg sync.WaitGroup
	errs := make(chan error, shoppers)
	for i := 0; i < shoppers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateOrder(ctx, draftFor([]*model.Product{p}, []int{1}))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case err == model.ErrOutOfStock:
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, stock, succeeded)
	assert.Equal(t, shoppers-stock, rejected)

	remaining, err := store.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining.Stock, "stock must never go negative")
}

func TestSQLiteStore_ListOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, store, "asado", 1550, 100)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id, err := store.CreateOrder(ctx, draftFor([]*model.Product{p}, []int{i + 1}))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	orders, err := store.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	for _, o := range orders {
		require.Len(t, o.Items, 1)
	}
}

func TestSQLiteStore_OrderStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, store, "asado", 1000, 100)

	approvedID, err := store.CreateOrder(ctx, draftFor([]*model.Product{p}, []int{2}))
	require.NoError(t, err)
	_, err = store.CreateOrder(ctx, draftFor([]*model.Product{p}, []int{1}))
	require.NoError(t, err)

	_, err = store.ApplyPaymentOutcome(ctx, approvedID.String(), "pay-1", model.StatusApproved, "approved")
	require.NoError(t, err)

	stats, err := store.OrderStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, int64(2000), stats.RevenueCents, "revenue counts approved orders only")
	require.Len(t, stats.TopProducts, 1)
	assert.Equal(t, "asado", stats.TopProducts[0].Title)
	assert.Equal(t, int64(3), stats.TopProducts[0].Quantity)
}

func TestSQLiteStore_ProductCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := &model.Product{
		Name:        "Asado de tira",
		Slug:        "asado-de-tira",
		Description: "corte clasico",
		PriceCents:  1550,
		Unit:        "kg",
		Stock:       10,
	}
	require.NoError(t, store.CreateProduct(ctx, p))
	require.NotEqual(t, uuid.Nil, p.ID)

	got, err := store.GetProductBySlug(ctx, "asado-de-tira")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, int64(1550), got.PriceCents)

	missing, err := store.GetProductBySlug(ctx, "no-such-slug")
	require.NoError(t, err)
	assert.Nil(t, missing)

	got.PriceCents = 1700
	got.Stock = 4
	require.NoError(t, store.UpdateProduct(ctx, got))

	got, err = store.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1700), got.PriceCents)
	assert.Equal(t, 4, got.Stock)

	err = store.UpdateProduct(ctx, &model.Product{ID: uuid.New(), Name: "x", Slug: "x", PriceCents: 1})
	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.ErrCodeNotFound, domainErr.Code)

	require.NoError(t, store.DeleteProduct(ctx, p.ID))
	gone, err := store.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestOrderDraft_StockDemands_Aggregates(t *testing.T) {
	id := uuid.New()
	draft := &OrderDraft{Items: []OrderDraftItem{
		{ProductID: id, Quantity: 2, UnitPriceCents: 100},
		{ProductID: id, Quantity: 3, UnitPriceCents: 100},
	}}

	demands := draft.stockDemands()
	require.Len(t, demands, 1)
	assert.Equal(t, 5, demands[0].Quantity)
	assert.Equal(t, fmt.Sprint(id), fmt.Sprint(demands[0].ProductID))
}
