package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/gateway"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderStore is a mock implementation of repository.OrderStore.
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) CreateOrder(ctx context.Context, draft *repository.OrderDraft) (uuid.UUID, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockOrderStore) AttachPaymentPreference(ctx context.Context, orderID uuid.UUID, preferenceID, initURL string) error {
	args := m.Called(ctx, orderID, preferenceID, initURL)
	return args.Error(0)
}

func (m *MockOrderStore) ApplyPaymentOutcome(ctx context.Context, externalRef, paymentID string, status model.OrderStatus, rawStatus string) (*repository.ApplyResult, error) {
	args := m.Called(ctx, externalRef, paymentID, status, rawStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ApplyResult), args.Error(1)
}

func (m *MockOrderStore) GetOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderStore) ListOrders(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderStore) OrderStats(ctx context.Context) (*model.OrderStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderStats), args.Error(1)
}

// MockProductStore is a mock implementation of repository.ProductStore.
type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductStore) GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductStore) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductStore) CreateProduct(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPaymentGateway is a mock implementation of PaymentGateway.
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreatePreference(ctx context.Context, in gateway.CreatePreferenceInput) (*gateway.Preference, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Preference), args.Error(1)
}

func (m *MockPaymentGateway) GetPaymentDetail(ctx context.Context, paymentID string) (*gateway.PaymentDetail, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentDetail), args.Error(1)
}

// chanNotifier captures sent messages for assertions.
type chanNotifier struct {
	messages chan string
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{messages: make(chan string, 8)}
}

func (n *chanNotifier) Send(ctx context.Context, text string) error {
	n.messages <- text
	return nil
}

func (n *chanNotifier) receive(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-n.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification")
		return ""
	}
}

func (n *chanNotifier) assertSilent(t *testing.T) {
	t.Helper()
	select {
	case msg := <-n.messages:
		t.Fatalf("unexpected notification: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func checkoutRequest(products []*model.Product, quantities []int) *model.CheckoutRequest {
	req := &model.CheckoutRequest{
		Email:    "cliente@example.com",
		Name:     "Cliente",
		Delivery: model.CheckoutDelivery{Mode: model.DeliveryModePickup},
	}
	for i, p := range products {
		req.Items = append(req.Items, model.CheckoutItem{
			ProductID: p.ID.String(),
			Quantity:  quantities[i],
		})
	}
	return req
}

func TestCheckoutService_Checkout_Success(t *testing.T) {
	ctx := context.Background()

	asado := &model.Product{ID: uuid.New(), Name: "Asado", Slug: "asado", PriceCents: 1550, Stock: 10}
	chorizo := &model.Product{ID: uuid.New(), Name: "Chorizo", Slug: "chorizo", PriceCents: 800, Stock: 5}

	orders := new(MockOrderStore)
	products := new(MockProductStore)
	pg := new(MockPaymentGateway)
	notifier := newChanNotifier()

	products.On("GetProductByID", mock.Anything, asado.ID).Return(asado, nil)
	products.On("GetProductByID", mock.Anything, chorizo.ID).Return(chorizo, nil)

	orderID := uuid.New()
	orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(d *repository.OrderDraft) bool {
		return d.TotalCents == 2*1550+800 && len(d.Items) == 2
	})).Return(orderID, nil)

	pg.On("CreatePreference", mock.Anything, mock.MatchedBy(func(in gateway.CreatePreferenceInput) bool {
		return in.ExternalReference == orderID.String() &&
			len(in.Items) == 2 &&
			in.Items[0].UnitPrice == 15.50
	})).Return(&gateway.Preference{ID: "pref-1", InitURL: "https://mp.example/init"}, nil)

	orders.On("AttachPaymentPreference", mock.Anything, orderID, "pref-1", "https://mp.example/init").Return(nil)

	svc := NewCheckoutService(orders, products, pg, notifier, zerolog.Nop())
	resp, err := svc.Checkout(ctx, checkoutRequest([]*model.Product{asado, chorizo}, []int{2, 1}))
	require.NoError(t, err)

	assert.Equal(t, orderID, resp.OrderID)
	assert.Equal(t, "pref-1", resp.PreferenceID)
	assert.Equal(t, "https://mp.example/init", resp.InitURL)

	msg := notifier.receive(t)
	assert.Contains(t, msg, "Nueva orden")
	assert.Contains(t, msg, orderID.String())
	assert.Contains(t, msg, "39.00")

	orders.AssertExpectations(t)
	products.AssertExpectations(t)
	pg.AssertExpectations(t)
}

func TestCheckoutService_Checkout_UnknownProduct(t *testing.T) {
	ctx := context.Background()

	orders := new(MockOrderStore)
	products := new(MockProductStore)
	pg := new(MockPaymentGateway)
	notifier := newChanNotifier()

	ghost := &model.Product{ID: uuid.New()}
	products.On("GetProductByID", mock.Anything, ghost.ID).Return(nil, nil)

	svc := NewCheckoutService(orders, products, pg, notifier, zerolog.Nop())
	_, err := svc.Checkout(ctx, checkoutRequest([]*model.Product{ghost}, []int{1}))
	require.ErrorIs(t, err, model.ErrUnknownProduct)

	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	pg.AssertNotCalled(t, "CreatePreference", mock.Anything, mock.Anything)
	notifier.assertSilent(t)
}

func TestCheckoutService_Checkout_OutOfStockAcrossLines(t *testing.T) {
	ctx := context.Background()

	// Two lines of the same product must be checked against stock cumulatively
	asado := &model.Product{ID: uuid.New(), Name: "Asado", Slug: "asado", PriceCents: 1550, Stock: 3}

	orders := new(MockOrderStore)
	products := new(MockProductStore)
	products.On("GetProductByID", mock.Anything, asado.ID).Return(asado, nil)

	svc := NewCheckoutService(orders, products, new(MockPaymentGateway), newChanNotifier(), zerolog.Nop())
	_, err := svc.Checkout(ctx, checkoutRequest([]*model.Product{asado, asado}, []int{2, 2}))
	require.ErrorIs(t, err, model.ErrOutOfStock)

	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCheckoutService_Checkout_TotalMismatch(t *testing.T) {
	ctx := context.Background()

	asado := &model.Product{ID: uuid.New(), Name: "Asado", Slug: "asado", PriceCents: 1550, Stock: 10}

	orders := new(MockOrderStore)
	products := new(MockProductStore)
	products.On("GetProductByID", mock.Anything, asado.ID).Return(asado, nil)

	req := checkoutRequest([]*model.Product{asado}, []int{2})
	wrongTotal := int64(3000)
	req.TotalCents = &wrongTotal

	svc := NewCheckoutService(orders, products, new(MockPaymentGateway), newChanNotifier(), zerolog.Nop())
	_, err := svc.Checkout(ctx, req)
	require.Error(t, err)

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.ErrCodeValidation, domainErr.Code)
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCheckoutService_Checkout_ValidationErrors(t *testing.T) {
	asado := &model.Product{ID: uuid.New(), Name: "Asado", PriceCents: 1550, Stock: 10}

	tests := []struct {
		name   string
		mutate func(*model.CheckoutRequest)
	}{
		{"bad email", func(r *model.CheckoutRequest) { r.Email = "not-an-email" }},
		{"empty cart", func(r *model.CheckoutRequest) { r.Items = nil }},
		{"zero quantity", func(r *model.CheckoutRequest) { r.Items[0].Quantity = 0 }},
		{"delivery without address", func(r *model.CheckoutRequest) {
			r.Delivery = model.CheckoutDelivery{Mode: model.DeliveryModeDelivery}
		}},
		{"delivery address missing city", func(r *model.CheckoutRequest) {
			r.Delivery = model.CheckoutDelivery{
				Mode: model.DeliveryModeDelivery,
				Address: &model.DeliveryAddress{
					Street:     "Av. Siempreviva",
					Number:     "742",
					Province:   "Santa Fe",
					PostalCode: "2000",
				},
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockOrderStore)
			svc := NewCheckoutService(orders, new(MockProductStore), new(MockPaymentGateway), newChanNotifier(), zerolog.Nop())

			req := checkoutRequest([]*model.Product{asado}, []int{1})
			tt.mutate(req)

			_, err := svc.Checkout(context.Background(), req)
			require.Error(t, err)

			var domainErr *model.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, model.ErrCodeValidation, domainErr.Code)
			orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutService_Checkout_GatewayFailureLeavesOrderPending(t *testing.T) {
	ctx := context.Background()

	asado := &model.Product{ID: uuid.New(), Name: "Asado", Slug: "asado", PriceCents: 1550, Stock: 10}

	orders := new(MockOrderStore)
	products := new(MockProductStore)
	pg := new(MockPaymentGateway)
	notifier := newChanNotifier()

	products.On("GetProductByID", mock.Anything, asado.ID).Return(asado, nil)

	orderID := uuid.New()
	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(orderID, nil)
	pg.On("CreatePreference", mock.Anything, mock.Anything).Return(nil, errors.New("gateway down"))

	svc := NewCheckoutService(orders, products, pg, notifier, zerolog.Nop())
	_, err := svc.Checkout(ctx, checkoutRequest([]*model.Product{asado}, []int{1}))
	require.Error(t, err)

	var failure *GatewayFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, orderID, failure.OrderID)

	// The pending order keeps its stock hold; no preference is attached
	orders.AssertNotCalled(t, "AttachPaymentPreference", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifier.assertSilent(t)
}
