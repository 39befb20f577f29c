package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/gateway"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/notify"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	orders   repository.OrderStore
	products repository.ProductStore
	gateway  PaymentGateway
	notifier notify.Notifier
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewCheckoutService creates the checkout orchestrator.
func NewCheckoutService(
	orders repository.OrderStore,
	products repository.ProductStore,
	pg PaymentGateway,
	notifier notify.Notifier,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		orders:   orders,
		products: products,
		gateway:  pg,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("service", "checkout").Logger(),
	}
}

// Checkout validates the cart, persists the pending order atomically with
// its stock decrements, then requests a payment preference. A gateway
// failure leaves the order pending and surfaces a retryable GatewayFailure.
func (s *checkoutService) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	draft, err := s.resolveCart(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.TotalCents != nil && *req.TotalCents != draft.TotalCents {
		s.logger.Warn().
			Int64("client_total", *req.TotalCents).
			Int64("computed_total", draft.TotalCents).
			Msg("client total mismatch")
		return nil, model.NewValidationError(
			fmt.Sprintf("total mismatch: client sent %d, computed %d", *req.TotalCents, draft.TotalCents))
	}

	orderID, err := s.orders.CreateOrder(ctx, draft)
	if err != nil {
		return nil, err
	}

	pref, err := s.createPreference(ctx, orderID, req.Email, draft)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("payment preference creation failed, order stays pending")
		return nil, &GatewayFailure{OrderID: orderID, Err: err}
	}

	if err := s.orders.AttachPaymentPreference(ctx, orderID, pref.ID, pref.InitURL); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Str("preference_id", pref.ID).
			Msg("failed to attach payment preference")
		return nil, fmt.Errorf("failed to attach payment preference: %w", err)
	}

	s.notifyAsync(fmt.Sprintf("🛒 Nueva orden %s por $%s (%d items), a la espera de pago.",
		orderID, formatCents(draft.TotalCents), len(draft.Items)))

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("preference_id", pref.ID).
		Msg("checkout completed")

	return &model.CheckoutResponse{
		OrderID:      orderID,
		PreferenceID: pref.ID,
		InitURL:      pref.InitURL,
	}, nil
}

// validateRequest enforces the input constraints before anything is
// resolved or persisted.
func (s *checkoutService) validateRequest(req *model.CheckoutRequest) error {
	if req == nil {
		return model.NewValidationError("request body is required")
	}

	if err := s.validate.Struct(req); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			fe := invalid[0]
			return model.NewValidationError(
				fmt.Sprintf("invalid field %s: failed %s validation", fe.Namespace(), fe.Tag()))
		}
		return model.NewValidationError(err.Error())
	}

	if req.Delivery.Mode == model.DeliveryModeDelivery {
		return validateAddress(req.Delivery.Address)
	}
	return nil
}

func validateAddress(addr *model.DeliveryAddress) error {
	if addr == nil {
		return model.NewValidationError("delivery address is required for delivery mode")
	}
	missing := func(field, value string) error {
		if value == "" {
			return model.NewValidationError("delivery address missing " + field)
		}
		return nil
	}
	for _, check := range []struct{ field, value string }{
		{"street", addr.Street},
		{"number", addr.Number},
		{"city", addr.City},
		{"province", addr.Province},
		{"postal code", addr.PostalCode},
	} {
		if err := missing(check.field, check.value); err != nil {
			return err
		}
	}
	return nil
}

// resolveCart prices every cart line against the catalog. Both unknown
// products and insufficient stock are reported before any persistence;
// the authoritative stock check still happens inside CreateOrder.
func (s *checkoutService) resolveCart(ctx context.Context, req *model.CheckoutRequest) (*repository.OrderDraft, error) {
	draft := &repository.OrderDraft{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		Notes:        req.Notes,
		DeliveryMode: req.Delivery.Mode,
		Items:        make([]repository.OrderDraftItem, 0, len(req.Items)),
	}
	if req.Delivery.Mode == model.DeliveryModeDelivery {
		draft.DeliveryAddress = req.Delivery.Address
	}

	requested := make(map[uuid.UUID]int, len(req.Items))
	for _, line := range req.Items {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, model.ErrUnknownProduct
		}

		product, err := s.products.GetProductByID(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve product: %w", err)
		}
		if product == nil {
			s.logger.Warn().Str("product_id", line.ProductID).Msg("unknown product in cart")
			return nil, model.ErrUnknownProduct
		}
		if product.PriceCents <= 0 {
			return nil, model.NewValidationError(
				fmt.Sprintf("product %s has no valid price", product.Slug))
		}

		requested[productID] += line.Quantity
		if requested[productID] > product.Stock {
			s.logger.Warn().
				Str("product_id", line.ProductID).
				Int("requested", requested[productID]).
				Int("stock", product.Stock).
				Msg("insufficient stock")
			return nil, model.ErrOutOfStock
		}

		title := product.Name
		if len(title) > model.MaxItemTitleLength {
			title = title[:model.MaxItemTitleLength]
		}

		draft.Items = append(draft.Items, repository.OrderDraftItem{
			ProductID:      productID,
			Title:          title,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents,
			Currency:       model.DefaultCurrency,
		})
		draft.TotalCents += product.PriceCents * int64(line.Quantity)
	}

	return draft, nil
}

func (s *checkoutService) createPreference(ctx context.Context, orderID uuid.UUID, email string, draft *repository.OrderDraft) (*gateway.Preference, error) {
	items := make([]gateway.PreferenceItem, len(draft.Items))
	for i, it := range draft.Items {
		items[i] = gateway.PreferenceItem{
			Title:      it.Title,
			Quantity:   it.Quantity,
			UnitPrice:  float64(it.UnitPriceCents) / 100,
			CurrencyID: it.Currency,
		}
	}
	return s.gateway.CreatePreference(ctx, gateway.CreatePreferenceInput{
		PayerEmail:        email,
		Items:             items,
		ExternalReference: orderID.String(),
	})
}

// notifyAsync delivers the summary without blocking the checkout response.
func (s *checkoutService) notifyAsync(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.Send(ctx, text); err != nil {
			s.logger.Warn().Err(err).Msg("order notification failed")
		}
	}()
}
