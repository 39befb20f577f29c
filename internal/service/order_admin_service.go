package service

import (
	"context"
	"fmt"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderAdminService implements OrderAdminService.
type orderAdminService struct {
	orders repository.OrderStore
	logger zerolog.Logger
}

// NewOrderAdminService creates the admin order reporting service.
func NewOrderAdminService(orders repository.OrderStore, logger zerolog.Logger) OrderAdminService {
	return &orderAdminService{
		orders: orders,
		logger: logger.With().Str("service", "order-admin").Logger(),
	}
}

func (s *orderAdminService) List(ctx context.Context) ([]model.Order, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderAdminService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (s *orderAdminService) Stats(ctx context.Context) (*model.OrderStats, error) {
	stats, err := s.orders.OrderStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute order stats: %w", err)
	}
	return stats, nil
}
