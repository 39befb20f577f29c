package service

import (
	"context"
	"fmt"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	products repository.ProductStore
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewProductService creates the catalog service.
func NewProductService(products repository.ProductStore, logger zerolog.Logger) ProductService {
	return &productService{
		products: products,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("service", "product").Logger(),
	}
}

func (s *productService) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *productService) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	product, err := s.products.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	product := productFromRequest(req)
	product.ID = uuid.New()
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().
		Str("product_id", product.ID.String()).
		Str("slug", product.Slug).
		Msg("product created")

	return product, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req *model.ProductRequest) (*model.Product, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	product := productFromRequest(req)
	product.ID = id
	if err := s.products.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("product_id", id.String()).
		Str("slug", product.Slug).
		Msg("product updated")

	return product, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("product_id", id.String()).Msg("product deleted")
	return nil
}

func (s *productService) validateRequest(req *model.ProductRequest) error {
	if req == nil {
		return model.NewValidationError("request body is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return model.NewValidationError(err.Error())
	}
	return nil
}

func productFromRequest(req *model.ProductRequest) *model.Product {
	unit := req.Unit
	if unit == "" {
		unit = "kg"
	}
	return &model.Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Unit:        unit,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
	}
}
