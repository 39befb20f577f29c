package repository

import (
	"context"
	"fmt"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const productColumns = `id, name, slug, description, price_cents, unit, image_url, stock, created_at`

// ListProducts retrieves the whole catalog, newest first.
func (s *PostgresStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetProductByID returns (nil, nil) when no such product exists.
func (s *PostgresStore) GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// GetProductBySlug returns (nil, nil) when no such product exists.
func (s *PostgresStore) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	p, err := scanProduct(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// CreateProduct inserts a catalog item, assigning an ID when unset.
func (s *PostgresStore) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO products (id, name, slug, description, price_cents, unit, image_url, stock)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Slug, p.Description, p.PriceCents, p.Unit, p.ImageURL, p.Stock)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateProduct replaces all mutable fields of the product.
func (s *PostgresStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products
		    SET name = $2, slug = $3, description = $4, price_cents = $5, unit = $6, image_url = $7, stock = $8
		  WHERE id = $1`,
		p.ID, p.Name, p.Slug, p.Description, p.PriceCents, p.Unit, p.ImageURL, p.Stock)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewDomainError(model.ErrCodeNotFound, "product not found")
	}
	return nil
}

// DeleteProduct removes a catalog item.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.PriceCents, &p.Unit, &p.ImageURL, &p.Stock, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
