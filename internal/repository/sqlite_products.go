package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"

	"github.com/google/uuid"
)

// ListProducts retrieves the whole catalog, newest first.
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanSQLiteProduct(rows)
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
func (s *SQLiteStore) GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanSQLiteProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// GetProductBySlug returns (nil, nil) when no such product exists.
func (s *SQLiteStore) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE slug = ?`, slug)
	p, err := scanSQLiteProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// CreateProduct inserts a catalog item, assigning an ID when unset.
func (s *SQLiteStore) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, slug, description, price_cents, unit, image_url, stock, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Slug, p.Description, p.PriceCents, p.Unit, p.ImageURL, p.Stock, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateProduct replaces all mutable fields of the product.
func (s *SQLiteStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		    SET name = ?, slug = ?, description = ?, price_cents = ?, unit = ?, image_url = ?, stock = ?
		  WHERE id = ?`,
		p.Name, p.Slug, p.Description, p.PriceCents, p.Unit, p.ImageURL, p.Stock, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return model.NewDomainError(model.ErrCodeNotFound, "product not found")
	}
	return nil
}

// DeleteProduct removes a catalog item.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func scanSQLiteProduct(row sqlRow) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.PriceCents, &p.Unit, &p.ImageURL, &p.Stock, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
