package model

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog item. Prices are integer cents.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents"`
	Unit        string    `json:"unit"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductRequest is the admin payload for creating or updating a product.
type ProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Slug        string  `json:"slug" validate:"required"`
	Description string  `json:"description"`
	PriceCents  int64   `json:"priceCents" validate:"min=0"`
	Unit        string  `json:"unit"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Stock       int     `json:"stock" validate:"min=0"`
}
