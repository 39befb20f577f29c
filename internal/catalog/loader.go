// Package catalog loads product seed files used to populate the store,
// either from the local filesystem or from S3.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// SeedProduct is one catalog entry in a seed file.
type SeedProduct struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	PriceCents  int64   `json:"priceCents"`
	Unit        string  `json:"unit"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Stock       int     `json:"stock"`
}

// Loader reads a product seed file identified by a source string (a file
// path for the local loader, an object key for the S3 loader).
type Loader interface {
	Load(ctx context.Context, source string) ([]SeedProduct, error)
}

// fileLoader implements Loader for local JSON seed files.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based seed loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "catalog-loader").Logger(),
	}
}

// Load reads a JSON array of seed products from a local file.
func (l *fileLoader) Load(ctx context.Context, path string) ([]SeedProduct, error) {
	l.logger.Info().Str("file", path).Msg("loading catalog seed file")

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file %s: %w", path, err)
	}
	defer file.Close()

	products, err := decodeSeed(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode seed file %s: %w", path, err)
	}

	l.logger.Info().
		Str("file", path).
		Int("products", len(products)).
		Msg("catalog seed file loaded")

	return products, nil
}

func decodeSeed(r io.Reader) ([]SeedProduct, error) {
	var products []SeedProduct
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, err
	}
	for i, p := range products {
		if p.Name == "" || p.Slug == "" {
			return nil, fmt.Errorf("seed product %d: name and slug are required", i)
		}
		if p.PriceCents <= 0 {
			return nil, fmt.Errorf("seed product %d (%s): price must be positive", i, p.Slug)
		}
	}
	return products, nil
}
