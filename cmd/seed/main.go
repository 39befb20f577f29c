// Command seed populates the product catalog from a JSON seed file,
// read from the local filesystem or from S3. Existing products are
// matched by slug and updated in place.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/catalog"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/config"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	ctx := context.Background()

	store, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialise schema: %w", err)
	}

	var loader catalog.Loader
	if cfg.Seed.S3Enabled {
		loader, err = catalog.NewS3Loader(ctx, cfg.Seed.S3Bucket, cfg.Seed.S3Region, logger)
		if err != nil {
			return fmt.Errorf("failed to create S3 loader: %w", err)
		}
	} else {
		loader = catalog.NewFileLoader(logger)
	}

	seeds, err := loader.Load(ctx, cfg.Seed.Source)
	if err != nil {
		return fmt.Errorf("failed to load seed: %w", err)
	}

	created, updated := 0, 0
	for _, seed := range seeds {
		existing, err := store.GetProductBySlug(ctx, seed.Slug)
		if err != nil {
			return fmt.Errorf("failed to look up product %s: %w", seed.Slug, err)
		}

		product := model.Product{
			Name:        seed.Name,
			Slug:        seed.Slug,
			Description: seed.Description,
			PriceCents:  seed.PriceCents,
			Unit:        seed.Unit,
			ImageURL:    seed.ImageURL,
			Stock:       seed.Stock,
		}
		if product.Unit == "" {
			product.Unit = "kg"
		}

		if existing == nil {
			if err := store.CreateProduct(ctx, &product); err != nil {
				return fmt.Errorf("failed to create product %s: %w", seed.Slug, err)
			}
			created++
			continue
		}

		product.ID = existing.ID
		if err := store.UpdateProduct(ctx, &product); err != nil {
			return fmt.Errorf("failed to update product %s: %w", seed.Slug, err)
		}
		updated++
	}

	logger.Info().
		Int("created", created).
		Int("updated", updated).
		Msg("catalog seeded")

	return nil
}
