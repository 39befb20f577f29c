package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/config"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/gateway"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/handler"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/notify"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/repository"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/router"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Best-effort .env for local development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting carnes-del-mercado API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the storage backend selected by DATABASE_URL
	store, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialise schema: %w", err)
	}

	// Payment gateway client
	gatewayClient := gateway.NewClient(gateway.Config{
		AccessToken:     cfg.Gateway.AccessToken,
		BaseURL:         cfg.Gateway.BaseURL,
		IntegratorID:    cfg.Gateway.IntegratorID,
		Timeout:         time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second,
		FrontendOrigin:  cfg.Gateway.FrontendOrigin,
		NotificationURL: cfg.Gateway.NotificationURL,
	}, logger)

	// Notification sink (no-op when unconfigured)
	notifier := notify.New(notify.WhatsAppConfig{
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
		To:            cfg.WhatsApp.To,
	}, logger)

	// Initialize services
	checkoutService := service.NewCheckoutService(store, store, gatewayClient, notifier, logger)
	reconcileService := service.NewReconcileService(store, gatewayClient, notifier, nil, logger)
	productService := service.NewProductService(store, logger)
	orderAdminService := service.NewOrderAdminService(store, logger)

	// Initialize handlers
	productHandler := handler.NewProductHandler(productService, logger)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, logger)
	webhookHandler := handler.NewWebhookHandler(reconcileService, logger)
	orderHandler := handler.NewOrderHandler(orderAdminService, logger)

	// Initialize router with middleware
	routes := router.New(productHandler, checkoutHandler, webhookHandler, orderHandler, router.Config{
		AdminToken:  cfg.Auth.AdminToken,
		CORSOrigins: cfg.CORS.Origins,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      routes,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("address", server.Addr).Msg("server listening")
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("shutdown started")

		// Give outstanding requests a deadline for completion
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
			if err := server.Close(); err != nil {
				return fmt.Errorf("failed to close server: %w", err)
			}
		}

		// Let acked webhook reconciliations finish before closing the store
		webhookHandler.Wait()

		logger.Info().Msg("shutdown complete")
	}

	return nil
}
