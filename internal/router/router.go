package router

import (
	"net/http"
	"strings"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/handler"
	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/middleware"

	"github.com/rs/zerolog"
)

// Config carries the router's cross-cutting settings.
type Config struct {
	AdminToken  string
	CORSOrigins []string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	checkoutHandler *handler.CheckoutHandler,
	webhookHandler *handler.WebhookHandler,
	orderHandler *handler.OrderHandler,
	cfg Config,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Public catalog
	productRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products" && r.URL.Path != "/api/products/" {
			productHandler.GetBySlug(w, r)
			return
		}
		productHandler.List(w, r)
	}
	mux.HandleFunc("/api/products", productRouteHandler)
	mux.HandleFunc("/api/products/", productRouteHandler)

	// Checkout and webhook
	mux.HandleFunc("/api/checkout", checkoutHandler.Create)
	mux.HandleFunc("/api/webhook", webhookHandler.Receive)

	// Admin: orders and reporting
	orderRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/admin/orders" || r.URL.Path == "/api/admin/orders/":
			orderHandler.List(w, r)
		case r.URL.Path == "/api/admin/orders/export":
			orderHandler.Export(w, r)
		case strings.HasPrefix(r.URL.Path, "/api/admin/orders/"):
			orderHandler.GetByID(w, r)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}
	mux.HandleFunc("/api/admin/orders", orderRouteHandler)
	mux.HandleFunc("/api/admin/orders/", orderRouteHandler)
	mux.HandleFunc("/api/admin/stats", orderHandler.Stats)

	// Admin: catalog management
	mux.HandleFunc("/api/admin/products", productHandler.Admin)
	mux.HandleFunc("/api/admin/products/", productHandler.Admin)

	// Apply middleware in order: Recovery -> Logging -> CORS -> AdminAuth
	var h http.Handler = mux
	h = middleware.AdminAuth(cfg.AdminToken, logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
