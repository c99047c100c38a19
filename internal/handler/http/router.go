package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/MarketplaceGo/internal/service"
	"github.com/utafrali/MarketplaceGo/pkg/health"
	"github.com/utafrali/MarketplaceGo/pkg/middleware"
)

// NewRouter creates a chi router with all marketplace routes registered.
func NewRouter(
	catalogService *service.CatalogService,
	cartService *service.CartService,
	checkoutService *service.CheckoutService,
	fulfillmentService *service.FulfillmentService,
	settlementService *service.SettlementService,
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("marketplace"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(Identity)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	catalogHandler := NewCatalogHandler(catalogService, logger)
	cartHandler := NewCartHandler(cartService, logger)
	orderHandler := NewOrderHandler(checkoutService, fulfillmentService, logger)
	settlementHandler := NewSettlementHandler(settlementService, logger)
	reviewHandler := NewReviewHandler(reviewService, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", catalogHandler.CreateProduct)
		r.Get("/", catalogHandler.ListProducts)
		r.Get("/{id}", catalogHandler.GetProduct)
		r.Post("/{id}/submit", catalogHandler.SubmitProduct)
		r.Post("/{id}/moderation", catalogHandler.ReviewProduct)
		r.Put("/{id}/active", catalogHandler.SetProductActive)
		r.Post("/{id}/reviews", reviewHandler.CreateReview)
		r.Get("/{id}/reviews", reviewHandler.ListReviews)
	})

	r.Route("/api/v1/vendors", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", catalogHandler.CreateVendor)
		r.Get("/", catalogHandler.ListVendors)
		r.Get("/{id}", catalogHandler.GetVendor)
		r.Put("/{id}/commission", catalogHandler.UpdateVendorCommission)
		r.Put("/{id}/active", catalogHandler.SetVendorActive)
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)
		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{productID}", cartHandler.UpdateItemQuantity)
		r.Delete("/items/{productID}", cartHandler.RemoveItem)
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", orderHandler.PlaceOrder)
		r.Get("/", orderHandler.ListOrders)
		r.Get("/{id}", orderHandler.GetOrder)
		r.Put("/{id}/items/{itemID}/fulfillment", orderHandler.UpdateFulfillment)
		r.Post("/{id}/cancel", orderHandler.CancelOrder)
		r.Post("/{id}/refund", orderHandler.RefundOrder)
	})

	r.Get("/api/v1/settlement", settlementHandler.GetSettlement)

	return r
}
