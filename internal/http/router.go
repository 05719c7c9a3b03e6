package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/checkout"
	"github.com/fjod/go_cart/commerce-service/internal/metrics"
	"github.com/fjod/go_cart/commerce-service/internal/shopper"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Profiles           *shopper.Registry
	Listings           checkout.ListingFetcher
	Metrics            *metrics.Metrics
	JWTSecret          string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	EmptyCartPath      string
	Log                *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	cartHandler := NewCartHandler(cfg.Listings, cfg.Metrics, cfg.RequestTimeout)
	currencyHandler := NewCurrencyHandler(cfg.Metrics, cfg.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(cfg.Metrics, cfg.RequestTimeout, cfg.EmptyCartPath)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(MetricsMiddleware(cfg.Metrics))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret, cfg.Log))
		r.Use(ProfileMiddleware(cfg.Profiles))

		r.Route("/currency", func(r chi.Router) {
			r.Get("/", currencyHandler.GetCurrency)
			r.Put("/", currencyHandler.SetCurrency)
			r.Get("/price", currencyHandler.GetPrice)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{listing_id}", cartHandler.RemoveItem)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.BeginCheckout)
			r.Get("/{session_id}", checkoutHandler.GetCheckout)
			r.Delete("/{session_id}", checkoutHandler.Discard)
			r.Post("/{session_id}/submit", checkoutHandler.Submit)
			r.Post("/{session_id}/complete", checkoutHandler.Complete)
		})
	})

	return r
}
