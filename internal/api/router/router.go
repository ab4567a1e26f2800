package router

import (
	"net/http"

	"github.com/RoyceAzure/lab/foodorder/internal/api"
	m "github.com/RoyceAzure/lab/foodorder/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// SetupRouter metricsHandler 為 nil 時不開 /metrics
func SetupRouter(server *api.Server, logger *zerolog.Logger, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// 全局中間件
	r.Use(m.RequestIdMiddleware)
	r.Use(m.TracingMiddleware)
	r.Use(middleware.RealIP)
	r.Use(m.LoggerMiddleware(logger))

	r.Get("/health", server.HealthHandler.Health)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// API 路由
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.CallerIdentityMiddleware)

		r.With(m.NewRateLimitMiddleware(server.CheckoutLimiter, "checkout", logger)).
			Post("/checkout", server.OrderHandler.Checkout)
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", server.OrderHandler.ListOrders)
			r.Get("/{id}", server.OrderHandler.GetOrder)
			r.Patch("/{id}/payment", server.OrderHandler.UpdatePayment)
		})
	})
	return r
}
