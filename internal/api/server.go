package api

import (
	"github.com/RoyceAzure/lab/foodorder/internal/api/handler"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/ratelimit"
)

type Server struct {
	OrderHandler  *handler.OrderHandler
	HealthHandler *handler.HealthHandler
	// 結帳限流，nil 表示不限
	CheckoutLimiter ratelimit.Limiter
}

func NewServer(
	orderHandler *handler.OrderHandler,
	healthHandler *handler.HealthHandler,
) *Server {
	return &Server{
		OrderHandler:  orderHandler,
		HealthHandler: healthHandler,
	}
}
