package handler

import (
	"trade-settlement-engine/internal/adapter/http/middleware"
	"trade-settlement-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	ClientSvc      ports.ClientService
	SettlementSvc  ports.SettlementService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")

	clientHandler := NewClientHandler(deps.ClientSvc, deps.SettlementSvc)
	clients := v1.Group("/clients")
	{
		clients.POST("", clientHandler.Create)
		clients.GET("", clientHandler.List)
		clients.GET("/search", clientHandler.Search)
		clients.GET("/profit-range", clientHandler.SearchProfitRange)
		clients.GET("/:id", clientHandler.GetByID)
		clients.PATCH("/:id", clientHandler.Update)
		clients.GET("/:id/profit", clientHandler.GetProfit)
		clients.GET("/:id/orders", clientHandler.ListOrders)
	}

	orderHandler := NewOrderHandler(deps.SettlementSvc)
	orders := v1.Group("/orders")
	{
		orders.POST("", orderHandler.Settle)
		orders.GET("", orderHandler.List)
	}

	return r
}
