package trade_api

import (
	"log/slog"

	"github.com/dws-trade-store/internal/trade_api/handler"
	"github.com/dws-trade-store/internal/trade_api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	tradeHandler *handler.TradeHandler,
	healthHandler *handler.HealthHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Trade operations
		trades := v1.Group("/trades")
		{
			trades.POST("", tradeHandler.Ingest)
			trades.GET("", tradeHandler.List)
			trades.GET("/:id", tradeHandler.GetByID)
			trades.DELETE("/:id", tradeHandler.Delete)
			trades.GET("/book/:bookId", tradeHandler.ListByBook)
		}

		v1.GET("/statistics", tradeHandler.Statistics)
		v1.POST("/expire-trades", tradeHandler.TriggerExpiry)
		v1.GET("/audit-logs", tradeHandler.AuditLogs)
	}

	// Health check endpoint for monitoring
	r.GET("/health", healthHandler.Check)
}
