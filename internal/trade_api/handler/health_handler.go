package handler

import (
	"log/slog"
	"time"

	"github.com/dws-trade-store/internal/domain/audit"
	"github.com/dws-trade-store/internal/domain/trade"
	"github.com/gin-gonic/gin"
)

// HealthHandler reports the health of the service and its backing stores
type HealthHandler struct {
	trades   trade.Repository
	auditLog audit.Log
	version  string
	logger   *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(logger *slog.Logger, trades trade.Repository, auditLog audit.Log, version string) *HealthHandler {
	return &HealthHandler{
		trades:   trades,
		auditLog: auditLog,
		version:  version,
		logger:   logger,
	}
}

// Check pings both stores and reports per-dependency status. Responds 200
// when everything is up, 503 otherwise.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	services := map[string]string{
		"postgres": "up",
		"mongodb":  "up",
	}
	healthy := true

	if err := h.trades.HealthCheck(ctx); err != nil {
		h.logger.Warn("PostgreSQL health check failed", "error", err)
		services["postgres"] = "down"
		healthy = false
	}
	if err := h.auditLog.HealthCheck(ctx); err != nil {
		h.logger.Warn("MongoDB health check failed", "error", err)
		services["mongodb"] = "down"
		healthy = false
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	response := HealthCheckResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Services:  services,
	}

	if !healthy {
		RespondServiceUnavailable(c, response)
		return
	}
	RespondOK(c, response)
}
