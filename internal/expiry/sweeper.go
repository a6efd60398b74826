// Package expiry drives the periodic sweep that flags matured trades as
// expired. Timing only; the actual state transition lives in the service.
package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/dws-trade-store/internal/config"
	"github.com/dws-trade-store/internal/domain/audit"
	"github.com/dws-trade-store/internal/domain/trade"
	"github.com/dws-trade-store/internal/service"
)

// Sweeper triggers expiry sweeps on a fixed interval. A record is guaranteed
// to be flagged no later than one interval after its maturity date passes.
type Sweeper struct {
	manager       service.TradeManager
	auditLog      audit.Log
	logger        *slog.Logger
	checkInterval time.Duration
	now           func() time.Time // Injectable for deterministic tests
}

func NewSweeper(
	cfg *config.ExpiryConfig,
	manager service.TradeManager,
	auditLog audit.Log,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		manager:       manager,
		auditLog:      auditLog,
		logger:        logger,
		checkInterval: cfg.CheckInterval,
		now:           time.Now,
	}
}

// Start sweeps once immediately, then on every tick until the context is
// canceled. A failed sweep is logged and recorded; the loop keeps running.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting expiry sweeper", "check_interval", s.checkInterval.String())

	s.sweep(ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			s.logger.Debug("Expiry sweeper tick: checking for matured trades")
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	asOf := trade.DateOf(s.now())

	count, err := s.manager.ExpireSweep(ctx, asOf)
	if err != nil {
		s.logger.Error("Expiry sweep failed", "as_of", asOf.String(), "error", err)
		if _, logErr := s.auditLog.LogEvent(ctx, audit.EventExpiryCheckError, map[string]interface{}{
			"error": err.Error(),
			"date":  asOf.String(),
		}, audit.SeverityError); logErr != nil {
			s.logger.Warn("Failed to record expiry check error event", "error", logErr)
		}
		return
	}

	s.logger.Debug("Expiry sweep finished", "as_of", asOf.String(), "count", count)
}
