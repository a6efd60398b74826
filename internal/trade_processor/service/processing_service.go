package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dws-trade-store/internal/domain/trade"
	"github.com/dws-trade-store/internal/service"
)

// EventProcessingService implements ProcessingService on top of the trade
// manager. It exists to translate stream semantics: a rejected event has no
// caller to report to, so rejections are logged and swallowed while
// infrastructure failures propagate for redelivery.
type EventProcessingService struct {
	manager service.TradeManager
	logger  *slog.Logger
}

// NewEventProcessingService creates a new processing service
func NewEventProcessingService(logger *slog.Logger, manager service.TradeManager) *EventProcessingService {
	return &EventProcessingService{
		manager: manager,
		logger:  logger,
	}
}

// ProcessEvent runs the event through the trade manager
func (s *EventProcessingService) ProcessEvent(ctx context.Context, event *trade.Event) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	_, err := s.manager.Ingest(ctx, event)
	if err != nil {
		if trade.IsRejection(err) {
			// Rejection outcome is already recorded in the audit trail
			logger.Warn("Trade event rejected",
				"trade_id", event.TradeID,
				"version", event.Version,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("ingesting trade %s failed: %w", event.TradeID, err)
	}

	logger.Info("Successfully ingested trade event",
		"trade_id", event.TradeID,
		"version", event.Version,
	)
	return nil
}
