package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dws-trade-store/internal/domain/trade"
	"github.com/dws-trade-store/internal/platform/messaging/producers"
	"github.com/dws-trade-store/internal/trade_processor/service"
)

// TradeEventHandler handles incoming trade event messages from Kafka
type TradeEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewTradeEventHandler creates a new handler
func NewTradeEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *TradeEventHandler {
	return &TradeEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages. Messages that can never succeed
// (malformed JSON, missing required fields) go to the DLQ and are committed;
// transient failures return an error so the message is redelivered.
func (h *TradeEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event trade.Event
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal trade event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, key, value, fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error()), err)
	}

	if err := event.CheckFields(); err != nil {
		fieldErrorMsg := "Trade event failed field checks"
		h.logger.Error(fieldErrorMsg,
			"error", err,
			"trade_id", event.TradeID,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, key, value, fmt.Sprintf("%s: %s", fieldErrorMsg, err.Error()), err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received trade event for processing",
		"trade_id", event.TradeID,
		"version", event.Version,
		"book_id", event.BookID,
	)

	if err := h.processingService.ProcessEvent(ctx, &event); err != nil {
		logger.Error("Failed to process trade event",
			"trade_id", event.TradeID,
			"version", event.Version,
			"error", err,
		)
		return fmt.Errorf("processing trade event %s failed: %w", event.TradeID, err)
	}

	return nil // Success, commit offset
}

// deadLetter routes an unprocessable message to the DLQ. Returns nil when the
// message landed there so the offset is committed, or the original error when
// no DLQ is configured or the publish failed, allowing Kafka redelivery.
func (h *TradeEventHandler) deadLetter(ctx context.Context, key []byte, value []byte, reason string, cause error) error {
	if h.producer == nil {
		return fmt.Errorf("unprocessable message with no DLQ configured: %w", cause)
	}

	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("unprocessable message could not be dead-lettered: %w", cause)
	}

	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
