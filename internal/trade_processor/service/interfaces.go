package service

import (
	"context"

	"github.com/dws-trade-store/internal/domain/trade"
)

// ProcessingService applies a decoded trade event to the store
type ProcessingService interface {
	// ProcessEvent validates and persists one trade event. A validation
	// rejection is a terminal outcome, not an error: the event was handled
	// and its rejection recorded, so the message can be committed.
	ProcessEvent(ctx context.Context, event *trade.Event) error
}
