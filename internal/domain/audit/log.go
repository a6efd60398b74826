package audit

import (
	"context"
)

// Log is the append-only recorder for mutation outcomes and system events.
// Appends are best-effort durable: a failed append never rolls back the
// trade mutation it describes.
type Log interface {
	// LogAudit appends the outcome of one attempted trade mutation and
	// returns the stored entry id
	LogAudit(ctx context.Context, tradeID string, action Action, details map[string]interface{}, status Status) (string, error)

	// LogEvent appends a system-level event not keyed to a single trade
	LogEvent(ctx context.Context, eventType Action, data map[string]interface{}, severity Severity) (string, error)

	// GetAuditLogs returns entries in insertion order with skip/limit
	// pagination. A non-empty tradeID filters to that trade; skip and limit
	// still apply to the filtered sequence.
	GetAuditLogs(ctx context.Context, tradeID string, skip, limit int) ([]*Entry, error)

	// HealthCheck performs a cheap round trip to the log store
	HealthCheck(ctx context.Context) error
}

// ErrAppendFailed indicates an audit append that could not be persisted.
// It is surfaced as a warning and never escalated over the mutation result.
type ErrAppendFailed struct {
	Action Action
	Err    error
}

func (e ErrAppendFailed) Error() string {
	return "audit append failed for action " + string(e.Action) + ": " + e.Err.Error()
}

func (e ErrAppendFailed) Unwrap() error {
	return e.Err
}
