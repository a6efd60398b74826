package audit

import (
	"time"
)

// Action identifies what a log entry records
type Action string

const (
	// Trade-keyed mutation outcomes
	ActionCreate           Action = "CREATE"
	ActionUpdate           Action = "UPDATE"
	ActionDelete           Action = "DELETE"
	ActionValidationFailed Action = "VALIDATION_FAILED"
	ActionError            Action = "ERROR"

	// System-wide event types (entries with no trade id)
	EventTradesExpired    Action = "TRADES_EXPIRED"
	EventExpiryCheckError Action = "EXPIRY_CHECK_ERROR"
)

// Status records whether the attempted mutation succeeded
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Severity levels for system events
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Entry is an immutable fact about one attempted mutation or system event.
// Entries are only ever appended; nothing updates or deletes them.
type Entry struct {
	ID        string                 `json:"id,omitempty" bson:"_id,omitempty"`
	TradeID   string                 `json:"trade_id,omitempty" bson:"trade_id,omitempty"`
	Action    Action                 `json:"action" bson:"action"`
	Details   map[string]interface{} `json:"details" bson:"details"`
	Status    Status                 `json:"status,omitempty" bson:"status,omitempty"`
	Severity  Severity               `json:"severity,omitempty" bson:"severity,omitempty"`
	Timestamp time.Time              `json:"timestamp" bson:"timestamp"`
}
