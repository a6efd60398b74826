package trade

import (
	"errors"
	"fmt"
	"time"
)

// Field length limit shared by trade, counterparty and book identifiers
const MaxIDLength = 50

// Common errors
var (
	ErrEmptyTradeID        = errors.New("trade id cannot be empty")
	ErrEmptyCounterPartyID = errors.New("counterparty id cannot be empty")
	ErrEmptyBookID         = errors.New("book id cannot be empty")
	ErrIDTooLong           = errors.New("identifier exceeds 50 characters")
	ErrInvalidVersion      = errors.New("version must be at least 1")
	ErrMissingMaturityDate = errors.New("maturity date is required")
	ErrMissingCreatedDate  = errors.New("created date is required")
)

// Trade is the authoritative record for a trade identifier. One row exists
// per trade id; accepted events overwrite it in place.
type Trade struct {
	TradeID        string    `json:"trade_id"`
	Version        int       `json:"version"`
	CounterPartyID string    `json:"counter_party_id"`
	BookID         string    `json:"book_id"`
	MaturityDate   Date      `json:"maturity_date"`
	CreatedDate    Date      `json:"created_date"`
	Expired        bool      `json:"expired"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Event is an incoming trade mutation, decoded and validated for shape by
// the ingestion boundary before it reaches the core.
type Event struct {
	TradeID        string `json:"trade_id"`
	Version        int    `json:"version"`
	CounterPartyID string `json:"counter_party_id"`
	BookID         string `json:"book_id"`
	MaturityDate   Date   `json:"maturity_date"`
	CreatedDate    Date   `json:"created_date"`
	Expired        bool   `json:"expired"`
	CorrelationID  string `json:"correlation_id,omitempty"`
}

// CheckFields verifies the event's structural constraints (presence and
// length). Business rules live in Validate; this belongs to the boundary.
func (e *Event) CheckFields() error {
	if e.TradeID == "" {
		return ErrEmptyTradeID
	}
	if e.CounterPartyID == "" {
		return ErrEmptyCounterPartyID
	}
	if e.BookID == "" {
		return ErrEmptyBookID
	}
	if len(e.TradeID) > MaxIDLength || len(e.CounterPartyID) > MaxIDLength || len(e.BookID) > MaxIDLength {
		return ErrIDTooLong
	}
	if e.Version < 1 {
		return ErrInvalidVersion
	}
	if e.MaturityDate.IsZero() {
		return ErrMissingMaturityDate
	}
	if e.CreatedDate.IsZero() {
		return ErrMissingCreatedDate
	}
	return nil
}

// Record builds the full trade record an accepted event produces. The store
// sets LastUpdated on write.
func (e *Event) Record() *Trade {
	return &Trade{
		TradeID:        e.TradeID,
		Version:        e.Version,
		CounterPartyID: e.CounterPartyID,
		BookID:         e.BookID,
		MaturityDate:   e.MaturityDate,
		CreatedDate:    e.CreatedDate,
		Expired:        e.Expired,
	}
}

// ErrLowerVersion indicates a stale event: its version is below the stored one
type ErrLowerVersion struct {
	TradeID         string
	ReceivedVersion int
	CurrentVersion  int
}

func (e ErrLowerVersion) Error() string {
	return fmt.Sprintf("trade %s: received version %d is lower than current version %d",
		e.TradeID, e.ReceivedVersion, e.CurrentVersion)
}

// ErrMaturityInPast indicates an event maturing before the evaluation date
type ErrMaturityInPast struct {
	TradeID      string
	MaturityDate Date
}

func (e ErrMaturityInPast) Error() string {
	return fmt.Sprintf("trade %s: maturity date %s is earlier than today", e.TradeID, e.MaturityDate)
}

// ErrTradeNotFound indicates a missing trade record
type ErrTradeNotFound struct {
	TradeID string
}

func (e ErrTradeNotFound) Error() string {
	return "trade not found: " + e.TradeID
}

// IsRejection reports whether err is one of the validation reject reasons,
// as opposed to a storage or infrastructure failure.
func IsRejection(err error) bool {
	var lower ErrLowerVersion
	var matured ErrMaturityInPast
	return errors.As(err, &lower) || errors.As(err, &matured)
}
