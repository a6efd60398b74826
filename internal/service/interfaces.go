package service

import (
	"context"

	"github.com/dws-trade-store/internal/domain/trade"
)

// Statistics is a point-in-time snapshot of the trade population. The two
// counts are read independently, so a concurrent mutation can skew them by
// one; active is always derived as total minus expired.
type Statistics struct {
	TotalTrades   int64 `json:"total_trades"`
	ExpiredTrades int64 `json:"expired_trades"`
	ActiveTrades  int64 `json:"active_trades"`
}

// TradeManager is the orchestrator for every trade operation. Ingest is the
// single mutation entry point shared by the HTTP handler and the Kafka
// consumer; both paths get identical validation and audit behavior.
type TradeManager interface {
	// Ingest validates one trade event and, when accepted, persists it as
	// the authoritative record. Rejections return ErrLowerVersion or
	// ErrMaturityInPast and leave the store untouched.
	Ingest(ctx context.Context, event *trade.Event) (*trade.Trade, error)

	// FetchOne returns the current record or ErrTradeNotFound
	FetchOne(ctx context.Context, tradeID string) (*trade.Trade, error)

	// FetchAll returns records ordered by trade id with pagination
	FetchAll(ctx context.Context, skip, limit int) ([]*trade.Trade, error)

	// FetchByBook returns every record belonging to a book
	FetchByBook(ctx context.Context, bookID string) ([]*trade.Trade, error)

	// Remove hard-deletes the record, reporting whether one existed
	Remove(ctx context.Context, tradeID string) (bool, error)

	// ExpireSweep flags every record maturing before asOf as expired and
	// returns the number of records changed
	ExpireSweep(ctx context.Context, asOf trade.Date) (int64, error)

	// Statistics returns total, expired and derived active counts
	Statistics(ctx context.Context) (*Statistics, error)
}
