// Package service holds the trade orchestration layer. TradeManagerImpl ties
// the validator, the trade store and the audit log together so every ingest
// path (HTTP or Kafka) produces the same state transitions and audit trail.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dws-trade-store/internal/domain/audit"
	"github.com/dws-trade-store/internal/domain/trade"
	"github.com/dws-trade-store/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// TxRunner runs a function inside a database transaction, rolling back on
// error or panic. Satisfied by *persistence.PostgresDB; an interface so tests
// can drive the transactional path without a live pool.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

var _ TxRunner = (*persistence.PostgresDB)(nil)

type TradeManagerImpl struct {
	db       TxRunner
	trades   trade.Repository
	auditLog audit.Log
	logger   *slog.Logger
	now      func() time.Time // Injectable for deterministic tests
}

func NewTradeManager(
	db TxRunner,
	trades trade.Repository,
	auditLog audit.Log,
	logger *slog.Logger,
) TradeManager {
	return &TradeManagerImpl{
		db:       db,
		trades:   trades,
		auditLog: auditLog,
		logger:   logger,
		now:      time.Now,
	}
}

// Ingest runs the read-validate-write sequence for one trade event inside a
// single database transaction. The row lock taken by GetForUpdate serializes
// racing events for the same trade id, so validation always sees the latest
// committed version. Audit entries are appended after the outcome is final
// and never influence it.
func (s *TradeManagerImpl) Ingest(ctx context.Context, event *trade.Event) (*trade.Trade, error) {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Processing trade event", "trade_id", event.TradeID, "version", event.Version)

	if err := event.CheckFields(); err != nil {
		logger.Warn("Trade event failed field checks", "trade_id", event.TradeID, "error", err)
		return nil, err
	}

	today := trade.DateOf(s.now())

	var stored *trade.Trade
	action := audit.ActionCreate
	previousVersion := 0

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.trades.WithTx(tx)

		existing, err := repo.GetForUpdate(ctx, event.TradeID)
		if err != nil {
			return err
		}

		if err := trade.Validate(event, existing, today); err != nil {
			return err
		}

		if existing != nil {
			action = audit.ActionUpdate
			previousVersion = existing.Version
		}

		stored, err = repo.Upsert(ctx, event.Record())
		return err
	})
	if err != nil {
		if trade.IsRejection(err) {
			logger.Warn("Trade event rejected", "trade_id", event.TradeID, "error", err)
			s.appendAudit(ctx, logger, event.TradeID, audit.ActionValidationFailed, rejectionDetails(err, today), audit.StatusFailed)
			return nil, err
		}

		logger.Error("Failed to process trade event", "trade_id", event.TradeID, "error", err)
		s.appendAudit(ctx, logger, event.TradeID, audit.ActionError, map[string]interface{}{
			"error": err.Error(),
		}, audit.StatusFailed)
		return nil, err
	}

	details := map[string]interface{}{
		"version":          event.Version,
		"counter_party_id": event.CounterPartyID,
		"book_id":          event.BookID,
		"maturity_date":    event.MaturityDate.String(),
	}
	if action == audit.ActionUpdate {
		details["previous_version"] = previousVersion
	}
	s.appendAudit(ctx, logger, event.TradeID, action, details, audit.StatusSuccess)

	logger.Info("Trade event accepted", "trade_id", event.TradeID, "action", string(action), "version", event.Version)
	return stored, nil
}

// rejectionDetails maps a validation reject onto its audit payload
func rejectionDetails(err error, today trade.Date) map[string]interface{} {
	var lower trade.ErrLowerVersion
	if errors.As(err, &lower) {
		return map[string]interface{}{
			"reason":           "Lower version received",
			"received_version": lower.ReceivedVersion,
			"current_version":  lower.CurrentVersion,
		}
	}

	var matured trade.ErrMaturityInPast
	if errors.As(err, &matured) {
		return map[string]interface{}{
			"reason":        "Maturity date in past",
			"maturity_date": matured.MaturityDate.String(),
			"today":         today.String(),
		}
	}

	return map[string]interface{}{"reason": err.Error()}
}

// appendAudit is fire-and-forget: a failed append is logged as a warning and
// never overrides the mutation outcome
func (s *TradeManagerImpl) appendAudit(ctx context.Context, logger *slog.Logger, tradeID string, action audit.Action, details map[string]interface{}, status audit.Status) {
	if _, err := s.auditLog.LogAudit(ctx, tradeID, action, details, status); err != nil {
		logger.Warn("Failed to append audit entry",
			"trade_id", tradeID,
			"action", string(action),
			"error", err)
	}
}

// FetchOne returns the current record or ErrTradeNotFound
func (s *TradeManagerImpl) FetchOne(ctx context.Context, tradeID string) (*trade.Trade, error) {
	t, err := s.trades.Get(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, trade.ErrTradeNotFound{TradeID: tradeID}
	}
	return t, nil
}

// FetchAll returns records ordered by trade id with pagination
func (s *TradeManagerImpl) FetchAll(ctx context.Context, skip, limit int) ([]*trade.Trade, error) {
	return s.trades.ListAll(ctx, skip, limit)
}

// FetchByBook returns every record belonging to a book
func (s *TradeManagerImpl) FetchByBook(ctx context.Context, bookID string) ([]*trade.Trade, error) {
	return s.trades.ListByBook(ctx, bookID)
}

// Remove hard-deletes the record. A successful delete appends a DELETE audit
// entry; deleting an unknown trade id appends nothing.
func (s *TradeManagerImpl) Remove(ctx context.Context, tradeID string) (bool, error) {
	deleted, err := s.trades.Delete(ctx, tradeID)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	s.appendAudit(ctx, s.logger, tradeID, audit.ActionDelete, map[string]interface{}{}, audit.StatusSuccess)
	s.logger.Info("Trade deleted", "trade_id", tradeID)
	return true, nil
}

// ExpireSweep flags every record maturing before asOf in one bulk statement.
// A TRADES_EXPIRED system event is recorded only when something changed.
func (s *TradeManagerImpl) ExpireSweep(ctx context.Context, asOf trade.Date) (int64, error) {
	count, err := s.trades.MarkExpired(ctx, asOf)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		if _, logErr := s.auditLog.LogEvent(ctx, audit.EventTradesExpired, map[string]interface{}{
			"count": count,
			"date":  asOf.String(),
		}, audit.SeverityInfo); logErr != nil {
			s.logger.Warn("Failed to record expiry event", "count", count, "error", logErr)
		}
		s.logger.Info("Marked trades as expired", "count", count, "as_of", asOf.String())
	}

	return count, nil
}

// Statistics reads the two counts independently; a concurrent mutation can
// skew the snapshot by one and that is acceptable
func (s *TradeManagerImpl) Statistics(ctx context.Context) (*Statistics, error) {
	total, err := s.trades.Count(ctx)
	if err != nil {
		return nil, err
	}

	expiredTrades, err := s.trades.ListExpired(ctx)
	if err != nil {
		return nil, err
	}
	expired := int64(len(expiredTrades))

	return &Statistics{
		TotalTrades:   total,
		ExpiredTrades: expired,
		ActiveTrades:  total - expired,
	}, nil
}
