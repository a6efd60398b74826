// Package postgres provides the PostgreSQL implementation of the trade
// repository. It owns all SQL touching the trades table and keeps same-key
// mutations serialized through row locks and a version-guarded upsert.
package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dws-trade-store/internal/domain/trade"
	"github.com/dws-trade-store/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// TradeRepository implements the trade.Repository interface for PostgreSQL
type TradeRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTradeRepository creates a new PostgreSQL trade repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewTradeRepository(logger *slog.Logger, db *persistence.PostgresDB) trade.Repository {
	return &TradeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so a read-validate-write
// sequence runs atomically against the same connection.
func (r *TradeRepository) WithTx(tx pgx.Tx) trade.Repository {
	return &TradeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Get retrieves the current record for a trade id, or nil when absent
func (r *TradeRepository) Get(ctx context.Context, tradeID string) (*trade.Trade, error) {
	query := `
		SELECT trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
		FROM trades
		WHERE trade_id = $1
	`

	return r.getOne(ctx, query, tradeID, "get trade")
}

// GetForUpdate retrieves the record while holding a row lock for the
// enclosing transaction. Mutations for the same trade id queue behind it;
// other trade ids are unaffected.
func (r *TradeRepository) GetForUpdate(ctx context.Context, tradeID string) (*trade.Trade, error) {
	query := `
		SELECT trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
		FROM trades
		WHERE trade_id = $1
		FOR UPDATE
	`

	return r.getOne(ctx, query, tradeID, "lock trade for update")
}

func (r *TradeRepository) getOne(ctx context.Context, query, tradeID, op string) (*trade.Trade, error) {
	var t trade.Trade
	err := r.querier.QueryRow(ctx, query, tradeID).Scan(
		&t.TradeID,
		&t.Version,
		&t.CounterPartyID,
		&t.BookID,
		&t.MaturityDate,
		&t.CreatedDate,
		&t.Expired,
		&t.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No record for this trade id
		}
		r.logger.Error("Failed to read trade", "trade_id", tradeID, "error", err)
		return nil, trade.ErrStorageUnavailable{Op: op, Err: err}
	}

	return &t, nil
}

// Upsert inserts the record or fully overwrites the existing row, refreshing
// last_updated. The version guard makes the write a compare-and-swap: when a
// higher version landed between read and write, no row is updated and
// ErrConcurrentModification is returned.
func (r *TradeRepository) Upsert(ctx context.Context, t *trade.Trade) (*trade.Trade, error) {
	query := `
		INSERT INTO trades (trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (trade_id) DO UPDATE
		SET version = EXCLUDED.version,
		    counter_party_id = EXCLUDED.counter_party_id,
		    book_id = EXCLUDED.book_id,
		    maturity_date = EXCLUDED.maturity_date,
		    created_date = EXCLUDED.created_date,
		    expired = EXCLUDED.expired,
		    last_updated = NOW()
		WHERE trades.version <= EXCLUDED.version
		RETURNING trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
	`

	var stored trade.Trade
	err := r.querier.QueryRow(ctx, query,
		t.TradeID,
		t.Version,
		t.CounterPartyID,
		t.BookID,
		t.MaturityDate,
		t.CreatedDate,
		t.Expired,
	).Scan(
		&stored.TradeID,
		&stored.Version,
		&stored.CounterPartyID,
		&stored.BookID,
		&stored.MaturityDate,
		&stored.CreatedDate,
		&stored.Expired,
		&stored.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Guard rejected the write: a newer version exists
			return nil, trade.ErrConcurrentModification{TradeID: t.TradeID}
		}
		r.logger.Error("Failed to upsert trade", "trade_id", t.TradeID, "error", err)
		return nil, trade.ErrStorageUnavailable{Op: "upsert trade", Err: err}
	}

	return &stored, nil
}

// Delete removes the record, reporting whether one existed
func (r *TradeRepository) Delete(ctx context.Context, tradeID string) (bool, error) {
	query := `DELETE FROM trades WHERE trade_id = $1`

	result, err := r.querier.Exec(ctx, query, tradeID)
	if err != nil {
		r.logger.Error("Failed to delete trade", "trade_id", tradeID, "error", err)
		return false, trade.ErrStorageUnavailable{Op: "delete trade", Err: err}
	}

	return result.RowsAffected() > 0, nil
}

// ListAll returns records ordered by trade id with skip/limit pagination
func (r *TradeRepository) ListAll(ctx context.Context, skip, limit int) ([]*trade.Trade, error) {
	query := `
		SELECT trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
		FROM trades
		ORDER BY trade_id
		OFFSET $1 LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, skip, limit)
	if err != nil {
		r.logger.Error("Failed to list trades", "error", err)
		return nil, trade.ErrStorageUnavailable{Op: "list trades", Err: err}
	}
	defer rows.Close()

	return r.collect(rows, "list trades")
}

// ListByBook returns every record belonging to a book
func (r *TradeRepository) ListByBook(ctx context.Context, bookID string) ([]*trade.Trade, error) {
	query := `
		SELECT trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
		FROM trades
		WHERE book_id = $1
		ORDER BY trade_id
	`

	rows, err := r.querier.Query(ctx, query, bookID)
	if err != nil {
		r.logger.Error("Failed to list trades by book", "book_id", bookID, "error", err)
		return nil, trade.ErrStorageUnavailable{Op: "list trades by book", Err: err}
	}
	defer rows.Close()

	return r.collect(rows, "list trades by book")
}

// ListExpired returns every record currently flagged expired
func (r *TradeRepository) ListExpired(ctx context.Context) ([]*trade.Trade, error) {
	query := `
		SELECT trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
		FROM trades
		WHERE expired = TRUE
		ORDER BY trade_id
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list expired trades", "error", err)
		return nil, trade.ErrStorageUnavailable{Op: "list expired trades", Err: err}
	}
	defer rows.Close()

	return r.collect(rows, "list expired trades")
}

func (r *TradeRepository) collect(rows pgx.Rows, op string) ([]*trade.Trade, error) {
	var trades []*trade.Trade
	for rows.Next() {
		var t trade.Trade
		if err := rows.Scan(
			&t.TradeID,
			&t.Version,
			&t.CounterPartyID,
			&t.BookID,
			&t.MaturityDate,
			&t.CreatedDate,
			&t.Expired,
			&t.LastUpdated,
		); err != nil {
			r.logger.Error("Failed to scan trade row", "error", err)
			return nil, trade.ErrStorageUnavailable{Op: op, Err: err}
		}
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, trade.ErrStorageUnavailable{Op: op, Err: err}
	}

	return trades, nil
}

// MarkExpired flags every non-expired record maturing strictly before asOf.
// One bulk UPDATE keeps the sweep atomic relative to concurrent mutations;
// already-expired rows are untouched so the flag stays monotone.
func (r *TradeRepository) MarkExpired(ctx context.Context, asOf trade.Date) (int64, error) {
	query := `
		UPDATE trades
		SET expired = TRUE, last_updated = NOW()
		WHERE expired = FALSE AND maturity_date < $1
	`

	result, err := r.querier.Exec(ctx, query, asOf)
	if err != nil {
		r.logger.Error("Failed to mark expired trades", "as_of", asOf.String(), "error", err)
		return 0, trade.ErrStorageUnavailable{Op: "mark expired trades", Err: err}
	}

	return result.RowsAffected(), nil
}

// Count returns the total number of stored trades
func (r *TradeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		r.logger.Error("Failed to count trades", "error", err)
		return 0, trade.ErrStorageUnavailable{Op: "count trades", Err: err}
	}

	return count, nil
}

// HealthCheck performs a trivial round trip to the database
func (r *TradeRepository) HealthCheck(ctx context.Context) error {
	var one int
	if err := r.querier.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return trade.ErrStorageUnavailable{Op: "health check", Err: err}
	}
	return nil
}
