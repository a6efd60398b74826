package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dws-trade-store/internal/domain/trade"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var tradeColumns = []string{"trade_id", "version", "counter_party_id", "book_id", "maturity_date", "created_date", "expired", "last_updated"}

func sampleTrade(now time.Time) *trade.Trade {
	return &trade.Trade{
		TradeID:        "T1",
		Version:        2,
		CounterPartyID: "CP-1",
		BookID:         "B1",
		MaturityDate:   trade.NewDate(2027, time.May, 20),
		CreatedDate:    trade.NewDate(2026, time.May, 20),
		Expired:        false,
		LastUpdated:    now,
	}
}

func tradeRow(t *trade.Trade) *pgxmock.Rows {
	return pgxmock.NewRows(tradeColumns).
		AddRow(t.TradeID, t.Version, t.CounterPartyID, t.BookID, t.MaturityDate, t.CreatedDate, t.Expired, t.LastUpdated)
}

func TestTradeRepository_Get(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TradeRepository{querier: mock, logger: logger}
	expected := sampleTrade(time.Now())

	query := `
		SELECT trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
		FROM trades
		WHERE trade_id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("T1").WillReturnRows(tradeRow(expected))

		got, err := repo.Get(ctx, "T1")
		assert.NoError(t, err)
		assert.Equal(t, expected, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("T1").WillReturnError(pgx.ErrNoRows)

		got, err := repo.Get(ctx, "T1")
		assert.NoError(t, err) // No error, just nil record
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs("T1").WillReturnError(dbErr)

		got, err := repo.Get(ctx, "T1")
		assert.Error(t, err)
		assert.Nil(t, got)
		var storageErr trade.ErrStorageUnavailable
		assert.ErrorAs(t, err, &storageErr)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTradeRepository_GetForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TradeRepository{querier: mock, logger: logger}
	expected := sampleTrade(time.Now())

	query := `
		SELECT trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
		FROM trades
		WHERE trade_id = \$1
		FOR UPDATE
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("T1").WillReturnRows(tradeRow(expected))

		got, err := repo.GetForUpdate(ctx, "T1")
		assert.NoError(t, err)
		assert.Equal(t, expected, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("T1").WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetForUpdate(ctx, "T1")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTradeRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TradeRepository{querier: mock, logger: logger}
	now := time.Now()
	in := sampleTrade(time.Time{})

	query := `
		INSERT INTO trades \(trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, NOW\(\)\)
		ON CONFLICT \(trade_id\) DO UPDATE
	`

	t.Run("success", func(t *testing.T) {
		stored := sampleTrade(now)
		mock.ExpectQuery(query).
			WithArgs(in.TradeID, in.Version, in.CounterPartyID, in.BookID, in.MaturityDate, in.CreatedDate, in.Expired).
			WillReturnRows(tradeRow(stored))

		got, err := repo.Upsert(ctx, in)
		assert.NoError(t, err)
		assert.Equal(t, stored, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent modification", func(t *testing.T) {
		// Version guard matched no row, RETURNING yields nothing
		mock.ExpectQuery(query).
			WithArgs(in.TradeID, in.Version, in.CounterPartyID, in.BookID, in.MaturityDate, in.CreatedDate, in.Expired).
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.Upsert(ctx, in)
		assert.Error(t, err)
		assert.Nil(t, got)
		var concurrentModErr trade.ErrConcurrentModification
		assert.ErrorAs(t, err, &concurrentModErr)
		assert.Equal(t, in.TradeID, concurrentModErr.TradeID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("upsert db error")
		mock.ExpectQuery(query).
			WithArgs(in.TradeID, in.Version, in.CounterPartyID, in.BookID, in.MaturityDate, in.CreatedDate, in.Expired).
			WillReturnError(dbErr)

		got, err := repo.Upsert(ctx, in)
		assert.Error(t, err)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTradeRepository_Delete(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TradeRepository{querier: mock, logger: logger}

	query := `DELETE FROM trades WHERE trade_id = \$1`

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("T1").WillReturnResult(pgxmock.NewResult("DELETE", 1))

		deleted, err := repo.Delete(ctx, "T1")
		assert.NoError(t, err)
		assert.True(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("T1").WillReturnResult(pgxmock.NewResult("DELETE", 0))

		deleted, err := repo.Delete(ctx, "T1")
		assert.NoError(t, err)
		assert.False(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("delete db error")
		mock.ExpectExec(query).WithArgs("T1").WillReturnError(dbErr)

		deleted, err := repo.Delete(ctx, "T1")
		assert.Error(t, err)
		assert.False(t, deleted)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTradeRepository_ListAll(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TradeRepository{querier: mock, logger: logger}
	now := time.Now()
	first := sampleTrade(now)
	second := sampleTrade(now)
	second.TradeID = "T2"
	second.Version = 1

	query := `
		SELECT trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
		FROM trades
		ORDER BY trade_id
		OFFSET \$1 LIMIT \$2
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(tradeColumns).
			AddRow(first.TradeID, first.Version, first.CounterPartyID, first.BookID, first.MaturityDate, first.CreatedDate, first.Expired, first.LastUpdated).
			AddRow(second.TradeID, second.Version, second.CounterPartyID, second.BookID, second.MaturityDate, second.CreatedDate, second.Expired, second.LastUpdated)
		mock.ExpectQuery(query).WithArgs(0, 100).WillReturnRows(rows)

		trades, err := repo.ListAll(ctx, 0, 100)
		assert.NoError(t, err)
		assert.Equal(t, []*trade.Trade{first, second}, trades)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(0, 100).WillReturnRows(pgxmock.NewRows(tradeColumns))

		trades, err := repo.ListAll(ctx, 0, 100)
		assert.NoError(t, err)
		assert.Empty(t, trades)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("list db error")
		mock.ExpectQuery(query).WithArgs(0, 100).WillReturnError(dbErr)

		trades, err := repo.ListAll(ctx, 0, 100)
		assert.Error(t, err)
		assert.Nil(t, trades)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTradeRepository_ListByBook(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TradeRepository{querier: mock, logger: logger}
	expected := sampleTrade(time.Now())

	query := `
		SELECT trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
		FROM trades
		WHERE book_id = \$1
		ORDER BY trade_id
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("B1").WillReturnRows(tradeRow(expected))

		trades, err := repo.ListByBook(ctx, "B1")
		assert.NoError(t, err)
		assert.Equal(t, []*trade.Trade{expected}, trades)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty book", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("B9").WillReturnRows(pgxmock.NewRows(tradeColumns))

		trades, err := repo.ListByBook(ctx, "B9")
		assert.NoError(t, err)
		assert.Empty(t, trades)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTradeRepository_ListExpired(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TradeRepository{querier: mock, logger: logger}
	expected := sampleTrade(time.Now())
	expected.Expired = true

	query := `
		SELECT trade_id, version, counter_party_id, book_id, maturity_date, created_date, expired, last_updated
		FROM trades
		WHERE expired = TRUE
		ORDER BY trade_id
	`

	mock.ExpectQuery(query).WillReturnRows(tradeRow(expected))

	trades, err := repo.ListExpired(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []*trade.Trade{expected}, trades)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradeRepository_MarkExpired(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TradeRepository{querier: mock, logger: logger}
	asOf := trade.NewDate(2026, time.May, 20)

	query := `
		UPDATE trades
		SET expired = TRUE, last_updated = NOW\(\)
		WHERE expired = FALSE AND maturity_date < \$1
	`

	t.Run("rows flagged", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(asOf).WillReturnResult(pgxmock.NewResult("UPDATE", 3))

		count, err := repo.MarkExpired(ctx, asOf)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to flag", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(asOf).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		count, err := repo.MarkExpired(ctx, asOf)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("sweep db error")
		mock.ExpectExec(query).WithArgs(asOf).WillReturnError(dbErr)

		count, err := repo.MarkExpired(ctx, asOf)
		assert.Error(t, err)
		assert.Equal(t, int64(0), count)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTradeRepository_Count(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TradeRepository{querier: mock, logger: logger}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM trades`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := repo.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradeRepository_HealthCheck(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TradeRepository{querier: mock, logger: logger}

	t.Run("healthy", func(t *testing.T) {
		mock.ExpectQuery(`SELECT 1`).WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

		assert.NoError(t, repo.HealthCheck(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreachable", func(t *testing.T) {
		dbErr := errors.New("connection refused")
		mock.ExpectQuery(`SELECT 1`).WillReturnError(dbErr)

		err := repo.HealthCheck(ctx)
		assert.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTradeRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &TradeRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*TradeRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*TradeRepository).querier, "Querier in new repo should be the transaction")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
