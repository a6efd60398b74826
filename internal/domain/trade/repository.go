package trade

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines trade persistence operations. Mutations on the same
// trade id are serialized by the storage layer: GetForUpdate takes a row
// lock and Upsert carries a version guard so racing writers resolve
// deterministically.
type Repository interface {
	// Get returns the current record, or nil when the trade id is unknown
	Get(ctx context.Context, tradeID string) (*Trade, error)

	// GetForUpdate behaves like Get but locks the row for the enclosing
	// transaction, serializing concurrent mutations of the same trade id
	GetForUpdate(ctx context.Context, tradeID string) (*Trade, error)

	// Upsert inserts or fully overwrites the record and refreshes
	// last_updated, returning the stored row. The write is rejected with
	// ErrConcurrentModification when a higher version landed in between.
	Upsert(ctx context.Context, t *Trade) (*Trade, error)

	// Delete removes the record, reporting whether one existed
	Delete(ctx context.Context, tradeID string) (bool, error)

	// ListAll returns records ordered by trade id with skip/limit pagination
	ListAll(ctx context.Context, skip, limit int) ([]*Trade, error)

	// ListByBook returns every record belonging to a book
	ListByBook(ctx context.Context, bookID string) ([]*Trade, error)

	// ListExpired returns every record currently flagged expired
	ListExpired(ctx context.Context) ([]*Trade, error)

	// MarkExpired flags every non-expired record maturing before asOf in a
	// single bulk statement and returns the number of rows changed
	MarkExpired(ctx context.Context, asOf Date) (int64, error)

	Count(ctx context.Context) (int64, error)

	// HealthCheck performs a cheap round trip to the backing store
	HealthCheck(ctx context.Context) error

	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates the version guard rejected an upsert
// because another writer updated the row between read and write
type ErrConcurrentModification struct {
	TradeID string
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for trade: " + e.TradeID
}

// ErrStorageUnavailable indicates a connectivity or timeout failure of the
// backing store. Callers do not retry; the failure surfaces as-is.
type ErrStorageUnavailable struct {
	Op  string
	Err error
}

func (e ErrStorageUnavailable) Error() string {
	return "storage unavailable during " + e.Op + ": " + e.Err.Error()
}

func (e ErrStorageUnavailable) Unwrap() error {
	return e.Err
}
