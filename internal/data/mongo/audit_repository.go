// Package mongo provides the MongoDB implementation of the audit log.
// Entries are append-only documents in a single collection.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dws-trade-store/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit log collection in MongoDB
	AuditCollectionName = "audit_logs"
)

// AuditRepository implements the audit.Log interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit log repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Log {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// LogAudit appends the outcome of one attempted trade mutation.
// The entry is inserted as-is; nothing ever updates or deletes it.
func (r *AuditRepository) LogAudit(ctx context.Context, tradeID string, action audit.Action, details map[string]interface{}, status audit.Status) (string, error) {
	entry := &audit.Entry{
		TradeID:   tradeID,
		Action:    action,
		Details:   details,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}

	return r.insert(ctx, entry)
}

// LogEvent appends a system-level event carrying no trade id
func (r *AuditRepository) LogEvent(ctx context.Context, eventType audit.Action, data map[string]interface{}, severity audit.Severity) (string, error) {
	entry := &audit.Entry{
		Action:    eventType,
		Details:   data,
		Severity:  severity,
		Timestamp: time.Now().UTC(),
	}

	return r.insert(ctx, entry)
}

func (r *AuditRepository) insert(ctx context.Context, entry *audit.Entry) (string, error) {
	collection := r.db.Collection(AuditCollectionName)

	result, err := collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			"action", string(entry.Action),
			"trade_id", entry.TradeID,
			"error", err)
		return "", audit.ErrAppendFailed{Action: entry.Action, Err: err}
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprintf("%v", result.InsertedID), nil
}

// GetAuditLogs retrieves entries in insertion order with skip/limit pagination.
// A non-empty tradeID narrows the sequence to that trade before paginating.
func (r *AuditRepository) GetAuditLogs(ctx context.Context, tradeID string, skip, limit int) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{}
	if tradeID != "" {
		filter["trade_id"] = tradeID
	}

	opts := options.Find().
		SetSort(bson.M{"timestamp": 1}). // Oldest first, matching insertion order
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit entries",
			"trade_id", tradeID,
			"error", err)
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*audit.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"trade_id", tradeID,
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}

// HealthCheck pings the MongoDB deployment backing the audit log
func (r *AuditRepository) HealthCheck(ctx context.Context) error {
	if err := r.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("audit log store unreachable: %w", err)
	}
	return nil
}
