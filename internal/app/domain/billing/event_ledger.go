package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	database "github.com/FACorreiaa/go-wanderplan/internal/db"
)

// EventLedger records which webhook events have been handled.
// Claim must be atomic: exactly one caller wins per event id.
type EventLedger interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

var (
	_ EventLedger = (*MongoEventLedger)(nil)
	_ EventLedger = (*MemoryEventLedger)(nil)
)

// MongoEventLedger claims an event by inserting it with the event id as _id.
type MongoEventLedger struct {
	events *mongo.Collection
	logger *zap.Logger
}

func NewMongoEventLedger(db *mongo.Database, logger *zap.Logger) *MongoEventLedger {
	return &MongoEventLedger{
		events: db.Collection(database.WebhookEventsCollection),
		logger: logger,
	}
}

func (l *MongoEventLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	_, err := l.events.InsertOne(ctx, bson.M{"_id": eventID, "claimedAt": time.Now().UTC()})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		l.logger.Error("Failed to claim webhook event", zap.String("eventId", eventID), zap.Error(err))
		return false, fmt.Errorf("failed to claim webhook event: %w", err)
	}
	return true, nil
}

func (l *MongoEventLedger) Release(ctx context.Context, eventID string) error {
	if _, err := l.events.DeleteOne(ctx, bson.M{"_id": eventID}); err != nil {
		return fmt.Errorf("failed to release webhook event: %w", err)
	}
	return nil
}

// MemoryEventLedger keeps claims in process memory for ttl.
type MemoryEventLedger struct {
	claims *cache.Cache
}

func NewMemoryEventLedger(ttl time.Duration) *MemoryEventLedger {
	return &MemoryEventLedger{claims: cache.New(ttl, time.Hour)}
}

func (l *MemoryEventLedger) Claim(_ context.Context, eventID string) (bool, error) {
	return l.claims.Add(eventID, struct{}{}, cache.DefaultExpiration) == nil, nil
}

func (l *MemoryEventLedger) Release(_ context.Context, eventID string) error {
	l.claims.Delete(eventID)
	return nil
}
