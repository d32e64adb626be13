package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
)

const (
	UsersCollection         = "users"
	PlansCollection         = "plans"
	ExpensesCollection      = "expenses"
	WebhookEventsCollection = "webhook_events"
)

const defaultRetries = 5

// ConnectMongo opens the document store client and returns the application database.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	logger.Info("Connecting to MongoDB", zap.String("database", cfg.Database))

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", zap.Error(err))
		return nil, nil, fmt.Errorf("failed connecting to mongo: %w", err)
	}

	if !WaitForMongo(ctx, client, logger) {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo did not answer ping after %d attempts", defaultRetries)
	}

	return client, client.Database(cfg.Database), nil
}

// WaitForMongo pings the primary with a linear backoff.
func WaitForMongo(ctx context.Context, client *mongo.Client, logger *zap.Logger) bool {
	for attempts := 1; attempts <= defaultRetries; attempts++ {
		err := client.Ping(ctx, readpref.Primary())
		if err == nil {
			logger.Info("MongoDB connection successful")
			return true
		}

		waitDuration := time.Duration(attempts) * 200 * time.Millisecond
		logger.Warn("MongoDB ping failed, retrying...",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", defaultRetries),
			zap.Duration("wait_duration", waitDuration),
			zap.Error(err),
		)
		if attempts < defaultRetries {
			time.Sleep(waitDuration)
		}
	}
	logger.Error("MongoDB connection failed after multiple retries")
	return false
}

// EnsureIndexes creates the unique keys the data model relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
		PlansCollection: {
			{Keys: bson.D{{Key: "planID", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
			{Keys: bson.D{{Key: "collaborators.userId", Value: 1}}},
			{Keys: bson.D{{Key: "isPublic", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		ExpensesCollection: {
			{Keys: bson.D{{Key: "planId", Value: 1}, {Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		// Claimed webhook event ids expire after 30 days.
		WebhookEventsCollection: {
			{Keys: bson.D{{Key: "claimedAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32((30 * 24 * time.Hour).Seconds()))},
		},
	}

	for collection, models := range indexes {
		names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			logger.Error("Failed to create indexes", zap.String("collection", collection), zap.Error(err))
			return fmt.Errorf("failed creating indexes on %s: %w", collection, err)
		}
		logger.Debug("Indexes ensured", zap.String("collection", collection), zap.Strings("names", names))
	}
	return nil
}
