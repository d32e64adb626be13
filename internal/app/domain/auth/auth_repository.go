package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
	database "github.com/FACorreiaa/go-wanderplan/internal/db"
)

// CreditKind tells which balance a consumed credit came from.
type CreditKind string

const (
	FreeCredit CreditKind = "freeCredits"
	PaidCredit CreditKind = "credits"
)

var _ AuthRepo = (*MongoAuthRepo)(nil)

// AuthRepo persists users keyed by their identity provider subject.
type AuthRepo interface {
	GetUserByUserID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertUser(ctx context.Context, userID string, profile models.UserProfile) (*models.User, error)
	UpdateUserNames(ctx context.Context, userID, firstName, lastName string) (*models.User, error)
	ConsumeCredit(ctx context.Context, userID string) (CreditKind, error)
	RefundCredit(ctx context.Context, userID string, kind CreditKind) error
	AddCredits(ctx context.Context, userID string, amount int) error
}

type MongoAuthRepo struct {
	users  *mongo.Collection
	logger *zap.Logger
}

func NewMongoAuthRepo(db *mongo.Database, logger *zap.Logger) *MongoAuthRepo {
	return &MongoAuthRepo{
		users:  db.Collection(database.UsersCollection),
		logger: logger,
	}
}

func (r *MongoAuthRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *MongoAuthRepo) GetUserByUserID(ctx context.Context, userID string) (*models.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByUserID", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	user, err := r.findOne(ctx, bson.M{"userId": userID})
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find user failed")
	}
	return user, err
}

func (r *MongoAuthRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByEmail")
	defer span.End()

	return r.findOne(ctx, bson.M{"email": email})
}

// UpsertUser creates the user with the default free credits on first sign-in and
// refreshes the profile fields afterwards.
func (r *MongoAuthRepo) UpsertUser(ctx context.Context, userID string, profile models.UserProfile) (*models.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpsertUser", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	now := time.Now().UTC()
	set := bson.M{"updatedAt": now}
	if profile.Email != "" {
		set["email"] = profile.Email
	}
	if profile.FirstName != "" {
		set["firstName"] = profile.FirstName
	}
	if profile.LastName != "" {
		set["lastName"] = profile.LastName
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"userId":      userID,
			"credits":     0,
			"freeCredits": models.DefaultFreeCredits,
			"createdAt":   now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var user models.User
	err := r.users.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("email already registered: %w", models.ErrConflict)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert user failed")
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}

func (r *MongoAuthRepo) UpdateUserNames(ctx context.Context, userID, firstName, lastName string) (*models.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpdateUserNames")
	defer span.End()

	update := bson.M{"$set": bson.M{
		"firstName": firstName,
		"lastName":  lastName,
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

// ConsumeCredit atomically takes one credit, free credits first.
func (r *MongoAuthRepo) ConsumeCredit(ctx context.Context, userID string) (CreditKind, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "ConsumeCredit")
	defer span.End()

	for _, kind := range []CreditKind{FreeCredit, PaidCredit} {
		field := string(kind)
		res, err := r.users.UpdateOne(ctx,
			bson.M{"userId": userID, field: bson.M{"$gt": 0}},
			bson.M{"$inc": bson.M{field: -1}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			span.RecordError(err)
			return "", fmt.Errorf("failed to consume credit: %w", err)
		}
		if res.ModifiedCount == 1 {
			span.SetAttributes(attribute.String("credit.kind", field))
			return kind, nil
		}
	}

	if _, err := r.GetUserByUserID(ctx, userID); err != nil {
		return "", err
	}
	return "", models.ErrInsufficientCredits
}

func (r *MongoAuthRepo) RefundCredit(ctx context.Context, userID string, kind CreditKind) error {
	_, err := r.users.UpdateOne(ctx, bson.M{"userId": userID},
		bson.M{"$inc": bson.M{string(kind): 1}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to refund credit: %w", err)
	}
	return nil
}

func (r *MongoAuthRepo) AddCredits(ctx context.Context, userID string, amount int) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "AddCredits", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("credits.amount", amount),
	))
	defer span.End()

	res, err := r.users.UpdateOne(ctx, bson.M{"userId": userID},
		bson.M{"$inc": bson.M{"credits": amount}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to add credits: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
