package expenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
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

var _ ExpenseRepo = (*MongoExpenseRepo)(nil)

// ExpenseRepo stores one Expense document per (plan, user) with embedded entries.
type ExpenseRepo interface {
	AddEntry(ctx context.Context, planID, userID, currency string, entry models.ExpenseEntry) (*models.Expense, error)
	GetByPlanAndUser(ctx context.Context, planID, userID string) (*models.Expense, error)
	ListByPlan(ctx context.Context, planID string) ([]models.Expense, error)
	UpdateEntry(ctx context.Context, docID primitive.ObjectID, userID string, entry models.ExpenseEntry) (*models.Expense, error)
	PullEntry(ctx context.Context, docID primitive.ObjectID, planID string, entryID primitive.ObjectID) (bool, error)
	DeleteIfEmpty(ctx context.Context, docID primitive.ObjectID) (bool, error)
	DeleteByPlanID(ctx context.Context, planID string) (int64, error)
	DistinctPlanIDs(ctx context.Context) ([]string, error)
	DeleteByPlanIDs(ctx context.Context, planIDs []string) (int64, error)
}

type MongoExpenseRepo struct {
	expenses *mongo.Collection
	logger   *zap.Logger
}

func NewMongoExpenseRepo(db *mongo.Database, logger *zap.Logger) *MongoExpenseRepo {
	return &MongoExpenseRepo{
		expenses: db.Collection(database.ExpensesCollection),
		logger:   logger,
	}
}

// AddEntry appends entry to the caller's document, creating it on first use.
func (r *MongoExpenseRepo) AddEntry(ctx context.Context, planID, userID, currency string, entry models.ExpenseEntry) (*models.Expense, error) {
	ctx, span := otel.Tracer("ExpenseRepo").Start(ctx, "AddEntry", trace.WithAttributes(
		attribute.String("plan.id", planID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	now := time.Now().UTC()
	set := bson.M{"updatedAt": now}
	onInsert := bson.M{"planId": planID, "userId": userID, "createdAt": now}
	if currency != "" {
		set["currency"] = currency
	} else {
		onInsert["currency"] = ""
	}

	update := bson.M{
		"$push":        bson.M{"expenses": entry},
		"$set":         set,
		"$setOnInsert": onInsert,
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc models.Expense
	err := r.expenses.FindOneAndUpdate(ctx, bson.M{"planId": planID, "userId": userID}, update, opts).Decode(&doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add expense failed")
		return nil, fmt.Errorf("failed to add expense: %w", err)
	}
	return &doc, nil
}

func (r *MongoExpenseRepo) GetByPlanAndUser(ctx context.Context, planID, userID string) (*models.Expense, error) {
	ctx, span := otel.Tracer("ExpenseRepo").Start(ctx, "GetByPlanAndUser")
	defer span.End()

	var doc models.Expense
	if err := r.expenses.FindOne(ctx, bson.M{"planId": planID, "userId": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find expenses: %w", err)
	}
	return &doc, nil
}

func (r *MongoExpenseRepo) ListByPlan(ctx context.Context, planID string) ([]models.Expense, error) {
	ctx, span := otel.Tracer("ExpenseRepo").Start(ctx, "ListByPlan")
	defer span.End()

	cursor, err := r.expenses.Find(ctx, bson.M{"planId": planID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expenses: %w", err)
	}
	defer cursor.Close(ctx)

	docs := make([]models.Expense, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode expenses: %w", err)
	}
	return docs, nil
}

// UpdateEntry rewrites one embedded entry of the caller's document in place.
func (r *MongoExpenseRepo) UpdateEntry(ctx context.Context, docID primitive.ObjectID, userID string, entry models.ExpenseEntry) (*models.Expense, error) {
	ctx, span := otel.Tracer("ExpenseRepo").Start(ctx, "UpdateEntry", trace.WithAttributes(
		attribute.String("expense.doc_id", docID.Hex()),
		attribute.String("expense.entry_id", entry.ID.Hex()),
	))
	defer span.End()

	filter := bson.M{"_id": docID, "userId": userID, "expenses._id": entry.ID}
	update := bson.M{"$set": bson.M{
		"expenses.$.purpose":  entry.Purpose,
		"expenses.$.amount":   entry.Amount,
		"expenses.$.category": entry.Category,
		"expenses.$.date":     entry.Date,
		"expenses.$.whoSpent": entry.WhoSpent,
		"updatedAt":           time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc models.Expense
	if err := r.expenses.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	return &doc, nil
}

// PullEntry removes entryID from the document when the document belongs to planID.
// It reports false when nothing matched.
func (r *MongoExpenseRepo) PullEntry(ctx context.Context, docID primitive.ObjectID, planID string, entryID primitive.ObjectID) (bool, error) {
	filter := bson.M{"_id": docID, "planId": planID, "expenses._id": entryID}
	update := bson.M{
		"$pull": bson.M{"expenses": bson.M{"_id": entryID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.expenses.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to pull expense entry: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// DeleteIfEmpty removes the document once its last entry is gone.
func (r *MongoExpenseRepo) DeleteIfEmpty(ctx context.Context, docID primitive.ObjectID) (bool, error) {
	res, err := r.expenses.DeleteOne(ctx, bson.M{"_id": docID, "expenses": bson.M{"$size": 0}})
	if err != nil {
		return false, fmt.Errorf("failed to delete empty expense document: %w", err)
	}
	return res.DeletedCount == 1, nil
}

func (r *MongoExpenseRepo) DeleteByPlanID(ctx context.Context, planID string) (int64, error) {
	ctx, span := otel.Tracer("ExpenseRepo").Start(ctx, "DeleteByPlanID", trace.WithAttributes(
		attribute.String("plan.id", planID),
	))
	defer span.End()

	res, err := r.expenses.DeleteMany(ctx, bson.M{"planId": planID})
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to delete plan expenses: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoExpenseRepo) DistinctPlanIDs(ctx context.Context) ([]string, error) {
	values, err := r.expenses.Distinct(ctx, "planId", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list expense plan ids: %w", err)
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *MongoExpenseRepo) DeleteByPlanIDs(ctx context.Context, planIDs []string) (int64, error) {
	if len(planIDs) == 0 {
		return 0, nil
	}
	res, err := r.expenses.DeleteMany(ctx, bson.M{"planId": bson.M{"$in": planIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned expenses: %w", err)
	}
	return res.DeletedCount, nil
}
