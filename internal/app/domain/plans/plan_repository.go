package plans

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

var _ PlanRepo = (*MongoPlanRepo)(nil)

// PlanRepo persists Plan documents keyed by their external planID.
type PlanRepo interface {
	CreatePlan(ctx context.Context, plan *models.Plan) error
	GetPlanByPlanID(ctx context.Context, planID string) (*models.Plan, error)
	ListPlansForUser(ctx context.Context, userID string) ([]models.Plan, error)
	ListPublicPlans(ctx context.Context, limit, offset int64) ([]models.Plan, error)
	UpdateFields(ctx context.Context, planID string, set bson.M) error
	AddCollaborator(ctx context.Context, planID string, collaborator models.Collaborator) error
	RemoveCollaborator(ctx context.Context, planID, email string) error
	DeletePlan(ctx context.Context, planID string) error
	ExistingPlanIDs(ctx context.Context, planIDs []string) (map[string]bool, error)
}

type MongoPlanRepo struct {
	plans  *mongo.Collection
	logger *zap.Logger
}

func NewMongoPlanRepo(db *mongo.Database, logger *zap.Logger) *MongoPlanRepo {
	return &MongoPlanRepo{
		plans:  db.Collection(database.PlansCollection),
		logger: logger,
	}
}

func (r *MongoPlanRepo) CreatePlan(ctx context.Context, plan *models.Plan) error {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "CreatePlan", trace.WithAttributes(
		attribute.String("plan.id", plan.PlanID),
		attribute.String("user.id", plan.UserID),
	))
	defer span.End()

	res, err := r.plans.InsertOne(ctx, plan)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert plan failed")
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("plan %s: %w", plan.PlanID, models.ErrConflict)
		}
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		plan.ID = oid
	}
	return nil
}

func (r *MongoPlanRepo) GetPlanByPlanID(ctx context.Context, planID string) (*models.Plan, error) {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "GetPlanByPlanID", trace.WithAttributes(
		attribute.String("plan.id", planID),
	))
	defer span.End()

	var plan models.Plan
	if err := r.plans.FindOne(ctx, bson.M{"planID": planID}).Decode(&plan); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	return &plan, nil
}

// ListPlansForUser returns plans owned by userID or shared with them, newest first.
func (r *MongoPlanRepo) ListPlansForUser(ctx context.Context, userID string) ([]models.Plan, error) {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "ListPlansForUser")
	defer span.End()

	filter := bson.M{"$or": bson.A{
		bson.M{"userId": userID},
		bson.M{"collaborators.userId": userID},
	}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *MongoPlanRepo) ListPublicPlans(ctx context.Context, limit, offset int64) ([]models.Plan, error) {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "ListPublicPlans", trace.WithAttributes(
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
	))
	defer span.End()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)
	return r.find(ctx, bson.M{"isPublic": true}, opts)
}

func (r *MongoPlanRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Plan, error) {
	cursor, err := r.plans.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plans: %w", err)
	}
	defer cursor.Close(ctx)

	plans := make([]models.Plan, 0)
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, fmt.Errorf("failed to decode plans: %w", err)
	}
	return plans, nil
}

// UpdateFields sets the given fields and bumps updatedAt. Concurrent writers race; the last one wins.
func (r *MongoPlanRepo) UpdateFields(ctx context.Context, planID string, set bson.M) error {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "UpdateFields", trace.WithAttributes(
		attribute.String("plan.id", planID),
	))
	defer span.End()

	fields := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range set {
		fields[k] = v
	}
	res, err := r.plans.UpdateOne(ctx, bson.M{"planID": planID}, bson.M{"$set": fields})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update plan failed")
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddCollaborator pushes the collaborator unless the email is already on the plan.
func (r *MongoPlanRepo) AddCollaborator(ctx context.Context, planID string, collaborator models.Collaborator) error {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "AddCollaborator")
	defer span.End()

	filter := bson.M{"planID": planID, "collaborators.email": bson.M{"$ne": collaborator.Email}}
	update := bson.M{
		"$push": bson.M{"collaborators": collaborator},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.plans.UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to add collaborator: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetPlanByPlanID(ctx, planID); err != nil {
			return err
		}
		return fmt.Errorf("%s already invited: %w", collaborator.Email, models.ErrConflict)
	}
	return nil
}

func (r *MongoPlanRepo) RemoveCollaborator(ctx context.Context, planID, email string) error {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "RemoveCollaborator")
	defer span.End()

	res, err := r.plans.UpdateOne(ctx,
		bson.M{"planID": planID},
		bson.M{
			"$pull": bson.M{"collaborators": bson.M{"email": email}},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to remove collaborator: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MongoPlanRepo) DeletePlan(ctx context.Context, planID string) error {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "DeletePlan", trace.WithAttributes(
		attribute.String("plan.id", planID),
	))
	defer span.End()

	res, err := r.plans.DeleteOne(ctx, bson.M{"planID": planID})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ExistingPlanIDs reports which of planIDs still have a plan document.
func (r *MongoPlanRepo) ExistingPlanIDs(ctx context.Context, planIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(planIDs))
	if len(planIDs) == 0 {
		return existing, nil
	}

	values, err := r.plans.Distinct(ctx, "planID", bson.M{"planID": bson.M{"$in": planIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to look up plan ids: %w", err)
	}
	for _, v := range values {
		if id, ok := v.(string); ok {
			existing[id] = true
		}
	}
	return existing, nil
}
