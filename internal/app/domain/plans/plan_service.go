package plans

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

const (
	defaultCommunityLimit = 20
	maxCommunityLimit     = 100
	generationLogLimit    = 100
)

// UserDirectory resolves users for collaborator invitations.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// ExpenseCleaner removes the expense documents of a deleted plan.
type ExpenseCleaner interface {
	DeleteByPlanID(ctx context.Context, planID string) (int64, error)
}

// Inviter notifies a user that a plan was shared with them.
type Inviter interface {
	SendPlanInvitation(ctx context.Context, to, inviterName, placeName, planID string) error
}

// InteractionLister reads the LLM interaction log of a plan.
type InteractionLister interface {
	ListByPlan(ctx context.Context, planID string, limit int) ([]models.LLMInteraction, error)
}

var _ PlanService = (*PlanServiceImpl)(nil)

type PlanService interface {
	AddPlan(ctx context.Context, userID string, plan *models.Plan) (*models.Plan, error)
	GetPlan(ctx context.Context, viewerID, planID string) (*models.Plan, error)
	GetAccessiblePlan(ctx context.Context, userID, planID string) (*models.Plan, error)
	ListUserPlans(ctx context.Context, userID string) ([]models.Plan, error)
	ListCommunityPlans(ctx context.Context, limit, offset int) ([]models.Plan, error)
	UpdateSection(ctx context.Context, userID, planID, section string, update models.SectionUpdate) (*models.Plan, error)
	UpdateCurrency(ctx context.Context, userID, planID, code string) (string, error)
	SetVisibility(ctx context.Context, userID, planID string, isPublic bool) error
	InviteCollaborator(ctx context.Context, userID, planID, email string) (*models.Collaborator, error)
	RemoveCollaborator(ctx context.Context, userID, planID, email string) error
	DeletePlan(ctx context.Context, userID, planID string) error
	GenerationLog(ctx context.Context, userID, planID string) ([]models.LLMInteraction, error)
}

type PlanServiceImpl struct {
	logger       *zap.Logger
	repo         PlanRepo
	users        UserDirectory
	expenses     ExpenseCleaner
	inviter      Inviter
	interactions InteractionLister
}

func NewPlanService(repo PlanRepo, users UserDirectory, expenses ExpenseCleaner, inviter Inviter,
	interactions InteractionLister, logger *zap.Logger) *PlanServiceImpl {
	return &PlanServiceImpl{
		logger:       logger,
		repo:         repo,
		users:        users,
		expenses:     expenses,
		inviter:      inviter,
		interactions: interactions,
	}
}

// AddPlan stores the payload as sent, owned by userID.
func (s *PlanServiceImpl) AddPlan(ctx context.Context, userID string, plan *models.Plan) (*models.Plan, error) {
	ctx, span := otel.Tracer("PlanService").Start(ctx, "AddPlan", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	if userID == "" {
		return nil, models.ErrUnauthenticated
	}

	now := time.Now().UTC()
	plan.ID = primitive.NilObjectID
	plan.UserID = userID
	if plan.PlanID == "" {
		plan.PlanID = uuid.NewString()
	}
	if plan.Collaborators == nil {
		plan.Collaborators = []models.Collaborator{}
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create plan failed")
		return nil, err
	}
	s.logger.Info("plan created", zap.String("planID", plan.PlanID), zap.String("userId", userID))
	return plan, nil
}

// GetPlan returns the plan for viewing. Private plans are reported as missing to non-members.
func (s *PlanServiceImpl) GetPlan(ctx context.Context, viewerID, planID string) (*models.Plan, error) {
	ctx, span := otel.Tracer("PlanService").Start(ctx, "GetPlan", trace.WithAttributes(
		attribute.String("plan.id", planID),
	))
	defer span.End()

	plan, err := s.repo.GetPlanByPlanID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsPublic && !plan.CanAccess(viewerID) {
		return nil, models.ErrNotFound
	}
	return plan, nil
}

// GetAccessiblePlan returns the plan when userID owns it or collaborates on it.
func (s *PlanServiceImpl) GetAccessiblePlan(ctx context.Context, userID, planID string) (*models.Plan, error) {
	plan, err := s.repo.GetPlanByPlanID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.CanAccess(userID) {
		return nil, models.ErrForbidden
	}
	return plan, nil
}

func (s *PlanServiceImpl) getOwnedPlan(ctx context.Context, userID, planID string) (*models.Plan, error) {
	plan, err := s.repo.GetPlanByPlanID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.UserID != userID {
		return nil, models.ErrForbidden
	}
	return plan, nil
}

func (s *PlanServiceImpl) ListUserPlans(ctx context.Context, userID string) ([]models.Plan, error) {
	return s.repo.ListPlansForUser(ctx, userID)
}

func (s *PlanServiceImpl) ListCommunityPlans(ctx context.Context, limit, offset int) ([]models.Plan, error) {
	if limit <= 0 {
		limit = defaultCommunityLimit
	}
	if limit > maxCommunityLimit {
		limit = maxCommunityLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListPublicPlans(ctx, int64(limit), int64(offset))
}

// UpdateSection replaces one descriptive section and marks it as populated.
func (s *PlanServiceImpl) UpdateSection(ctx context.Context, userID, planID, section string, update models.SectionUpdate) (*models.Plan, error) {
	ctx, span := otel.Tracer("PlanService").Start(ctx, "UpdateSection", trace.WithAttributes(
		attribute.String("plan.id", planID),
		attribute.String("plan.section", section),
	))
	defer span.End()

	set, err := sectionFields(section, update)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetAccessiblePlan(ctx, userID, planID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, planID, set); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.repo.GetPlanByPlanID(ctx, planID)
}

// UpdateCurrency stores the canonical ISO 4217 code.
func (s *PlanServiceImpl) UpdateCurrency(ctx context.Context, userID, planID, code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("unknown currency %q: %w", code, models.ErrValidation)
	}
	if _, err := s.GetAccessiblePlan(ctx, userID, planID); err != nil {
		return "", err
	}
	if err := s.repo.UpdateFields(ctx, planID, map[string]any{"preferredCurrency": unit.String()}); err != nil {
		return "", err
	}
	return unit.String(), nil
}

func (s *PlanServiceImpl) SetVisibility(ctx context.Context, userID, planID string, isPublic bool) error {
	if _, err := s.getOwnedPlan(ctx, userID, planID); err != nil {
		return err
	}
	return s.repo.UpdateFields(ctx, planID, map[string]any{"isPublic": isPublic})
}

// InviteCollaborator shares the plan with an existing user. The email is best effort.
func (s *PlanServiceImpl) InviteCollaborator(ctx context.Context, userID, planID, email string) (*models.Collaborator, error) {
	ctx, span := otel.Tracer("PlanService").Start(ctx, "InviteCollaborator", trace.WithAttributes(
		attribute.String("plan.id", planID),
	))
	defer span.End()

	plan, err := s.getOwnedPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	invitee, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if invitee.UserID == plan.UserID {
		return nil, fmt.Errorf("owner cannot be invited: %w", models.ErrBadRequest)
	}

	collaborator := models.Collaborator{
		Email:     invitee.Email,
		UserID:    invitee.UserID,
		InvitedAt: time.Now().UTC(),
	}
	if err := s.repo.AddCollaborator(ctx, planID, collaborator); err != nil {
		return nil, err
	}

	inviterName := "A fellow traveller"
	if owner, err := s.users.GetUser(ctx, userID); err == nil {
		if name := strings.TrimSpace(owner.FirstName + " " + owner.LastName); name != "" {
			inviterName = name
		}
	}
	if err := s.inviter.SendPlanInvitation(ctx, collaborator.Email, inviterName, plan.NameOfThePlace, planID); err != nil {
		s.logger.Warn("invitation email not sent",
			zap.String("planID", planID),
			zap.String("to", collaborator.Email),
			zap.Error(err))
	}
	return &collaborator, nil
}

func (s *PlanServiceImpl) RemoveCollaborator(ctx context.Context, userID, planID, email string) error {
	if _, err := s.getOwnedPlan(ctx, userID, planID); err != nil {
		return err
	}
	return s.repo.RemoveCollaborator(ctx, planID, strings.ToLower(strings.TrimSpace(email)))
}

// DeletePlan removes the plan and then its expense documents. Leftovers from a failed
// cascade are collected by the orphan sweep.
func (s *PlanServiceImpl) DeletePlan(ctx context.Context, userID, planID string) error {
	ctx, span := otel.Tracer("PlanService").Start(ctx, "DeletePlan", trace.WithAttributes(
		attribute.String("plan.id", planID),
	))
	defer span.End()

	if _, err := s.getOwnedPlan(ctx, userID, planID); err != nil {
		return err
	}
	if err := s.repo.DeletePlan(ctx, planID); err != nil {
		span.RecordError(err)
		return err
	}

	removed, err := s.expenses.DeleteByPlanID(ctx, planID)
	if err != nil {
		s.logger.Error("failed to cascade plan deletion to expenses", zap.String("planID", planID), zap.Error(err))
		return nil
	}
	s.logger.Info("plan deleted", zap.String("planID", planID), zap.Int64("expenseDocuments", removed))
	return nil
}

func (s *PlanServiceImpl) GenerationLog(ctx context.Context, userID, planID string) ([]models.LLMInteraction, error) {
	if _, err := s.getOwnedPlan(ctx, userID, planID); err != nil {
		return nil, err
	}
	return s.interactions.ListByPlan(ctx, planID, generationLogLimit)
}
