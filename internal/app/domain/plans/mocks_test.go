package plans

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

type MockPlanRepo struct {
	mock.Mock
}

func (m *MockPlanRepo) CreatePlan(ctx context.Context, plan *models.Plan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockPlanRepo) GetPlanByPlanID(ctx context.Context, planID string) (*models.Plan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepo) ListPlansForUser(ctx context.Context, userID string) ([]models.Plan, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Plan), args.Error(1)
}

func (m *MockPlanRepo) ListPublicPlans(ctx context.Context, limit, offset int64) ([]models.Plan, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Plan), args.Error(1)
}

func (m *MockPlanRepo) UpdateFields(ctx context.Context, planID string, set bson.M) error {
	return m.Called(ctx, planID, set).Error(0)
}

func (m *MockPlanRepo) AddCollaborator(ctx context.Context, planID string, collaborator models.Collaborator) error {
	return m.Called(ctx, planID, collaborator).Error(0)
}

func (m *MockPlanRepo) RemoveCollaborator(ctx context.Context, planID, email string) error {
	return m.Called(ctx, planID, email).Error(0)
}

func (m *MockPlanRepo) DeletePlan(ctx context.Context, planID string) error {
	return m.Called(ctx, planID).Error(0)
}

func (m *MockPlanRepo) ExistingPlanIDs(ctx context.Context, planIDs []string) (map[string]bool, error) {
	args := m.Called(ctx, planIDs)
	return args.Get(0).(map[string]bool), args.Error(1)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserDirectory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockExpenseCleaner struct {
	mock.Mock
}

func (m *MockExpenseCleaner) DeleteByPlanID(ctx context.Context, planID string) (int64, error) {
	args := m.Called(ctx, planID)
	return args.Get(0).(int64), args.Error(1)
}

type MockInviter struct {
	mock.Mock
}

func (m *MockInviter) SendPlanInvitation(ctx context.Context, to, inviterName, placeName, planID string) error {
	return m.Called(ctx, to, inviterName, placeName, planID).Error(0)
}

type MockInteractionLister struct {
	mock.Mock
}

func (m *MockInteractionLister) ListByPlan(ctx context.Context, planID string, limit int) ([]models.LLMInteraction, error) {
	args := m.Called(ctx, planID, limit)
	return args.Get(0).([]models.LLMInteraction), args.Error(1)
}

type serviceMocks struct {
	repo         *MockPlanRepo
	users        *MockUserDirectory
	expenses     *MockExpenseCleaner
	inviter      *MockInviter
	interactions *MockInteractionLister
}

func newTestService() (*PlanServiceImpl, serviceMocks) {
	m := serviceMocks{
		repo:         new(MockPlanRepo),
		users:        new(MockUserDirectory),
		expenses:     new(MockExpenseCleaner),
		inviter:      new(MockInviter),
		interactions: new(MockInteractionLister),
	}
	return NewPlanService(m.repo, m.users, m.expenses, m.inviter, m.interactions, zapNop()), m
}
