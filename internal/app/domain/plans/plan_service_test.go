package plans

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

func zapNop() *zap.Logger { return zap.NewNop() }

func privatePlan() *models.Plan {
	return &models.Plan{
		PlanID:         "plan-1",
		UserID:         "owner",
		NameOfThePlace: "Lisbon",
		Collaborators:  []models.Collaborator{{Email: "bob@example.com", UserID: "bob"}},
	}
}

func TestAddPlan(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	m.repo.On("CreatePlan", mock.Anything, mock.AnythingOfType("*models.Plan")).Return(nil)

	plan := &models.Plan{NameOfThePlace: "Porto", UserID: "spoofed", AboutThePlace: "River city"}
	stored, err := svc.AddPlan(ctx, "owner", plan)
	require.NoError(t, err)

	assert.Equal(t, "owner", stored.UserID)
	assert.NotEmpty(t, stored.PlanID)
	assert.Equal(t, "River city", stored.AboutThePlace)
	assert.NotNil(t, stored.Collaborators)
	assert.False(t, stored.CreatedAt.IsZero())
	m.repo.AssertExpectations(t)
}

func TestGetPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown plan", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "nope").Return(nil, models.ErrNotFound)
		_, err := svc.GetPlan(ctx, "owner", "nope")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Private plan hidden from strangers", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		_, err := svc.GetPlan(ctx, "", "plan-1")
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = svc.GetPlan(ctx, "mallory", "plan-1")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Private plan visible to collaborator", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		plan, err := svc.GetPlan(ctx, "bob", "plan-1")
		require.NoError(t, err)
		assert.Equal(t, "Lisbon", plan.NameOfThePlace)
	})

	t.Run("Public plan visible to anyone", func(t *testing.T) {
		svc, m := newTestService()
		public := privatePlan()
		public.IsPublic = true
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(public, nil)
		_, err := svc.GetPlan(ctx, "", "plan-1")
		assert.NoError(t, err)
	})
}

func TestUpdateSection(t *testing.T) {
	ctx := context.Background()

	t.Run("Collaborator can edit", func(t *testing.T) {
		svc, m := newTestService()
		about := "Hills and trams"
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		m.repo.On("UpdateFields", mock.Anything, "plan-1", bson.M{
			"abouttheplace":                        about,
			"contentGenerationState.abouttheplace": true,
		}).Return(nil)

		_, err := svc.UpdateSection(ctx, "bob", "plan-1", "about", models.SectionUpdate{AboutThePlace: &about})
		require.NoError(t, err)
		m.repo.AssertExpectations(t)
	})

	t.Run("Stranger is forbidden", func(t *testing.T) {
		svc, m := newTestService()
		about := "x"
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		_, err := svc.UpdateSection(ctx, "mallory", "plan-1", "about", models.SectionUpdate{AboutThePlace: &about})
		assert.ErrorIs(t, err, models.ErrForbidden)
		m.repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUpdateCurrency(t *testing.T) {
	ctx := context.Background()

	t.Run("Canonical code", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		m.repo.On("UpdateFields", mock.Anything, "plan-1", bson.M{"preferredCurrency": "EUR"}).Return(nil)

		code, err := svc.UpdateCurrency(ctx, "owner", "plan-1", "eur")
		require.NoError(t, err)
		assert.Equal(t, "EUR", code)
	})

	t.Run("Unknown code", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.UpdateCurrency(ctx, "owner", "plan-1", "XYZ1")
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestSetVisibilityOwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)

	assert.ErrorIs(t, svc.SetVisibility(ctx, "bob", "plan-1", true), models.ErrForbidden)

	m.repo.On("UpdateFields", mock.Anything, "plan-1", bson.M{"isPublic": true}).Return(nil)
	assert.NoError(t, svc.SetVisibility(ctx, "owner", "plan-1", true))
}

func TestInviteCollaborator(t *testing.T) {
	ctx := context.Background()

	t.Run("Invites and mails", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		m.users.On("GetUserByEmail", mock.Anything, "carol@example.com").Return(&models.User{UserID: "carol", Email: "carol@example.com"}, nil)
		m.users.On("GetUser", mock.Anything, "owner").Return(&models.User{FirstName: "Ada", LastName: "Lovelace"}, nil)
		m.repo.On("AddCollaborator", mock.Anything, "plan-1", mock.MatchedBy(func(c models.Collaborator) bool {
			return c.UserID == "carol" && c.Email == "carol@example.com" && !c.InvitedAt.IsZero()
		})).Return(nil)
		m.inviter.On("SendPlanInvitation", mock.Anything, "carol@example.com", "Ada Lovelace", "Lisbon", "plan-1").Return(nil)

		c, err := svc.InviteCollaborator(ctx, "owner", "plan-1", "carol@example.com")
		require.NoError(t, err)
		assert.Equal(t, "carol", c.UserID)
		m.inviter.AssertExpectations(t)
	})

	t.Run("Mail failure does not fail the invite", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		m.users.On("GetUserByEmail", mock.Anything, "carol@example.com").Return(&models.User{UserID: "carol", Email: "carol@example.com"}, nil)
		m.users.On("GetUser", mock.Anything, "owner").Return(nil, models.ErrNotFound)
		m.repo.On("AddCollaborator", mock.Anything, "plan-1", mock.Anything).Return(nil)
		m.inviter.On("SendPlanInvitation", mock.Anything, "carol@example.com", "A fellow traveller", "Lisbon", "plan-1").
			Return(errors.New("smtp down"))

		_, err := svc.InviteCollaborator(ctx, "owner", "plan-1", "carol@example.com")
		assert.NoError(t, err)
	})

	t.Run("Unknown email", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		m.users.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, models.ErrNotFound)

		_, err := svc.InviteCollaborator(ctx, "owner", "plan-1", "ghost@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Already invited", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		m.users.On("GetUserByEmail", mock.Anything, "bob@example.com").Return(&models.User{UserID: "bob", Email: "bob@example.com"}, nil)
		m.repo.On("AddCollaborator", mock.Anything, "plan-1", mock.Anything).Return(models.ErrConflict)

		_, err := svc.InviteCollaborator(ctx, "owner", "plan-1", "bob@example.com")
		assert.ErrorIs(t, err, models.ErrConflict)
		m.inviter.AssertNotCalled(t, "SendPlanInvitation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Only owner invites", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		_, err := svc.InviteCollaborator(ctx, "bob", "plan-1", "carol@example.com")
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestDeletePlanCascades(t *testing.T) {
	ctx := context.Background()

	t.Run("Removes expenses", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		m.repo.On("DeletePlan", mock.Anything, "plan-1").Return(nil)
		m.expenses.On("DeleteByPlanID", mock.Anything, "plan-1").Return(int64(2), nil)

		require.NoError(t, svc.DeletePlan(ctx, "owner", "plan-1"))
		m.expenses.AssertExpectations(t)
	})

	t.Run("Cascade failure is left to the sweep", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		m.repo.On("DeletePlan", mock.Anything, "plan-1").Return(nil)
		m.expenses.On("DeleteByPlanID", mock.Anything, "plan-1").Return(int64(0), errors.New("timeout"))

		assert.NoError(t, svc.DeletePlan(ctx, "owner", "plan-1"))
	})

	t.Run("Collaborator cannot delete", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("GetPlanByPlanID", mock.Anything, "plan-1").Return(privatePlan(), nil)
		assert.ErrorIs(t, svc.DeletePlan(ctx, "bob", "plan-1"), models.ErrForbidden)
		m.repo.AssertNotCalled(t, "DeletePlan", mock.Anything, mock.Anything)
	})
}

func TestListCommunityPlansClampsPaging(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	m.repo.On("ListPublicPlans", mock.Anything, int64(defaultCommunityLimit), int64(0)).Return([]models.Plan{}, nil)
	m.repo.On("ListPublicPlans", mock.Anything, int64(maxCommunityLimit), int64(40)).Return([]models.Plan{}, nil)

	_, err := svc.ListCommunityPlans(ctx, 0, -5)
	require.NoError(t, err)
	_, err = svc.ListCommunityPlans(ctx, 500, 40)
	require.NoError(t, err)
	m.repo.AssertExpectations(t)
}
