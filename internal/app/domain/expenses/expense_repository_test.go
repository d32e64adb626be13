package expenses

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

func TestMongoExpenseRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("AddEntry upserts", func(mt *mtest.T) {
		repo := NewMongoExpenseRepo(mt.DB, zap.NewNop())
		e := entry(9.5, models.CategoryFood, time.Now(), "ada")
		doc := bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "planId", Value: "plan-1"},
			{Key: "userId", Value: "owner"},
			{Key: "currency", Value: "EUR"},
			{Key: "expenses", Value: bson.A{bson.D{
				{Key: "_id", Value: e.ID},
				{Key: "purpose", Value: "test"},
				{Key: "amount", Value: 9.5},
				{Key: "category", Value: "food"},
			}}},
		}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc}))

		got, err := repo.AddEntry(ctx, "plan-1", "owner", "EUR", e)
		require.NoError(mt, err)
		require.Len(mt, got.Expenses, 1)
		assert.Equal(mt, e.ID, got.Expenses[0].ID)
	})

	mt.Run("PullEntry matched", func(mt *mtest.T) {
		repo := NewMongoExpenseRepo(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		ok, err := repo.PullEntry(ctx, primitive.NewObjectID(), "plan-1", primitive.NewObjectID())
		require.NoError(mt, err)
		assert.True(mt, ok)
	})

	mt.Run("PullEntry no match", func(mt *mtest.T) {
		repo := NewMongoExpenseRepo(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		ok, err := repo.PullEntry(ctx, primitive.NewObjectID(), "plan-1", primitive.NewObjectID())
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("PullEntry storage error", func(mt *mtest.T) {
		repo := NewMongoExpenseRepo(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 91, Name: "ShutdownInProgress", Message: "shutting down"}))

		_, err := repo.PullEntry(ctx, primitive.NewObjectID(), "plan-1", primitive.NewObjectID())
		assert.Error(mt, err)
	})

	mt.Run("DeleteIfEmpty", func(mt *mtest.T) {
		repo := NewMongoExpenseRepo(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		deleted, err := repo.DeleteIfEmpty(ctx, primitive.NewObjectID())
		require.NoError(mt, err)
		assert.True(mt, deleted)
	})

	mt.Run("UpdateEntry missing", func(mt *mtest.T) {
		repo := NewMongoExpenseRepo(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.UpdateEntry(ctx, primitive.NewObjectID(), "owner", entry(1, models.CategoryOthers, time.Now(), ""))
		assert.ErrorIs(mt, err, models.ErrNotFound)
	})

	mt.Run("DistinctPlanIDs", func(mt *mtest.T) {
		repo := NewMongoExpenseRepo(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{"plan-1", "plan-2"}}))

		ids, err := repo.DistinctPlanIDs(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, []string{"plan-1", "plan-2"}, ids)
	})

	mt.Run("DeleteByPlanID", func(mt *mtest.T) {
		repo := NewMongoExpenseRepo(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))

		n, err := repo.DeleteByPlanID(ctx, "plan-1")
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})
}
