package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

func TestMongoEventLedger(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("first claim wins", func(mt *mtest.T) {
		ledger := NewMongoEventLedger(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		ok, err := ledger.Claim(ctx, "evt_1")
		require.NoError(mt, err)
		assert.True(mt, ok)
	})

	mt.Run("duplicate event id is not claimed", func(mt *mtest.T) {
		ledger := NewMongoEventLedger(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: wanderplan.webhook_events index: _id_",
		}))

		ok, err := ledger.Claim(ctx, "evt_1")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("store failure is reported", func(mt *mtest.T) {
		ledger := NewMongoEventLedger(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "bad value"}))

		_, err := ledger.Claim(ctx, "evt_1")
		assert.Error(mt, err)
	})

	mt.Run("release deletes the claim", func(mt *mtest.T) {
		ledger := NewMongoEventLedger(mt.DB, zap.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(mt, ledger.Release(ctx, "evt_1"))
	})
}
