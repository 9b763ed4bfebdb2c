package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mamadbah2/wellca/internal/domain/models"
)

func mockRepository(mt *mtest.T) *MongoDBRepository {
	return &MongoDBRepository{client: mt.Client, dbName: mt.DB.Name(), collName: mt.Coll.Name()}
}

func TestSaveReportSnapshot(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := mockRepository(mt).SaveReportSnapshot(context.Background(), models.ReportSnapshot{
			StartDate: "2024-01-13",
			EndDate:   "2024-01-19",
			Entries:   4,
		})
		require.NoError(mt, err)
	})

	mt.Run("write error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := mockRepository(mt).SaveReportSnapshot(context.Background(), models.ReportSnapshot{})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to insert report snapshot")
	})
}

func TestListReportSnapshots(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes newest first", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		created := time.Date(2024, 1, 19, 20, 0, 0, 0, time.UTC)

		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			bson.D{
				{Key: "start_date", Value: "2024-01-13"},
				{Key: "end_date", Value: "2024-01-19"},
				{Key: "entries", Value: 5},
				{Key: "service_revenue", Value: 25.5},
				{Key: "summary", Value: "Wellca report (2024-01-13 - 2024-01-19): 5 entries."},
				{Key: "created_at", Value: created},
			},
			bson.D{
				{Key: "start_date", Value: "2024-01-06"},
				{Key: "end_date", Value: "2024-01-12"},
				{Key: "created_at", Value: created.AddDate(0, 0, -7)},
			})
		last := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, last)

		snapshots, err := mockRepository(mt).ListReportSnapshots(context.Background(), 0)
		require.NoError(mt, err)
		require.Len(mt, snapshots, 2)
		assert.Equal(mt, "2024-01-19", snapshots[0].EndDate)
		assert.Equal(mt, 5, snapshots[0].Entries)
		assert.InDelta(mt, 25.5, snapshots[0].ServiceRevenue, 0.001)
		assert.True(mt, created.Equal(snapshots[0].CreatedAt))
		assert.Equal(mt, "2024-01-06", snapshots[1].StartDate)
	})

	mt.Run("query error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad query",
			Name:    "BadValue",
		}))

		_, err := mockRepository(mt).ListReportSnapshots(context.Background(), 5)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to query report snapshots")
	})
}
