package mongo

import (
	"context"
	"errors"
	"testing"

	"VectorInit/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func libraries() []bson.D {
	return []bson.D{
		{{Key: "id", Value: "lib1"}, {Key: "name", Value: "Physics"}},
		{{Key: "id", Value: "lib2"}, {Key: "name", Value: "Chemistry"}},
		{{Key: "id", Value: "lib3"}, {Key: "name", Value: "Biology"}},
	}
}

func TestInsertFixtures(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("all records", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))
		c := FromDatabase(mt.Client.Database("vector-db"))

		n, err := c.InsertFixtures(ctx, "libraries", libraries())
		require.NoError(mt, err)
		assert.Equal(mt, 3, n)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "insert", evt.CommandName)
		assert.Equal(mt, "libraries", evt.Command.Lookup("insert").StringValue())
		assert.True(mt, evt.Command.Lookup("ordered").Boolean())

		docs, err := evt.Command.Lookup("documents").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, docs, 3)
		for _, d := range docs {
			_, err := d.Document().LookupErr("_id")
			assert.NoError(mt, err, "driver adds _id to records without one")
		}
		assert.Equal(mt, "Physics", docs[0].Document().Lookup("name").StringValue())
		assert.Nil(mt, mt.GetStartedEvent(), "one batch, one command")
	})

	mt.Run("empty fixture makes no call", func(mt *mtest.T) {
		c := FromDatabase(mt.Client.Database("vector-db"))
		n, err := c.InsertFixtures(ctx, "libraries", nil)
		require.NoError(mt, err)
		assert.Zero(mt, n)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("duplicate key reports partial count", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   2,
			Code:    11000,
			Message: "E11000 duplicate key error collection: vector-db.libraries index: _id_",
		}))
		c := FromDatabase(mt.Client.Database("vector-db"))

		n, err := c.InsertFixtures(ctx, "libraries", libraries())
		assert.Equal(mt, 2, n)
		assert.ErrorIs(mt, err, errs.ErrDuplicateKey)

		var ie *errs.InsertError
		require.True(mt, errors.As(err, &ie))
		assert.Equal(mt, "libraries", ie.Collection)
		assert.Equal(mt, 2, ie.Inserted)
		assert.Equal(mt, 3, ie.Total)
	})

	mt.Run("write concern error after all records applied", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 3},
			bson.E{Key: "writeConcernError", Value: bson.D{
				{Key: "code", Value: 64},
				{Key: "codeName", Value: "WriteConcernFailed"},
				{Key: "errmsg", Value: "waiting for replication timed out"},
			}},
		))
		c := FromDatabase(mt.Client.Database("vector-db"))

		n, err := c.InsertFixtures(ctx, "libraries", libraries())
		assert.Equal(mt, 3, n)
		assert.ErrorIs(mt, err, errs.ErrBulkInsert)

		var ie *errs.InsertError
		require.True(mt, errors.As(err, &ie))
		assert.Equal(mt, 3, ie.Inserted)
		assert.Equal(mt, 3, ie.Total)
	})

	mt.Run("invalid record aborts batch", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    2,
			Message: "invalid document",
		}))
		c := FromDatabase(mt.Client.Database("vector-db"))

		n, err := c.InsertFixtures(ctx, "documents", libraries())
		assert.Zero(mt, n)
		assert.ErrorIs(mt, err, errs.ErrBulkInsert)
		assert.NotErrorIs(mt, err, errs.ErrDuplicateKey)
	})
}

func TestUpsertFixtures(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("keyed records are replaced by key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 3},
			bson.E{Key: "nModified", Value: 1},
			bson.E{Key: "upserted", Value: bson.A{
				bson.D{{Key: "index", Value: 2}, {Key: "_id", Value: "x3"}},
			}},
		))
		c := FromDatabase(mt.Client.Database("vector-db"))

		res, err := c.UpsertFixtures(ctx, "libraries", "id", libraries())
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), res.Upserted)
		assert.Equal(mt, int64(1), res.Modified)
		assert.Zero(mt, res.Skipped)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)
		assert.False(mt, evt.Command.Lookup("ordered").Boolean())
		ups, err := evt.Command.Lookup("updates").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, ups, 3)
		first := ups[0].Document()
		assert.Equal(mt, "lib1", first.Lookup("q", "id").StringValue())
		assert.True(mt, first.Lookup("upsert").Boolean())
		assert.Equal(mt, "Physics", first.Lookup("u", "name").StringValue())
	})

	mt.Run("unchanged records count as matched", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 3},
			bson.E{Key: "nModified", Value: 0},
		))
		c := FromDatabase(mt.Client.Database("vector-db"))

		res, err := c.UpsertFixtures(ctx, "libraries", "id", libraries())
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), res.Matched)
		assert.Zero(mt, res.Written())
	})

	mt.Run("keyless records skipped on populated collection", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "vector-db.documents", mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(1)}}))
		c := FromDatabase(mt.Client.Database("vector-db"))

		res, err := c.UpsertFixtures(ctx, "documents", "id", []bson.D{
			{{Key: "title", Value: "Intro"}},
		})
		require.NoError(mt, err)
		assert.Equal(mt, 1, res.Skipped)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "aggregate", evt.CommandName)
		assert.Nil(mt, mt.GetStartedEvent(), "nothing written")
	})

	mt.Run("keyless records inserted into empty collection", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "vector-db.documents", mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		c := FromDatabase(mt.Client.Database("vector-db"))

		res, err := c.UpsertFixtures(ctx, "documents", "id", []bson.D{
			{{Key: "title", Value: "Intro"}},
		})
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), res.Inserted)
		assert.Zero(mt, res.Skipped)
	})

	mt.Run("empty fixture makes no call", func(mt *mtest.T) {
		c := FromDatabase(mt.Client.Database("vector-db"))
		res, err := c.UpsertFixtures(ctx, "documents", "id", nil)
		require.NoError(mt, err)
		assert.Equal(mt, UpsertResult{}, res)
		assert.Nil(mt, mt.GetStartedEvent())
	})
}

func TestRecordKey(t *testing.T) {
	k, v, ok := recordKey(bson.D{{Key: "_id", Value: "a"}, {Key: "id", Value: "b"}}, "id")
	assert.True(t, ok)
	assert.Equal(t, "id", k)
	assert.Equal(t, "b", v)

	k, v, ok = recordKey(bson.D{{Key: "_id", Value: "a"}, {Key: "name", Value: "x"}}, "id")
	assert.True(t, ok)
	assert.Equal(t, "_id", k)
	assert.Equal(t, "a", v)

	_, _, ok = recordKey(bson.D{{Key: "name", Value: "x"}}, "id")
	assert.False(t, ok)

	k, _, ok = recordKey(bson.D{{Key: "_id", Value: "a"}}, "")
	assert.True(t, ok)
	assert.Equal(t, "_id", k)
}
