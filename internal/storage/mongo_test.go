package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/yadu/yadu-backend/internal/users"
)

const testNamespace = "yadu.users"

func userDoc(userID, username string, groups ...string) bson.D {
	g := bson.A{}
	for _, v := range groups {
		g = append(g, v)
	}
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "userId", Value: userID},
		{Key: "username", Value: username},
		{Key: "password", Value: "$argon2id$stored"},
		{Key: "groups", Value: g},
	}
}

func commandFailure() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{
		Code:    2,
		Name:    "BadValue",
		Message: "storage engine fault",
	})
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("find all", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch,
			userDoc("u1", "Karl", "groupA"),
			userDoc("u2", "Erna"),
		))

		list, err := NewMongoStore(mt.Coll).FindAll(ctx)
		require.NoError(mt, err)
		require.Len(mt, list, 2)
		assert.Equal(mt, "Karl", list[0].Username)
		assert.Equal(mt, []string{"groupA"}, list[0].Groups)
		assert.Equal(mt, []string{}, list[1].Groups)
	})

	mt.Run("find all storage fault", func(mt *mtest.T) {
		mt.AddMockResponses(commandFailure())

		_, err := NewMongoStore(mt.Coll).FindAll(ctx)
		assert.True(mt, users.IsKind(err, users.KindDB), "got %v", err)
	})

	mt.Run("find by name", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch, userDoc("u1", "Karl")))

		u, err := NewMongoStore(mt.Coll).FindByUsername(ctx, "Karl")
		require.NoError(mt, err)
		assert.Equal(mt, "u1", u.UserID)
		assert.Equal(mt, "$argon2id$stored", u.Password)
	})

	mt.Run("find by id not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch))

		_, err := NewMongoStore(mt.Coll).FindByID(ctx, "missing")
		assert.True(mt, users.IsKind(err, users.KindNotFound), "got %v", err)
	})

	mt.Run("find by id storage fault", func(mt *mtest.T) {
		mt.AddMockResponses(commandFailure())

		_, err := NewMongoStore(mt.Coll).FindByID(ctx, "u1")
		assert.True(mt, users.IsKind(err, users.KindDB), "got %v", err)
	})

	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := NewMongoStore(mt.Coll).Insert(ctx, &users.User{UserID: "u1", Username: "Karl", Password: "h"})
		assert.NoError(mt, err)
	})

	mt.Run("insert duplicate key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: yadu.users index: username_unique",
		}))

		err := NewMongoStore(mt.Coll).Insert(ctx, &users.User{UserID: "u1", Username: "Karl", Password: "h"})
		assert.True(mt, users.IsKind(err, users.KindDuplicated), "got %v", err)
	})

	mt.Run("insert validation failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    121,
			Message: "Document failed validation",
		}))

		err := NewMongoStore(mt.Coll).Insert(ctx, &users.User{UserID: "u1", Username: "Karl", Password: "h"})
		assert.True(mt, users.IsKind(err, users.KindInvalidData), "got %v", err)
	})

	mt.Run("insert missing password never reaches the server", func(mt *mtest.T) {
		err := NewMongoStore(mt.Coll).Insert(ctx, &users.User{UserID: "u1", Username: "Karl"})
		assert.True(mt, users.IsKind(err, users.KindInvalidData), "got %v", err)
	})

	mt.Run("update", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		groups := []string{"groupB"}
		err := NewMongoStore(mt.Coll).Update(ctx, "u1", users.Changes{Groups: &groups})
		assert.NoError(mt, err)
	})

	mt.Run("update no match", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		hash := "h2"
		err := NewMongoStore(mt.Coll).Update(ctx, "missing", users.Changes{Password: &hash})
		assert.True(mt, users.IsKind(err, users.KindNotFound), "got %v", err)
	})

	mt.Run("update duplicate username", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		name := "Erna"
		err := NewMongoStore(mt.Coll).Update(ctx, "u1", users.Changes{Username: &name})
		assert.True(mt, users.IsKind(err, users.KindDuplicated), "got %v", err)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}})

		assert.NoError(mt, NewMongoStore(mt.Coll).Delete(ctx, "u1"))
	})

	mt.Run("delete no match", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})

		err := NewMongoStore(mt.Coll).Delete(ctx, "missing")
		assert.True(mt, users.IsKind(err, users.KindNotFound), "got %v", err)
	})

	mt.Run("delete storage fault", func(mt *mtest.T) {
		mt.AddMockResponses(commandFailure())

		err := NewMongoStore(mt.Coll).Delete(ctx, "u1")
		assert.True(mt, users.IsKind(err, users.KindDB), "got %v", err)
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, NewMongoStore(mt.Coll).EnsureIndexes(ctx))
	})
}
