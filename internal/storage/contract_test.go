package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yadu/yadu-backend/internal/users"
)

// storeContract は users.Store の実装が満たすべき振る舞いを検証します。
func storeContract(t *testing.T, newStore func(t *testing.T) users.Store) {
	ctx := context.Background()

	seed := func(t *testing.T, s users.Store) {
		require.NoError(t, s.Insert(ctx, &users.User{UserID: "u1", Username: "Karl", Password: "hash-1", Groups: []string{"groupA"}}))
		require.NoError(t, s.Insert(ctx, &users.User{UserID: "u2", Username: "Erna", Password: "hash-2"}))
	}

	t.Run("find all keeps insertion order", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)

		list, err := s.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Karl", list[0].Username)
		assert.Equal(t, []string{"groupA"}, list[0].Groups)
		assert.Equal(t, "Erna", list[1].Username)
		assert.NotNil(t, list[1].Groups)
	})

	t.Run("find all on empty store", func(t *testing.T) {
		list, err := newStore(t).FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("find by name and id", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)

		u, err := s.FindByUsername(ctx, "Karl")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.UserID)
		assert.Equal(t, "hash-1", u.Password)

		u, err = s.FindByID(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, "Erna", u.Username)

		_, err = s.FindByUsername(ctx, "nobody")
		assert.True(t, users.IsKind(err, users.KindNotFound), "got %v", err)
		_, err = s.FindByID(ctx, "missing")
		assert.True(t, users.IsKind(err, users.KindNotFound), "got %v", err)
	})

	t.Run("insert rejects duplicates", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)

		err := s.Insert(ctx, &users.User{UserID: "u3", Username: "Karl", Password: "h"})
		assert.True(t, users.IsKind(err, users.KindDuplicated), "got %v", err)

		err = s.Insert(ctx, &users.User{UserID: "u1", Username: "Other", Password: "h"})
		assert.True(t, users.IsKind(err, users.KindDuplicated), "got %v", err)

		list, err := s.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("insert rejects missing fields", func(t *testing.T) {
		s := newStore(t)
		err := s.Insert(ctx, &users.User{UserID: "u1", Username: "Karl"})
		assert.True(t, users.IsKind(err, users.KindInvalidData), "got %v", err)
	})

	t.Run("partial update", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)

		groups := []string{"groupB", "groupC"}
		require.NoError(t, s.Update(ctx, "u1", users.Changes{Groups: &groups}))

		u, err := s.FindByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, groups, u.Groups)
		assert.Equal(t, "hash-1", u.Password)
		assert.Equal(t, "Karl", u.Username)
	})

	t.Run("rename moves the username index", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)

		name := "Carl"
		require.NoError(t, s.Update(ctx, "u1", users.Changes{Username: &name}))

		u, err := s.FindByUsername(ctx, "Carl")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.UserID)

		_, err = s.FindByUsername(ctx, "Karl")
		assert.True(t, users.IsKind(err, users.KindNotFound), "got %v", err)

		// 空いた名前は再利用できる
		require.NoError(t, s.Insert(ctx, &users.User{UserID: "u3", Username: "Karl", Password: "h"}))
	})

	t.Run("update collisions and missing targets", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)

		name := "Erna"
		err := s.Update(ctx, "u1", users.Changes{Username: &name})
		assert.True(t, users.IsKind(err, users.KindDuplicated), "got %v", err)

		hash := "new"
		err = s.Update(ctx, "missing", users.Changes{Password: &hash})
		assert.True(t, users.IsKind(err, users.KindNotFound), "got %v", err)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)

		require.NoError(t, s.Delete(ctx, "u1"))
		_, err := s.FindByID(ctx, "u1")
		assert.True(t, users.IsKind(err, users.KindNotFound), "got %v", err)
		_, err = s.FindByUsername(ctx, "Karl")
		assert.True(t, users.IsKind(err, users.KindNotFound), "got %v", err)

		list, err := s.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		err = s.Delete(ctx, "u1")
		assert.True(t, users.IsKind(err, users.KindNotFound), "got %v", err)
	})
}
