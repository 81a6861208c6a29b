package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yadu/yadu-backend/internal/users"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStore(t *testing.T) {
	storeContract(t, func(t *testing.T) users.Store {
		_, rdb := newTestRedis(t)
		return NewRedisStore(rdb)
	})
}

func TestRedisStoreKeys(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb)

	require.NoError(t, s.Insert(ctx, &users.User{UserID: "u1", Username: "Karl", Password: "h"}))

	id, err := mr.Get("user:name:Karl")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	assert.True(t, mr.Exists("user:id:u1"))

	members, err := mr.ZMembers("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, members)
}

func TestRedisStoreFault(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb)

	mr.SetError("ERR server unavailable")

	_, err := s.FindAll(ctx)
	assert.True(t, users.IsKind(err, users.KindDB), "got %v", err)
	_, err = s.FindByUsername(ctx, "Karl")
	assert.True(t, users.IsKind(err, users.KindDB), "got %v", err)
	err = s.Insert(ctx, &users.User{UserID: "u1", Username: "Karl", Password: "h"})
	assert.True(t, users.IsKind(err, users.KindDB), "got %v", err)
	err = s.Delete(ctx, "u1")
	assert.True(t, users.IsKind(err, users.KindDB), "got %v", err)
}
