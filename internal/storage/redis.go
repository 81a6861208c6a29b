package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/yadu/yadu-backend/internal/users"
)

const (
	userKeyPrefix     = "user:id:"
	usernameKeyPrefix = "user:name:"
	userIndexKey      = "users"
	userSeqKey        = "users:seq"

	maxTxRetries = 16
)

// redisRecord は Redis に JSON で保存するユーザーレコードです。
type redisRecord struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Groups   []string `json:"groups"`
}

func (r *redisRecord) toUser() *users.User {
	groups := r.Groups
	if groups == nil {
		groups = []string{}
	}
	return &users.User{UserID: r.UserID, Username: r.Username, Password: r.Password, Groups: groups}
}

// RedisStore はユーザーを Redis に保存します。
//
// レコードは user:id:<userId> に JSON で置き、user:name:<username> を
// SETNX 相当で確保して一意性を保ちます。作成順はソート済みセット users で保持します。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// FindAll は作成順に全ユーザーを返します。
func (s *RedisStore) FindAll(ctx context.Context) ([]users.User, error) {
	ids, err := s.rdb.ZRange(ctx, userIndexKey, 0, -1).Result()
	if err != nil {
		return nil, users.DBError("find users", err)
	}
	out := make([]users.User, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, users.DBError("find users", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// 索引だけ残ったレコードは読み飛ばす
			continue
		}
		var record redisRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, users.DBError("decode user", err)
		}
		out = append(out, *record.toUser())
	}
	return out, nil
}

// FindByUsername はユーザー名で検索します。
func (s *RedisStore) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	id, err := s.rdb.Get(ctx, usernameKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, users.NotFound("user %q not found", username)
		}
		return nil, users.DBError("find user by name", err)
	}
	user, err := s.FindByID(ctx, id)
	if users.IsKind(err, users.KindNotFound) {
		return nil, users.NotFound("user %q not found", username)
	}
	return user, err
}

// FindByID は userId で検索します。
func (s *RedisStore) FindByID(ctx context.Context, userID string) (*users.User, error) {
	record, err := getRecord(ctx, s.rdb, userID)
	if err != nil {
		return nil, err
	}
	return record.toUser(), nil
}

// Insert はユーザーを追加します。
func (s *RedisStore) Insert(ctx context.Context, user *users.User) error {
	if err := validateRecord(user); err != nil {
		return err
	}
	groups := user.Groups
	if groups == nil {
		groups = []string{}
	}
	payload, err := json.Marshal(&redisRecord{
		UserID:   user.UserID,
		Username: user.Username,
		Password: user.Password,
		Groups:   groups,
	})
	if err != nil {
		return users.Unexpected("failed to encode user", err)
	}

	seq, err := s.rdb.Incr(ctx, userSeqKey).Result()
	if err != nil {
		return users.DBError("insert user", err)
	}

	idKey, nameKey := userKey(user.UserID), usernameKey(user.Username)
	return s.watch(ctx, "insert user", func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, idKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return users.Duplicated("userId already exists", nil)
		}
		n, err = tx.Exists(ctx, nameKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return users.Duplicated("username already exists", nil)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, idKey, payload, 0)
			pipe.Set(ctx, nameKey, user.UserID, 0)
			pipe.ZAdd(ctx, userIndexKey, redis.Z{Score: float64(seq), Member: user.UserID})
			return nil
		})
		return err
	}, idKey, nameKey)
}

// Update は部分更新を行います。ユーザー名が変わる場合は索引も付け替えます。
func (s *RedisStore) Update(ctx context.Context, userID string, changes users.Changes) error {
	keys := []string{userKey(userID)}
	if changes.Username != nil {
		keys = append(keys, usernameKey(*changes.Username))
	}

	return s.watch(ctx, "update user", func(tx *redis.Tx) error {
		record, err := getRecord(ctx, tx, userID)
		if err != nil {
			return err
		}
		oldName := record.Username

		user := record.toUser()
		applyChanges(user, changes)
		if err := validateRecord(user); err != nil {
			return err
		}

		renamed := user.Username != oldName
		if renamed {
			n, err := tx.Exists(ctx, usernameKey(user.Username)).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return users.Duplicated("username already exists", nil)
			}
		}

		payload, err := json.Marshal(&redisRecord{
			UserID:   user.UserID,
			Username: user.Username,
			Password: user.Password,
			Groups:   user.Groups,
		})
		if err != nil {
			return users.Unexpected("failed to encode user", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(userID), payload, 0)
			if renamed {
				pipe.Del(ctx, usernameKey(oldName))
				pipe.Set(ctx, usernameKey(user.Username), userID, 0)
			}
			return nil
		})
		return err
	}, keys...)
}

// Delete はユーザーを一件削除します。
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	return s.watch(ctx, "delete user", func(tx *redis.Tx) error {
		record, err := getRecord(ctx, tx, userID)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, userKey(userID))
			pipe.Del(ctx, usernameKey(record.Username))
			pipe.ZRem(ctx, userIndexKey, userID)
			return nil
		})
		return err
	}, userKey(userID))
}

// watch は楽観ロックでトランザクションを実行し、競合時は再試行します。
func (s *RedisStore) watch(ctx context.Context, op string, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			var typed *users.Error
			if errors.As(err, &typed) {
				return err
			}
			return users.DBError(op, err)
		}
		return nil
	}
	return users.DBError(op, redis.TxFailedErr)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRecord(ctx context.Context, c stringGetter, userID string) (*redisRecord, error) {
	data, err := c.Get(ctx, userKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, users.NotFound("user %q not found", userID)
		}
		return nil, users.DBError("find user by id", err)
	}
	var record redisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, users.DBError("decode user", err)
	}
	return &record, nil
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func usernameKey(name string) string {
	return usernameKeyPrefix + name
}
