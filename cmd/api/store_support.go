package main

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yadu/yadu-backend/internal/config"
	"github.com/yadu/yadu-backend/internal/storage"
	"github.com/yadu/yadu-backend/internal/users"
)

const connectTimeout = 10 * time.Second

// setupStore は STORE_BACKEND に応じたユーザーストアを開きます。
// 戻り値の関数で接続を閉じます。
func setupStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (users.Store, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, err := storage.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("failed to disconnect mongo", zap.Error(err))
			}
		}

		store := storage.NewMongoStore(client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection))
		if err := store.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.Info("using mongo user store",
			zap.String("database", cfg.MongoDatabase),
			zap.String("collection", cfg.MongoCollection),
		)
		return store, closeFn, nil

	case config.StoreRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("using redis user store", zap.String("addr", opt.Addr))
		return storage.NewRedisStore(client), func() { _ = client.Close() }, nil

	case config.StoreMemory:
		logger.Warn("using in-memory user store; data is lost on restart")
		return storage.NewMemoryStore(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
