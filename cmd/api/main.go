// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yadu/yadu-backend/internal/config"
	"github.com/yadu/yadu-backend/internal/logging"
	"github.com/yadu/yadu-backend/internal/password"
	"github.com/yadu/yadu-backend/internal/server"
	"github.com/yadu/yadu-backend/internal/users"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, closeStore, err := setupStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	hasher, err := password.New(password.Algorithm(cfg.PasswordHashAlgo))
	if err != nil {
		return err
	}
	directory := users.NewService(store, hasher, logger)

	// 管理者の投入に失敗しても起動は続ける
	if _, err := directory.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPasswordHash); err != nil {
		logger.Error("failed to ensure admin account",
			zap.String("username", cfg.AdminUsername),
			zap.Error(err),
		)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	router, err := server.NewRouter(server.Deps{
		Config:    cfg,
		Directory: directory,
		Hasher:    hasher,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server",
			zap.String("addr", srv.Addr),
			zap.String("mode", cfg.GinMode),
			zap.String("store", cfg.StoreBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
