// Package server は HTTP ルーターの組み立てを行います。
package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yadu/yadu-backend/internal/auth"
	"github.com/yadu/yadu-backend/internal/config"
	"github.com/yadu/yadu-backend/internal/logging"
	"github.com/yadu/yadu-backend/internal/password"
	"github.com/yadu/yadu-backend/internal/users"
)

// Deps はルーターが必要とする依存です。プロセスごとに一度だけ作り、参照で渡します。
type Deps struct {
	Config    *config.Config
	Directory *users.Service
	Hasher    password.Hasher
	Logger    *zap.Logger
}

// NewRouter は Gin ルーターを作成します。
// セッションの署名鍵はここで生成されるため、呼び出すたびに別のセッション空間になります。
func NewRouter(d Deps) (*gin.Engine, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := d.Config

	sessionStore, err := auth.NewSessionStore(cfg.SecureCookies())
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinLogger(logger))

	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		router.Use(cors.New(corsConfig))
	}

	sessionManager := auth.NewSessionManager(d.Directory, cfg.SecureCookies(), logger)
	router.Use(sessions.Sessions(auth.SessionCookieName, sessionStore))
	router.Use(sessionManager.LoadIdentity())

	router.GET("/health", handleHealth)

	api := router.Group(strings.TrimRight(cfg.APIBasePath, "/"))
	{
		verifier := auth.NewVerifier(d.Directory, d.Hasher)
		auth.NewHandler(verifier, sessionManager, logger).RegisterRoutes(api.Group("/auth"))
		users.NewHandler(d.Directory, logger).RegisterRoutes(api.Group("/users"), auth.RequireLogin())
	}

	if cfg.StaticDir != "" {
		serveFrontend(router, cfg.StaticDir, cfg.APIBasePath)
	}

	return router, nil
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "yadu-api",
	})
}

// serveFrontend はビルド済みフロントエンドを配信します。
// 存在しないパスは index.html に書き換え、クライアント側ルーティングに任せます。
func serveFrontend(router *gin.Engine, dir, apiBase string) {
	index := filepath.Join(dir, "index.html")
	router.NoRoute(func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, apiBase) ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "NOT_FOUND",
				"message": "no such route",
			})
			return
		}

		file := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+p)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	})
}
