package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yadu/yadu-backend/internal/users"
)

// Handler は /auth 配下のハンドラーです。
type Handler struct {
	verifier *Verifier
	sessions *SessionManager
	logger   *zap.Logger
}

// NewHandler は Handler を作成します。
func NewHandler(verifier *Verifier, sessions *SessionManager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{verifier: verifier, sessions: sessions, logger: logger}
}

// RegisterRoutes は /auth 配下のルートを登録します。
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/login", h.Login)
	group.GET("/login", h.IsLoggedIn)
	group.POST("/logout", h.Logout)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login は POST /auth/login のハンドラーです。
//
// ユーザー不在とパスワード不一致はどちらも同じ 401 を返し、区別はログにだけ残します。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "username and password are required",
		})
		return
	}

	id, err := h.verifier.Verify(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		kind := users.KindOf(err)
		switch kind {
		case users.KindDB:
			h.logger.Error("login lookup failed", zap.String("username", req.Username), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"code":    kind.Code(),
				"message": users.MessageOf(err),
			})
		case users.KindNotFound, users.KindUnauthorized:
			h.logger.Info("login rejected", zap.String("username", req.Username), zap.Stringer("reason", kind))
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    users.KindUnauthorized.Code(),
				"message": "invalid username or password",
			})
		default:
			h.logger.Error("login failed", zap.String("username", req.Username), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    users.KindUnknown.Code(),
				"message": "unexpected server error",
			})
		}
		return
	}

	if err := h.sessions.Establish(c, id); err != nil {
		h.logger.Error("failed to save session", zap.String("userId", id.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "SESSION_SAVE_FAILED",
			"message": "failed to save session",
		})
		return
	}

	h.logger.Info("login succeeded", zap.String("userId", id.UserID))
	c.Status(http.StatusNoContent)
}

// IsLoggedIn は GET /auth/login のハンドラーです。決してエラーを返しません。
func (h *Handler) IsLoggedIn(c *gin.Context) {
	_, ok := users.IdentityFromContext(c)
	c.JSON(http.StatusOK, gin.H{"isLoggedIn": ok})
}

// Logout は POST /auth/logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Terminate(c); err != nil {
		h.logger.Error("failed to clear session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "SESSION_SAVE_FAILED",
			"message": "failed to clear session",
		})
		return
	}
	c.Status(http.StatusNoContent)
}
