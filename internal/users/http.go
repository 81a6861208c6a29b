package users

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler はユーザー CRUD のルートハンドラーです。
// サービスの結果を HTTP ステータスに変換する以外のロジックは持ちません。
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler は Handler を作成します。
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes は /users 配下のルートを登録します。
// requireLogin は /users/me の前に挟むミドルウェアです。
func (h *Handler) RegisterRoutes(group *gin.RouterGroup, requireLogin gin.HandlerFunc) {
	group.GET("", h.List)
	group.GET("/me", requireLogin, h.Me)
	group.GET("/:id", h.Get)
	group.POST("", h.Create)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

type createRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Groups   []string `json:"groups"`
}

type updateRequest struct {
	Username *string   `json:"username"`
	Password *string   `json:"password"`
	Groups   *[]string `json:"groups"`
}

// List は GET /users のハンドラーです。
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.GetUsers(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get は GET /users/:id のハンドラーです。
func (h *Handler) Get(c *gin.Context) {
	user, err := h.svc.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondWithError(c, err, KindNotFound)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Me は GET /users/me のハンドラーです。セッションのユーザーを保存先から取り直して返します。
func (h *Handler) Me(c *gin.Context) {
	id, ok := IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    KindUnauthorized.Code(),
			"message": "login required",
		})
		return
	}

	user, err := h.svc.GetUserByID(c.Request.Context(), id.UserID)
	if err != nil {
		h.respondWithError(c, err, KindNotFound)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Create は POST /users のハンドラーです。
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidInput(c)
		return
	}

	_, err := h.svc.AddUser(c.Request.Context(), NewUser{
		Username: req.Username,
		Password: req.Password,
		Groups:   req.Groups,
	})
	if err != nil {
		h.respondWithError(c, err, KindInvalidData, KindDuplicated)
		return
	}
	c.Status(http.StatusNoContent)
}

// Update は PUT /users/:id のハンドラーです。
func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidInput(c)
		return
	}

	in := UserUpdate{
		UserID:   c.Param("id"),
		Username: req.Username,
		Groups:   req.Groups,
	}
	if req.Password != nil {
		in.Password = *req.Password
	}

	if err := h.svc.UpdateUser(c.Request.Context(), in); err != nil {
		h.respondWithError(c, err, KindInvalidData, KindNotFound, KindDuplicated)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete は DELETE /users/:id のハンドラーです。
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.respondWithError(c, err, KindNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// StatusFor はエラー種別を HTTP ステータスに変換します。
// KindDB は常に最初に判定し、admitted に含まれない種別は 500 になります。
func StatusFor(err error, admitted ...Kind) (int, Kind) {
	kind := KindOf(err)
	if kind == KindDB {
		return http.StatusServiceUnavailable, kind
	}
	for _, k := range admitted {
		if k != kind {
			continue
		}
		switch kind {
		case KindNotFound:
			return http.StatusNotFound, kind
		case KindUnauthorized:
			return http.StatusUnauthorized, kind
		case KindInvalidData:
			return http.StatusBadRequest, kind
		case KindDuplicated:
			return http.StatusConflict, kind
		}
	}
	return http.StatusInternalServerError, KindUnknown
}

func (h *Handler) respondWithError(c *gin.Context, err error, admitted ...Kind) {
	status, kind := StatusFor(err, admitted...)
	message := MessageOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("user request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err))
		if kind == KindUnknown {
			message = "unexpected server error"
		}
	}
	c.JSON(status, gin.H{
		"code":    kind.Code(),
		"message": message,
	})
}

func respondInvalidInput(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "INVALID_INPUT",
		"message": "request body must be JSON",
	})
}
