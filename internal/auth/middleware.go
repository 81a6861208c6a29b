package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yadu/yadu-backend/internal/users"
)

// LoadIdentity はハンドラーより前にセッションを解決し、Identity を gin.Context に載せます。
// 解決できなくてもリクエストは止めません。userId を持つセッションの解決に失敗した場合は、
// そのエラーを RequireLogin のために記録します。
func (m *SessionManager) LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, claimed, err := m.lookup(c)
		switch {
		case err != nil:
			users.SetSessionError(c, err)
		case claimed:
			users.SetIdentity(c, id)
		}
		c.Next()
	}
}

// RequireLogin は未ログインのリクエストを 401 で打ち切ります。
// セッションはあるのにユーザーが消えていれば 404、保存先の障害なら 503 です。
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := users.IdentityFromContext(c); ok {
			c.Next()
			return
		}
		if err, ok := users.SessionErrorFromContext(c); ok {
			status, kind := users.StatusFor(err, users.KindNotFound)
			message := users.MessageOf(err)
			if kind == users.KindUnknown {
				message = "unexpected server error"
			}
			c.AbortWithStatusJSON(status, gin.H{
				"code":    kind.Code(),
				"message": message,
			})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    users.KindUnauthorized.Code(),
			"message": "login required",
		})
	}
}
