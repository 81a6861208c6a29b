package users

import "github.com/gin-gonic/gin"

// ContextIdentityKey は、リクエストに紐づく Identity を gin.Context に保持するキーです。
const ContextIdentityKey = "users.identity"

// SetIdentity はリクエストの Identity を設定します。
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ContextIdentityKey, id)
}

// IdentityFromContext はリクエストの Identity を返します。未ログインなら false です。
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// ContextSessionErrorKey は、セッションが userId を持っていたのに解決に失敗したときのエラーを保持するキーです。
const ContextSessionErrorKey = "users.sessionError"

// SetSessionError はセッション解決の失敗を記録します。
func SetSessionError(c *gin.Context, err error) {
	c.Set(ContextSessionErrorKey, err)
}

// SessionErrorFromContext は記録されたセッション解決の失敗を返します。
func SessionErrorFromContext(c *gin.Context) (error, bool) {
	v, ok := c.Get(ContextSessionErrorKey)
	if !ok {
		return nil, false
	}
	err, ok := v.(error)
	return err, ok && err != nil
}
