package auth

import (
	"crypto/rand"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yadu/yadu-backend/internal/users"
)

const (
	// SessionCookieName はセッションクッキーの名前です。
	// Go の net/http はクッキー名に ':' を許さないため '.' で名前空間を区切ります。
	SessionCookieName = "yadu.session"

	sessionKeyUserID = "userId"
	signingKeyLength = 32
)

// NewSessionStore は署名付きクッキーストアを作成します。
// 署名鍵はプロセス起動ごとに生成するため、再起動で既存のセッションは無効になります。
func NewSessionStore(secure bool) (sessions.Store, error) {
	key := make([]byte, signingKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session signing key: %w", err)
	}
	store := cookie.NewStore(key)
	store.Options(cookieOptions(secure, 0))
	return store, nil
}

func cookieOptions(secure bool, maxAge int) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionManager はセッションの確立・解決・破棄を行います。
// セッションに保存するのは userId だけで、Identity は毎リクエスト保存先から取り直します。
type SessionManager struct {
	dir    Directory
	secure bool
	logger *zap.Logger
}

// NewSessionManager は SessionManager を作成します。
func NewSessionManager(dir Directory, secure bool, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{dir: dir, secure: secure, logger: logger}
}

// Establish はログイン成功時にセッションを発行します。
func (m *SessionManager) Establish(c *gin.Context, id users.Identity) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(cookieOptions(m.secure, 0))
	session.Set(sessionKeyUserID, id.UserID)
	return session.Save()
}

// Resolve はセッションの userId からユーザーを取り直して Identity を返します。
// ユーザーが消えていたり検索に失敗した場合は未ログイン扱い (false) で、エラーにはしません。
func (m *SessionManager) Resolve(c *gin.Context) (users.Identity, bool) {
	id, _, err := m.lookup(c)
	return id, err == nil && id.UserID != ""
}

// lookup はセッションを解決します。claimed はクッキーが userId を持っていたかどうかで、
// そのときに限り err が検索の失敗を表します。
func (m *SessionManager) lookup(c *gin.Context) (id users.Identity, claimed bool, err error) {
	session := sessions.Default(c)
	userID, ok := session.Get(sessionKeyUserID).(string)
	if !ok || userID == "" {
		return users.Identity{}, false, nil
	}

	user, err := m.dir.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if users.IsKind(err, users.KindNotFound) {
			m.logger.Debug("session refers to a missing user", zap.String("userId", userID))
		} else {
			m.logger.Warn("failed to resolve session", zap.String("userId", userID), zap.Error(err))
		}
		return users.Identity{}, true, err
	}
	return user.Identity(), true, nil
}

// Terminate はセッションを破棄し、クッキーを削除させます。
func (m *SessionManager) Terminate(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(cookieOptions(m.secure, -1))
	return session.Save()
}
