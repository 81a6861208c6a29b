// Package auth は資格情報の検証とクッキーセッションによる認証を提供します。
package auth

import (
	"context"

	"github.com/yadu/yadu-backend/internal/password"
	"github.com/yadu/yadu-backend/internal/users"
)

// Directory は認証が参照するユーザーディレクトリです。
type Directory interface {
	GetUserByName(ctx context.Context, username string) (*users.User, error)
	GetUserByID(ctx context.Context, userID string) (*users.User, error)
}

// Verifier はユーザー名と平文パスワードを照合します。
type Verifier struct {
	dir    Directory
	hasher password.Hasher
}

// NewVerifier は Verifier を作成します。
func NewVerifier(dir Directory, hasher password.Hasher) *Verifier {
	return &Verifier{dir: dir, hasher: hasher}
}

// Verify はユーザーを検索してパスワードを照合し、パスワードを含まない Identity を返します。
//
// ユーザーが無ければ KindNotFound、検索自体の失敗は KindDB、
// パスワード不一致は KindUnauthorized です。
func (v *Verifier) Verify(ctx context.Context, username, plain string) (users.Identity, error) {
	user, err := v.dir.GetUserByName(ctx, username)
	if err != nil {
		return users.Identity{}, err
	}

	ok, err := v.hasher.Verify(user.Password, plain)
	if err != nil {
		return users.Identity{}, users.Unexpected("stored password hash is unusable", err)
	}
	if !ok {
		return users.Identity{}, users.Unauthorized("invalid username or password")
	}
	return user.Identity(), nil
}
