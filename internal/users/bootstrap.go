package users

import (
	"context"

	"go.uber.org/zap"
)

// EnsureAdmin は初期管理者アカウントが無ければ作成します。
//
// passwordHash は事前計算済みのハッシュで、そのまま保存します。
// UserNotFound 以外の失敗は呼び出し側でログに残すだけで、起動は止めません。
func (s *Service) EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	_, err := s.GetUserByName(ctx, username)
	if err == nil {
		return false, nil
	}
	if !IsKind(err, KindNotFound) {
		return false, err
	}
	if isBlank(passwordHash) {
		return false, InvalidData("admin password hash is empty")
	}

	admin := &User{
		UserID:   s.newID(),
		Username: username,
		Password: passwordHash,
		Groups:   []string{},
	}
	if err := s.store.Insert(ctx, admin); err != nil {
		return false, classify("insert admin", err)
	}

	s.logger.Info("default admin user created", zap.String("username", username))
	return true, nil
}
