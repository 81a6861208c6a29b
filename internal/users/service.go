package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yadu/yadu-backend/internal/password"
)

// Service はストアをラップし、一意性・存在チェックとハッシュの扱いを担います。
// 平文パスワードはここでハッシュ化され、ストアには決して渡りません。
type Service struct {
	store  Store
	hasher password.Hasher
	logger *zap.Logger
	newID  func() string
}

// NewService はディレクトリサービスを作成します。
func NewService(store Store, hasher password.Hasher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		hasher: hasher,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// GetUsers は全ユーザーを返します。
func (s *Service) GetUsers(ctx context.Context) ([]User, error) {
	list, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, classify("find users", err)
	}
	if list == nil {
		list = []User{}
	}
	return list, nil
}

// GetUserByName はユーザー名で検索します。
func (s *Service) GetUserByName(ctx context.Context, username string) (*User, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, classify("find user by name", err)
	}
	return user, nil
}

// GetUserByID は userId で検索します。
func (s *Service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, NotFound("user %q not found", userID)
	}
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, classify("find user by id", err)
	}
	return user, nil
}

// AddUser は平文パスワードをハッシュ化してユーザーを作成し、userId を採番します。
func (s *Service) AddUser(ctx context.Context, in NewUser) (*User, error) {
	if isBlank(in.Username) {
		return nil, InvalidData("username is required")
	}
	if isBlank(in.Password) {
		return nil, InvalidData("password is required")
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		UserID:   s.newID(),
		Username: in.Username,
		Password: hash,
		Groups:   normalizeGroups(in.Groups),
	}
	if err := s.store.Insert(ctx, user); err != nil {
		return nil, classify("insert user", err)
	}

	s.logger.Info("user created", zap.String("userId", user.UserID), zap.String("username", user.Username))
	return user, nil
}

// UpdateUser は部分更新を行います。
// 空でない新パスワードが渡されたときだけ再ハッシュし、それ以外は既存のハッシュを残します。
func (s *Service) UpdateUser(ctx context.Context, in UserUpdate) error {
	if strings.TrimSpace(in.UserID) == "" {
		return NotFound("user %q not found", in.UserID)
	}

	var changes Changes
	if in.Username != nil {
		if isBlank(*in.Username) {
			return InvalidData("username must not be blank")
		}
		name := *in.Username
		changes.Username = &name
	}
	if !isBlank(in.Password) {
		hash, err := s.hash(in.Password)
		if err != nil {
			return err
		}
		changes.Password = &hash
	}
	if in.Groups != nil {
		groups := normalizeGroups(*in.Groups)
		changes.Groups = &groups
	}

	if changes.IsEmpty() {
		// 何も変えない更新でも、対象が存在しなければ UserNotFound にする
		_, err := s.GetUserByID(ctx, in.UserID)
		return err
	}

	if err := s.store.Update(ctx, in.UserID, changes); err != nil {
		return classify("update user", err)
	}

	s.logger.Info("user updated",
		zap.String("userId", in.UserID),
		zap.Bool("passwordChanged", changes.Password != nil))
	return nil
}

// DeleteUser はユーザーを一件削除します。
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return NotFound("user %q not found", userID)
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		return classify("delete user", err)
	}
	s.logger.Info("user deleted", zap.String("userId", userID))
	return nil
}

func (s *Service) hash(plain string) (string, error) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrInvalidPassword) {
			return "", InvalidData("password cannot be used")
		}
		return "", Unexpected("failed to hash password", err)
	}
	return hash, nil
}

// classify はストアが種別を付けなかったエラーをストレージ障害として扱います。
func classify(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return DBError(op, err)
}

func normalizeGroups(groups []string) []string {
	if groups == nil {
		return []string{}
	}
	return cloneGroups(groups)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
