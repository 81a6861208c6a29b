// Package storage はユーザーストアの実装（MongoDB, Redis, メモリ）を提供します。
package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/yadu/yadu-backend/internal/users"
)

// MemoryStore はプロセス内のマップにユーザーを保持します。開発とテスト用です。
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]users.User
	fault error
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]users.User)}
}

// FailWith は以降の呼び出しをストレージ障害として失敗させます。nil で解除します。
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = err
}

// FindAll は作成順に全ユーザーを返します。
func (s *MemoryStore) FindAll(ctx context.Context) ([]users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fault != nil {
		return nil, users.DBError("find users", s.fault)
	}

	out := make([]users.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyUser(s.byID[id]))
	}
	return out, nil
}

// FindByUsername はユーザー名で検索します。
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fault != nil {
		return nil, users.DBError("find user by name", s.fault)
	}

	for _, id := range s.order {
		if u := s.byID[id]; u.Username == username {
			found := copyUser(u)
			return &found, nil
		}
	}
	return nil, users.NotFound("user %q not found", username)
}

// FindByID は userId で検索します。
func (s *MemoryStore) FindByID(ctx context.Context, userID string) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fault != nil {
		return nil, users.DBError("find user by id", s.fault)
	}

	u, ok := s.byID[userID]
	if !ok {
		return nil, users.NotFound("user %q not found", userID)
	}
	found := copyUser(u)
	return &found, nil
}

// Insert はユーザーを追加します。
func (s *MemoryStore) Insert(ctx context.Context, user *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return users.DBError("insert user", s.fault)
	}
	if err := validateRecord(user); err != nil {
		return err
	}

	if _, ok := s.byID[user.UserID]; ok {
		return users.Duplicated("userId already exists", nil)
	}
	if s.usernameTakenLocked(user.Username, "") {
		return users.Duplicated("username already exists", nil)
	}

	s.byID[user.UserID] = copyUser(*user)
	s.order = append(s.order, user.UserID)
	return nil
}

// Update は部分更新を行います。
func (s *MemoryStore) Update(ctx context.Context, userID string, changes users.Changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return users.DBError("update user", s.fault)
	}

	u, ok := s.byID[userID]
	if !ok {
		return users.NotFound("user %q not found", userID)
	}
	if changes.Username != nil && *changes.Username != u.Username {
		if s.usernameTakenLocked(*changes.Username, userID) {
			return users.Duplicated("username already exists", nil)
		}
	}

	applyChanges(&u, changes)
	if err := validateRecord(&u); err != nil {
		return err
	}
	s.byID[userID] = u
	return nil
}

// Delete はユーザーを一件削除します。
func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return users.DBError("delete user", s.fault)
	}

	if _, ok := s.byID[userID]; !ok {
		return users.NotFound("user %q not found", userID)
	}
	delete(s.byID, userID)
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) usernameTakenLocked(username, exceptID string) bool {
	for id, u := range s.byID {
		if id != exceptID && u.Username == username {
			return true
		}
	}
	return false
}

// validateRecord はスキーマの必須項目を確認します。
func validateRecord(u *users.User) error {
	if strings.TrimSpace(u.UserID) == "" {
		return users.InvalidData("userId is required")
	}
	if strings.TrimSpace(u.Username) == "" {
		return users.InvalidData("username is required")
	}
	if u.Password == "" {
		return users.InvalidData("password is required")
	}
	return nil
}

func applyChanges(u *users.User, changes users.Changes) {
	if changes.Username != nil {
		u.Username = *changes.Username
	}
	if changes.Password != nil {
		u.Password = *changes.Password
	}
	if changes.Groups != nil {
		u.Groups = append([]string{}, (*changes.Groups)...)
	}
}

func copyUser(u users.User) users.User {
	groups := make([]string, len(u.Groups))
	copy(groups, u.Groups)
	u.Groups = groups
	return u
}
