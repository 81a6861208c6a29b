package users

import "context"

// Store はユーザーレコードの永続化を抽象化します。
//
// 実装はストレージ層の障害を検出した境界で種別付きエラーに変換します。
// 該当なし・更新/削除件数ゼロは KindNotFound、一意制約違反は KindDuplicated、
// スキーマ違反は KindInvalidData、それ以外は KindDB です。
type Store interface {
	FindAll(ctx context.Context) ([]User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, userID string) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, userID string, changes Changes) error
	Delete(ctx context.Context, userID string) error
}
