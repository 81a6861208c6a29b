// Package users はユーザーディレクトリ（ユーザーの保存・検索・更新）を提供します。
package users

// User は永続化される唯一のエンティティです。
// Password は常にハッシュで、JSON には決して出力しません。
type User struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Password string   `json:"-"`
	Groups   []string `json:"groups"`
}

// Identity はセッションで扱う認証済みユーザーの最小限の情報です。
type Identity struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
}

// Identity は User からパスワードを除いた Identity を返します。
func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.UserID,
		Username: u.Username,
		Groups:   cloneGroups(u.Groups),
	}
}

// NewUser は AddUser の入力です。Password は平文です。
type NewUser struct {
	Username string
	Password string
	Groups   []string
}

// UserUpdate は UpdateUser の入力です。
// nil のフィールドは変更せず、Password が空なら既存のハッシュを維持します。
type UserUpdate struct {
	UserID   string
	Username *string
	Password string
	Groups   *[]string
}

// Changes はストアに渡す部分更新です。Password はハッシュ済みです。
type Changes struct {
	Username *string
	Password *string
	Groups   *[]string
}

// IsEmpty は更新対象のフィールドが一つもないかを返します。
func (c Changes) IsEmpty() bool {
	return c.Username == nil && c.Password == nil && c.Groups == nil
}

func cloneGroups(groups []string) []string {
	out := make([]string, len(groups))
	copy(out, groups)
	return out
}
