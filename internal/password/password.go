// Package password はパスワードのハッシュ化と検証を提供します。
//
// 保存済みハッシュの形式（argon2id / argon2i の PHC 文字列、bcrypt）は
// Verify が自動判別するため、新規ハッシュのアルゴリズムを切り替えても
// 既存のハッシュはそのまま検証できます。
package password

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm は新規ハッシュに使うアルゴリズムです。
type Algorithm string

const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmBcrypt   Algorithm = "bcrypt"
)

var (
	// ErrUnknownFormat は保存済みハッシュの形式を判別できないことを表します。
	ErrUnknownFormat = errors.New("unknown password hash format")
	// ErrMalformedHash は保存済みハッシュが壊れていることを表します。
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrInvalidPassword はハッシュ化できない平文であることを表します。
	ErrInvalidPassword = errors.New("password cannot be hashed")
)

// Hasher はハッシュ計算と検証の能力です。
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(encoded, plain string) (bool, error)
}

// New はアルゴリズムに応じた Hasher を返します。
func New(alg Algorithm) (Hasher, error) {
	switch alg {
	case AlgorithmArgon2id, "":
		return NewArgon2(DefaultArgon2Params), nil
	case AlgorithmBcrypt:
		return NewBcrypt(DefaultBcryptCost), nil
	default:
		return nil, fmt.Errorf("unsupported password hash algorithm %q", alg)
	}
}

// Verify は encoded の形式を判別して plain と照合します。
// 不一致は (false, nil)、ハッシュが壊れている場合はエラーです。
func Verify(encoded, plain string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2"):
		return verifyArgon2(encoded, plain)
	case strings.HasPrefix(encoded, "$2"):
		return verifyBcrypt(encoded, plain)
	default:
		return false, ErrUnknownFormat
	}
}
