package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost は bcrypt の既定コストです。
const DefaultBcryptCost = bcrypt.DefaultCost

// Bcrypt は bcrypt でハッシュを作る Hasher です。
type Bcrypt struct {
	cost int
}

// NewBcrypt は Bcrypt を作成します。
func NewBcrypt(cost int) *Bcrypt {
	return &Bcrypt{cost: cost}
}

// Hash は bcrypt ハッシュを返します。72 バイトを超える平文は扱えません。
func (b *Bcrypt) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %v", ErrInvalidPassword, err)
		}
		return "", err
	}
	return string(hash), nil
}

// Verify は保存済みハッシュと照合します。
func (b *Bcrypt) Verify(encoded, plain string) (bool, error) {
	return Verify(encoded, plain)
}

func verifyBcrypt(encoded, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}
