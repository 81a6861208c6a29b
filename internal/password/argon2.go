package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params は argon2id のコストパラメータです。Memory は KiB 単位です。
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params は新規ハッシュの既定値です。
var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

// 保存済みハッシュから読み取るパラメータの上限です。Memory は 1 GiB まで。
const (
	maxArgon2Memory = 1 << 20
	maxArgon2Time   = 64
)

// Argon2 は argon2id でハッシュを作る Hasher です。
type Argon2 struct {
	params Argon2Params
}

// NewArgon2 は Argon2 を作成します。
func NewArgon2(params Argon2Params) *Argon2 {
	return &Argon2{params: params}
}

// Hash は PHC 形式の argon2id ハッシュを返します。
func (a *Argon2) Hash(plain string) (string, error) {
	salt := make([]byte, a.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, a.params.Time, a.params.Memory, a.params.Threads, a.params.KeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.params.Memory, a.params.Time, a.params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify は保存済みハッシュと照合します。
func (a *Argon2) Verify(encoded, plain string) (bool, error) {
	return Verify(encoded, plain)
}

// verifyArgon2 は $argon2id$ と $argon2i$ の両方を受け付けます。
func verifyArgon2(encoded, plain string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported argon2 version %d", ErrMalformedHash, version)
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if time == 0 || threads == 0 || time > maxArgon2Time || memory > maxArgon2Memory {
		return false, fmt.Errorf("%w: argon2 parameters out of range", ErrMalformedHash)
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	want, err := b64.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	var got []byte
	switch parts[1] {
	case "argon2id":
		got = argon2.IDKey([]byte(plain), salt, time, memory, threads, uint32(len(want)))
	case "argon2i":
		got = argon2.Key([]byte(plain), salt, time, memory, threads, uint32(len(want)))
	default:
		return false, ErrUnknownFormat
	}

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
