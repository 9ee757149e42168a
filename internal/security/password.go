package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Params holds the scrypt work factors. The defaults keep interactive latency
// under ~100ms while staying expensive enough for offline attacks.
type Params struct {
	N       int
	R       int
	P       int
	SaltLen int
	KeyLen  int
}

// DefaultParams are the production work factors.
var DefaultParams = Params{
	N:       1 << 15,
	R:       8,
	P:       1,
	SaltLen: 16,
	KeyLen:  32,
}

// Hasher derives and verifies password hashes. Hashes are encoded as
// base64(salt) + "$" + base64(key) so the salt travels with the hash.
type Hasher struct {
	params Params
}

// NewHasher creates a Hasher with the given work factors.
func NewHasher(params Params) *Hasher {
	return &Hasher{params: params}
}

// Hash derives a key from the password under a fresh random salt and returns
// the encoded hash. The plaintext is never retained.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, h.params.N, h.params.R, h.params.P, h.params.KeyLen)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(salt) + "$" + base64.StdEncoding.EncodeToString(key), nil
}

// Verify recomputes the key with the stored salt and compares it in constant
// time. Malformed input is a verification failure, never an error.
func (h *Hasher) Verify(password, encoded string) bool {
	salt, key, ok := decodeHash(encoded)
	if !ok {
		return false
	}

	derived, err := scrypt.Key([]byte(password), salt, h.params.N, h.params.R, h.params.P, len(key))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(derived, key) == 1
}

func decodeHash(encoded string) (salt, key []byte, ok bool) {
	parts := strings.SplitN(encoded, "$", 2)
	if len(parts) != 2 {
		return nil, nil, false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(salt) == 0 {
		return nil, nil, false
	}

	key, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(key) == 0 {
		return nil, nil, false
	}

	return salt, key, true
}
