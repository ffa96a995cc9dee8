package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 16
	keyLength  = 64
	separator  = ":"
)

// Params is the scrypt work factor. N must be a power of two greater than one.
type Params struct {
	N int
	R int
	P int
}

// DefaultParams matches the cost used for the hashes already stored by the storefront.
func DefaultParams() Params {
	return Params{N: 16384, R: 8, P: 1}
}

type Hasher struct {
	params Params
}

func NewHasher(p Params) (*Hasher, error) {
	if p.N <= 1 || p.N&(p.N-1) != 0 {
		return nil, fmt.Errorf("hash: scrypt N must be a power of two > 1, got %d", p.N)
	}
	if p.R <= 0 || p.P <= 0 {
		return nil, fmt.Errorf("hash: scrypt r and p must be positive")
	}
	return &Hasher{params: p}, nil
}

// Hash returns "hex(salt):hex(digest)". The hex form of the salt is what
// feeds the KDF, so stored values stay verifiable by any implementation
// that treats the salt column as text.
func (h *Hasher) Hash(password string) (string, error) {
	raw := make([]byte, saltLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("hash: generate salt: %w", err)
	}
	salt := hex.EncodeToString(raw)

	digest, err := h.derive(password, salt)
	if err != nil {
		return "", err
	}
	return salt + separator + hex.EncodeToString(digest), nil
}

// Verify reports whether password matches stored. Malformed stored values
// are a mismatch, not an error.
func (h *Hasher) Verify(password, stored string) bool {
	salt, encoded, ok := strings.Cut(stored, separator)
	if !ok || salt == "" || encoded == "" {
		return false
	}
	if _, err := hex.DecodeString(salt); err != nil {
		return false
	}
	expected, err := hex.DecodeString(encoded)
	if err != nil {
		return false
	}

	derived, err := h.derive(password, salt)
	if err != nil {
		return false
	}
	if len(derived) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(derived, expected) == 1
}

func (h *Hasher) derive(password, salt string) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), []byte(salt), h.params.N, h.params.R, h.params.P, keyLength)
	if err != nil {
		return nil, fmt.Errorf("hash: derive: %w", err)
	}
	return key, nil
}
