package hashing

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the fixed 10-round policy for stored credentials.
const DefaultCost = 10

var ErrMismatch = errors.New("password does not match")

// Hasher wraps bcrypt with a fixed cost so every credential in the store is
// hashed under the same policy.
type Hasher struct {
	cost int
}

func NewHasher() *Hasher {
	return &Hasher{cost: DefaultCost}
}

// Hash returns the bcrypt digest of a plaintext password. The plaintext is
// never stored anywhere.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Compare checks a plaintext against a stored digest. A mismatch returns
// ErrMismatch; anything else is a malformed digest.
func (h *Hasher) Compare(plaintext, digest string) error {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("invalid stored digest: %w", err)
	}
	return nil
}
