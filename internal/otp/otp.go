package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// Codes are drawn uniformly from [100000, 999999]: always six digits,
	// never a leading zero to strip.
	codeMin = 100000
	codeMax = 999999
)

// Generator produces one-time codes with a fixed validity window.
type Generator struct {
	ttl time.Duration
	now func() time.Time
}

func NewGenerator(ttl time.Duration) *Generator {
	return &Generator{ttl: ttl, now: time.Now}
}

// Generate returns a fresh code and its expiry timestamp.
func (g *Generator) Generate() (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to draw otp: %w", err)
	}
	code := fmt.Sprintf("%d", n.Int64()+codeMin)
	return code, g.now().UTC().Add(g.ttl), nil
}

// TTL reports the configured validity window.
func (g *Generator) TTL() time.Duration {
	return g.ttl
}

// Expired reports whether a code's window has closed. The boundary counts as
// expired: a code submitted at exactly expiresAt is rejected.
func Expired(expiresAt time.Time, now time.Time) bool {
	return !now.Before(expiresAt)
}
