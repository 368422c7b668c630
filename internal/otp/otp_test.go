package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesSixDigitCodes(t *testing.T) {
	gen := NewGenerator(15 * time.Minute)

	for i := 0; i < 100; i++ {
		code, _, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.NotEqual(t, byte('0'), code[0], "code must not have a leading zero")
	}
}

func TestGenerateExpirySetFromTTL(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(15 * time.Minute)
	gen.now = func() time.Time { return base }

	_, expiresAt, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, base.Add(15*time.Minute), expiresAt)
}

func TestExpiredBoundary(t *testing.T) {
	expiresAt := time.Date(2025, 3, 1, 12, 15, 0, 0, time.UTC)

	assert.False(t, Expired(expiresAt, expiresAt.Add(-time.Second)))
	assert.True(t, Expired(expiresAt, expiresAt), "exact expiry instant counts as expired")
	assert.True(t, Expired(expiresAt, expiresAt.Add(time.Second)))
}
