package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashCompareRoundTrip(t *testing.T) {
	h := NewHasher()

	digest, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotContains(t, digest, "s3cret-pass")
	assert.True(t, strings.HasPrefix(digest, "$2"), "expected a bcrypt digest")

	assert.NoError(t, h.Compare("s3cret-pass", digest))
}

func TestCompareWrongPassword(t *testing.T) {
	h := NewHasher()

	digest, err := h.Hash("s3cret-pass")
	require.NoError(t, err)

	assert.ErrorIs(t, h.Compare("wrong-pass", digest), ErrMismatch)
}

func TestCompareMalformedDigest(t *testing.T) {
	h := NewHasher()

	err := h.Compare("anything", "not-a-bcrypt-digest")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatch)
}
