package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret")

	signed, err := issuer.Sign("student", "abc-123", "jane@uni.edu", "21/1234", time.Hour)
	require.NoError(t, err)

	claims, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "student", claims.PrincipalType)
	assert.Equal(t, "abc-123", claims.PrincipalID)
	assert.Equal(t, "jane@uni.edu", claims.Email)
	assert.Equal(t, "21/1234", claims.MatricNo)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := NewIssuer("secret-a").Sign("driver", "d-1", "joe@mail.com", "", time.Hour)
	require.NoError(t, err)

	_, err = NewIssuer("secret-b").Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer("test-secret")

	signed, err := issuer.Sign("student", "abc-123", "jane@uni.edu", "21/1234", -time.Minute)
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDriverClaimsOmitMatric(t *testing.T) {
	issuer := NewIssuer("test-secret")

	signed, err := issuer.Sign("driver", "d-1", "joe@mail.com", "", time.Hour)
	require.NoError(t, err)

	claims, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Empty(t, claims.MatricNo)
}
