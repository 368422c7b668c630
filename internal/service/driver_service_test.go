package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favourolaoye/boride-v3-api/internal/hashing"
	"github.com/favourolaoye/boride-v3-api/internal/repository/memory"
	"github.com/favourolaoye/boride-v3-api/internal/token"
)

func newDriverFixture(t *testing.T) *DriverService {
	t.Helper()
	return NewDriverService(
		memory.NewDriverStore(),
		nil,
		hashing.NewHasher(),
		token.NewIssuer("test-secret"),
		nil,
		testConfig(),
	)
}

func TestDriverRegisterThenLoginImmediately(t *testing.T) {
	svc := newDriverFixture(t)
	ctx := context.Background()

	driver, err := svc.Register(ctx, &DriverRegisterRequest{
		FullName: "Joe Wheels",
		Email:    "Joe@Mail.com",
		PhoneNo:  "08030000001",
		Password: "drive-safe",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, driver.ID)
	assert.Equal(t, "joe@mail.com", driver.Email)

	// No verification step for drivers.
	tokenStr, loggedIn, err := svc.Login(ctx, &DriverLoginRequest{
		Email:    "joe@mail.com",
		Password: "drive-safe",
	})
	require.NoError(t, err)
	assert.Equal(t, driver.ID, loggedIn.ID)

	claims, err := token.NewIssuer("test-secret").Verify(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "driver", claims.PrincipalType)
	assert.Empty(t, claims.MatricNo)
}

func TestDriverRegisterValidation(t *testing.T) {
	svc := newDriverFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &DriverRegisterRequest{Email: "joe@mail.com"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, &DriverRegisterRequest{
		FullName: "Joe",
		Email:    "not-an-email",
		PhoneNo:  "080",
		Password: "pw",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDriverRegisterDuplicateEmail(t *testing.T) {
	svc := newDriverFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &DriverRegisterRequest{
		FullName: "Joe Wheels",
		Email:    "joe@mail.com",
		PhoneNo:  "080",
		Password: "pw",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &DriverRegisterRequest{
		FullName: "Other Joe",
		Email:    "joe@mail.com",
		PhoneNo:  "081",
		Password: "pw2",
	})
	assert.ErrorIs(t, err, ErrEmailRegistered)
}

func TestDriverLoginErrors(t *testing.T) {
	svc := newDriverFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &DriverRegisterRequest{
		FullName: "Joe Wheels",
		Email:    "joe@mail.com",
		PhoneNo:  "080",
		Password: "drive-safe",
	})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, &DriverLoginRequest{Email: "joe@mail.com"})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Login(ctx, &DriverLoginRequest{Email: "ghost@mail.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.Login(ctx, &DriverLoginRequest{Email: "joe@mail.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
