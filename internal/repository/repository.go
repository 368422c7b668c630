// Package repository defines the store contracts the auth flows depend on.
// Implementations enforce uniqueness and conditional updates at the store
// level; the services treat any preceding read as an optimization only.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/favourolaoye/boride-v3-api/internal/models"
)

var (
	// ErrNotFound means no record matched the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail and ErrDuplicateMatric report a unique-constraint
	// violation detected at write time.
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrDuplicateMatric = errors.New("matric number already registered")
	// ErrConditionFailed means a conditional update found a different
	// pre-state (concurrent verify or resend won the race).
	ErrConditionFailed = errors.New("conditional update failed")
)

// StudentLookup is a disjunctive predicate over the student lookup keys.
// Any non-empty field matches; fields must already be normalized
// (email lower, matric upper). Resolution order is ID, email, matric.
type StudentLookup struct {
	ID       string
	Email    string
	MatricNo string
}

func (l StudentLookup) Empty() bool {
	return l.ID == "" && l.Email == "" && l.MatricNo == ""
}

// StudentStore persists student principals.
type StudentStore interface {
	// CreateStudent inserts a new student. The unique constraints on email
	// and matricNo are checked atomically with the insert; violations are
	// reported as ErrDuplicateEmail / ErrDuplicateMatric.
	CreateStudent(ctx context.Context, student *models.Student) error

	// FindStudent resolves a disjunctive lookup. Returns ErrNotFound when
	// nothing matches.
	FindStudent(ctx context.Context, lookup StudentLookup) (*models.Student, error)

	// MarkVerified sets isVerified and clears the OTP fields in one update,
	// conditioned on the stored code still equalling expectedOTP and the
	// record still being unverified. A lost race returns ErrConditionFailed.
	MarkVerified(ctx context.Context, student *models.Student, expectedOTP string) error

	// RotateOTP replaces the stored code and expiry, conditioned on the
	// current stored code. The previous code becomes permanently invalid.
	RotateOTP(ctx context.Context, student *models.Student, expectedOTP, newOTP string, expiresAt time.Time) error

	HealthCheck(ctx context.Context) error
}

// DriverStore persists driver principals.
type DriverStore interface {
	// CreateDriver inserts a new driver; a duplicate email is reported as
	// ErrDuplicateEmail.
	CreateDriver(ctx context.Context, driver *models.Driver) error

	FindDriverByEmail(ctx context.Context, email string) (*models.Driver, error)

	HealthCheck(ctx context.Context) error
}
