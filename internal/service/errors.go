package service

import "errors"

// Domain errors for the auth flows. Handlers map these to HTTP statuses;
// anything not in this list surfaces as a 500 without leaking internals.
var (
	ErrValidation         = errors.New("invalid input")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrMatricRegistered   = errors.New("matric number already registered")
	ErrNotFound           = errors.New("account not found")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidOTP         = errors.New("invalid verification code")
	ErrExpiredOTP         = errors.New("verification code has expired")
	ErrNotVerified        = errors.New("email not verified")
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotification reports a failed outbound email after the state change
	// already committed; the stored record is intact and a resend remains
	// possible.
	ErrNotification = errors.New("failed to send notification email")
)
