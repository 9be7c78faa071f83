package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountDisabled  = errors.New("account is disabled")
	ErrAccountSuspended = errors.New("account is suspended")

	// MFA errors
	ErrMFARequired    = errors.New("mfa code required")
	ErrMFAInvalidCode = errors.New("invalid mfa code")

	// Password-change PIN errors
	ErrPINNotFound    = errors.New("no pending password change")
	ErrPINInvalid     = errors.New("invalid confirmation pin")
	ErrPINMaxAttempts = errors.New("too many pin attempts")
)
