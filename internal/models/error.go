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

	// Abuse-protection errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrIPBlocked         = errors.New("ip temporarily blocked")

	// Result errors
	ErrResultLocked = errors.New("result is locked")

	// Collaborator errors
	ErrEmailSend = errors.New("email delivery failed")

	// Password reset errors
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)
