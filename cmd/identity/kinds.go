package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")

	// Enrollment rejections, reported in the order they are checked.
	ErrEnrollmentDisabled = errors.New("enrollment_disabled")
	ErrAdminSecret        = errors.New("invalid_admin_secret")
	ErrMissingField       = errors.New("missing_field")
	ErrPasswordMismatch   = errors.New("password_mismatch")
	ErrPasswordTooShort   = errors.New("password_too_short")
	ErrPasswordTooLong    = errors.New("password_too_long")
	ErrWeakPassword       = errors.New("weak_password")
	ErrInvalidUsername    = errors.New("invalid_username")
)
