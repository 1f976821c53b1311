package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned when a session token fails verification or validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrDisplaced is returned when a valid token belongs to a device that has since been displaced.
	ErrDisplaced = errors.New("session displaced")

	// ErrInvalidInput is returned for empty usernames or device ids.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable is returned when the session document cannot be read or written.
	ErrUnavailable = errors.New("session store unavailable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// StorageError carries the underlying storage failure while matching ErrUnavailable.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrUnavailable, e.Err)
}

func (e StorageError) Unwrap() []error { return []error{ErrUnavailable, e.Err} }
