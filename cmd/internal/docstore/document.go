package docstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrExists is returned by Insert when the key is already present.
	ErrExists = errors.New("key exists")

	// ErrCorrupt is returned when a persisted document cannot be decoded.
	ErrCorrupt = errors.New("document corrupt")

	// ErrInvalidName is returned for empty or malformed document names.
	ErrInvalidName = errors.New("invalid document name")
)

// Logical names of the two documents the app keeps.
const (
	CredentialsName = "credentials"
	SessionsName    = "sessions"
)

// Document is a flat string-to-string mapping with atomic single-key operations.
type Document interface {
	// Name is the logical document name ("credentials", "sessions").
	Name() string

	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Insert adds key only if it is absent; otherwise it returns ErrExists and changes nothing.
	Insert(ctx context.Context, key, value string) error

	// Put sets key unconditionally and returns the previous value, if any.
	Put(ctx context.Context, key, value string) (prev string, had bool, err error)

	// CompareAndSwap replaces the value of key only if it currently equals old.
	CompareAndSwap(ctx context.Context, key, old, value string) (bool, error)

	// Delete removes key; it reports whether anything was removed.
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteIf removes key only if it currently equals value.
	DeleteIf(ctx context.Context, key, value string) (bool, error)

	// Len returns the number of keys.
	Len(ctx context.Context) (int, error)

	// Snapshot returns a copy of the whole mapping.
	Snapshot(ctx context.Context) (map[string]string, error)
}

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpError wraps a backend failure with the document and operation it belongs to.
type OpError struct {
	Document string
	Op       string
	Err      error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("docstore: %s.%s: %v", e.Document, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opErr(doc, op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Document: doc, Op: op, Err: err}
}

func validName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
