// Package ids provides the identifier primitives used across Aya:
// ULIDs for server-generated records and UUIDv4 device ids for browsers.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewULID returns a new ULID string (26 chars).
// ULIDs are lexicographically sortable, which keeps request and solution ids ordered in logs.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewDeviceID returns a random UUIDv4 string identifying one browser/device.
func NewDeviceID() string {
	return uuid.NewString()
}

// MaxDeviceIDLen bounds client-supplied device ids.
const MaxDeviceIDLen = 64

// ValidDeviceID reports whether s is acceptable as a device id.
// Minted ids are UUIDs; clients may send any opaque token of [A-Za-z0-9._-].
func ValidDeviceID(s string) bool {
	if s == "" || len(s) > MaxDeviceIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
