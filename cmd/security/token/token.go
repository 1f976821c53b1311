package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// SHA256HexLen is the length of a hex-encoded SHA-256 digest.
const SHA256HexLen = 64

var (
	compareKeyOnce sync.Once
	compareKey     []byte
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// IsSHA256Hex reports whether s has the shape of a lowercase hex SHA-256 digest.
func IsSHA256Hex(s string) bool {
	if len(s) != SHA256HexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// SecretEqual compares two secrets in constant time with respect to their contents and lengths.
// Empty inputs never match.
func SecretEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	key := processCompareKey()
	ma := hmac.New(sha256.New, key)
	_, _ = ma.Write([]byte(a))
	mb := hmac.New(sha256.New, key)
	_, _ = mb.Write([]byte(b))
	return hmac.Equal(ma.Sum(nil), mb.Sum(nil))
}

// CheckSecret enforces a minimum byte length on a configured secret (trimmed).
func CheckSecret(secret string, minBytes int) error {
	raw := strings.TrimSpace(secret)
	if raw == "" {
		return ErrSecretMissing
	}
	if minBytes > 0 && len(raw) < minBytes {
		return ErrSecretTooShort
	}
	return nil
}

func processCompareKey() []byte {
	compareKeyOnce.Do(func() {
		compareKey = make([]byte, 32)
		if _, err := rand.Read(compareKey); err != nil {
			// Fall back to a fixed key; equality semantics are unchanged.
			compareKey = []byte("aya-secret-compare")
		}
	})
	return compareKey
}
