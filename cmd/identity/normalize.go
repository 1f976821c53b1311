package identity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxUsernameRunes bounds usernames so a document entry stays small.
const MaxUsernameRunes = 128

// ValidateUsername checks a username without canonicalizing it.
// Usernames are compared byte-for-byte: "Alice" and "alice" are different accounts.
func ValidateUsername(s string) error {
	if s == "" {
		return ErrMissingField
	}
	if strings.TrimSpace(s) == "" {
		return ErrInvalidUsername
	}
	if !utf8.ValidString(s) || utf8.RuneCountInString(s) > MaxUsernameRunes {
		return ErrInvalidUsername
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return ErrInvalidUsername
		}
	}
	return nil
}
