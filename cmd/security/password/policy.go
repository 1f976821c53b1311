package password

import (
	"strings"
	"unicode/utf8"
)

// MinPasswordRunes is the shortest password any configuration accepts.
const MinPasswordRunes = 4

// commonPasswords are refused when RejectVeryWeak is set (compared lowercased).
var commonPasswords = map[string]struct{}{
	"1234":     {},
	"12345":    {},
	"123456":   {},
	"12345678": {},
	"0000":     {},
	"abc123":   {},
	"admin":    {},
	"letmein":  {},
	"password": {},
	"qwerty":   {},
	"homework": {},
	"solveit":  {},
}

// Validate checks password against the policy without mutating it.
// Length is counted in runes, so "ñañá" is four characters.
func (c Config) Validate(password string) error {
	return c.Policy.check(password)
}

func (p Policy) check(pw string) error {
	n := utf8.RuneCountInString(pw)
	switch {
	case n < p.MinLength:
		return ErrPasswordTooShort
	case n > p.MaxLength:
		return ErrPasswordTooLong
	case p.RejectVeryWeak && looksVeryWeak(pw):
		return ErrWeakPassword
	}
	return nil
}

// looksVeryWeak flags one repeated character, a straight run such as "1234"
// or "dcba", and the entries of commonPasswords.
func looksVeryWeak(pw string) bool {
	s := strings.ToLower(strings.TrimSpace(pw))
	if s == "" {
		return true
	}
	if _, ok := commonPasswords[s]; ok {
		return true
	}
	rs := []rune(s)
	return repeated(rs) || straightRun(rs)
}

func repeated(rs []rune) bool {
	for _, r := range rs[1:] {
		if r != rs[0] {
			return false
		}
	}
	return true
}

// straightRun reports whether every rune is one above, or every rune one below, its predecessor.
func straightRun(rs []rune) bool {
	if len(rs) < 3 {
		return false
	}
	step := rs[1] - rs[0]
	if step != 1 && step != -1 {
		return false
	}
	for i := 2; i < len(rs); i++ {
		if rs[i]-rs[i-1] != step {
			return false
		}
	}
	return true
}
