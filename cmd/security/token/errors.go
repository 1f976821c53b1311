package token

import "errors"

// Public, stable errors for callers.
var (
	ErrSecretMissing  = errors.New("secret missing")
	ErrSecretTooShort = errors.New("secret too short")
)
