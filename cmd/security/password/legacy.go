package password

import (
	"crypto/subtle"

	"aya/cmd/security/token"
)

// legacyDigest is the unsalted SHA-256 hex digest found in older credential documents.
// Identical passwords produce identical digests; it offers no resistance to offline guessing.
func legacyDigest(password string) string {
	return token.HashSHA256Hex(password)
}

func isLegacyDigest(encoded string) bool {
	return token.IsSHA256Hex(encoded)
}

func verifyLegacy(encoded, password string) bool {
	return subtle.ConstantTimeCompare([]byte(legacyDigest(password)), []byte(encoded)) == 1
}
