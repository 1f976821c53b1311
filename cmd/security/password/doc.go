// Package password provides password hashing and verification for Aya credentials.
//
// Two digest formats exist:
//
//   - argon2id PHC strings ($argon2id$v=19$m=..,t=..,p=..$salt$hash), the default
//   - unsalted lowercase SHA-256 hex, kept only to read and upgrade legacy credential documents
//
// Verify accepts both formats regardless of the configured scheme. NeedsRehash tells callers
// when a verified legacy digest should be replaced with an argon2id one.
//
// Security notes:
//
//   - Hash strings are treated as untrusted input during Verify and are validated accordingly.
//   - Verification refuses argon2id parameters that exceed reasonable bounds.
package password
