// Package token provides digest and shared-secret primitives for Aya.
//
// It is the single source of truth for:
//
//   - the legacy unsalted SHA-256 hex digest used by older credential documents
//   - constant-time comparison of shared secrets (the enrollment admin secret)
//
// Secrets are compared through HMAC-SHA256 under a per-process random key so the
// comparison time does not depend on where (or whether) the inputs differ in length.
package token
