package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"aya/cmd/internal/docstore"
	"aya/cmd/security/password"
	"aya/cmd/security/token"
)

// EnrollInput describes an administrator-gated account creation.
//
// Confirm is optional: when nil the confirmation check is skipped (CLI, seeding);
// the HTTP layer always supplies it.
type EnrollInput struct {
	AdminSecret string
	Username    string
	Password    string
	Confirm     *string
}

// Store is the credential store. It is safe for concurrent use; atomicity of
// each operation is delegated to the underlying document.
type Store struct {
	creds       docstore.Document
	pw          password.Config
	adminSecret string
	log         *slog.Logger

	// dummyHash is verified for unknown usernames so both failure paths cost the same.
	dummyHash string
}

// Option configures Store behavior.
type Option func(*Store) error

// WithAdminSecret sets the enrollment secret. An empty secret disables enrollment.
func WithAdminSecret(secret string) Option {
	return func(s *Store) error {
		s.adminSecret = secret
		return nil
	}
}

// WithPasswordConfig overrides the hashing scheme, argon2id cost and policy.
func WithPasswordConfig(cfg password.Config) Option {
	return func(s *Store) error {
		if cfg.Policy.MaxLength <= 0 || cfg.Policy.MinLength > cfg.Policy.MaxLength {
			return errors.New("identity: invalid password policy")
		}
		s.pw = cfg
		return nil
	}
}

// WithLogger sets the logger used for storage and upgrade events.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) error {
		if log == nil {
			return errors.New("identity: nil logger")
		}
		s.log = log
		return nil
	}
}

// NewStore constructs a credential store over creds.
func NewStore(creds docstore.Document, opts ...Option) (*Store, error) {
	if creds == nil {
		return nil, errors.New("identity: nil credential document")
	}
	s := &Store{
		creds: creds,
		pw:    password.DefaultConfig(),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	dummy, err := s.hashDummy()
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// EnrollmentEnabled reports whether an admin secret is configured.
func (s *Store) EnrollmentEnabled() bool { return s.adminSecret != "" }

// Scheme returns the digest scheme new credentials are written with.
func (s *Store) Scheme() password.Scheme { return s.pw.Scheme }

// Enroll creates a new account. Rejections leave the store untouched.
func (s *Store) Enroll(ctx context.Context, in EnrollInput) error {
	const op = "identity.Enroll"

	if s.adminSecret == "" {
		return OpError{Op: op, Kind: ErrEnrollmentDisabled}
	}
	if !token.SecretEqual(in.AdminSecret, s.adminSecret) {
		return OpError{Op: op, Kind: ErrAdminSecret}
	}
	if in.Username == "" || in.Password == "" || (in.Confirm != nil && *in.Confirm == "") {
		return OpError{Op: op, Kind: ErrMissingField}
	}
	if in.Confirm != nil && *in.Confirm != in.Password {
		return OpError{Op: op, Kind: ErrPasswordMismatch}
	}
	if err := s.validatePassword(op, in.Password); err != nil {
		return err
	}
	if err := ValidateUsername(in.Username); err != nil {
		return OpError{Op: op, Kind: err}
	}

	return s.insert(ctx, op, in.Username, in.Password)
}

// Verify reports whether password matches the stored digest for username.
// Unknown users and wrong passwords are indistinguishable; err is set only
// when the credential document cannot be read.
func (s *Store) Verify(ctx context.Context, username, pw string) (bool, error) {
	const op = "identity.Verify"

	stored, ok, err := s.creds.Get(ctx, username)
	if err != nil {
		s.log.Error("storage.credentials.read.fail", "op", op, "err", err)
		return false, unavailable(op, err)
	}
	if !ok {
		_, _ = s.pw.Verify(s.dummyHash, pw)
		return false, nil
	}

	match, err := s.pw.Verify(stored, pw)
	if err != nil {
		// A malformed digest never authenticates.
		s.log.Warn("identity.verify.invalid_digest", "username", username, "err", err)
		return false, nil
	}
	if !match {
		return false, nil
	}

	if s.pw.NeedsRehash(stored) {
		s.upgrade(ctx, username, stored, pw)
	}
	return true, nil
}

// Seed creates the given account only when the credential document is empty.
// It reports whether an account was created.
func (s *Store) Seed(ctx context.Context, username, pw string) (bool, error) {
	const op = "identity.Seed"

	if username == "" || pw == "" {
		return false, OpError{Op: op, Kind: ErrMissingField}
	}
	if err := ValidateUsername(username); err != nil {
		return false, OpError{Op: op, Kind: err}
	}

	n, err := s.creds.Len(ctx)
	if err != nil {
		return false, unavailable(op, err)
	}
	if n > 0 {
		return false, nil
	}

	if err := s.validatePassword(op, pw); err != nil {
		return false, err
	}
	if err := s.insert(ctx, op, username, pw); err != nil {
		if IsConflict(err) {
			// Lost a race with a concurrent enrollment; the store is no longer empty.
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Usernames returns all enrolled usernames in sorted order.
func (s *Store) Usernames(ctx context.Context) ([]string, error) {
	const op = "identity.Usernames"

	snap, err := s.creds.Snapshot(ctx)
	if err != nil {
		return nil, unavailable(op, err)
	}
	out := make([]string, 0, len(snap))
	for u := range snap {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

// Ping reports whether the credential document is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.creds.(docstore.Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.creds.Len(ctx)
	return err
}

func (s *Store) validatePassword(op, pw string) error {
	err := s.pw.Validate(pw)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, password.ErrPasswordTooShort):
		return OpError{Op: op, Kind: ErrPasswordTooShort}
	case errors.Is(err, password.ErrPasswordTooLong):
		return OpError{Op: op, Kind: ErrPasswordTooLong}
	case errors.Is(err, password.ErrWeakPassword):
		return OpError{Op: op, Kind: ErrWeakPassword}
	default:
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}
}

func (s *Store) insert(ctx context.Context, op, username, pw string) error {
	digest, err := s.pw.Hash(pw)
	if err != nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	if err := s.creds.Insert(ctx, username, digest); err != nil {
		if errors.Is(err, docstore.ErrExists) {
			return ConflictError{Op: op, Field: "username"}
		}
		s.log.Error("storage.credentials.write.fail", "op", op, "err", err)
		return unavailable(op, err)
	}
	return nil
}

// upgrade replaces a legacy digest after a successful login. It is best effort:
// the login already succeeded, so failures are only logged.
func (s *Store) upgrade(ctx context.Context, username, old, pw string) {
	digest, err := s.pw.Hash(pw)
	if err != nil {
		s.log.Debug("identity.rehash.skip", "username", username, "err", err)
		return
	}
	swapped, err := s.creds.CompareAndSwap(ctx, username, old, digest)
	switch {
	case err != nil:
		s.log.Warn("identity.rehash.fail", "username", username, "err", err)
	case swapped:
		s.log.Info("identity.rehash.ok", "username", username, "scheme", string(s.pw.Scheme))
	}
}

func (s *Store) hashDummy() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	cfg := s.pw
	cfg.Policy.RejectVeryWeak = false
	cfg.Policy.MinLength = 1
	if cfg.Policy.MaxLength < 64 {
		cfg.Policy.MaxLength = 64
	}
	return cfg.Hash(base64.RawURLEncoding.EncodeToString(b))
}
