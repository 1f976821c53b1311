package session

import (
	"context"
	"errors"
	"time"
)

// Service ties the registry to session tokens.
//
// Start issues a token for a device and claims the binding for it;
// Authenticate accepts a token only while its device is still bound.
type Service struct {
	registry *Registry
	tokens   TokenManager
}

// Issued is the result of starting a session.
type Issued struct {
	Token     string
	ExpiresAt time.Time

	// PriorDeviceID is the device that was displaced, if any.
	PriorDeviceID string
	Displaced     bool
}

// NewService constructs a Service.
func NewService(registry *Registry, tokens TokenManager) (*Service, error) {
	if registry == nil || tokens == nil {
		return nil, errors.New("session: nil registry or token manager")
	}
	return &Service{registry: registry, tokens: tokens}, nil
}

// Start issues a token bound to deviceID and then claims username for it.
// The token is minted first so a failed issue leaves the current binding untouched.
// Callers must have verified the credentials already.
func (s *Service) Start(ctx context.Context, username, deviceID string, now time.Time) (Issued, error) {
	tok, exp, err := s.tokens.Issue(username, deviceID, now)
	if err != nil {
		return Issued{}, err
	}

	prior, displaced, err := s.registry.Claim(ctx, username, deviceID)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		Token:         tok,
		ExpiresAt:     exp,
		PriorDeviceID: prior,
		Displaced:     displaced,
	}, nil
}

// Authenticate verifies a token and checks its device still holds the binding.
func (s *Service) Authenticate(ctx context.Context, token string, now time.Time) (Claims, error) {
	claims, err := s.tokens.Verify(token, now)
	if err != nil {
		return Claims{}, err
	}

	active, err := s.registry.Active(ctx, claims.Username, claims.DeviceID)
	if err != nil {
		return Claims{}, err
	}
	if !active {
		return claims, ErrDisplaced
	}
	return claims, nil
}

// End releases the binding held by the token's device. It reports whether a binding was removed.
func (s *Service) End(ctx context.Context, claims Claims) (bool, error) {
	return s.registry.Release(ctx, claims.Username, claims.DeviceID)
}
