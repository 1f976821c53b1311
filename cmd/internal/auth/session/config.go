package session

import (
	"os"
	"strings"
	"time"
)

// Config defines runtime configuration for session tokens.
type Config struct {
	// Issuer is the value set in the "iss" claim.
	Issuer string

	// TokenTTL bounds how long a browser token is accepted. The device binding
	// itself has no expiry; it ends only when displaced or released.
	TokenTTL time.Duration

	// ClockSkew defines the allowed time skew during token validation.
	ClockSkew time.Duration

	// PasetoV4SecretKeyHex is the hex-encoded Ed25519 secret key used to sign tokens.
	// When empty an ephemeral key is generated and tokens do not survive a restart.
	PasetoV4SecretKeyHex string
}

// DefaultConfig returns the defaults used when no env overrides are present.
func DefaultConfig() Config {
	return Config{
		Issuer:    "aya",
		TokenTTL:  30 * 24 * time.Hour,
		ClockSkew: 30 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - AYA_SESSION_ISSUER
//   - AYA_SESSION_TTL
//   - AYA_SESSION_CLOCK_SKEW
//   - AYA_PASETO_V4_SECRET_KEY_HEX
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("AYA_SESSION_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("AYA_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TokenTTL = d
	}

	if v := os.Getenv("AYA_SESSION_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 || d > 10*time.Minute {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.PasetoV4SecretKeyHex = strings.TrimSpace(os.Getenv("AYA_PASETO_V4_SECRET_KEY_HEX"))

	return cfg, nil
}
