package api

import (
	"net/http"
	"strings"
	"time"

	"aya/cmd/internal/envcfg"
	"aya/cmd/internal/ratelimit"
	"aya/cmd/security/password"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Per-IP sliding window over login and enroll attempts.
	AttemptsMax    int
	AttemptsWindow time.Duration

	// Per-username progressive lockout after failed logins.
	LoginUserWindow        time.Duration
	LockoutShortThreshold  int
	LockoutShortDuration   time.Duration
	LockoutLongThreshold   int
	LockoutLongDuration    time.Duration
	LockoutSevereThreshold int
	LockoutSevereDuration  time.Duration

	// PasswordMinLength only shapes the "too short" message.
	PasswordMinLength int

	SessionCookieName string
	DeviceCookieName  string
	CSRFCookieName    string
	CSRFHeaderName    string
	DeviceHeaderName  string
	DeviceCookieTTL   time.Duration
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// DefaultConfig returns the defaults LoadConfigFromEnv starts from.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:           1 << 20, // 1 MiB
		AttemptsMax:            20,
		AttemptsWindow:         5 * time.Minute,
		LoginUserWindow:        15 * time.Minute,
		LockoutShortThreshold:  5,
		LockoutShortDuration:   5 * time.Minute,
		LockoutLongThreshold:   10,
		LockoutLongDuration:    30 * time.Minute,
		LockoutSevereThreshold: 20,
		LockoutSevereDuration:  2 * time.Hour,
		PasswordMinLength:      password.MinPasswordRunes,
		SessionCookieName:      "aya_session",
		DeviceCookieName:       "aya_device",
		CSRFCookieName:         "aya_csrf",
		CSRFHeaderName:         "X-CSRF-Token",
		DeviceHeaderName:       "X-Device-ID",
		DeviceCookieTTL:        400 * 24 * time.Hour,
		CookiePath:             "/",
		CookieSecure:           true,
		CookieSameSite:         http.SameSiteLaxMode,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		TrustProxy:             envcfg.EnvBool("AYA_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:           envcfg.EnvInt64("AYA_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		AttemptsMax:            envcfg.EnvInt("AYA_AUTH_ATTEMPTS_MAX", def.AttemptsMax),
		AttemptsWindow:         envcfg.EnvDuration("AYA_AUTH_ATTEMPTS_WINDOW", def.AttemptsWindow),
		LoginUserWindow:        envcfg.EnvDuration("AYA_AUTH_LOGIN_USER_WINDOW", def.LoginUserWindow),
		LockoutShortThreshold:  envcfg.EnvInt("AYA_AUTH_LOGIN_LOCKOUT_SHORT_THRESHOLD", def.LockoutShortThreshold),
		LockoutShortDuration:   envcfg.EnvDuration("AYA_AUTH_LOGIN_LOCKOUT_SHORT_DURATION", def.LockoutShortDuration),
		LockoutLongThreshold:   envcfg.EnvInt("AYA_AUTH_LOGIN_LOCKOUT_LONG_THRESHOLD", def.LockoutLongThreshold),
		LockoutLongDuration:    envcfg.EnvDuration("AYA_AUTH_LOGIN_LOCKOUT_LONG_DURATION", def.LockoutLongDuration),
		LockoutSevereThreshold: envcfg.EnvInt("AYA_AUTH_LOGIN_LOCKOUT_SEVERE_THRESHOLD", def.LockoutSevereThreshold),
		LockoutSevereDuration:  envcfg.EnvDuration("AYA_AUTH_LOGIN_LOCKOUT_SEVERE_DURATION", def.LockoutSevereDuration),
		PasswordMinLength:      envcfg.EnvInt("AYA_PASSWORD_MIN_LEN", def.PasswordMinLength),
		SessionCookieName:      envcfg.EnvString("AYA_AUTH_SESSION_COOKIE_NAME", def.SessionCookieName),
		DeviceCookieName:       envcfg.EnvString("AYA_AUTH_DEVICE_COOKIE_NAME", def.DeviceCookieName),
		CSRFCookieName:         envcfg.EnvString("AYA_AUTH_CSRF_COOKIE_NAME", def.CSRFCookieName),
		CSRFHeaderName:         envcfg.EnvString("AYA_AUTH_CSRF_HEADER_NAME", def.CSRFHeaderName),
		DeviceHeaderName:       envcfg.EnvString("AYA_AUTH_DEVICE_HEADER_NAME", def.DeviceHeaderName),
		DeviceCookieTTL:        envcfg.EnvDuration("AYA_AUTH_DEVICE_COOKIE_TTL", def.DeviceCookieTTL),
		CookiePath:             envcfg.EnvString("AYA_AUTH_COOKIE_PATH", def.CookiePath),
		CookieDomain:           envcfg.EnvString("AYA_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:           envcfg.EnvBool("AYA_AUTH_COOKIE_SECURE", def.CookieSecure),
		CookieSameSite:         parseSameSite(envcfg.EnvString("AYA_AUTH_COOKIE_SAMESITE", "lax")),
	}
	return cfg.normalize()
}

// normalize applies guardrails so a bad override cannot weaken cookie handling.
func (c Config) normalize() Config {
	def := DefaultConfig()

	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.AttemptsMax <= 0 {
		c.AttemptsMax = def.AttemptsMax
	}
	if c.AttemptsWindow <= 0 {
		c.AttemptsWindow = def.AttemptsWindow
	}
	if c.LoginUserWindow <= 0 {
		c.LoginUserWindow = def.LoginUserWindow
	}
	if c.PasswordMinLength < password.MinPasswordRunes {
		c.PasswordMinLength = def.PasswordMinLength
	}
	if strings.TrimSpace(c.CookiePath) == "" {
		c.CookiePath = "/"
	}

	// Distinct cookie names; the CSRF cookie is readable by scripts and must never shadow the others.
	if c.SessionCookieName == "" {
		c.SessionCookieName = def.SessionCookieName
	}
	if c.DeviceCookieName == "" || c.DeviceCookieName == c.SessionCookieName {
		c.DeviceCookieName = c.SessionCookieName + "_device"
	}
	if c.CSRFCookieName == "" || c.CSRFCookieName == c.SessionCookieName || c.CSRFCookieName == c.DeviceCookieName {
		c.CSRFCookieName = c.SessionCookieName + "_csrf"
	}
	if c.CSRFHeaderName == "" {
		c.CSRFHeaderName = def.CSRFHeaderName
	}
	if c.DeviceHeaderName == "" {
		c.DeviceHeaderName = def.DeviceHeaderName
	}
	if c.DeviceCookieTTL <= 0 {
		c.DeviceCookieTTL = def.DeviceCookieTTL
	}

	// Browsers drop SameSite=None cookies that are not Secure.
	if c.CookieSameSite == http.SameSiteNoneMode {
		c.CookieSecure = true
	}
	return c
}

func (c Config) lockoutTiers() []ratelimit.LockoutTier {
	return []ratelimit.LockoutTier{
		{Threshold: c.LockoutSevereThreshold, Duration: c.LockoutSevereDuration},
		{Threshold: c.LockoutLongThreshold, Duration: c.LockoutLongDuration},
		{Threshold: c.LockoutShortThreshold, Duration: c.LockoutShortDuration},
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}
