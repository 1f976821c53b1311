package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"aya/cmd/internal/ratelimit"
)

// throttle holds the in-process limiters for the auth endpoints.
type throttle struct {
	attempts *ratelimit.Keyed // per client IP, login + enroll
	failures *ratelimit.Keyed // per username, failed logins only
	tiers    []ratelimit.LockoutTier
}

func newThrottle(cfg Config) *throttle {
	horizon := cfg.LoginUserWindow
	for _, t := range cfg.lockoutTiers() {
		if t.Duration > horizon {
			horizon = t.Duration
		}
	}
	return &throttle{
		attempts: ratelimit.NewKeyed(cfg.AttemptsMax, cfg.AttemptsWindow, cfg.AttemptsWindow),
		failures: ratelimit.NewKeyed(1, cfg.LoginUserWindow, horizon),
		tiers:    cfg.lockoutTiers(),
	}
}

// allowAttempt applies the per-IP window. A request without a usable IP is not limited here.
func (t *throttle) allowAttempt(ip net.IP, now time.Time) (bool, time.Duration) {
	if ip == nil {
		return true, 0
	}
	return t.attempts.Allow(ip.String(), now)
}

// lockedOut reports whether username is in a progressive lockout.
func (t *throttle) lockedOut(username string, now time.Time) (bool, time.Duration) {
	return ratelimit.EvaluateLockout(now, t.failures.Failures(username, now), t.tiers)
}

func (t *throttle) loginFailed(username string, now time.Time) {
	t.failures.RecordFailure(username, now)
}

func (t *throttle) loginSucceeded(username string) {
	t.failures.Reset(username)
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64(retryAfter.Seconds())
		if retryAfter%time.Second != 0 {
			secs++
		}
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", msgTooManyAttempts)
}
