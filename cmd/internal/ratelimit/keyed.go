package ratelimit

import (
	"sync"
	"time"
)

// sweepEvery bounds how often idle keys are dropped.
const sweepEvery = time.Minute

// Keyed tracks events per key: a sliding window of attempts and a log of
// failures within Horizon.
type Keyed struct {
	mu sync.Mutex

	limit   int
	window  time.Duration
	horizon time.Duration

	attempts  map[string][]time.Time
	failures  map[string][]time.Time
	lastSweep time.Time
}

// NewKeyed constructs a keyed limiter allowing limit attempts per window per key.
// Failures are remembered for horizon (at least window).
func NewKeyed(limit int, window, horizon time.Duration) *Keyed {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if horizon < window {
		horizon = window
	}
	return &Keyed{
		limit:    limit,
		window:   window,
		horizon:  horizon,
		attempts: make(map[string][]time.Time),
		failures: make(map[string][]time.Time),
	}
}

// Allow records an attempt for key if the window permits it and reports the retry delay otherwise.
// An empty key is never limited.
func (k *Keyed) Allow(key string, now time.Time) (bool, time.Duration) {
	if key == "" {
		return true, 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.maybeSweep(now)

	ev := prune(k.attempts[key], now.Add(-k.window))
	if len(ev) >= k.limit {
		k.attempts[key] = ev
		return false, ev[0].Add(k.window).Sub(now)
	}
	k.attempts[key] = append(ev, now)
	return true, 0
}

// RecordFailure remembers a failed attempt for key.
func (k *Keyed) RecordFailure(key string, now time.Time) {
	if key == "" {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.maybeSweep(now)

	k.failures[key] = append(prune(k.failures[key], now.Add(-k.horizon)), now)
}

// Failures returns the failures recorded for key within the horizon, oldest first.
func (k *Keyed) Failures(key string, now time.Time) []time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()

	f := prune(k.failures[key], now.Add(-k.horizon))
	if len(f) == 0 {
		delete(k.failures, key)
		return nil
	}
	k.failures[key] = f
	return append([]time.Time(nil), f...)
}

// Reset forgets everything recorded for key (after a successful login).
func (k *Keyed) Reset(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.attempts, key)
	delete(k.failures, key)
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	seen := len(k.attempts)
	for key := range k.failures {
		if _, ok := k.attempts[key]; !ok {
			seen++
		}
	}
	return seen
}

// maybeSweep must be called with k.mu held.
func (k *Keyed) maybeSweep(now time.Time) {
	if now.Sub(k.lastSweep) < sweepEvery {
		return
	}
	k.lastSweep = now

	for key, ev := range k.attempts {
		if ev = prune(ev, now.Add(-k.window)); len(ev) == 0 {
			delete(k.attempts, key)
		} else {
			k.attempts[key] = ev
		}
	}
	for key, ev := range k.failures {
		if ev = prune(ev, now.Add(-k.horizon)); len(ev) == 0 {
			delete(k.failures, key)
		} else {
			k.failures[key] = ev
		}
	}
}
