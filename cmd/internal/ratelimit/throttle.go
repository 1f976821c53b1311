package ratelimit

import (
	"sort"
	"time"
)

// LockoutTier locks a key for Duration after its Threshold-th recent failure.
type LockoutTier struct {
	Threshold int
	Duration  time.Duration
}

// EvaluateWindow blocks when at least limit failures fall inside the window ending at now.
// The retry delay is the time until the oldest counted failure leaves the window.
func EvaluateWindow(now time.Time, failures []time.Time, limit int, window time.Duration) (bool, time.Duration) {
	if limit <= 0 || window <= 0 {
		return false, 0
	}
	cut := now.Add(-window)

	var (
		count  int
		oldest time.Time
	)
	for _, f := range failures {
		if !f.After(cut) || f.After(now) {
			continue
		}
		if count == 0 || f.Before(oldest) {
			oldest = f
		}
		count++
	}
	if count < limit {
		return false, 0
	}
	return true, oldest.Add(window).Sub(now)
}

// EvaluateLockout applies the most severe tier whose threshold is reached.
// A tier locks until its Duration has passed since the most recent failure.
func EvaluateLockout(now time.Time, failures []time.Time, tiers []LockoutTier) (bool, time.Duration) {
	if len(failures) == 0 || len(tiers) == 0 {
		return false, 0
	}

	latest := failures[0]
	for _, f := range failures[1:] {
		if f.After(latest) {
			latest = f
		}
	}

	sorted := append([]LockoutTier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Threshold > sorted[j].Threshold })

	for _, tier := range sorted {
		if tier.Threshold <= 0 || tier.Duration <= 0 || len(failures) < tier.Threshold {
			continue
		}
		until := latest.Add(tier.Duration)
		if now.Before(until) {
			return true, until.Sub(now)
		}
	}
	return false, 0
}
