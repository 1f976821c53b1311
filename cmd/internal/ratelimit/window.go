package ratelimit

import (
	"sync"
	"time"
)

// Defaults applied when constructors receive invalid inputs.
const (
	DefaultLimit  = 120
	DefaultWindow = 10 * time.Second
)

// Window is a sliding-window limiter over a single event stream.
type Window struct {
	mu     sync.Mutex
	events []time.Time
	limit  int
	window time.Duration
}

// NewWindow constructs a Window with safe defaults when inputs are invalid.
func NewWindow(limit int, window time.Duration) *Window {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Window{
		events: make([]time.Time, 0, limit+8),
		limit:  limit,
		window: window,
	}
}

// Allow reports whether an event at time "now" should be permitted.
// Permitted events are recorded; rejected ones are not.
func (r *Window) Allow(now time.Time) bool {
	ok, _ := r.Reserve(now)
	return ok
}

// Reserve is Allow that also reports how long until the next event would be permitted.
func (r *Window) Reserve(now time.Time) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = prune(r.events, now.Add(-r.window))

	if len(r.events) >= r.limit {
		return false, r.events[0].Add(r.window).Sub(now)
	}
	r.events = append(r.events, now)
	return true, 0
}

// prune drops events at or before cut. events must be in ascending order.
func prune(events []time.Time, cut time.Time) []time.Time {
	dst := events[:0]
	for _, t := range events {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	return dst
}
