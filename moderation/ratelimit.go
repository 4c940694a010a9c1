package moderation

import (
	"log/slog"
	"sync"
	"time"
)

// Rate limiting defaults: at most DefaultRateLimit actions of one
// (actor, action) pair per DefaultRateWindow.
const (
	DefaultRateLimit  = 10
	DefaultRateWindow = 60 * time.Second
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a sliding-window counter per (actor, action) key.
// Check-and-increment is atomic under one mutex; a rejected attempt does
// not increment, so the window drains on schedule regardless of how often
// a throttled actor retries.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window
	log     *slog.Logger
}

func NewRateLimiter(limit int, windowDuration time.Duration, log *slog.Logger) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if windowDuration <= 0 {
		windowDuration = DefaultRateWindow
	}
	return &RateLimiter{
		limit:   limit,
		window:  windowDuration,
		windows: make(map[string]*window),
		log:     log,
	}
}

// Allow reports whether the actor may perform the action now. The counter
// resets as soon as its window has elapsed.
func (r *RateLimiter) Allow(actorID, action string) bool {
	key := actorID + ":" + action
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[key]
	if !ok || now.After(w.resetAt) {
		r.windows[key] = &window{count: 1, resetAt: now.Add(r.window)}
		return true
	}
	if w.count >= r.limit {
		return false
	}
	w.count++
	return true
}

// Sweep drops expired windows and returns how many were removed.
// The janitor worker calls this periodically to keep the map bounded.
func (r *RateLimiter) Sweep() int {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, w := range r.windows {
		if now.After(w.resetAt) {
			delete(r.windows, key)
			removed++
		}
	}
	if removed > 0 {
		r.log.Debug("Expired rate-limit windows swept", "removed", removed)
	}
	return removed
}
