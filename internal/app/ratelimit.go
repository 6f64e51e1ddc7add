package app

import (
	"sync"
	"time"
)

// StartLimiter is a sliding window limit on session starts per client token.
type StartLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewStartLimiter(limit int, interval time.Duration) *StartLimiter {
	return &StartLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow records an attempt by client and reports whether it fits the window.
// A non-positive limit disables limiting.
func (rl *StartLimiter) Allow(client string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[client]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[client] = fresh
		return false
	}

	rl.history[client] = append(fresh, now)
	return true
}
