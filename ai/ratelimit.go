package ai

import (
	"sync"
	"time"
)

// rateWindow is the span of the sliding request window.
const rateWindow = time.Minute

type limiterKey struct {
	userID string
	model  string
}

// SlidingWindowLimiter enforces per-minute request budgets independently for
// each (user, model) pair. The window slides continuously: a request made at
// 12:00:30 stops counting at 12:01:30, not at the top of the minute.
//
// State is process-local. Replicas each enforce their own budget; a shared
// store would be needed for a global limit.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	windows map[limiterKey][]time.Time
	now     func() time.Time
}

var _ RateLimiter = (*SlidingWindowLimiter)(nil)

// NewSlidingWindowLimiter creates an empty limiter.
func NewSlidingWindowLimiter() *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows: map[limiterKey][]time.Time{},
		now:     time.Now,
	}
}

// Check consumes one request from the (userID, model) budget.
// Returns a *RateLimitError carrying the time until the oldest request
// leaves the window when the budget is exhausted. rpm <= 0 means unlimited.
func (l *SlidingWindowLimiter) Check(userID, model string, rpm int) error {
	if rpm <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := limiterKey{userID: userID, model: model}
	cutoff := now.Add(-rateWindow)

	window := l.windows[key]
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rpm {
		l.windows[key] = kept
		return &RateLimitError{
			Model:   model,
			Limit:   rpm,
			ResetIn: kept[0].Add(rateWindow).Sub(now),
		}
	}

	l.windows[key] = append(kept, now)
	return nil
}
