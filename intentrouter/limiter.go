package intentrouter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter enforces a per-agent token bucket holding cap tokens and
// refilling one token every minute/cap, grounded on the teacher's
// RateLimiter/rate.Limiter usage but keyed by agent id rather than by route.
// It does not count requests in a sliding one-minute window: a full bucket
// admits cap intents at once and refills while they are spent, so up to
// nearly 2*cap intents can be admitted within one rolling minute.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cap      int
	now      func() time.Time
}

func newRateLimiter(cap int, now func() time.Time) *rateLimiter {
	if cap <= 0 {
		cap = defaultRateLimitPerMinute
	}
	return &rateLimiter{limiters: make(map[string]*rate.Limiter), cap: cap, now: now}
}

// allow reports whether the agent's bucket holds a token for one more
// intent, consuming one token if so.
func (l *rateLimiter) allow(agentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[agentID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.cap)), l.cap)
		l.limiters[agentID] = lim
	}
	return lim.AllowN(l.now(), 1)
}
