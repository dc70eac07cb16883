package storefront

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// minRateLimitIdle is the shortest time a bucket is kept after its last use
const minRateLimitIdle = time.Minute

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP and route. Buckets
// idle for longer than a full refill are dropped.
type RateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	limiters  map[string]*rateEntry
}

// RateLimiterOption configures a RateLimiter
type RateLimiterOption func(*RateLimiter)

// WithRateLimitClock sets the clock used for buckets and eviction.
func WithRateLimitClock(clock func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewRateLimiter returns a limiter allowing rps requests per second with
// the given burst. A non positive rps returns nil, which Handler treats as
// unlimited.
func NewRateLimiter(rps float64, burst int, opts ...RateLimiterOption) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}

	// an idle bucket is full again after burst/rps, so dropping it then
	// loses nothing
	idle := time.Duration(float64(burst) / rps * float64(time.Second))
	if idle < minRateLimitIdle {
		idle = minRateLimitIdle
	}

	r := &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
		limiters: make(map[string]*rateEntry),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	r.lastSweep = r.now()
	return r
}

// Allow reports whether key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	entry, exists := r.limiters[key]
	if !exists {
		entry = &rateEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// Len returns the number of tracked buckets.
func (r *RateLimiter) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// sweep runs at most once per idle period. Callers hold mu.
func (r *RateLimiter) sweep(now time.Time) {
	if now.Sub(r.lastSweep) < r.idle {
		return
	}
	r.lastSweep = now

	for key, entry := range r.limiters {
		if now.Sub(entry.lastSeen) >= r.idle {
			delete(r.limiters, key)
		}
	}
}

// Handler rejects requests over the limit with ErrRateLimited.
func (r *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r == nil {
			return c.Next()
		}
		if !r.Allow(c.IP() + " " + c.Path()) {
			return ErrRateLimited
		}
		return c.Next()
	}
}
