package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// DefaultOTPMaxAttempts disables failed code limiting; set a positive
	// budget to enable it.
	DefaultOTPMaxAttempts = 0
	// DefaultOTPAttemptWindow is how long failures are remembered
	DefaultOTPAttemptWindow = time.Hour

	attemptKeyPrefix = "otp_attempts:"
)

// AttemptLimiter counts failed OTP verifications per email.
type AttemptLimiter interface {
	Exceeded(ctx context.Context, email string) (bool, error)
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// attemptKey uses the email exactly as stored; addresses differing only in
// case belong to different accounts.
func attemptKey(email string) string {
	return attemptKeyPrefix + email
}

type noopAttemptLimiter struct{}

// NoopAttemptLimiter never limits.
func NoopAttemptLimiter() AttemptLimiter { return noopAttemptLimiter{} }

func (noopAttemptLimiter) Exceeded(context.Context, string) (bool, error) { return false, nil }
func (noopAttemptLimiter) Fail(context.Context, string) error             { return nil }
func (noopAttemptLimiter) Reset(context.Context, string) error            { return nil }

type attemptWindow struct {
	count   int
	resetAt time.Time
}

// MemoryAttemptLimiter keeps counters in process.
type MemoryAttemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	now     func() time.Time
	entries map[string]*attemptWindow
}

// NewMemoryAttemptLimiter returns an in process limiter. A max below one
// disables limiting.
func NewMemoryAttemptLimiter(max int, window time.Duration, clock func() time.Time) AttemptLimiter {
	if max <= 0 {
		return NoopAttemptLimiter()
	}
	if window <= 0 {
		window = DefaultOTPAttemptWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryAttemptLimiter{
		max:     max,
		window:  window,
		now:     clock,
		entries: make(map[string]*attemptWindow),
	}
}

func (m *MemoryAttemptLimiter) Exceeded(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.live(attemptKey(email))
	return entry != nil && entry.count >= m.max, nil
}

func (m *MemoryAttemptLimiter) Fail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := attemptKey(email)
	entry := m.live(key)
	if entry == nil {
		entry = &attemptWindow{resetAt: m.now().Add(m.window)}
		m.entries[key] = entry
	}
	entry.count++
	return nil
}

func (m *MemoryAttemptLimiter) Reset(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, attemptKey(email))
	return nil
}

// live returns the entry for key, dropping it once its window elapsed.
// Callers hold mu.
func (m *MemoryAttemptLimiter) live(key string) *attemptWindow {
	entry, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !m.now().Before(entry.resetAt) {
		delete(m.entries, key)
		return nil
	}
	return entry
}

// RedisAttemptLimiter shares counters across instances.
type RedisAttemptLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewRedisAttemptLimiter returns a limiter backed by client. A max below
// one disables limiting.
func NewRedisAttemptLimiter(client *redis.Client, max int, window time.Duration) AttemptLimiter {
	if max <= 0 || client == nil {
		return NoopAttemptLimiter()
	}
	if window <= 0 {
		window = DefaultOTPAttemptWindow
	}
	return &RedisAttemptLimiter{client: client, max: max, window: window}
}

func (r *RedisAttemptLimiter) Exceeded(ctx context.Context, email string) (bool, error) {
	count, err := r.client.Get(ctx, attemptKey(email)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return count >= r.max, nil
}

// Fail increments the counter; the first failure starts the window.
func (r *RedisAttemptLimiter) Fail(ctx context.Context, email string) error {
	key := attemptKey(email)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	if count == 1 {
		return r.client.Expire(ctx, key, r.window).Err()
	}
	return nil
}

func (r *RedisAttemptLimiter) Reset(ctx context.Context, email string) error {
	return r.client.Del(ctx, attemptKey(email)).Err()
}
