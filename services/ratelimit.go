package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a single rate-limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// IRateLimiter counts requests per key in fixed windows: the first request
// in a window starts the timer, later ones increment, window expiry resets
// the count to 1. Exceeding max fails closed.
type IRateLimiter interface {
	Check(ctx context.Context, key string, max int, window time.Duration) Decision
}

// LimitKey builds the composite bucket key, e.g.
// "register_options:ip:203.0.113.7".
func LimitKey(scope, qualifier, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", scope, qualifier, identifier)
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimiter keeps buckets in-process. Limits are per-instance in a
// horizontally scaled deployment; use RedisRateLimiter when limits must be
// global.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	stop    chan struct{}
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (m *MemoryRateLimiter) Check(_ context.Context, key string, max int, window time.Duration) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		m.buckets[key] = &bucket{count: 1, resetAt: now.Add(window)}
		return Decision{Allowed: true, Remaining: max - 1}
	}

	b.count++
	if b.count > max {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: b.resetAt.Sub(now)}
	}
	return Decision{Allowed: true, Remaining: max - b.count}
}

// StartSweeper removes expired buckets periodically so the map stays
// bounded. Call Close on shutdown.
func (m *MemoryRateLimiter) StartSweeper(interval time.Duration) {
	m.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *MemoryRateLimiter) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, b := range m.buckets {
		if !now.Before(b.resetAt) {
			delete(m.buckets, key)
		}
	}
}

func (m *MemoryRateLimiter) Close() {
	if m.stop != nil {
		close(m.stop)
	}
}

// RedisRateLimiter shares buckets across instances. INCR creates the key
// atomically; the expiry is attached when the window opens.
type RedisRateLimiter struct {
	rdb *redis.Client
}

func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb}
}

func (r *RedisRateLimiter) Check(ctx context.Context, key string, max int, window time.Duration) Decision {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := r.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		// Fail open on store errors: losing rate limiting briefly beats
		// locking every user out.
		return Decision{Allowed: true, Remaining: max}
	}
	if count == 1 {
		r.rdb.Expire(ctx, redisKey, window)
	}
	if int(count) > max {
		ttl, err := r.rdb.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: ttl}
	}
	return Decision{Allowed: true, Remaining: max - int(count)}
}
