package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRateLimiter_BurstBoundary(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	// Exactly max requests pass, the next one is denied.
	for i := 0; i < 5; i++ {
		decision := limiter.Check(ctx, "login:ip:203.0.113.7", 5, time.Minute)
		assert.True(t, decision.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 4-i, decision.Remaining)
	}

	decision := limiter.Check(ctx, "login:ip:203.0.113.7", 5, time.Minute)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestMemoryRateLimiter_WindowReset(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		limiter.Check(ctx, "verify:user:42", 3, time.Minute)
	}
	assert.False(t, limiter.Check(ctx, "verify:user:42", 3, time.Minute).Allowed)

	// One second short of the window boundary the bucket still holds.
	current = current.Add(59 * time.Second)
	assert.False(t, limiter.Check(ctx, "verify:user:42", 3, time.Minute).Allowed)

	// At the boundary the window restarts with a fresh count.
	current = current.Add(time.Second)
	decision := limiter.Check(ctx, "verify:user:42", 3, time.Minute)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, decision.Remaining)
}

func TestMemoryRateLimiter_KeysAreIsolated(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		limiter.Check(ctx, "login:ip:203.0.113.7", 2, time.Minute)
	}
	assert.False(t, limiter.Check(ctx, "login:ip:203.0.113.7", 2, time.Minute).Allowed)

	// A different identifier and a different scope both carry their own bucket.
	assert.True(t, limiter.Check(ctx, "login:ip:203.0.113.8", 2, time.Minute).Allowed)
	assert.True(t, limiter.Check(ctx, "verify:ip:203.0.113.7", 2, time.Minute).Allowed)
}

func TestMemoryRateLimiter_SweepDropsExpiredBuckets(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	limiter.Check(ctx, "a", 5, time.Minute)
	limiter.Check(ctx, "b", 5, time.Hour)

	current = current.Add(2 * time.Minute)
	limiter.sweep()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.buckets, "a")
	assert.Contains(t, limiter.buckets, "b")
}

func TestLimitKey(t *testing.T) {
	assert.Equal(t, "register_options:ip:203.0.113.7", LimitKey("register_options", "ip", "203.0.113.7"))
	assert.Equal(t, "authenticate_verify:user:42", LimitKey("authenticate_verify", "user", "42"))
}
