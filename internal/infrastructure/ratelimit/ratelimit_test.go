package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omega-networks/mapkit-auth/internal/config"
	"github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

func TestLimitsFromConfig(t *testing.T) {
	limits := LimitsFromConfig(config.RateLimitConfig{RenderRPM: 600})
	assert.Equal(t, 600, limits.of(constants.RateLimitScopeRender))
	assert.Equal(t, constants.RateLimitDefaultRPM, limits.of(constants.RateLimitScopeTest))
	assert.Equal(t, constants.RateLimitDefaultRPM, limits.of("unknown"))
}

func newTestRedisLimiter(t *testing.T, limit int, fallback *MemoryRateLimiter) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limits := Limits{constants.RateLimitScopeRender: limit, constants.RateLimitScopeTest: limit}
	var fb service.RateLimitService
	if fallback != nil {
		fb = fallback
	}
	l := NewRedisRateLimiter(client, "mapkit:", limits, fb, logger.NewNoopLogger())
	return l, mr
}

func TestRedisRateLimiter_FixedWindow(t *testing.T) {
	l, mr := newTestRedisLimiter(t, 2, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, remaining, resetAt, err := l.Allow(ctx, constants.RateLimitScopeRender, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 1-i, remaining)
		assert.WithinDuration(t, time.Now().Add(constants.RateLimitWindow), resetAt, 2*time.Second)
	}

	allowed, remaining, _, err := l.Allow(ctx, constants.RateLimitScopeRender, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	// Other scopes and clients have their own counters.
	allowed, _, _, err = l.Allow(ctx, constants.RateLimitScopeTest, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, _, _, err = l.Allow(ctx, constants.RateLimitScopeRender, "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.True(t, mr.Exists("mapkit:rl:render:203.0.113.7"))

	mr.FastForward(constants.RateLimitWindow + time.Second)
	allowed, _, _, err = l.Allow(ctx, constants.RateLimitScopeRender, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_RedisDown(t *testing.T) {
	t.Run("without fallback", func(t *testing.T) {
		l, mr := newTestRedisLimiter(t, 2, nil)
		mr.Close()

		allowed, _, _, err := l.Allow(context.Background(), constants.RateLimitScopeRender, "client")
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("with memory fallback", func(t *testing.T) {
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		fallback := NewMemoryRateLimiter(Limits{constants.RateLimitScopeRender: 60}, 1)
		fallback.now = clock
		l, mr := newTestRedisLimiter(t, 2, fallback)
		l.now = clock
		mr.Close()
		ctx := context.Background()

		started := time.Now()
		allowed, _, _, err := l.Allow(ctx, constants.RateLimitScopeRender, "client")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Less(t, time.Since(started), time.Second)

		// Inside the cooldown Redis is not dialed at all.
		started = time.Now()
		allowed, _, _, err = l.Allow(ctx, constants.RateLimitScopeRender, "client")
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Less(t, time.Since(started), 50*time.Millisecond)

		require.NoError(t, mr.Restart())
		now = now.Add(constants.RateLimitRedisCooldown + time.Second)
		allowed, remaining, _, err := l.Allow(ctx, constants.RateLimitScopeRender, "client")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 1, remaining)
		assert.True(t, mr.Exists("mapkit:rl:render:client"))
	})
}

func TestMemoryRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryRateLimiter(Limits{constants.RateLimitScopeRender: 60}, 3)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := l.Allow(ctx, constants.RateLimitScopeRender, "client")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, remaining, resetAt, err := l.Allow(ctx, constants.RateLimitScopeRender, "client")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.Equal(t, now.Add(time.Second), resetAt)

	allowed, _, _, err = l.Allow(ctx, constants.RateLimitScopeRender, "other")
	require.NoError(t, err)
	assert.True(t, allowed)

	// 60 per minute refills one token per second.
	now = now.Add(time.Second)
	allowed, _, _, err = l.Allow(ctx, constants.RateLimitScopeRender, "client")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryRateLimiter_DefaultBurst(t *testing.T) {
	l := NewMemoryRateLimiter(Limits{}, 0)
	assert.Equal(t, constants.RateLimitDefaultBurst, l.burst)
}
