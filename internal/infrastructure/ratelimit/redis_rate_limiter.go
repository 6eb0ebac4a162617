package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// fixedWindowScript increments the window counter and starts its expiry on the first hit.
// Returns {count, pttl}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// RedisRateLimiter is a fixed window limiter shared by every replica.
type RedisRateLimiter struct {
	client   redis.UniversalClient
	prefix   string
	limits   Limits
	window   time.Duration
	fallback service.RateLimitService
	timeout  time.Duration
	cooldown time.Duration

	// downUntil holds the unix nanos before which Redis is skipped.
	downUntil atomic.Int64
	now       func() time.Time
	logger    logger.Logger
}

// NewRedisRateLimiter creates a limiter. When fallback is not nil it answers
// while Redis is unreachable and for a cooldown after each failure; otherwise
// Redis errors are returned to the caller.
func NewRedisRateLimiter(client redis.UniversalClient, prefix string, limits Limits, fallback service.RateLimitService, log logger.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		prefix:   prefix,
		limits:   limits,
		window:   constants.RateLimitWindow,
		fallback: fallback,
		timeout:  constants.RateLimitRedisTimeout,
		cooldown: constants.RateLimitRedisCooldown,
		now:      time.Now,
		logger:   log.WithComponent("redis_rate_limiter"),
	}
}

// Allow implements service.RateLimitService.
func (l *RedisRateLimiter) Allow(ctx context.Context, scope constants.RateLimitScope, identifier string) (bool, int, time.Time, error) {
	limit := l.limits.of(scope)
	key := l.key(scope, identifier)

	if l.fallback != nil && l.now().UnixNano() < l.downUntil.Load() {
		return l.fallback.Allow(ctx, scope, identifier)
	}

	runCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	res, err := fixedWindowScript.Run(runCtx, l.client, []string{key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		if l.fallback != nil {
			l.downUntil.Store(l.now().Add(l.cooldown).UnixNano())
			l.logger.Warn(ctx, "Redis rate limiter unavailable, using local fallback",
				logger.Duration("cooldown", l.cooldown), logger.Error(err))
			return l.fallback.Allow(ctx, scope, identifier)
		}
		return false, 0, time.Time{}, fmt.Errorf("rate limit check for %s: %w", key, err)
	}

	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = l.window
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= limit, remaining, l.now().Add(ttl), nil
}

func (l *RedisRateLimiter) key(scope constants.RateLimitScope, identifier string) string {
	return fmt.Sprintf("%srl:%s:%s", l.prefix, scope, strings.ReplaceAll(identifier, " ", "_"))
}
