package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

// MemoryRateLimiter keeps one token bucket per client in process memory.
// Idle buckets are evicted after a few windows.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	buckets *gocache.Cache
	limits  Limits
	burst   int
	now     func() time.Time
}

// NewMemoryRateLimiter 创建进程内限流器
func NewMemoryRateLimiter(limits Limits, burst int) *MemoryRateLimiter {
	if burst <= 0 {
		burst = constants.RateLimitDefaultBurst
	}
	idle := 5 * constants.RateLimitWindow
	return &MemoryRateLimiter{
		buckets: gocache.New(idle, idle),
		limits:  limits,
		burst:   burst,
		now:     time.Now,
	}
}

// Allow implements service.RateLimitService.
func (l *MemoryRateLimiter) Allow(_ context.Context, scope constants.RateLimitScope, identifier string) (bool, int, time.Time, error) {
	limiter := l.bucket(scope, identifier)
	now := l.now()

	allowed := limiter.AllowN(now, 1)
	tokens := limiter.TokensAt(now)
	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	// Time until one more token is available.
	resetAt := now
	if tokens < 1 {
		deficit := 1 - tokens
		resetAt = now.Add(time.Duration(deficit / float64(limiter.Limit()) * float64(time.Second)))
	}
	return allowed, remaining, resetAt, nil
}

func (l *MemoryRateLimiter) bucket(scope constants.RateLimitScope, identifier string) *rate.Limiter {
	key := string(scope) + ":" + identifier

	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.buckets.Get(key); ok {
		limiter := v.(*rate.Limiter)
		l.buckets.SetDefault(key, limiter)
		return limiter
	}
	perSecond := rate.Limit(float64(l.limits.of(scope)) / constants.RateLimitWindow.Seconds())
	limiter := rate.NewLimiter(perSecond, l.burst)
	l.buckets.SetDefault(key, limiter)
	return limiter
}
