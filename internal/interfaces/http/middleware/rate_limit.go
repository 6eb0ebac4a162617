package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
	"github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// RateLimit throttles requests per client IP within scope. A nil limiter
// disables the check. Limiter failures let the request through.
func RateLimit(limiter service.RateLimitService, scope constants.RateLimitScope, metrics service.Metrics, log logger.Logger) gin.HandlerFunc {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, remaining, resetAt, err := limiter.Allow(c.Request.Context(), scope, c.ClientIP())
		if err != nil {
			log.Error(c.Request.Context(), "Rate limiter failed", err, logger.String("scope", string(scope)))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if !allowed {
			metrics.RecordRateLimitHit(string(scope))
			log.Warn(c.Request.Context(), "Rate limit exceeded",
				logger.String("scope", string(scope)),
				logger.String("client_ip", c.ClientIP()),
			)
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			dto.SendError(c, errors.ErrRateLimitExceeded())
			c.Abort()
			return
		}
		c.Next()
	}
}
