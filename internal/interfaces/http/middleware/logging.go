package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// Logging writes one line per request. Server errors are logged at error level.
func Logging(log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Int64("latency_ms", time.Since(start).Milliseconds()),
			logger.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			log.Error(c.Request.Context(), "Request failed", err, fields...)
		case status >= http.StatusBadRequest:
			log.Warn(c.Request.Context(), "Request rejected", fields...)
		default:
			log.Info(c.Request.Context(), "Request processed", fields...)
		}
	}
}

// Recovery turns a panic into a 500 envelope.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "Panic recovered", fmt.Errorf("panic: %v", r),
					logger.String("stack", string(debug.Stack())),
				)
				dto.SendError(c, errors.ErrInternal("unexpected server error"))
				c.Abort()
			}
		}()
		c.Next()
	}
}
