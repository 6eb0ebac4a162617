// Package middleware provides the gin middleware chain of the HTTP server.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

// setContextValue stores value both on the gin context and on the request
// context, so handlers and the application layer see the same data.
func setContextValue(c *gin.Context, key constants.ContextKey, value string) {
	c.Set(string(key), value)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), key, value))
}

// RequestID assigns each request an id, reusing a well-formed X-Request-ID
// sent by the client, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		setContextValue(c, constants.ContextKeyRequestID, requestID)
		setContextValue(c, constants.ContextKeyClientIP, c.ClientIP())
		c.Header(constants.HeaderRequestID, requestID)
		c.Next()
	}
}
