package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
)

// AdminAuth accepts "Authorization: Bearer <key>" for any configured key and
// records a fingerprint of the key as the actor. With no keys configured every
// admin request is refused.
func AdminAuth(apiKeys []string) gin.HandlerFunc {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			dto.SendError(c, errors.ErrUnauthorized("missing bearer token"))
			c.Abort()
			return
		}

		matched := 0
		for _, k := range keys {
			matched |= subtle.ConstantTimeCompare(k, []byte(token))
		}
		if matched != 1 {
			dto.SendError(c, errors.ErrUnauthorized("invalid admin key"))
			c.Abort()
			return
		}

		setContextValue(c, constants.ContextKeyActor, actorFingerprint(token))
		c.Next()
	}
}

// actorFingerprint identifies an admin key in audit records without revealing it.
func actorFingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "admin:" + hex.EncodeToString(sum[:4])
}
