// Package handlers implements the HTTP endpoints of the MapKit token service.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
)

// fail records err on the gin context for the logging middleware and writes the error envelope.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	dto.SendError(c, err)
}
