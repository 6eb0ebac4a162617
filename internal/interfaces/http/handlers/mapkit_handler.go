package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
	"github.com/omega-networks/mapkit-auth/internal/application/service"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// MapKitHandler serves the token exchanges used by pages embedding the map
// and by the settings screen.
type MapKitHandler struct {
	app    service.MapKitAppService
	logger logger.Logger
}

// NewMapKitHandler 创建 MapKit 令牌处理器
func NewMapKitHandler(app service.MapKitAppService, log logger.Logger) *MapKitHandler {
	return &MapKitHandler{app: app, logger: log.WithComponent("mapkit_handler")}
}

// IssueToken godoc
// @Summary      Rendering token
// @Description  Returns a one hour MapKit JS token signed with the stored credentials, as plain text.
// @Tags         mapkit
// @Produce      plain
// @Success      200  {string}  string
// @Failure      401  {object}  dto.APIResponse
// @Failure      500  {object}  dto.APIResponse
// @Router       /api/v1/mapkit/token [get]
func (h *MapKitHandler) IssueToken(c *gin.Context) {
	resp, err := h.app.IssueRenderToken(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(resp.Token))
}

// TestCredentials godoc
// @Summary      Credential test
// @Description  Signs a 60 second token from the submitted credentials without storing them.
// @Tags         mapkit
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        request  body      dto.TestCredentialsRequest  true  "Credentials"
// @Success      200      {object}  dto.APIResponse
// @Failure      400      {object}  dto.APIResponse
// @Failure      403      {object}  dto.APIResponse
// @Failure      422      {object}  dto.APIResponse
// @Router       /api/v1/mapkit/credentials/test [post]
func (h *MapKitHandler) TestCredentials(c *gin.Context) {
	var req dto.TestCredentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, errors.ErrInvalidRequest("malformed request body").WithCause(err))
		return
	}
	if req.Nonce == "" {
		req.Nonce = c.GetHeader(constants.HeaderIntegrityToken)
	}

	resp, err := h.app.TestCredentials(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}
