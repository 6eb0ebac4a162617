package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
	"github.com/omega-networks/mapkit-auth/internal/application/service"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AdminHandler serves the settings screen. All routes sit behind AdminAuth.
type AdminHandler struct {
	app      service.MapKitAppService
	auditLog repository.AuditRepository
}

// NewAdminHandler creates the handler. auditLog may be nil when audit events
// are not kept in the database.
func NewAdminHandler(app service.MapKitAppService, auditLog repository.AuditRepository) *AdminHandler {
	return &AdminHandler{app: app, auditLog: auditLog}
}

// Nonce returns a fresh integrity token for the settings form.
func (h *AdminHandler) Nonce(c *gin.Context) {
	dto.SendSuccess(c, http.StatusOK, h.app.CreateNonce(c.Request.Context()))
}

// GetSettings returns the stored settings without the private key.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	resp, err := h.app.GetSettings(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}

// SaveSettings stores the submitted credentials. Validation failures are
// reported in the body with a 200, the fields are saved regardless.
func (h *AdminHandler) SaveSettings(c *gin.Context) {
	var req dto.SaveSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.ErrInvalidRequest("malformed request body").WithCause(err))
		return
	}
	if req.Nonce == "" {
		req.Nonce = c.GetHeader(constants.HeaderIntegrityToken)
	}

	resp, err := h.app.SaveSettings(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}

// DeleteSettings wipes the stored credentials.
func (h *AdminHandler) DeleteSettings(c *gin.Context) {
	if err := h.app.DeleteSettings(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, gin.H{"deleted": true})
}

// ListAuditEvents returns the newest audit events, ?limit= bounded to 500.
func (h *AdminHandler) ListAuditEvents(c *gin.Context) {
	if h.auditLog == nil {
		fail(c, errors.ErrNotFound("audit events are not stored by the configured sink"))
		return
	}

	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, errors.ErrInvalidRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.auditLog.ListRecent(c.Request.Context(), limit)
	if err != nil {
		fail(c, errors.ErrServiceUnavailable("audit log unavailable").WithCause(err))
		return
	}
	dto.SendSuccess(c, http.StatusOK, events)
}
