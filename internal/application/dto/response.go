package dto

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO 错误信息 DTO
type ErrorDTO struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Description string            `json:"description,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// SuccessResponse 创建成功响应
func SuccessResponse(data interface{}, traceID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse 创建错误响应
func ErrorResponse(err error, traceID string) *APIResponse {
	return &APIResponse{
		Success:   false,
		Error:     NewErrorDTO(err),
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// NewErrorDTO converts any error into its wire form. Foreign errors are
// reported as internal errors without leaking their text.
func NewErrorDTO(err error) *ErrorDTO {
	if err == nil {
		return nil
	}
	if mkErr, ok := errors.As(err); ok {
		return &ErrorDTO{
			Code:        string(mkErr.Code()),
			Message:     mkErr.Error(),
			Description: mkErr.Description(),
			Details:     mkErr.Metadata(),
		}
	}
	return &ErrorDTO{
		Code:    string(constants.ErrCodeInternal),
		Message: "Internal server error",
	}
}

// StatusOf returns the HTTP status an error maps to.
func StatusOf(err error) int {
	if mkErr, ok := errors.As(err); ok {
		return mkErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// SendError writes err as a JSON error envelope.
func SendError(c *gin.Context, err error) {
	c.JSON(StatusOf(err), ErrorResponse(err, traceIDFrom(c)))
}

// SendSuccess writes data as a JSON success envelope.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse(data, traceIDFrom(c)))
}

func traceIDFrom(c *gin.Context) string {
	if v, ok := c.Get(string(constants.ContextKeyTraceID)); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return c.GetString(string(constants.ContextKeyRequestID))
}
