package service

import (
	"context"
	"time"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

// RateLimitService defines the interface for rate limiting operations.
// RateLimitService 定义了速率限制操作的接口。
type RateLimitService interface {
	// Allow checks whether identifier may make another request in scope.
	// It returns whether the request is allowed, the remaining budget, and when the budget resets.
	// Allow 检查在给定范围内是否允许请求。
	Allow(
		ctx context.Context,
		scope constants.RateLimitScope,
		identifier string,
	) (allowed bool, remaining int, resetAt time.Time, err error)
}

// AuditService defines the interface for logging security-sensitive audit events.
// AuditService 定义了用于记录安全敏感审计事件的接口。
type AuditService interface {
	// LogEvent records an audit event.
	// LogEvent 记录审计事件。
	LogEvent(ctx context.Context, event *models.AuditEvent) error
}
