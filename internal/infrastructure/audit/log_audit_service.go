package audit

import (
	"context"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

var _ service.AuditService = (*LogAuditService)(nil)

// LogAuditService writes audit events to the service log.
type LogAuditService struct {
	logger logger.Logger
}

// NewLogAuditService creates a LogAuditService.
func NewLogAuditService(log logger.Logger) *LogAuditService {
	return &LogAuditService{logger: log.WithComponent("audit")}
}

func (s *LogAuditService) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	s.logger.Info(ctx, "audit event",
		logger.String("event_id", event.ID.String()),
		logger.String("event_type", string(event.Type)),
		logger.String("outcome", string(event.Outcome)),
		logger.String("actor", event.Actor),
		logger.String("key_id", event.KeyID),
		logger.String("team_id", event.TeamID),
		logger.String("error_code", string(event.ErrorCode)),
		logger.String("message", event.Message),
	)
	return nil
}
