package audit

import (
	"context"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	"github.com/omega-networks/mapkit-auth/internal/domain/service"
)

var _ service.AuditService = (*GormAuditService)(nil)

// GormAuditService stores audit events in a relational database.
type GormAuditService struct {
	repo repository.AuditRepository
}

// NewGormAuditService creates a new GormAuditService.
func NewGormAuditService(repo repository.AuditRepository) *GormAuditService {
	return &GormAuditService{repo: repo}
}

// LogEvent saves an AuditEvent to the database.
func (s *GormAuditService) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	return s.repo.Append(ctx, event)
}
