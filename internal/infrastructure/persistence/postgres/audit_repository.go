package postgres

import (
	"context"
	"fmt"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepository)(nil)

// AuditRepository appends audit events to the mapkit_audit_events table.
type AuditRepository struct {
	conn *DBConnection
}

// NewAuditRepository creates an AuditRepository.
func NewAuditRepository(conn *DBConnection) *AuditRepository {
	return &AuditRepository{conn: conn}
}

func (r *AuditRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	if err := r.conn.DB().WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// ListRecent returns the newest events first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	var events []*models.AuditEvent
	err := r.conn.DB().WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}
