package repository

import (
	"context"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
)

// Pinger is implemented by backends that readiness probes check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CredentialRepository persists the single MapKit credential record.
// Load returns an empty, non-nil credential when nothing is stored.
type CredentialRepository interface {
	Load(ctx context.Context) (*models.SigningCredential, error)
	Save(ctx context.Context, cred *models.SigningCredential) error
	Delete(ctx context.Context) error
	Pinger
}

// AuditRepository persists audit events for the database audit sink.
type AuditRepository interface {
	Append(ctx context.Context, event *models.AuditEvent) error
	ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error)
}
