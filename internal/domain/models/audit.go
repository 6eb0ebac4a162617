package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

// AuditOutcome is the result of an audited operation.
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
)

// AuditEvent represents a single audit trail event. It never carries key material.
type AuditEvent struct {
	ID        uuid.UUID                `json:"id" gorm:"type:uuid;primaryKey"`
	Type      constants.AuditEventType `json:"type" gorm:"size:64;index"`
	Actor     string                   `json:"actor,omitempty" gorm:"size:128"`
	KeyID     string                   `json:"key_id,omitempty" gorm:"size:64"`
	TeamID    string                   `json:"team_id,omitempty" gorm:"size:64"`
	Outcome   AuditOutcome             `json:"outcome" gorm:"size:16"`
	ErrorCode constants.ErrorCode      `json:"error_code,omitempty" gorm:"size:64"`
	Message   string                   `json:"message,omitempty" gorm:"type:text"`
	IPAddress string                   `json:"ip_address,omitempty" gorm:"size:64"`
	TraceID   string                   `json:"trace_id,omitempty" gorm:"size:64"`
	Timestamp time.Time                `json:"timestamp" gorm:"index"`
}

// TableName pins the gorm table name.
func (AuditEvent) TableName() string { return "mapkit_audit_events" }

// NewAuditEvent creates a new audit event.
func NewAuditEvent(eventType constants.AuditEventType, outcome AuditOutcome, message string) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Outcome:   outcome,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// WithActor sets who performed the action.
func (a *AuditEvent) WithActor(actor string) *AuditEvent {
	a.Actor = actor
	return a
}

// WithCredential records the identifiers of the credential involved.
func (a *AuditEvent) WithCredential(keyID, teamID string) *AuditEvent {
	a.KeyID = keyID
	a.TeamID = teamID
	return a
}

// WithContextInfo sets request-scoped information.
func (a *AuditEvent) WithContextInfo(ip, traceID string) *AuditEvent {
	a.IPAddress = ip
	a.TraceID = traceID
	return a
}

// WithErrorCode sets the error code for failed events.
func (a *AuditEvent) WithErrorCode(code constants.ErrorCode) *AuditEvent {
	a.ErrorCode = code
	return a
}
