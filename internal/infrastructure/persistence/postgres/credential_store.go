package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

var _ repository.CredentialRepository = (*CredentialStore)(nil)

// credentialRecord is the single row holding the options record.
type credentialRecord struct {
	Name string `gorm:"primaryKey;size:64"`
	models.SigningCredential
	UpdatedAt time.Time
}

func (credentialRecord) TableName() string { return "mapkit_settings" }

// CredentialStore persists the credential record through gorm.
type CredentialStore struct {
	conn *DBConnection
}

// NewCredentialStore creates a store on an open connection.
func NewCredentialStore(conn *DBConnection) *CredentialStore {
	return &CredentialStore{conn: conn}
}

func (s *CredentialStore) Load(ctx context.Context) (*models.SigningCredential, error) {
	var rec credentialRecord
	err := s.conn.DB().WithContext(ctx).
		Where("name = ?", constants.SettingsRecordKey).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.SigningCredential{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cred := rec.SigningCredential
	return &cred, nil
}

func (s *CredentialStore) Save(ctx context.Context, cred *models.SigningCredential) error {
	rec := credentialRecord{
		Name:              constants.SettingsRecordKey,
		SigningCredential: *cred,
		UpdatedAt:         time.Now().UTC(),
	}
	err := s.conn.DB().WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context) error {
	err := s.conn.DB().WithContext(ctx).
		Where("name = ?", constants.SettingsRecordKey).
		Delete(&credentialRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}
