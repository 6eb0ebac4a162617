package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

var _ repository.CredentialRepository = (*CredentialStore)(nil)

// CredentialStore keeps the credential record in a single Redis hash whose
// fields mirror the persisted option names.
type CredentialStore struct {
	client redis.UniversalClient
	key    string
}

// NewCredentialStore creates a store under prefix + "apple_maps_settings".
func NewCredentialStore(client redis.UniversalClient, prefix string) *CredentialStore {
	return &CredentialStore{client: client, key: prefix + constants.SettingsRecordKey}
}

func (s *CredentialStore) Load(ctx context.Context) (*models.SigningCredential, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials from redis: %w", err)
	}
	return &models.SigningCredential{
		PrivateKey: values[constants.OptionPrivateKey],
		KeyID:      values[constants.OptionKeyID],
		TeamID:     values[constants.OptionTeamID],
		Status:     models.CredentialStatus(values[constants.OptionStatus]),
	}, nil
}

// Save replaces the whole record in one MULTI/EXEC so readers never see a mix
// of old and new fields.
func (s *CredentialStore) Save(ctx context.Context, cred *models.SigningCredential) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key,
			constants.OptionPrivateKey, cred.PrivateKey,
			constants.OptionKeyID, cred.KeyID,
			constants.OptionTeamID, cred.TeamID,
			constants.OptionStatus, string(cred.Status),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials to redis: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials from redis: %w", err)
	}
	return nil
}

func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
