// Package kms stores the MapKit signing credentials in HashiCorp Vault (KV v2).
package kms

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"github.com/omega-networks/mapkit-auth/internal/config"
	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

var _ repository.CredentialRepository = (*VaultCredentialStore)(nil)

// VaultCredentialStore is a Vault-backed implementation of CredentialRepository.
type VaultCredentialStore struct {
	vaultClient *vault.Client
	logger      logger.Logger
	dataPath    string
	metaPath    string
}

// NewVaultClient builds a Vault API client from config.
func NewVaultClient(cfg config.VaultConfig) (*vault.Client, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address
	if cfg.Timeout > 0 {
		vaultConfig.Timeout = cfg.Timeout
	}
	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	return client, nil
}

// NewVaultCredentialStore creates a store at <mount>/data/<path>.
func NewVaultCredentialStore(cfg config.VaultConfig, vaultClient *vault.Client, log logger.Logger) *VaultCredentialStore {
	mount := strings.Trim(cfg.MountPath, "/")
	path := strings.Trim(cfg.SecretPath, "/")
	return &VaultCredentialStore{
		vaultClient: vaultClient,
		logger:      log.WithComponent("VaultCredentialStore"),
		dataPath:    mount + "/data/" + path,
		metaPath:    mount + "/metadata/" + path,
	}
}

func (s *VaultCredentialStore) Load(ctx context.Context) (*models.SigningCredential, error) {
	secret, err := s.vaultClient.Logical().ReadWithContext(ctx, s.dataPath)
	if err != nil {
		s.logger.Error(ctx, "failed to read credentials from Vault", err, logger.String("path", s.dataPath))
		return nil, fmt.Errorf("could not read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data["data"] == nil {
		return &models.SigningCredential{}, nil
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format in vault")
	}

	str := func(key string) string {
		v, _ := data[key].(string)
		return v
	}
	return &models.SigningCredential{
		PrivateKey: str(constants.OptionPrivateKey),
		KeyID:      str(constants.OptionKeyID),
		TeamID:     str(constants.OptionTeamID),
		Status:     models.CredentialStatus(str(constants.OptionStatus)),
	}, nil
}

func (s *VaultCredentialStore) Save(ctx context.Context, cred *models.SigningCredential) error {
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			constants.OptionPrivateKey: cred.PrivateKey,
			constants.OptionKeyID:      cred.KeyID,
			constants.OptionTeamID:     cred.TeamID,
			constants.OptionStatus:     string(cred.Status),
		},
	}
	if _, err := s.vaultClient.Logical().WriteWithContext(ctx, s.dataPath, secretData); err != nil {
		s.logger.Error(ctx, "failed to write credentials to Vault", err, logger.String("path", s.dataPath))
		return fmt.Errorf("failed to write credentials to vault: %w", err)
	}
	return nil
}

// Delete removes every version of the secret, not just the latest.
func (s *VaultCredentialStore) Delete(ctx context.Context) error {
	if _, err := s.vaultClient.Logical().DeleteWithContext(ctx, s.metaPath); err != nil {
		return fmt.Errorf("failed to delete credentials from vault: %w", err)
	}
	return nil
}

func (s *VaultCredentialStore) Ping(ctx context.Context) error {
	health, err := s.vaultClient.Sys().HealthWithContext(ctx)
	if err != nil {
		return err
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}
