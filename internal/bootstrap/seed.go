package bootstrap

import (
	"context"
	"os"

	"github.com/omega-networks/mapkit-auth/internal/config"
	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	"github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// SeedCredentials writes the configured credentials into an empty store.
// A store that already holds a complete credential is left untouched, so
// settings saved through the admin API survive restarts.
func SeedCredentials(ctx context.Context, cfg config.CredentialsConfig, store repository.CredentialRepository, issuer service.TokenIssuer, log logger.Logger) error {
	if !cfg.HasSeed() {
		return nil
	}

	current, err := store.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read credential store before seeding")
	}
	if current.Complete() {
		log.Debug(ctx, "Credential store already configured, skipping seed")
		return nil
	}

	privateKey := cfg.PrivateKey
	if cfg.PrivateKeyFile != "" {
		raw, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return errors.Wrap(err, "failed to read credentials.private_key_file")
		}
		privateKey = string(raw)
	}

	cred := (&models.SigningCredential{
		PrivateKey: privateKey,
		KeyID:      cfg.KeyID,
		TeamID:     cfg.TeamID,
	}).Sanitized()

	if cred.Complete() {
		if err := issuer.ValidateCredentials(ctx, cred.KeyID, cred.TeamID, cred.PrivateKey); err != nil {
			log.Warn(ctx, "Seed credentials failed validation", logger.String("key_id", cred.KeyID), logger.Error(err))
		} else {
			cred.Status = models.CredentialStatusAuthorized
		}
	}

	if err := store.Save(ctx, cred); err != nil {
		return errors.Wrap(err, "failed to seed credential store")
	}
	log.Info(ctx, "Credential store seeded from configuration",
		logger.String("key_id", cred.KeyID),
		logger.String("status", string(cred.Status)),
	)
	return nil
}
