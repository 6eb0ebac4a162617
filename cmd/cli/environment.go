package cli

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"time"

	appservice "github.com/omega-networks/mapkit-auth/internal/application/service"
	"github.com/omega-networks/mapkit-auth/internal/bootstrap"
	"github.com/omega-networks/mapkit-auth/internal/config"
	domainservice "github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/internal/infrastructure/monitoring"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// environment holds what commands share once configuration is loaded.
type environment struct {
	opts    config.LoadOptions
	verbose bool

	cfg        *config.Config
	log        logger.Logger
	components *bootstrap.Components
	issuer     domainservice.TokenIssuer
	app        appservice.MapKitAppService
}

func (e *environment) setup(ctx context.Context) error {
	e.log = logger.NewNoopLogger()
	if e.verbose {
		zl, err := monitoring.NewZapLogger(&config.LogConfig{Level: "debug", Format: "console"})
		if err != nil {
			return err
		}
		e.log = zl
	}

	cfg, err := config.LoadConfig(e.log, e.opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	e.cfg = cfg

	components, err := bootstrap.Build(ctx, cfg, nil, e.log)
	if err != nil {
		return err
	}
	e.components = components

	e.issuer = domainservice.NewTokenIssuer(
		domainservice.OriginPolicy{SiteURL: cfg.Site.URL, Local: cfg.Site.IsLocal()},
		time.Now,
		e.log,
	)
	integrity := domainservice.NewIntegrityService(cfg.Integrity.Secret, cfg.Integrity.Lifetime, time.Now)
	e.app = appservice.NewMapKitAppService(e.issuer, components.Store, integrity, components.Audit, nil, e.log)
	return nil
}

func (e *environment) close() error {
	if e.components == nil {
		return nil
	}
	err := e.components.Close()
	e.components = nil
	return err
}

// actorContext tags ctx with the operator running the CLI for the audit trail.
func actorContext(ctx context.Context) context.Context {
	name := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	} else if v := os.Getenv("USER"); v != "" {
		name = v
	}
	return context.WithValue(ctx, constants.ContextKeyActor, "cli:"+name)
}

// readKeyFile returns the contents of a .p8 file, or "" when path is empty.
func readKeyFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	return string(data), nil
}
