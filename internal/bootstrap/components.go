// Package bootstrap assembles the infrastructure selected by configuration:
// the credential store, the audit sink and the rate limiter.
// 根据配置组装凭证存储、审计通道与限流器。
package bootstrap

import (
	"context"
	"fmt"

	"github.com/omega-networks/mapkit-auth/internal/config"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	"github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/internal/infrastructure/audit"
	"github.com/omega-networks/mapkit-auth/internal/infrastructure/kms"
	"github.com/omega-networks/mapkit-auth/internal/infrastructure/persistence/memory"
	"github.com/omega-networks/mapkit-auth/internal/infrastructure/persistence/postgres"
	"github.com/omega-networks/mapkit-auth/internal/infrastructure/persistence/redis"
	"github.com/omega-networks/mapkit-auth/internal/infrastructure/ratelimit"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// Components holds the wired infrastructure. Close releases every connection.
type Components struct {
	Store       repository.CredentialRepository
	Audit       service.AuditService
	RateLimiter service.RateLimitService
	// AuditLog is set only for the database audit sink.
	AuditLog repository.AuditRepository
	// Checks are probed by /health/ready, keyed by dependency name.
	Checks map[string]repository.Pinger

	redis   *redis.RedisConnection
	db      *postgres.DBConnection
	closers []func() error
	logger  logger.Logger
}

// Build connects to the backends named in cfg. Connections opened before a
// failure are closed before Build returns.
func Build(ctx context.Context, cfg *config.Config, metrics service.Metrics, log logger.Logger) (*Components, error) {
	c := &Components{
		Checks: make(map[string]repository.Pinger),
		logger: log.WithComponent("bootstrap"),
	}
	if err := c.build(ctx, cfg, metrics); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Components) build(ctx context.Context, cfg *config.Config, metrics service.Metrics) error {
	store, err := c.buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	c.Store = InstrumentStore(store, cfg.Credentials.Store, metrics)
	c.Checks["credential_store"] = c.Store

	if c.Audit, err = c.buildAudit(ctx, cfg); err != nil {
		return err
	}
	c.RateLimiter, err = c.buildRateLimiter(ctx, cfg)
	return err
}

func (c *Components) buildStore(ctx context.Context, cfg *config.Config) (repository.CredentialRepository, error) {
	driver := constants.StoreDriver(cfg.Credentials.Store)
	c.logger.Info(ctx, "Initializing credential store", logger.String("driver", string(driver)))

	switch driver {
	case constants.StoreDriverMemory:
		return memory.NewCredentialStore(), nil
	case constants.StoreDriverRedis:
		conn, err := c.connectRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return redis.NewCredentialStore(conn.GetClient(), conn.KeyPrefix()), nil
	case constants.StoreDriverPostgres, constants.StoreDriverSQLite:
		conn, err := c.connectDB(ctx, driver, cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewCredentialStore(conn), nil
	case constants.StoreDriverVault:
		client, err := kms.NewVaultClient(cfg.Vault)
		if err != nil {
			return nil, err
		}
		return kms.NewVaultCredentialStore(cfg.Vault, client, c.logger), nil
	default:
		return nil, fmt.Errorf("unsupported credential store: %s", driver)
	}
}

func (c *Components) buildAudit(ctx context.Context, cfg *config.Config) (service.AuditService, error) {
	switch constants.AuditSink(cfg.Audit.Sink) {
	case constants.AuditSinkKafka:
		producer := audit.NewKafkaProducer(cfg.Kafka, cfg.Audit.SigningSecret, c.logger)
		c.closers = append(c.closers, producer.Close)
		return producer, nil
	case constants.AuditSinkDB:
		// The audit table lives next to the credential table when the store is
		// SQL; otherwise Postgres is used if configured, SQLite if not.
		driver := constants.StoreDriverSQLite
		switch {
		case constants.StoreDriver(cfg.Credentials.Store) == constants.StoreDriverPostgres:
			driver = constants.StoreDriverPostgres
		case constants.StoreDriver(cfg.Credentials.Store) != constants.StoreDriverSQLite && cfg.Database.Host != "":
			driver = constants.StoreDriverPostgres
		}
		conn, err := c.connectDB(ctx, driver, cfg)
		if err != nil {
			return nil, err
		}
		c.AuditLog = postgres.NewAuditRepository(conn)
		return audit.NewGormAuditService(c.AuditLog), nil
	case constants.AuditSinkLog, "":
		return audit.NewLogAuditService(c.logger), nil
	default:
		return nil, fmt.Errorf("unsupported audit sink: %s", cfg.Audit.Sink)
	}
}

func (c *Components) buildRateLimiter(ctx context.Context, cfg *config.Config) (service.RateLimitService, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	limits := ratelimit.LimitsFromConfig(cfg.RateLimit)
	local := ratelimit.NewMemoryRateLimiter(limits, cfg.RateLimit.Burst)
	if cfg.RateLimit.Backend != "redis" {
		return local, nil
	}

	conn, err := c.connectRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ratelimit.NewRedisRateLimiter(conn.GetClient(), conn.KeyPrefix(), limits, local, c.logger), nil
}

// connectRedis opens the shared Redis connection once.
func (c *Components) connectRedis(ctx context.Context, cfg *config.Config) (*redis.RedisConnection, error) {
	if c.redis != nil {
		return c.redis, nil
	}
	conn := redis.NewRedisConnection(&cfg.Redis, c.logger)
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	c.redis = conn
	c.Checks["redis"] = conn
	c.closers = append(c.closers, conn.Close)
	return conn, nil
}

// connectDB opens the shared SQL connection once.
func (c *Components) connectDB(ctx context.Context, driver constants.StoreDriver, cfg *config.Config) (*postgres.DBConnection, error) {
	if c.db != nil {
		return c.db, nil
	}
	conn, err := postgres.NewDBConnection(ctx, driver, &cfg.Database, c.logger)
	if err != nil {
		return nil, err
	}
	c.db = conn
	c.Checks["database"] = conn
	c.closers = append(c.closers, conn.Close)
	return conn, nil
}

// Close releases connections in reverse order of creation.
func (c *Components) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
