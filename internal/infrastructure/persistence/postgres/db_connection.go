// Package postgres provides SQL database connection management and the SQL-backed
// credential store. PostgreSQL is used in production; SQLite serves single-node
// installs and tests through the same gorm models.
package postgres

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/omega-networks/mapkit-auth/internal/config"
	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// DBConnection manages the gorm connection pool lifecycle.
type DBConnection struct {
	db     *gorm.DB
	config *config.DatabaseConfig
	logger logger.Logger
}

// NewDBConnection opens the database for driver ("postgres" or "sqlite"),
// configures the pool and migrates the schema.
func NewDBConnection(ctx context.Context, driver constants.StoreDriver, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	log = log.WithComponent("database")

	var dialector gorm.Dialector
	switch driver {
	case constants.StoreDriverPostgres:
		log.Info(ctx, "Initializing PostgreSQL connection pool",
			logger.String("host", cfg.Host),
			logger.Int("port", cfg.Port),
			logger.String("database", cfg.Database),
		)
		dialector = postgres.Open(cfg.GetDSN())
	case constants.StoreDriverSQLite:
		log.Info(ctx, "Opening SQLite database", logger.String("path", cfg.SQLitePath))
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		log.Error(ctx, "Failed to open database", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	conn := &DBConnection{db: db, config: cfg, logger: log}
	if err := conn.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// NewDBConnectionFrom wraps an already opened gorm handle.
func NewDBConnectionFrom(db *gorm.DB, log logger.Logger) *DBConnection {
	return &DBConnection{db: db, logger: log.WithComponent("database")}
}

// Migrate creates the credential and audit tables.
func (c *DBConnection) Migrate(ctx context.Context) error {
	if err := c.db.WithContext(ctx).AutoMigrate(&credentialRecord{}, &models.AuditEvent{}); err != nil {
		c.logger.Error(ctx, "Schema migration failed", err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DB returns the gorm handle.
func (c *DBConnection) DB() *gorm.DB {
	return c.db
}

// Ping checks connectivity.
func (c *DBConnection) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool.
func (c *DBConnection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
