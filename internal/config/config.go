package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Site        SiteConfig        `mapstructure:"site"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Vault       VaultConfig       `mapstructure:"vault"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Audit       AuditConfig       `mapstructure:"audit"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Integrity   IntegrityConfig   `mapstructure:"integrity"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Log         LogConfig         `mapstructure:"log"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Address returns the HTTP listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SiteConfig describes the site whose pages embed the map.
type SiteConfig struct {
	// URL is the public home URL; its scheme and host become the token origin.
	URL string `mapstructure:"url"`
	// Environment is one of production, staging, development, local.
	Environment string `mapstructure:"environment"`
}

// IsLocal reports whether tokens must be issued without an origin restriction.
func (c *SiteConfig) IsLocal() bool {
	return constants.EnvironmentType(strings.ToLower(c.Environment)) == constants.EnvironmentLocal
}

// CredentialsConfig selects the credential store and optionally seeds it.
type CredentialsConfig struct {
	Store          string `mapstructure:"store"`
	PrivateKey     string `mapstructure:"private_key"`
	PrivateKeyFile string `mapstructure:"private_key_file"`
	KeyID          string `mapstructure:"key_id"`
	TeamID         string `mapstructure:"team_id"`
}

// HasSeed reports whether any seed value was configured.
func (c *CredentialsConfig) HasSeed() bool {
	return c.PrivateKey != "" || c.PrivateKeyFile != "" || c.KeyID != "" || c.TeamID != ""
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type VaultConfig struct {
	Address    string        `mapstructure:"address"`
	Token      string        `mapstructure:"token"`
	MountPath  string        `mapstructure:"mount_path"`
	SecretPath string        `mapstructure:"secret_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	AuditTopic   string        `mapstructure:"audit_topic"`
	RequiredAcks int           `mapstructure:"required_acks"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type AuditConfig struct {
	Sink string `mapstructure:"sink"`
	// SigningSecret, when set, adds an HMAC signature header to every exported event.
	SigningSecret string `mapstructure:"signing_secret"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Backend is "redis" or "memory".
	Backend   string `mapstructure:"backend"`
	RenderRPM int    `mapstructure:"render_rpm"`
	TestRPM   int    `mapstructure:"test_rpm"`
	Burst     int    `mapstructure:"burst"`
}

type IntegrityConfig struct {
	Secret   string        `mapstructure:"secret"`
	Lifetime time.Duration `mapstructure:"lifetime"`
}

type AdminConfig struct {
	// APIKeys are accepted as "Authorization: Bearer <key>" on admin routes.
	APIKeys []string `mapstructure:"api_keys"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

type MonitoringConfig struct {
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	if c.Site.URL != "" {
		u, err := url.Parse(c.Site.URL)
		if err != nil {
			return fmt.Errorf("site.url is not a valid URL: %w", err)
		}
		if u.Host == "" && !c.Site.IsLocal() {
			return fmt.Errorf("site.url %q has no host", c.Site.URL)
		}
	}

	switch constants.EnvironmentType(strings.ToLower(c.Site.Environment)) {
	case constants.EnvironmentProduction, constants.EnvironmentStaging,
		constants.EnvironmentDevelopment, constants.EnvironmentLocal:
	default:
		return fmt.Errorf("site.environment %q is not one of production, staging, development, local", c.Site.Environment)
	}

	switch constants.StoreDriver(c.Credentials.Store) {
	case constants.StoreDriverMemory, constants.StoreDriverSQLite:
	case constants.StoreDriverRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required for the redis credential store")
		}
	case constants.StoreDriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required for the postgres credential store")
		}
	case constants.StoreDriverVault:
		if c.Vault.Address == "" {
			return fmt.Errorf("vault.address is required for the vault credential store")
		}
	default:
		return fmt.Errorf("credentials.store %q is not supported", c.Credentials.Store)
	}

	switch constants.AuditSink(c.Audit.Sink) {
	case constants.AuditSinkLog, constants.AuditSinkDB:
	case constants.AuditSinkKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required for the kafka audit sink")
		}
	default:
		return fmt.Errorf("audit.sink %q is not supported", c.Audit.Sink)
	}

	if c.RateLimit.Enabled && c.RateLimit.Backend == "redis" && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required for the redis rate limiter")
	}

	if c.Integrity.Secret == "" {
		return fmt.Errorf("integrity.secret is required")
	}

	return nil
}
