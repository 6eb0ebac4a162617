package config

import (
	"context"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/omega-networks/mapkit-auth/pkg/errors"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. MAPKIT_AUTH_SITE_URL.
const EnvPrefix = "MAPKIT_AUTH"

// LoadOptions tweaks where LoadConfig looks for configuration.
type LoadOptions struct {
	// ConfigFile, when set, is read instead of searching the default paths.
	ConfigFile string
	// EnvFile is an optional dotenv file loaded before the environment is read.
	EnvFile string
	// OnChange is invoked with the re-read configuration when the config file changes.
	OnChange func(*Config)
}

var boundKeys = []string{
	"server.allowed_origins",
	"site.url",
	"credentials.private_key",
	"credentials.private_key_file",
	"credentials.key_id",
	"credentials.team_id",
	"redis.address",
	"redis.password",
	"redis.db",
	"database.host",
	"database.user",
	"database.password",
	"database.database",
	"vault.address",
	"vault.token",
	"kafka.brokers",
	"audit.signing_secret",
	"integrity.secret",
	"admin.api_keys",
	"tracing.jaeger_endpoint",
	"monitoring.pprof_enabled",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("site.environment", "production")

	v.SetDefault("credentials.store", "memory")

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", "mapkit:")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.sqlite_path", "mapkit.db")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "mapkit/credentials")
	v.SetDefault("vault.timeout", "5s")

	v.SetDefault("kafka.audit_topic", "mapkit-audit")
	v.SetDefault("kafka.required_acks", 1)
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "1s")
	v.SetDefault("kafka.write_timeout", "10s")

	v.SetDefault("audit.sink", "log")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.render_rpm", 120)
	v.SetDefault("rate_limit.test_rpm", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("integrity.lifetime", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "mapkit-auth")
	v.SetDefault("tracing.sampling_rate", 1.0)
}

// LoadConfig loads the configuration from file, environment variables, and command line.
func LoadConfig(log logger.Logger, opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to load env file")
		}
	} else {
		// Best effort: a missing .env is the normal case.
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/mapkit-auth/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		log.Info(context.Background(), "No config file found, using defaults and environment")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without defaults are invisible to Unmarshal unless bound explicitly.
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrap(err, "failed to bind env key "+key)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if opts.OnChange != nil && v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			reloaded, err := decode(v)
			if err != nil {
				log.Error(context.Background(), "Ignoring invalid config change", err, logger.String("file", e.Name))
				return
			}
			log.Info(context.Background(), "Config file changed", logger.String("file", e.Name))
			opts.OnChange(reloaded)
		})
		v.WatchConfig()
	}

	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.ErrInvalidRequest(err.Error()).WithCause(err)
	}

	return &cfg, nil
}
