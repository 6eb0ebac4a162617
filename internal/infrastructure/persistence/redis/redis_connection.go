// Package redis provides Redis connection management and the Redis-backed credential store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omega-networks/mapkit-auth/internal/config"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// RedisConnection manages Redis client lifecycle and health monitoring.
type RedisConnection struct {
	config *config.RedisConfig
	client redis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection creates a new Redis connection manager instance.
func NewRedisConnection(cfg *config.RedisConfig, log logger.Logger) *RedisConnection {
	return &RedisConnection{
		config: cfg,
		logger: log.WithComponent("redis"),
	}
}

// Connect establishes the connection and validates it with a ping.
func (rc *RedisConnection) Connect(ctx context.Context) error {
	if rc.client != nil {
		rc.logger.Warn(ctx, "Redis connection already initialized")
		return nil
	}

	poolSize := rc.config.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:         rc.config.Address,
		Password:     rc.config.Password,
		DB:           rc.config.DB,
		PoolSize:     poolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		rc.logger.Error(ctx, "Redis ping failed", err, logger.String("address", rc.config.Address))
		_ = client.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	rc.client = client
	rc.logger.Info(ctx, "Redis connection established", logger.String("address", rc.config.Address))
	return nil
}

// GetClient returns the underlying client. It is nil before Connect succeeds.
func (rc *RedisConnection) GetClient() redis.UniversalClient {
	return rc.client
}

// KeyPrefix returns the namespace prepended to every key.
func (rc *RedisConnection) KeyPrefix() string {
	return rc.config.KeyPrefix
}

// Ping checks connectivity.
func (rc *RedisConnection) Ping(ctx context.Context) error {
	if rc.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return rc.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (rc *RedisConnection) Close() error {
	if rc.client == nil {
		return nil
	}
	err := rc.client.Close()
	rc.client = nil
	return err
}
