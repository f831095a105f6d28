package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
)

const (
	defaultCallTimeout = 500 * time.Millisecond
	connectTimeout     = 5 * time.Second
)

// Client owns the connection pool behind the distributed rate limiter.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClient connects to Redis and pings it once. Socket timeouts follow
// callTimeout so a slow server trips the limiter's breaker instead of
// stalling the login path.
func NewClient(cfg config.RedisSettings, callTimeout time.Duration, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   -1,

		DialTimeout:  callTimeout * 4,
		ReadTimeout:  callTimeout,
		WriteTimeout: callTimeout,
		PoolTimeout:  callTimeout * 2,

		ConnMaxIdleTime: 5 * time.Minute,
	}

	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("rate limit store connected",
		zap.String("addr", opts.Addr),
		zap.Int("db", cfg.DB),
		zap.Bool("tls_enabled", cfg.TLSEnabled),
		zap.Duration("call_timeout", callTimeout),
	)

	return &Client{client: client, logger: logger}, nil
}

// Client returns the underlying redis.Client.
func (c *Client) Client() *redis.Client {
	return c.client
}

// HealthCheck backs the readiness probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close logs pool statistics and closes the pool.
func (c *Client) Close() error {
	stats := c.client.PoolStats()
	c.logger.Info("closing rate limit store",
		zap.Uint32("hits", stats.Hits),
		zap.Uint32("misses", stats.Misses),
		zap.Uint32("timeouts", stats.Timeouts),
	)
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
