package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"starfront-server/internal/shared/config"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Client is a go-redis client that namespaces every key under a prefix so
// several servers can share one Redis.
type Client struct {
	*redis.Client
	prefix string
}

// NewClient wraps an existing go-redis client.
func NewClient(rdb *redis.Client, prefix string) *Client {
	return &Client{Client: rdb, prefix: strings.TrimSuffix(prefix, ":")}
}

func Connect(cfg config.RedisConfig) (*Client, error) {
	logger := slog.With("component", "redis", "operation", "connect")

	opts, err := options(cfg)
	if err != nil {
		logger.Error("Failed to parse Redis URL", "error", err)
		return nil, err
	}
	logger.Debug("Connecting to Redis", "addr", opts.Addr, "db", opts.DB, "key_prefix", cfg.KeyPrefix)

	client := NewClient(redis.NewClient(opts), cfg.KeyPrefix)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Healthy(ctx); err != nil {
		logger.Error("Failed to ping Redis", "error", err)
		_ = client.Client.Close()
		return nil, err
	}

	logger.Info("Redis connection established successfully", "addr", opts.Addr)
	return client, nil
}

// options prefers REDIS_URL and falls back to host and port.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		return opts, nil
	}

	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}, nil
}

// Key joins parts under the client prefix: prefix:a:b.
func (c *Client) Key(parts ...string) string {
	joined := strings.Join(parts, ":")
	if c.prefix == "" {
		return joined
	}
	return c.prefix + ":" + joined
}

// Healthy pings the server.
func (c *Client) Healthy(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
