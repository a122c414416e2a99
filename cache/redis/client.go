// Package redis implements cache.Cache on Redis.
package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaborage/go-apicall/cache"
	"github.com/gaborage/go-apicall/cache/internal/tracking"
)

const pingTimeout = 5 * time.Second

// Client implements the cache.Cache interface using Redis as the backend.
type Client struct {
	client *redis.Client
	config *Config
	closed atomic.Bool
}

var _ cache.Cache = (*Client)(nil)

// NewClient validates cfg, connects and pings the server.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, cache.NewConnectionError("ping", cfg.Address(), err)
	}

	return &Client{client: client, config: cfg}, nil
}

func (c *Client) key(key string) string {
	return c.config.KeyPrefix + key
}

// Get retrieves a value from the cache.
// Returns cache.ErrNotFound if the key doesn't exist.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, cache.ErrClosed
	}

	start := time.Now()
	result, err := c.client.Get(ctx, c.key(key)).Bytes()
	duration := time.Since(start)

	if errors.Is(err, redis.Nil) {
		tracking.RecordCacheOperation(ctx, tracking.SystemRedis, tracking.OpGet, duration, false, nil)
		return nil, cache.ErrNotFound
	}
	tracking.RecordCacheOperation(ctx, tracking.SystemRedis, tracking.OpGet, duration, err == nil, err)
	if err != nil {
		return nil, cache.NewOperationError("get", key, err)
	}

	return result, nil
}

// Set stores a value with the specified TTL. A zero TTL never expires.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return cache.ErrClosed
	}
	if ttl < 0 {
		return cache.ErrInvalidTTL
	}

	start := time.Now()
	err := c.client.Set(ctx, c.key(key), value, ttl).Err()
	tracking.RecordCacheOperation(ctx, tracking.SystemRedis, tracking.OpSet, time.Since(start), false, err)

	if err != nil {
		return cache.NewOperationError("set", key, err)
	}
	return nil
}

// Delete removes a key. Missing keys are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return cache.ErrClosed
	}

	start := time.Now()
	err := c.client.Del(ctx, c.key(key)).Err()
	tracking.RecordCacheOperation(ctx, tracking.SystemRedis, tracking.OpDelete, time.Since(start), false, err)

	if err != nil {
		return cache.NewOperationError("delete", key, err)
	}
	return nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	if c.closed.Load() {
		return cache.ErrClosed
	}

	start := time.Now()
	err := c.client.Ping(ctx).Err()
	tracking.RecordCacheOperation(ctx, tracking.SystemRedis, tracking.OpHealth, time.Since(start), false, err)

	if err != nil {
		return cache.NewConnectionError("ping", c.config.Address(), err)
	}
	return nil
}

// Close closes the Redis client. Repeated calls return cache.ErrClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return cache.ErrClosed
	}
	return c.client.Close()
}
