package redis

import (
	"fmt"
	"time"

	"github.com/gaborage/go-apicall/config"
)

// Config holds Redis connection options for the response cache store.
type Config struct {
	Host     string
	Port     int
	Password string //nolint:gosec // G117 - loaded from env
	Database int

	// KeyPrefix is prepended to every key. It lets several clients share one
	// database.
	KeyPrefix string

	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
}

// FromConfig maps the cache.redis section onto a Config with pool defaults.
func FromConfig(rc config.RedisConfig) *Config {
	port := rc.Port
	if port == 0 {
		port = 6379
	}
	return &Config{
		Host:         rc.Host,
		Port:         port,
		Password:     rc.Password,
		Database:     rc.Database,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	}
}

// Validate performs fail-fast validation of Redis configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return config.NewMissingFieldError("cache.redis.host", config.EnvPrefix+"CACHE_REDIS_HOST", "cache.redis.host")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return config.NewInvalidFieldError("cache.redis.port", fmt.Sprintf("invalid port: %d", c.Port), nil)
	}

	if c.Database < 0 || c.Database > 15 {
		return config.NewInvalidFieldError("cache.redis.database", fmt.Sprintf("invalid database number: %d (must be 0-15)", c.Database), nil)
	}

	if c.PoolSize < 0 {
		return config.NewInvalidFieldError("cache.redis.poolsize", fmt.Sprintf("invalid pool size: %d", c.PoolSize), nil)
	}

	if c.DialTimeout < 0 {
		return config.NewInvalidFieldError("cache.redis.dialtimeout", "dial timeout cannot be negative", nil)
	}

	return nil
}

// Address returns the Redis server address in "host:port" format.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
