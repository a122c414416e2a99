//go:build integration

// Package containers starts backing services for integration tests.
package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisContainerConfig holds configuration for the Redis test container.
type RedisContainerConfig struct {
	// ImageTag specifies the Redis version (default: "7-alpine")
	ImageTag string
	// StartupTimeout for container initialization (default: 60 seconds)
	StartupTimeout time.Duration
}

// DefaultRedisConfig returns the configuration used when nil is passed.
func DefaultRedisConfig() *RedisContainerConfig {
	return &RedisContainerConfig{
		ImageTag:       "7-alpine",
		StartupTimeout: 60 * time.Second,
	}
}

// RedisContainer is a running Redis test container.
type RedisContainer struct {
	container *redis.RedisContainer
	host      string
	port      int
}

// StartRedisContainer starts Redis, skipping the test when Docker is unavailable.
func StartRedisContainer(ctx context.Context, t *testing.T, cfg *RedisContainerConfig) (*RedisContainer, error) {
	t.Helper()

	if cfg == nil {
		cfg = DefaultRedisConfig()
	}
	if !isDockerAvailable(ctx) {
		t.Skip("Docker is not available - skipping integration test")
		return nil, nil
	}

	c, err := redis.Run(ctx,
		fmt.Sprintf("redis:%s", cfg.ImageTag),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(cfg.StartupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get Redis host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get Redis port: %w", err)
	}

	return &RedisContainer{container: c, host: host, port: mapped.Int()}, nil
}

// MustStartRedisContainer is like StartRedisContainer but fails the test on
// error and terminates the container when the test finishes.
func MustStartRedisContainer(ctx context.Context, t *testing.T, cfg *RedisContainerConfig) *RedisContainer {
	t.Helper()

	c, err := StartRedisContainer(ctx, t, cfg)
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := c.container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate Redis container: %v", err)
		}
	})
	return c
}

// Host returns the container host.
func (r *RedisContainer) Host() string {
	return r.host
}

// Port returns the host port mapped to 6379.
func (r *RedisContainer) Port() int {
	return r.port
}

func isDockerAvailable(ctx context.Context) bool {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.DaemonHost(ctx)
	return err == nil
}
