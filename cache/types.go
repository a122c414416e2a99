// Package cache stores API responses so repeated GET calls can be answered
// without touching the network.
//
// A Cache is a byte store with per-entry TTLs. NewMemory returns an in-process
// store and cache/redis provides one backed by Redis. ResponseCache adapts a
// store to the apiclient Cache and Results hooks:
//
//	rc := cache.NewResponseCache(cache.NewMemory(), time.Minute, log)
//	client, err := apiclient.New(apiclient.Config{
//	    URL:           "https://api.example.com",
//	    TransportName: transport.NameRequest,
//	    Hooks: apiclient.Hooks{
//	        Cache:   rc.Lookup,
//	        Results: rc.Results(nil),
//	    },
//	})
package cache

import (
	"context"
	"time"
)

// Cache defines the store operations used by ResponseCache.
// All implementations must be thread-safe and context-aware.
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns ErrNotFound if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the specified TTL.
	// If ttl is 0, the value is stored without expiration.
	// Overwrites existing values.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	// Returns nil if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// Health checks the store is reachable.
	Health(ctx context.Context) error

	// Close releases resources. After calling Close, the cache should not be used.
	Close() error
}
