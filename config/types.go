package config

import (
	"time"

	"github.com/gaborage/go-apicall/observability"
)

// Config is the root configuration for an API client process.
type Config struct {
	Client        ClientConfig         `koanf:"client" json:"client" yaml:"client"`
	Log           LogConfig            `koanf:"log" json:"log" yaml:"log"`
	Cache         CacheConfig          `koanf:"cache" json:"cache" yaml:"cache"`
	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability" validate:"-"`
}

// ClientConfig describes one API client bound to a base URL.
type ClientConfig struct {
	URL       string            `koanf:"url" json:"url" yaml:"url" validate:"omitempty,url"`
	Header    map[string]string `koanf:"header" json:"header" yaml:"header"`
	Transport string            `koanf:"transport" json:"transport" yaml:"transport" validate:"required"`
	Timeout   time.Duration     `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gte=0"`
	Retry     RetryConfig       `koanf:"retry" json:"retry" yaml:"retry"`
	RateLimit RateLimitConfig   `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit"`
	Mock      MockConfig        `koanf:"mock" json:"mock" yaml:"mock"`
	WAPC      WAPCConfig        `koanf:"wapc" json:"wapc" yaml:"wapc"`
}

// RetryConfig bounds the hook-driven retry loop.
type RetryConfig struct {
	// MaxAttempts caps total transport attempts per call; 0 means unlimited
	MaxAttempts int `koanf:"maxattempts" json:"maxattempts" yaml:"maxattempts" validate:"gte=0"`
	// Backoff is the base delay between attempts; 0 retries immediately
	Backoff time.Duration `koanf:"backoff" json:"backoff" yaml:"backoff" validate:"gte=0"`
}

// RateLimitConfig throttles transport attempts. RPS of 0 disables throttling.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" json:"rps" yaml:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" validate:"gte=0"`
}

// MockConfig holds the artificial latency applied in mock mode.
type MockConfig struct {
	Delay DelayConfig `koanf:"delay" json:"delay" yaml:"delay"`
}

// DelayConfig is an inclusive [Min, Max] duration range.
type DelayConfig struct {
	Min time.Duration `koanf:"min" json:"min" yaml:"min" validate:"gte=0"`
	Max time.Duration `koanf:"max" json:"max" yaml:"max" validate:"gtefield=Min"`
}

// WAPCConfig configures the waPC host binding.
type WAPCConfig struct {
	Namespace string `koanf:"namespace" json:"namespace" yaml:"namespace"`
	Insecure  bool   `koanf:"insecure" json:"insecure" yaml:"insecure"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// CacheConfig configures the GET response cache.
// An empty Redis host selects the in-memory store.
type CacheConfig struct {
	Enabled bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	TTL     time.Duration `koanf:"ttl" json:"ttl" yaml:"ttl" validate:"gte=0"`
	Redis   RedisConfig   `koanf:"redis" json:"redis" yaml:"redis"`

	// Vary names the headers that partition cached responses.
	Vary []string `koanf:"vary" json:"vary" yaml:"vary"`
}

// RedisConfig holds Redis connection settings for the response cache.
type RedisConfig struct {
	Host     string `koanf:"host" json:"host" yaml:"host"`
	Port     int    `koanf:"port" json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Password string `koanf:"password" json:"password" yaml:"password"`
	Database int    `koanf:"database" json:"database" yaml:"database" validate:"gte=0"`
}
