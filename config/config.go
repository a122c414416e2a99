// Package config loads API client configuration from defaults, YAML and the
// environment, and defines the ConfigError returned by every constructor that
// rejects its input.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped onto
// config keys: APICALL_CLIENT_URL becomes client.url.
const EnvPrefix = "APICALL_"

// Load reads configuration with the following priority:
// 1. Environment variables (highest priority)
// 2. The YAML file at path, when path is non-empty and the file exists
// 3. Default values (lowest priority)
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	return finish(k)
}

// LoadBytes is like Load but reads YAML from memory instead of a file.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, EnvPrefix)
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Observability.Enabled {
		cfg.Observability.ApplyDefaults()
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.url":               "",
		"client.transport":         "request",
		"client.timeout":           "30s",
		"client.retry.maxattempts": 0,
		"client.retry.backoff":     "0s",
		"client.ratelimit.rps":     0,
		"client.ratelimit.burst":   1,
		"client.mock.delay.min":    "0s",
		"client.mock.delay.max":    "0s",
		"client.wapc.namespace":    "tarmac",

		"log.level":  "info",
		"log.pretty": false,

		"cache.enabled":    false,
		"cache.ttl":        "1m",
		"cache.vary":       []string{"Authorization", "Cookie"},
		"cache.redis.port": 6379,

		"observability.enabled": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
