package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL     = "https://api.test"
	clientTransport = "client.transport"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Client.URL)
	assert.Equal(t, "request", cfg.Client.Transport)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 0, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, "tarmac", cfg.Client.WAPC.Namespace)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 6379, cfg.Cache.Redis.Port)
	assert.Equal(t, []string{"Authorization", "Cookie"}, cfg.Cache.Vary)
	assert.False(t, cfg.Observability.Enabled)
}

func TestLoadBytes(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
client:
  url: https://api.test
  header:
    X-App: demo
  transport: host
  timeout: 5s
  retry:
    maxattempts: 4
    backoff: 100ms
  ratelimit:
    rps: 10
    burst: 2
  mock:
    delay:
      min: 10ms
      max: 20ms
log:
  level: debug
cache:
  enabled: true
  ttl: 30s
`))
	require.NoError(t, err)

	assert.Equal(t, testBaseURL, cfg.Client.URL)
	assert.Equal(t, "demo", cfg.Client.Header["X-App"])
	assert.Equal(t, "host", cfg.Client.Transport)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 4, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Client.Retry.Backoff)
	assert.InDelta(t, 10.0, cfg.Client.RateLimit.RPS, 0.0001)
	assert.Equal(t, 2, cfg.Client.RateLimit.Burst)
	assert.Equal(t, 10*time.Millisecond, cfg.Client.Mock.Delay.Min)
	assert.Equal(t, 20*time.Millisecond, cfg.Client.Mock.Delay.Max)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client:\n  url: https://files.test\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://files.test", cfg.Client.URL)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "request", cfg.Client.Transport)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("APICALL_CLIENT_URL", "https://env.test")
	t.Setenv("APICALL_LOG_LEVEL", "warn")

	cfg, err := LoadBytes([]byte("client:\n  url: https://yaml.test\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://env.test", cfg.Client.URL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		field    string
		category string
	}{
		{
			name:     "invalid url",
			yaml:     "client:\n  url: not a url\n",
			field:    "client.url",
			category: CategoryInvalid,
		},
		{
			name:     "empty transport",
			yaml:     "client:\n  transport: \"\"\n",
			field:    clientTransport,
			category: CategoryMissing,
		},
		{
			name:     "unknown log level",
			yaml:     "log:\n  level: loud\n",
			field:    "log.level",
			category: CategoryInvalid,
		},
		{
			name:     "inverted mock delay",
			yaml:     "client:\n  mock:\n    delay:\n      min: 20ms\n      max: 10ms\n",
			field:    "client.mock.delay.max",
			category: CategoryInvalid,
		},
		{
			name:     "negative attempts",
			yaml:     "client:\n  retry:\n    maxattempts: -1\n",
			field:    "client.retry.maxattempts",
			category: CategoryInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %T", err)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Equal(t, tt.category, cfgErr.Category)
		})
	}
}

func TestValidateNil(t *testing.T) {
	err := Validate(nil)
	assert.True(t, IsConfigError(err))
}

func TestObservabilitySection(t *testing.T) {
	cfg, err := LoadBytes([]byte("observability:\n  enabled: true\n  endpoint: collector:4317\n  protocol: grpc\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Observability.Enabled)
	assert.Equal(t, "grpc", cfg.Observability.Protocol)
	assert.Equal(t, "apicall", cfg.Observability.ServiceName)

	_, err = LoadBytes([]byte("observability:\n  enabled: true\n  samplerate: 2\n"))
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "observability", cfgErr.Field)
}
