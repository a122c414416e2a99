package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{
			name: "complete error with all fields",
			err: &ConfigError{
				Category: CategoryMissing,
				Field:    clientTransport,
				Message:  "required",
				Action:   "set APICALL_CLIENT_TRANSPORT env var",
				Details:  []string{"detail1", "detail2"},
			},
			expected: "config_missing: client.transport required set APICALL_CLIENT_TRANSPORT env var detail1; detail2",
		},
		{
			name:     "error without category",
			err:      &ConfigError{Field: "client.url", Message: "required"},
			expected: "client.url required",
		},
		{
			name: "error with cause",
			err: &ConfigError{
				Category: CategoryUnavailable,
				Field:    clientTransport,
				Message:  "host binding not present",
				Err:      errors.New("no host"),
			},
			expected: "config_unavailable: client.transport host binding not present (no host)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestConstructors(t *testing.T) {
	missing := NewMissingFieldError(clientTransport, "APICALL_CLIENT_TRANSPORT", clientTransport)
	assert.Equal(t, CategoryMissing, missing.Category)
	assert.Contains(t, missing.Action, "APICALL_CLIENT_TRANSPORT")

	invalid := NewInvalidFieldError(clientTransport, "unknown transport \"x\"", []string{"request", "wapc"})
	assert.Equal(t, "must be one of: request, wapc", invalid.Action)

	cause := errors.New("not on wasm")
	unavailable := NewUnavailableError(clientTransport, "waPC host unavailable", cause)
	assert.ErrorIs(t, unavailable, cause)
}

func TestIsConfigError(t *testing.T) {
	assert.False(t, IsConfigError(nil))
	assert.False(t, IsConfigError(errors.New("plain")))

	wrapped := fmt.Errorf("building client: %w", NewInvalidFieldError("client.url", "bad", nil))
	assert.True(t, IsConfigError(wrapped))
}
