package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrClosed", ErrClosed},
		{"ErrInvalidTTL", ErrInvalidTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.err)
			assert.True(t, errors.Is(tt.err, tt.err))
		})
	}
}

func TestConnectionError(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewConnectionError("ping", "localhost:6379", underlying)

	assert.Equal(t, "ping", err.Op)
	assert.Equal(t, "localhost:6379", err.Address)
	assert.Contains(t, err.Error(), "cache connection error")
	assert.Contains(t, err.Error(), "localhost:6379")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, underlying)
}

func TestOperationError(t *testing.T) {
	err := NewOperationError("get", "apicall:GET:https://api.test/users", ErrClosed)

	assert.Contains(t, err.Error(), "cache operation error")
	assert.Contains(t, err.Error(), `"apicall:GET:https://api.test/users"`)
	assert.ErrorIs(t, err, ErrClosed)

	var opErr *OperationError
	assert.True(t, errors.As(err, &opErr))
	assert.Equal(t, "get", opErr.Op)
}
