package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-apicall/config"
)

func withHost(t *testing.T, fn HostFunc) {
	t.Helper()
	RegisterHost(fn)
	t.Cleanup(func() { RegisterHost(nil) })
}

func TestHostUnavailable(t *testing.T) {
	RegisterHost(nil)
	_, err := New(NameHost, Settings{})
	require.Error(t, err)
	assert.True(t, config.IsConfigError(err))
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestHostDelegates(t *testing.T) {
	withHost(t, func(_ context.Context, opts *RequestOptions) (*Response, error) {
		return NewResponse(http.StatusOK, "", nil, []byte(`{"url":"`+opts.URL+`"}`)), nil
	})

	tr, err := New(NameHost, Settings{})
	require.NoError(t, err)

	resp, err := tr.Send(context.Background(), &RequestOptions{Method: http.MethodGet, URL: "https://api.test/a"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"url": "https://api.test/a"}, resp.Decoded)
}

func TestHostErrorMapping(t *testing.T) {
	cause := errors.New("bridge closed")

	tests := []struct {
		name     string
		fn       HostFunc
		wantType ErrorType
	}{
		{
			name:     "plain error becomes host error",
			fn:       func(context.Context, *RequestOptions) (*Response, error) { return nil, cause },
			wantType: HostError,
		},
		{
			name: "client error passes through",
			fn: func(context.Context, *RequestOptions) (*Response, error) {
				return nil, NewNetworkError("offline", cause)
			},
			wantType: NetworkError,
		},
		{
			name:     "nil response and nil error",
			fn:       func(context.Context, *RequestOptions) (*Response, error) { return nil, nil },
			wantType: HostError,
		},
		{
			name:     "panic is recovered",
			fn:       func(context.Context, *RequestOptions) (*Response, error) { panic("bridge exploded") },
			wantType: HostError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withHost(t, tt.fn)
			h, err := NewHost()
			require.NoError(t, err)

			resp, err := h.Send(context.Background(), &RequestOptions{Method: http.MethodGet, URL: "https://api.test"})
			assert.Nil(t, resp)
			assert.True(t, IsErrorType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestHostKeepsFunctionBoundAtConstruction(t *testing.T) {
	withHost(t, func(context.Context, *RequestOptions) (*Response, error) {
		return NewResponse(http.StatusOK, "", nil, []byte(`"first"`)), nil
	})
	h, err := NewHost()
	require.NoError(t, err)

	RegisterHost(func(context.Context, *RequestOptions) (*Response, error) {
		return NewResponse(http.StatusOK, "", nil, []byte(`"second"`)), nil
	})

	resp, err := h.Send(context.Background(), &RequestOptions{Method: http.MethodGet, URL: "https://api.test"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Decoded)
}
