package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-apicall/apiclient"
	"github.com/gaborage/go-apicall/config"
)

func newEchoServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32

	e := echo.New()
	e.HideBanner = true
	e.Any("/*", func(c echo.Context) error {
		hits.Add(1)
		return c.JSON(http.StatusOK, map[string]any{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
			"id":     c.QueryParam("id"),
			"app":    c.Request().Header.Get("X-App"),
		})
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apicall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand("test")
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestTransportsCommand(t *testing.T) {
	out, _, err := execute(t, "transports")
	require.NoError(t, err)
	assert.Equal(t, "host\nrequest\nwapc\n", out)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "apicall version test\n"))
}

func TestGetCommand(t *testing.T) {
	srv, hits := newEchoServer(t)
	cfg := writeConfig(t, "client:\n  url: "+srv.URL+"\nlog:\n  level: error\n")

	out, _, err := execute(t, "get", "/users", "id=1", "--config", cfg, "-H", "X-App: cli")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "GET", got["method"])
	assert.Equal(t, "/users", got["path"])
	assert.Equal(t, "1", got["id"])
	assert.Equal(t, "cli", got["app"])
	assert.Equal(t, int32(1), hits.Load())
}

func TestPostAndCallCommands(t *testing.T) {
	srv, _ := newEchoServer(t)
	cfg := writeConfig(t, "client:\n  url: "+srv.URL+"\nlog:\n  level: error\n")

	out, _, err := execute(t, "post", "/orders", "id=9", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"method": "POST"`)

	out, _, err = execute(t, "call", "delete", "/orders/9", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"method": "DELETE"`)
}

func TestCallFailureIsReported(t *testing.T) {
	srv, _ := newEchoServer(t)
	url := srv.URL
	srv.Close()
	cfg := writeConfig(t, "client:\n  url: "+url+"\n  retry:\n    maxattempts: 2\nlog:\n  level: error\n")

	_, _, err := execute(t, "get", "/users", "--retry", "-c", cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallFailed)
}

func TestCommandInputErrors(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: error\n")

	_, _, err := execute(t, "get", "/x", "novalue", "-c", cfg)
	assert.ErrorContains(t, err, "expected key=value")

	_, _, err = execute(t, "get", "/x", "-H", "broken", "-c", cfg)
	assert.ErrorContains(t, err, "expected name:value")

	_, _, err = execute(t, "get")
	assert.Error(t, err)

	bad := writeConfig(t, "client:\n  transport: carrier-pigeon\n")
	_, _, err = execute(t, "get", "/x", "-c", bad)
	assert.Error(t, err)
}

func TestSessionWithMemoryCache(t *testing.T) {
	srv, hits := newEchoServer(t)
	cfg := writeConfig(t, "client:\n  url: "+srv.URL+"\nlog:\n  level: error\ncache:\n  enabled: true\n  ttl: 1m\n")

	ctx := context.Background()
	var stderr bytes.Buffer
	s, err := newSession(ctx, &GlobalOptions{ConfigPath: cfg}, false, &stderr)
	require.NoError(t, err)
	defer func() { assert.NoError(t, s.close(ctx)) }()

	for range 3 {
		res, err := s.client.Get(ctx, "/users", apiclient.Args{"id": "1"}, apiclient.CallOptions{})
		require.NoError(t, err)
		assert.NotNil(t, res)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestParseArgsAndHeaders(t *testing.T) {
	args, err := parseArgs([]string{"id=1", "q=a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, apiclient.Args{"id": "1", "q": "a=b", "empty": ""}, args)

	args, err = parseArgs(nil)
	require.NoError(t, err)
	assert.Nil(t, args)

	_, err = parseArgs([]string{"=v"})
	assert.Error(t, err)

	header, err := parseHeaders([]string{"X-A: 1", "X-B=2", "Authorization: Bearer a:b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-A": "1", "X-B": "2", "Authorization": "Bearer a:b"}, header)
}

// newDroppingServer closes every connection without answering, so each
// attempt ends in a network error.
func newDroppingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRetryFlagIsBounded(t *testing.T) {
	t.Run("unlimited config gets default cap", func(t *testing.T) {
		srv, hits := newDroppingServer(t)
		cfg := writeConfig(t, "client:\n  url: "+srv.URL+"\nlog:\n  level: error\n")

		_, _, err := execute(t, "get", "/users", "--retry", "-c", cfg)
		assert.ErrorIs(t, err, ErrCallFailed)
		assert.Equal(t, int32(defaultRetryAttempts), hits.Load())
	})

	t.Run("configured cap wins", func(t *testing.T) {
		srv, hits := newDroppingServer(t)
		cfg := writeConfig(t, "client:\n  url: "+srv.URL+"\n  retry:\n    maxattempts: 2\n    backoff: 1ms\nlog:\n  level: error\n")

		_, _, err := execute(t, "get", "/users", "--retry", "-c", cfg)
		assert.ErrorIs(t, err, ErrCallFailed)
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("without flag sends once", func(t *testing.T) {
		srv, hits := newDroppingServer(t)
		cfg := writeConfig(t, "client:\n  url: "+srv.URL+"\nlog:\n  level: error\n")

		_, _, err := execute(t, "get", "/users", "-c", cfg)
		assert.ErrorIs(t, err, ErrCallFailed)
		assert.Equal(t, int32(1), hits.Load())
	})
}

func TestBoundRetries(t *testing.T) {
	rc := config.RetryConfig{}
	boundRetries(&rc)
	assert.Equal(t, defaultRetryAttempts, rc.MaxAttempts)
	assert.Equal(t, defaultRetryBackoff, rc.Backoff)

	rc = config.RetryConfig{MaxAttempts: 5, Backoff: time.Second}
	boundRetries(&rc)
	assert.Equal(t, 5, rc.MaxAttempts)
	assert.Equal(t, time.Second, rc.Backoff)
}
