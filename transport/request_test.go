package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-apicall/trace"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	e := echo.New()
	e.HideBanner = true
	e.GET("/users", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"id":         c.QueryParam("id"),
			"request_id": c.Request().Header.Get(trace.HeaderXRequestID),
			"app":        c.Request().Header.Get("X-App"),
		})
	})
	e.POST("/echo", func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{
			"content_type": c.Request().Header.Get(echo.HeaderContentType),
			"body":         string(body),
		})
	})
	e.GET("/text", func(c echo.Context) error {
		return c.String(http.StatusOK, "plain text")
	})
	e.GET("/boom", func(c echo.Context) error {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "boom"})
	})
	e.GET("/login", func(c echo.Context) error {
		c.SetCookie(&http.Cookie{Name: "session", Value: "abc", Path: "/"})
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/whoami", func(c echo.Context) error {
		cookie, err := c.Cookie("session")
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"session": ""})
		}
		return c.JSON(http.StatusOK, map[string]string{"session": cookie.Value})
	})
	e.GET("/slow", func(c echo.Context) error {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-c.Request().Context().Done():
		}
		return c.NoContent(http.StatusOK)
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func TestRequestGetDecodesJSON(t *testing.T) {
	srv := newUpstream(t)
	r := NewRequest(Settings{})

	ctx := trace.WithRequestID(context.Background(), "req-123")
	resp, err := r.Send(ctx, &RequestOptions{
		Method: http.MethodGet,
		URL:    srv.URL + "/users",
		Header: map[string]string{"X-App": "demo"},
		Query:  url.Values{"id": {"1"}},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	decoded, ok := resp.Decoded.(map[string]any)
	require.True(t, ok, "expected JSON object, got %T", resp.Decoded)
	assert.Equal(t, "1", decoded["id"])
	assert.Equal(t, "req-123", decoded["request_id"])
	assert.Equal(t, "demo", decoded["app"])
}

func TestRequestNonJSONBodyLeavesDecodedNil(t *testing.T) {
	srv := newUpstream(t)
	resp, err := NewRequest(Settings{}).Send(context.Background(), &RequestOptions{
		Method: http.MethodGet,
		URL:    srv.URL + "/text",
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Decoded)
	assert.Equal(t, "plain text", string(resp.RawBody))
}

func TestRequestHTTPErrorStatusIsNotAnError(t *testing.T) {
	srv := newUpstream(t)
	resp, err := NewRequest(Settings{}).Send(context.Background(), &RequestOptions{
		Method: http.MethodGet,
		URL:    srv.URL + "/boom",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.False(t, resp.IsSuccess())
}

func TestRequestPostBodies(t *testing.T) {
	srv := newUpstream(t)
	r := NewRequest(Settings{})

	tests := []struct {
		name        string
		contentType string
		data        any
		wantType    string
		wantBody    string
	}{
		{
			name:        "json",
			contentType: ContentTypeJSON,
			data:        map[string]any{"name": "ada"},
			wantType:    ContentTypeJSON,
			wantBody:    `{"name":"ada"}`,
		},
		{
			name:        "form",
			contentType: ContentTypeForm,
			data:        map[string]any{"name": "ada", "age": 36},
			wantType:    ContentTypeForm,
			wantBody:    "age=36&name=ada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := r.Send(context.Background(), &RequestOptions{
				Method:      http.MethodPost,
				URL:         srv.URL + "/echo",
				Data:        tt.data,
				ContentType: tt.contentType,
			})
			require.NoError(t, err)

			decoded := resp.Decoded.(map[string]any)
			assert.Equal(t, tt.wantType, decoded["content_type"])
			assert.Equal(t, tt.wantBody, decoded["body"])
		})
	}
}

func TestRequestSharesCookieJar(t *testing.T) {
	srv := newUpstream(t)
	r := NewRequest(Settings{})

	_, err := r.Send(context.Background(), &RequestOptions{Method: http.MethodGet, URL: srv.URL + "/login"})
	require.NoError(t, err)

	resp, err := r.Send(context.Background(), &RequestOptions{Method: http.MethodGet, URL: srv.URL + "/whoami"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc", resp.Decoded.(map[string]any)["session"])
}

func TestRequestTimeout(t *testing.T) {
	srv := newUpstream(t)
	resp, err := NewRequest(Settings{}).Send(context.Background(), &RequestOptions{
		Method:  http.MethodGet,
		URL:     srv.URL + "/slow",
		Timeout: 20 * time.Millisecond,
	})
	assert.Nil(t, resp)
	assert.True(t, IsErrorType(err, TimeoutError), "expected timeout error, got %v", err)
}

func TestRequestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	resp, err := NewRequest(Settings{Timeout: time.Second}).Send(context.Background(), &RequestOptions{
		Method: http.MethodGet,
		URL:    addr + "/gone",
	})
	assert.Nil(t, resp)
	assert.True(t, IsErrorType(err, NetworkError), "expected network error, got %v", err)
}

func TestRequestValidation(t *testing.T) {
	r := NewRequest(Settings{})

	_, err := r.Send(context.Background(), nil)
	assert.True(t, IsErrorType(err, ValidationError))

	_, err = r.Send(context.Background(), &RequestOptions{Method: http.MethodGet})
	assert.True(t, IsErrorType(err, ValidationError))
	assert.Contains(t, err.Error(), "field: url")
}
