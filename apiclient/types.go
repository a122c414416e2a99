package apiclient

import (
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-apicall/logger"
	"github.com/gaborage/go-apicall/observability"
	"github.com/gaborage/go-apicall/transport"
)

// Args are the call arguments. GET calls encode them as the query string,
// other methods send them as the request body.
type Args map[string]any

// MockHandler produces a synthetic result for one call in mock mode.
type MockHandler func(action string, args Args) any

// MockTable maps a lowercase HTTP method to its MockHandler.
type MockTable map[string]MockHandler

// MockDelay is the inclusive range the artificial mock latency is drawn from.
type MockDelay struct {
	Min time.Duration
	Max time.Duration
}

// Config configures a Client.
type Config struct {
	// URL is the base URL every action is appended to.
	URL string
	// Header holds default headers sent with every call.
	Header map[string]string

	// Transport sends requests. When nil, TransportName selects a built-in adapter.
	Transport         transport.Transport
	TransportName     string
	TransportSettings transport.Settings

	// Hooks are merged over the default hooks; nil fields keep the default.
	Hooks Hooks

	// Mock enables mock mode when non-nil.
	Mock      MockTable
	MockDelay MockDelay

	// MaxAttempts caps transport attempts per call when retrying. 0 is unlimited.
	MaxAttempts int
	// RetryBackoff is the base delay between attempts. 0 retries immediately.
	RetryBackoff time.Duration
	// RateLimiter, when set, gates every transport attempt.
	RateLimiter *rate.Limiter

	Logger        logger.Logger
	Observability observability.Provider
}

// CallOptions are per-call settings.
type CallOptions struct {
	// Header overrides default headers for this call.
	Header map[string]string
	// Retry enables the Retry hook after a failed attempt.
	Retry bool
	// Timeout is copied into RequestOptions for the adapter to honor.
	Timeout time.Duration
	// Hooks override the client hooks for this call only.
	Hooks Hooks
}

// CallContext is the per-call record passed to every hook. It is created at
// the start of a call and discarded when the call returns.
type CallContext struct {
	Method string
	Action string
	Args   Args
	// Header is the per-call header set, before defaults are merged in.
	Header  map[string]string
	Options CallOptions

	// BaseURL and DefaultHeader are the client configuration captured when
	// the call started.
	BaseURL       string
	DefaultHeader map[string]string

	// Request is the payload handed to the transport.
	Request *transport.RequestOptions
	// Attempt is the 1-based number of the current or last transport attempt.
	Attempt int

	// After the transport loop exactly one of Error and Response is set.
	Error    error
	Response *transport.Response
	Results  any
}

// HeaderValue returns the effective value of name for this call, looking at
// per-call headers first. The lookup ignores case.
func (c *CallContext) HeaderValue(name string) string {
	if v, ok := lookupHeader(c.Header, name); ok {
		return v
	}
	v, _ := lookupHeader(c.DefaultHeader, name)
	return v
}

func lookupHeader(header map[string]string, name string) (string, bool) {
	for k, v := range header {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func copyHeader(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
