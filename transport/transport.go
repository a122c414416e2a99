// Package transport defines how an API client reaches the network: the
// Transport capability, the request and response payloads exchanged with it,
// and the built-in adapters selectable by name.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gaborage/go-apicall/config"
	"github.com/gaborage/go-apicall/logger"
)

// Built-in adapter names accepted by New.
const (
	NameRequest = "request"
	NameWAPC    = "wapc"
	NameHost    = "host"
)

// Content types understood by the built-in adapters.
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Transport performs a single network request. A transport failure is
// reported as a non-nil error with a nil Response; HTTP status codes are not
// errors.
type Transport interface {
	Send(ctx context.Context, opts *RequestOptions) (*Response, error)
}

// Func adapts an ordinary function to Transport.
type Func func(ctx context.Context, opts *RequestOptions) (*Response, error)

// Send calls f.
func (f Func) Send(ctx context.Context, opts *RequestOptions) (*Response, error) {
	return f(ctx, opts)
}

// RequestOptions is the transport payload built for one call.
// Retries resend the same RequestOptions value.
type RequestOptions struct {
	Method      string
	URL         string
	Header      map[string]string
	Query       url.Values
	Data        any
	ContentType string
	Timeout     time.Duration
}

// Response is a transport result.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	RawBody    []byte
	// Decoded holds the JSON-decoded body; nil when the body is not JSON.
	Decoded any
}

// NewResponse builds a Response and decodes body as JSON when it parses.
// A body that is not JSON leaves Decoded nil.
func NewResponse(statusCode int, status string, header http.Header, body []byte) *Response {
	if status == "" {
		status = http.StatusText(statusCode)
	}
	if header == nil {
		header = make(http.Header)
	}
	resp := &Response{
		StatusCode: statusCode,
		Status:     status,
		Header:     header,
		RawBody:    body,
	}
	if len(body) > 0 {
		var decoded any
		if err := json.Unmarshal(body, &decoded); err == nil {
			resp.Decoded = decoded
		}
	}
	return resp
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r != nil && IsSuccessStatus(r.StatusCode)
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// Settings configure the built-in adapters. Fields irrelevant to an adapter
// are ignored.
type Settings struct {
	// Timeout is the default per-request timeout for the request adapter.
	Timeout time.Duration
	// Namespace is the waPC binding namespace.
	Namespace string
	// Insecure asks the waPC host to skip TLS verification.
	Insecure bool
	// HostCall overrides the waPC host function.
	HostCall HostCallFunc
	Logger   logger.Logger
}

// Names lists the built-in adapter names in sorted order.
func Names() []string {
	names := []string{NameRequest, NameWAPC, NameHost}
	sort.Strings(names)
	return names
}

// New selects a built-in adapter by name. Unknown names and adapters whose
// host binding is unavailable fail with a *config.ConfigError.
func New(name string, s Settings) (Transport, error) {
	if s.Logger == nil {
		s.Logger = logger.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameRequest:
		return NewRequest(s), nil
	case NameWAPC:
		return NewWAPC(s)
	case NameHost:
		return NewHost()
	case "":
		return nil, config.NewMissingFieldError("client.transport", config.EnvPrefix+"CLIENT_TRANSPORT", "client.transport")
	default:
		return nil, config.NewInvalidFieldError("client.transport", fmt.Sprintf("unknown transport %q", name), Names())
	}
}

// validateOptions rejects payloads no adapter can send.
func validateOptions(opts *RequestOptions) error {
	if opts == nil {
		return NewValidationError("request options cannot be nil", "options")
	}
	if opts.Method == "" {
		return NewValidationError("method cannot be empty", "method")
	}
	if opts.URL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	return nil
}

// encodeBody serializes Data according to the content type.
func encodeBody(opts *RequestOptions) ([]byte, error) {
	if opts.Data == nil {
		return nil, nil
	}
	if raw, ok := opts.Data.([]byte); ok {
		return raw, nil
	}
	if strings.HasPrefix(strings.ToLower(opts.ContentType), ContentTypeForm) {
		return []byte(Values(opts.Data).Encode()), nil
	}
	return json.Marshal(opts.Data)
}

// Values converts a map-shaped argument set into url.Values. Non-string
// values are formatted with fmt.Sprint.
func Values(data any) url.Values {
	out := url.Values{}
	switch v := data.(type) {
	case nil:
	case url.Values:
		for k, vals := range v {
			out[k] = append([]string(nil), vals...)
		}
	case map[string]string:
		for k, val := range v {
			out.Set(k, val)
		}
	case map[string]any:
		for k, val := range v {
			switch tv := val.(type) {
			case []string:
				out[k] = append([]string(nil), tv...)
			case nil:
				out.Set(k, "")
			default:
				out.Set(k, fmt.Sprint(tv))
			}
		}
	}
	return out
}
