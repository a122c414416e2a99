package transport

import (
	"context"
	"errors"
	"net"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"

	"github.com/gaborage/go-apicall/logger"
	"github.com/gaborage/go-apicall/trace"
)

// DefaultTimeout applies when neither Settings nor RequestOptions carry one.
const DefaultTimeout = 30 * time.Second

// Request is the built-in HTTP adapter. All calls made through one Request
// share a cookie jar.
type Request struct {
	client  *resty.Client
	timeout time.Duration
}

var _ Transport = (*Request)(nil)

// NewRequest creates the HTTP adapter.
func NewRequest(s Settings) *Request {
	if s.Logger == nil {
		s.Logger = logger.Nop()
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	client := resty.New().
		SetLogger(restyLogger{log: s.Logger}).
		SetCookieJar(jar)

	return &Request{client: client, timeout: timeout}
}

// Send issues opts over HTTP. Non-2xx statuses are returned as responses.
func (r *Request) Send(ctx context.Context, opts *RequestOptions) (*Response, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	header := make(map[string]string, len(opts.Header)+3)
	for k, v := range opts.Header {
		header[k] = v
	}
	trace.Inject(ctx, header)

	req := r.client.R().
		SetContext(ctx).
		SetHeaders(header)
	if len(opts.Query) > 0 {
		req.SetQueryParamsFromValues(opts.Query)
	}

	body, err := encodeBody(opts)
	if err != nil {
		return nil, NewValidationError("cannot encode request body: "+err.Error(), "data")
	}
	if body != nil {
		if opts.ContentType != "" && !hasHeader(header, "Content-Type") {
			req.SetHeader("Content-Type", opts.ContentType)
		}
		req.SetBody(body)
	}

	resp, err := req.Execute(opts.Method, opts.URL)
	if err != nil {
		if isTimeout(err) {
			return nil, NewTimeoutError("request timeout", timeout, err)
		}
		return nil, NewNetworkError("request execution failed", err)
	}

	return NewResponse(resp.StatusCode(), resp.Status(), resp.Header(), resp.Body()), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func hasHeader(header map[string]string, name string) bool {
	for k := range header {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// restyLogger routes resty's internal diagnostics to the client logger.
type restyLogger struct {
	log logger.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.log.Error().Str("component", "resty").Msgf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.log.Warn().Str("component", "resty").Msgf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.log.Debug().Str("component", "resty").Msgf(format, v...)
}
