package apiclient

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-apicall/config"
	"github.com/gaborage/go-apicall/logger"
	"github.com/gaborage/go-apicall/observability"
	"github.com/gaborage/go-apicall/transport"
)

const maxBackoff = 30 * time.Second

// Client issues calls against one base URL through one transport.
// It is safe for concurrent use.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	header  map[string]string

	transport   transport.Transport
	hooks       Hooks
	mock        MockTable
	mockDelay   MockDelay
	maxAttempts int
	backoff     time.Duration
	limiter     *rate.Limiter
	log         logger.Logger
	instruments *observability.CallInstruments
	callCount   atomic.Int64
}

// New creates a Client. It fails with a *config.ConfigError when no transport
// is given, the named adapter is unknown or unavailable, or a numeric setting
// is out of range.
func New(cfg Config) (*Client, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	tr := cfg.Transport
	if tr == nil {
		if strings.TrimSpace(cfg.TransportName) == "" {
			return nil, config.NewMissingFieldError("client.transport", config.EnvPrefix+"CLIENT_TRANSPORT", "client.transport")
		}
		settings := cfg.TransportSettings
		if settings.Logger == nil {
			settings.Logger = log
		}
		var err error
		if tr, err = transport.New(cfg.TransportName, settings); err != nil {
			return nil, err
		}
	}

	if cfg.MaxAttempts < 0 {
		return nil, config.NewInvalidFieldError("client.retry.maxattempts", "must not be negative", nil)
	}
	if cfg.RetryBackoff < 0 {
		return nil, config.NewInvalidFieldError("client.retry.backoff", "must not be negative", nil)
	}
	if cfg.MockDelay.Min < 0 || cfg.MockDelay.Max < cfg.MockDelay.Min {
		return nil, config.NewInvalidFieldError("client.mock.delay", fmt.Sprintf("invalid range [%v, %v]", cfg.MockDelay.Min, cfg.MockDelay.Max), nil)
	}

	var instruments *observability.CallInstruments
	if cfg.Observability != nil {
		var err error
		if instruments, err = observability.NewCallInstruments(cfg.Observability); err != nil {
			return nil, config.NewUnavailableError("observability", "cannot register call instruments", err)
		}
	}

	var mock MockTable
	if cfg.Mock != nil {
		mock = make(MockTable, len(cfg.Mock))
		for method, handler := range cfg.Mock {
			mock[strings.ToLower(method)] = handler
		}
	}

	return &Client{
		baseURL:     cfg.URL,
		header:      copyHeader(cfg.Header),
		transport:   tr,
		hooks:       DefaultHooks().Merge(cfg.Hooks),
		mock:        mock,
		mockDelay:   cfg.MockDelay,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		limiter:     cfg.RateLimiter,
		log:         log,
		instruments: instruments,
	}, nil
}

// SetURL replaces the base URL for calls that start afterwards.
func (c *Client) SetURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = url
}

// SetHeader sets a default header for calls that start afterwards.
func (c *Client) SetHeader(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header[name] = value
}

// URL returns the current base URL.
func (c *Client) URL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Header returns a copy of the current default headers.
func (c *Client) Header() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyHeader(c.header)
}

// Get calls action with GET and a JSON content type unless opts.Header sets
// one. The Cache hook is consulted first; a non-nil value is returned without
// running the pipeline.
func (c *Client) Get(ctx context.Context, action string, args Args, opts CallOptions) (any, error) {
	opts.Header = withJSONContentType(opts.Header)
	return c.call(ctx, http.MethodGet, action, args, opts, true)
}

// Post calls action with POST and a JSON content type unless opts.Header sets one.
func (c *Client) Post(ctx context.Context, action string, args Args, opts CallOptions) (any, error) {
	opts.Header = withJSONContentType(opts.Header)
	return c.call(ctx, http.MethodPost, action, args, opts, false)
}

// Call runs the pipeline for method and action. Transport failures are not
// returned; they reach the Results hook, whose value Call returns. The error
// is non-nil only for an empty method, a context that is already done, or a
// missing mock handler.
func (c *Client) Call(ctx context.Context, method, action string, args Args, opts CallOptions) (any, error) {
	return c.call(ctx, method, action, args, opts, false)
}

func (c *Client) call(ctx context.Context, method, action string, args Args, opts CallOptions, useCache bool) (any, error) {
	if strings.TrimSpace(method) == "" {
		return nil, ErrInvalidMethod
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.run(ctx, c.newCall(method, action, args, opts), c.hooks.Merge(opts.Hooks), useCache)
}

func (c *Client) newCall(method, action string, args Args, opts CallOptions) *CallContext {
	c.mu.RLock()
	baseURL := c.baseURL
	header := copyHeader(c.header)
	c.mu.RUnlock()

	return &CallContext{
		Method:        strings.ToUpper(strings.TrimSpace(method)),
		Action:        action,
		Args:          args,
		Header:        copyHeader(opts.Header),
		Options:       opts,
		BaseURL:       baseURL,
		DefaultHeader: header,
	}
}

func (c *Client) run(ctx context.Context, call *CallContext, hooks Hooks, useCache bool) (result any, err error) {
	c.callCount.Add(1)
	ctx, scope := c.instruments.StartCall(ctx, call.Method, call.BaseURL+call.Action)
	outcome := observability.OutcomeError
	defer func() {
		failure := err
		if failure == nil {
			failure = call.Error
		}
		scope.End(ctx, outcome, failure)
	}()

	if useCache && hooks.Cache != nil {
		cached, ok := invokeHook(ctx, c, scope, HookCache, func() (any, error) {
			return hooks.Cache(ctx, call)
		})
		if ok && cached != nil {
			c.log.Debug().
				Str("method", call.Method).
				Str("action", call.Action).
				Msg("API call served from cache")
			outcome = observability.OutcomeCached
			return cached, nil
		}
	}

	runStage(ctx, c, scope, HookBefore, hooks.Before, call)
	defer runStage(ctx, c, scope, HookAfter, hooks.After, call)

	if c.mock != nil {
		result, err = c.runMock(ctx, call)
		if err == nil {
			outcome = observability.OutcomeMock
		}
		return result, err
	}

	opts, ok := invokeHook(ctx, c, scope, HookRequestOpts, func() (*transport.RequestOptions, error) {
		return hooks.RequestOpts(ctx, call)
	})
	if !ok || opts == nil {
		opts, _ = DefaultRequestOpts(ctx, call)
	}
	call.Request = opts

	resp, sendErr := c.send(ctx, scope, call, hooks)
	if sendErr != nil {
		call.Error, call.Response = sendErr, nil
	} else {
		call.Error, call.Response = nil, resp
	}

	results, ok := invokeHook(ctx, c, scope, HookResults, func() (any, error) {
		return hooks.Results(ctx, call)
	})
	if !ok {
		results = nil
	}
	call.Results = results

	switch {
	case call.Error == nil:
		outcome = observability.OutcomeSuccess
	case ctx.Err() != nil:
		outcome = observability.OutcomeCanceled
	}
	return results, nil
}

// send runs the transport loop and returns exactly one of a response or an error.
func (c *Client) send(ctx context.Context, scope *observability.CallScope, call *CallContext, hooks Hooks) (*transport.Response, error) {
	for attempt := 1; ; attempt++ {
		call.Attempt = attempt
		call.Error = nil

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, transport.NewNetworkError("rate limiter rejected attempt", err)
			}
		}

		scope.Attempt(ctx, attempt)
		c.logRequest(call)
		start := time.Now()

		resp, err := c.transport.Send(ctx, call.Request)
		if err == nil && resp == nil {
			err = transport.NewNetworkError("transport returned neither response nor error", nil)
		}
		if err == nil {
			c.logResponse(call, resp, time.Since(start))
			return resp, nil
		}

		c.logFailure(call, err)
		if !call.Options.Retry {
			return nil, err
		}
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			c.log.Warn().
				Str("method", call.Method).
				Str("url", call.Request.URL).
				Int("max_attempts", c.maxAttempts).
				Msg("API call retry limit reached")
			return nil, err
		}

		call.Error = err
		again, ok := invokeHook(ctx, c, scope, HookRetry, func() (bool, error) {
			return hooks.Retry(ctx, call)
		})
		if !ok || !again {
			return nil, err
		}

		if sleepErr := sleep(ctx, c.backoffDelay(attempt)); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

func (c *Client) runMock(ctx context.Context, call *CallContext) (any, error) {
	handler := c.mock[strings.ToLower(call.Method)]
	if handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrMockNotFound, call.Method)
	}

	if err := sleep(ctx, c.mockLatency()); err != nil {
		return nil, err
	}

	result := handler(call.Action, call.Args)
	call.Results = result
	c.log.Debug().
		Str("method", call.Method).
		Str("action", call.Action).
		Msg("API call served by mock")
	return result, nil
}

// mockLatency draws uniformly from [Min, Max], both ends included.
func (c *Client) mockLatency() time.Duration {
	lo, hi := c.mockDelay.Min, c.mockDelay.Max
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)+1))
}

// backoffDelay returns the exponential backoff delay for the given attempt,
// using RetryBackoff as the base. Zero disables the delay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.backoff
	if base <= 0 {
		return 0
	}
	shift := attempt - 1
	if shift > 20 {
		shift = 20
	}
	d := base * time.Duration(1<<shift)
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	// Full jitter in [base, d].
	span := int64(d - base)
	if span <= 0 {
		return base
	}
	n, err := crand.Int(crand.Reader, big.NewInt(span+1))
	if err != nil {
		return d
	}
	return base + time.Duration(n.Int64())
}

func (c *Client) hookFailed(ctx context.Context, scope *observability.CallScope, he *HookError) {
	scope.HookFailure(ctx, he.Hook)
	c.log.Warn().
		Err(he.Err).
		Str("hook", he.Hook).
		Bool("panicked", he.Panicked).
		Msg("API call hook failed")
}

func (c *Client) logRequest(call *CallContext) {
	c.log.Debug().
		Str("direction", "outbound").
		Str("method", call.Request.Method).
		Str("url", call.Request.URL).
		Int("attempt", call.Attempt).
		Interface("headers", call.Request.Header).
		Msg("API call request")
}

func (c *Client) logResponse(call *CallContext, resp *transport.Response, elapsed time.Duration) {
	c.log.Debug().
		Str("direction", "inbound").
		Str("method", call.Method).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Int64("call_count", c.callCount.Load()).
		Msg("API call response")
}

func (c *Client) logFailure(call *CallContext, err error) {
	event := c.log.Warn().
		Err(err).
		Str("method", call.Method).
		Str("url", call.Request.URL).
		Int("attempt", call.Attempt).
		Bool("retry", call.Options.Retry)

	var ce transport.ClientError
	if errors.As(err, &ce) {
		event = event.Str("error_type", string(ce.Type()))
	}
	event.Msg("API call attempt failed")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func withJSONContentType(header map[string]string) map[string]string {
	out := copyHeader(header)
	if _, ok := lookupHeader(out, "content-type"); !ok {
		out["content-type"] = transport.ContentTypeJSON
	}
	return out
}
