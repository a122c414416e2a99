package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gaborage/go-apicall/observability"
	"github.com/gaborage/go-apicall/transport"
)

// Hook names used in logs, HookError and the apicall.hook.failures metric.
const (
	HookBefore      = "before"
	HookAfter       = "after"
	HookRequestOpts = "requestOpts"
	HookRetry       = "retry"
	HookResults     = "results"
	HookCache       = "cache"
)

// StageHook runs for its side effects before or after a call.
type StageHook func(ctx context.Context, call *CallContext) error

// RequestOptsHook builds the transport payload for a call.
type RequestOptsHook func(ctx context.Context, call *CallContext) (*transport.RequestOptions, error)

// RetryHook decides whether a failed attempt is sent again.
type RetryHook func(ctx context.Context, call *CallContext) (bool, error)

// ResultsHook computes the value a call returns.
type ResultsHook func(ctx context.Context, call *CallContext) (any, error)

// CacheHook is consulted by Get before the pipeline runs. A non-nil value is
// returned to the caller without touching the network.
type CacheHook func(ctx context.Context, call *CallContext) (any, error)

// Hooks are the extension points of the call pipeline. A nil field means the
// default behavior. A hook that errors or panics contributes nothing and the
// pipeline carries on.
type Hooks struct {
	Before      StageHook
	After       StageHook
	RequestOpts RequestOptsHook
	Retry       RetryHook
	Results     ResultsHook
	Cache       CacheHook
}

// DefaultHooks returns the hooks used where a client leaves a field nil.
func DefaultHooks() Hooks {
	return Hooks{
		Before:      func(context.Context, *CallContext) error { return nil },
		After:       func(context.Context, *CallContext) error { return nil },
		RequestOpts: DefaultRequestOpts,
		Retry:       func(context.Context, *CallContext) (bool, error) { return false, nil },
		Results:     DefaultResults,
	}
}

// Merge returns h with every non-nil field of override applied.
func (h Hooks) Merge(override Hooks) Hooks {
	if override.Before != nil {
		h.Before = override.Before
	}
	if override.After != nil {
		h.After = override.After
	}
	if override.RequestOpts != nil {
		h.RequestOpts = override.RequestOpts
	}
	if override.Retry != nil {
		h.Retry = override.Retry
	}
	if override.Results != nil {
		h.Results = override.Results
	}
	if override.Cache != nil {
		h.Cache = override.Cache
	}
	return h
}

// DefaultRequestOpts appends the action to the base URL, merges default
// headers under the call's headers, and puts args in the query string for
// GET or in the body otherwise.
func DefaultRequestOpts(_ context.Context, call *CallContext) (*transport.RequestOptions, error) {
	header := copyHeader(call.DefaultHeader)
	for k, v := range call.Header {
		header[k] = v
	}

	opts := &transport.RequestOptions{
		Method:      call.Method,
		URL:         call.BaseURL + call.Action,
		Header:      header,
		ContentType: call.HeaderValue("Content-Type"),
		Timeout:     call.Options.Timeout,
	}

	if call.Method == http.MethodGet {
		if len(call.Args) > 0 {
			opts.Query = transport.Values(map[string]any(call.Args))
		}
	} else if call.Args != nil {
		opts.Data = map[string]any(call.Args)
	}

	return opts, nil
}

// DefaultResults returns the response on success and nil on failure.
func DefaultResults(_ context.Context, call *CallContext) (any, error) {
	if call.Error != nil {
		return nil, nil
	}
	return call.Response, nil
}

// invokeHook runs fn and reports whether it produced a value. Errors and
// panics are logged, counted and turned into ok == false.
func invokeHook[T any](ctx context.Context, c *Client, scope *observability.CallScope, name string, fn func() (T, error)) (value T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err, isErr := r.(error)
			if !isErr {
				err = fmt.Errorf("%v", r)
			}
			c.hookFailed(ctx, scope, &HookError{Hook: name, Err: err, Panicked: true})
			var zero T
			value, ok = zero, false
		}
	}()

	value, err := fn()
	if err != nil {
		c.hookFailed(ctx, scope, &HookError{Hook: name, Err: err})
		var zero T
		return zero, false
	}
	return value, true
}

func runStage(ctx context.Context, c *Client, scope *observability.CallScope, name string, hook StageHook, call *CallContext) {
	if hook == nil {
		return
	}
	invokeHook(ctx, c, scope, name, func() (struct{}, error) {
		return struct{}{}, hook(ctx, call)
	})
}
