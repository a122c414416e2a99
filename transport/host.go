package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gaborage/go-apicall/config"
)

// HostFunc is a request function supplied by an embedding application.
type HostFunc func(ctx context.Context, opts *RequestOptions) (*Response, error)

// ErrNoHost is wrapped by the ConfigError returned when the host adapter is
// selected before RegisterHost.
var ErrNoHost = errors.New("no host request function registered")

var (
	hostMu sync.RWMutex
	hostFn HostFunc
)

// RegisterHost installs the process-wide host request function used by the
// "host" adapter. Passing nil unregisters it. Adapters already created keep
// the function that was registered when they were built.
func RegisterHost(fn HostFunc) {
	hostMu.Lock()
	defer hostMu.Unlock()
	hostFn = fn
}

func registeredHost() HostFunc {
	hostMu.RLock()
	defer hostMu.RUnlock()
	return hostFn
}

// Host delegates every request to the registered host function.
type Host struct {
	fn HostFunc
}

var _ Transport = (*Host)(nil)

// NewHost binds the currently registered host function.
func NewHost() (*Host, error) {
	fn := registeredHost()
	if fn == nil {
		return nil, config.NewUnavailableError("client.transport", "host transport selected but no host function is registered", ErrNoHost)
	}
	return &Host{fn: fn}, nil
}

// Send calls the host function. Errors that are not already a ClientError
// are reported as host errors.
func (h *Host) Send(ctx context.Context, opts *RequestOptions) (resp *Response, err error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, NewHostError("host function panicked", 0, panicError(r))
		}
	}()

	resp, err = h.fn(ctx, opts)
	if err != nil {
		var ce ClientError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, NewHostError("host request failed", 0, err)
	}
	if resp == nil {
		return nil, NewHostError("host returned neither response nor error", 0, nil)
	}
	return resp, nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
