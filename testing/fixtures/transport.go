// Package fixtures provides pre-configured transports for client tests.
package fixtures

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gaborage/go-apicall/testing/mocks"
	"github.com/gaborage/go-apicall/transport"
)

// ErrUpstreamDown is the cause wrapped by failing fixtures.
var ErrUpstreamDown = errors.New("upstream down")

// NewWorkingTransport creates a mock transport that answers every request
// with 200 and body. This is useful for testing happy path scenarios.
func NewWorkingTransport(body string) *mocks.MockTransport {
	m := &mocks.MockTransport{}
	m.ExpectSendAny(mocks.JSONResponse(http.StatusOK, body), nil)
	return m
}

// NewFailingTransport creates a mock transport that returns a network error
// failures times and then answers with 200 and body. A negative failures
// value fails forever.
func NewFailingTransport(failures int, body string) *mocks.MockTransport {
	m := &mocks.MockTransport{}
	netErr := transport.NewNetworkError("connection refused", ErrUpstreamDown)

	if failures < 0 {
		m.ExpectSendAny(nil, netErr)
		return m
	}
	for i := 0; i < failures; i++ {
		m.ExpectSendAny(nil, netErr).Once()
	}
	m.ExpectSendAny(mocks.JSONResponse(http.StatusOK, body), nil)
	return m
}

// Recorder is a transport that stores a copy of every request and answers
// with a fixed response.
type Recorder struct {
	mu       sync.Mutex
	requests []transport.RequestOptions
	Response *transport.Response
	Err      error
}

// NewRecorder creates a Recorder answering 200 with an empty JSON object.
func NewRecorder() *Recorder {
	return &Recorder{Response: mocks.JSONResponse(http.StatusOK, `{}`)}
}

// Send implements transport.Transport.
func (r *Recorder) Send(_ context.Context, opts *transport.RequestOptions) (*transport.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, *opts)
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Response, nil
}

// Requests returns the recorded requests in arrival order.
func (r *Recorder) Requests() []transport.RequestOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transport.RequestOptions(nil), r.requests...)
}

// Count returns how many requests were recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}
