// Package mocks provides testify-based mocks for go-apicall interfaces.
package mocks

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/go-apicall/transport"
)

// MockTransport provides a testify-based mock implementation of transport.Transport.
//
// Example usage:
//
//	mockTransport := &mocks.MockTransport{}
//	mockTransport.ExpectSend(mocks.MatchURL("https://api.test/users"), mocks.JSONResponse(200, `{"id":1}`), nil)
//
//	client, _ := apiclient.New(apiclient.Config{URL: "https://api.test", Transport: mockTransport})
//	client.Get(ctx, "/users", nil, apiclient.CallOptions{})
//	mockTransport.AssertExpectations(t)
type MockTransport struct {
	mock.Mock
}

var _ transport.Transport = (*MockTransport)(nil)

// Send implements transport.Transport
func (m *MockTransport) Send(ctx context.Context, opts *transport.RequestOptions) (*transport.Response, error) {
	arguments := m.Called(ctx, opts)

	var resp *transport.Response
	if r := arguments.Get(0); r != nil {
		resp = r.(*transport.Response)
	}
	return resp, arguments.Error(1)
}

// ExpectSend sets up a Send expectation for options matching optsMatcher.
// Pass mock.Anything to match every request.
func (m *MockTransport) ExpectSend(optsMatcher any, resp *transport.Response, err error) *mock.Call {
	return m.On("Send", mock.Anything, optsMatcher).Return(resp, err)
}

// ExpectSendAny sets up a Send expectation that matches every request.
func (m *MockTransport) ExpectSendAny(resp *transport.Response, err error) *mock.Call {
	return m.ExpectSend(mock.Anything, resp, err)
}

// MatchURL matches RequestOptions whose URL equals url.
func MatchURL(url string) any {
	return mock.MatchedBy(func(opts *transport.RequestOptions) bool {
		return opts != nil && opts.URL == url
	})
}

// MatchMethod matches RequestOptions whose Method equals method.
func MatchMethod(method string) any {
	return mock.MatchedBy(func(opts *transport.RequestOptions) bool {
		return opts != nil && opts.Method == method
	})
}

// JSONResponse builds a response with a JSON body.
func JSONResponse(statusCode int, body string) *transport.Response {
	header := http.Header{}
	header.Set("Content-Type", transport.ContentTypeJSON)
	return transport.NewResponse(statusCode, "", header, []byte(body))
}
