package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	proto "github.com/tarmac-project/protobuf-go/sdk/http"
	wapc "github.com/wapc/wapc-guest-tinygo"

	"github.com/gaborage/go-apicall/config"
	"github.com/gaborage/go-apicall/trace"
)

// DefaultNamespace is the waPC binding used when Settings.Namespace is empty.
const DefaultNamespace = "tarmac"

const (
	hostStatusOK      = int32(200)
	hostStatusPartial = int32(206)
)

// HostCallFunc matches wapc.HostCall.
type HostCallFunc func(binding, namespace, operation string, payload []byte) ([]byte, error)

// ErrWAPCUnavailable is wrapped by the ConfigError returned when the waPC
// adapter is selected outside a WebAssembly guest without an injected host call.
var ErrWAPCUnavailable = errors.New("waPC host binding is only available inside a WebAssembly guest")

// WAPC sends requests through the waPC host's httpclient capability.
type WAPC struct {
	namespace string
	insecure  bool
	hostCall  HostCallFunc
}

var _ Transport = (*WAPC)(nil)

// NewWAPC creates the waPC adapter.
func NewWAPC(s Settings) (*WAPC, error) {
	hostCall := s.HostCall
	if hostCall == nil {
		if runtime.GOARCH != "wasm" {
			return nil, config.NewUnavailableError("client.transport", "wapc transport selected outside a WebAssembly guest", ErrWAPCUnavailable)
		}
		hostCall = wapc.HostCall
	}

	namespace := s.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &WAPC{namespace: namespace, insecure: s.Insecure, hostCall: hostCall}, nil
}

// Send marshals opts into an HTTPClient message and performs the host call.
// The host call is synchronous; ctx is only checked before it starts.
func (w *WAPC) Send(ctx context.Context, opts *RequestOptions) (*Response, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, NewNetworkError("request canceled", err)
	}

	req, err := w.buildRequest(ctx, opts)
	if err != nil {
		return nil, err
	}

	b, err := req.MarshalVT()
	if err != nil {
		return nil, NewValidationError("failed to marshal host request: "+err.Error(), "options")
	}

	raw, err := w.hostCall(w.namespace, "httpclient", "call", b)
	if err != nil {
		return nil, NewHostError("host call failed", 0, err)
	}

	var r proto.HTTPClientResponse
	if err := r.UnmarshalVT(raw); err != nil {
		return nil, NewHostError("failed to unmarshal host response", 0, err)
	}

	status := r.GetStatus()
	if status == nil {
		return nil, NewHostError("host response missing status", 0, nil)
	}
	switch code := status.GetCode(); code {
	case hostStatusOK, hostStatusPartial:
	default:
		detail := fmt.Sprintf("host status %d", code)
		if msg := status.GetStatus(); msg != "" {
			detail = fmt.Sprintf("%s: %s", detail, msg)
		}
		return nil, NewHostError(detail, code, nil)
	}

	header := make(http.Header, len(r.GetHeaders()))
	for name, h := range r.GetHeaders() {
		header[http.CanonicalHeaderKey(name)] = h.GetValues()
	}

	return NewResponse(int(r.GetCode()), "", header, r.GetBody()), nil
}

func (w *WAPC) buildRequest(ctx context.Context, opts *RequestOptions) (*proto.HTTPClient, error) {
	target := opts.URL
	if len(opts.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + opts.Query.Encode()
	}

	flat := make(map[string]string, len(opts.Header)+3)
	for k, v := range opts.Header {
		flat[k] = v
	}
	trace.Inject(ctx, flat)

	body, err := encodeBody(opts)
	if err != nil {
		return nil, NewValidationError("cannot encode request body: "+err.Error(), "data")
	}
	if body != nil && opts.ContentType != "" && !hasHeader(flat, "Content-Type") {
		flat["Content-Type"] = opts.ContentType
	}

	headers := make(map[string]*proto.Header, len(flat))
	for k, v := range flat {
		headers[k] = &proto.Header{Values: []string{v}}
	}

	return &proto.HTTPClient{
		Method:   opts.Method,
		Url:      target,
		Insecure: w.insecure,
		Headers:  headers,
		Body:     body,
	}, nil
}
