// Package trace carries request correlation identifiers through a context and
// stamps them onto outbound API calls.
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	traceParentKey contextKey = "traceparent"
	traceStateKey  contextKey = "tracestate"

	// HeaderXRequestID is the header used to correlate a call with server-side logs
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID stored in ctx, if any
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureRequestID returns the request ID from ctx or generates a new one
func EnsureRequestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.New().String()
}

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns a traceparent from context if present
func ParentFromContext(ctx context.Context) (string, bool) {
	if tp, ok := ctx.Value(traceParentKey).(string); ok && tp != "" {
		return tp, true
	}
	return "", false
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

// StateFromContext returns a tracestate from context if present
func StateFromContext(ctx context.Context) (string, bool) {
	if ts, ok := ctx.Value(traceStateKey).(string); ok && ts != "" {
		return ts, true
	}
	return "", false
}

// Inject fills correlation headers that are not already present in header.
// Existing values always win. When the context carries a traceparent but no
// request ID, the request ID is derived from the traceparent's trace-id so
// both identifiers line up in downstream logs.
func Inject(ctx context.Context, header map[string]string) {
	if header == nil {
		return
	}

	tp, hasTP := ParentFromContext(ctx)
	if !hasHeader(header, HeaderTraceParent) && hasTP {
		header[HeaderTraceParent] = tp
	}
	if ts, ok := StateFromContext(ctx); ok && !hasHeader(header, HeaderTraceState) {
		header[HeaderTraceState] = ts
	}

	if hasHeader(header, HeaderXRequestID) {
		return
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		header[HeaderXRequestID] = id
		return
	}
	if hasTP {
		if traceID := traceIDFromParent(tp); traceID != "" {
			header[HeaderXRequestID] = traceID
			return
		}
	}
	header[HeaderXRequestID] = uuid.New().String()
}

// GenerateTraceParent creates a minimal W3C traceparent header value.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2), e.g., "00-<32>-<16>-01"
func GenerateTraceParent() string {
	traceID := make([]byte, 16)
	spanID := make([]byte, 8)
	if _, err := crand.Read(traceID); err != nil {
		traceID = make([]byte, 16)
	}
	if _, err := crand.Read(spanID); err != nil {
		spanID = make([]byte, 8)
	}
	if allZero(traceID) {
		traceID[len(traceID)-1] = 0x01
	}
	if allZero(spanID) {
		spanID[len(spanID)-1] = 0x01
	}
	return "00-" + hex.EncodeToString(traceID) + "-" + hex.EncodeToString(spanID) + "-01"
}

func traceIDFromParent(tp string) string {
	parts := strings.Split(tp, "-")
	if len(parts) != 4 || len(parts[1]) != 32 {
		return ""
	}
	return strings.ToLower(parts[1])
}

// hasHeader reports whether header holds a non-empty value for name, ignoring case.
func hasHeader(header map[string]string, name string) bool {
	for k, v := range header {
		if strings.EqualFold(k, name) && v != "" {
			return true
		}
	}
	return false
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
