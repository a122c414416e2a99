package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer and meter name used for API call telemetry.
const InstrumentationName = "github.com/gaborage/go-apicall"

// Metric names recorded per call.
const (
	MetricCalls        = "apicall.calls"
	MetricAttempts     = "apicall.attempts"
	MetricHookFailures = "apicall.hook.failures"
	MetricDuration     = "apicall.duration"
)

// Call outcomes reported on the apicall.calls counter.
const (
	OutcomeSuccess  = "success"
	OutcomeMock     = "mock"
	OutcomeCached   = "cached"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// CreateCounter creates a monotonic Int64 counter with a description.
func CreateCounter(meter metric.Meter, name, description string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return meter.Int64Counter(
		name,
		append([]metric.Int64CounterOption{
			metric.WithDescription(description),
		}, opts...)...,
	)
}

// CreateHistogram creates a Float64 histogram with a description.
func CreateHistogram(meter metric.Meter, name, description string, opts ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return meter.Float64Histogram(
		name,
		append([]metric.Float64HistogramOption{
			metric.WithDescription(description),
		}, opts...)...,
	)
}

// CallInstruments holds the tracer and meters used around every API call.
// A nil *CallInstruments is valid and records nothing.
type CallInstruments struct {
	tracer       trace.Tracer
	calls        metric.Int64Counter
	attempts     metric.Int64Counter
	hookFailures metric.Int64Counter
	duration     metric.Float64Histogram
}

// NewCallInstruments registers the call instruments on p.
func NewCallInstruments(p Provider) (*CallInstruments, error) {
	if p == nil {
		p = NewNoopProvider()
	}
	meter := p.MeterProvider().Meter(InstrumentationName)

	calls, err := CreateCounter(meter, MetricCalls, "Completed API calls by method and outcome")
	if err != nil {
		return nil, err
	}
	attempts, err := CreateCounter(meter, MetricAttempts, "Transport attempts made by API calls")
	if err != nil {
		return nil, err
	}
	hookFailures, err := CreateCounter(meter, MetricHookFailures, "Hook invocations that failed or panicked")
	if err != nil {
		return nil, err
	}
	duration, err := CreateHistogram(meter, MetricDuration, "API call duration in milliseconds", metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &CallInstruments{
		tracer:       p.TracerProvider().Tracer(InstrumentationName),
		calls:        calls,
		attempts:     attempts,
		hookFailures: hookFailures,
		duration:     duration,
	}, nil
}

// CallScope tracks one in-flight call. All methods are safe on a scope
// returned from a nil *CallInstruments.
type CallScope struct {
	ci     *CallInstruments
	span   trace.Span
	method string
	start  time.Time
}

// StartCall opens the "apicall <METHOD>" span and starts the duration clock.
func (ci *CallInstruments) StartCall(ctx context.Context, method, url string) (context.Context, *CallScope) {
	scope := &CallScope{ci: ci, method: method, start: time.Now()}
	if ci == nil {
		return ctx, scope
	}
	ctx, scope.span = ci.tracer.Start(ctx, "apicall "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", url),
		),
	)
	return ctx, scope
}

// Attempt records a transport attempt numbered from 1.
func (s *CallScope) Attempt(ctx context.Context, n int) {
	if s == nil || s.ci == nil {
		return
	}
	s.ci.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("method", s.method)))
	s.span.AddEvent("attempt", trace.WithAttributes(attribute.Int("apicall.attempt", n)))
}

// HookFailure records a failed or panicking hook.
func (s *CallScope) HookFailure(ctx context.Context, hook string) {
	if s == nil || s.ci == nil {
		return
	}
	s.ci.hookFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("hook", hook)))
}

// End closes the span and records the call counter and duration.
func (s *CallScope) End(ctx context.Context, outcome string, err error) {
	if s == nil || s.ci == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", s.method),
		attribute.String("outcome", outcome),
	)
	s.ci.calls.Add(ctx, 1, attrs)
	s.ci.duration.Record(ctx, float64(time.Since(s.start).Microseconds())/1000.0, attrs)

	s.span.SetAttributes(attribute.String("apicall.outcome", outcome))
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
