// Package testing provides in-memory OpenTelemetry providers and assertions
// for checking API call spans and metrics without an external collector.
//
// Usage:
//
//	tp := NewTestTraceProvider()
//	mp := NewTestMeterProvider()
//	p := NewProvider(tp, mp)
//	// ... build a client with p and make calls ...
//	spans := NewSpanCollector(t, tp.Exporter).WithName("apicall GET").AssertCount(1)
//	AssertCounter(t, mp.Collect(t), "apicall.calls", 1)
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// TestTraceProvider wraps the SDK TracerProvider and in-memory exporter for testing.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider that exports synchronously to memory.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	return &TestTraceProvider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
	}
}

// TestMeterProvider wraps the SDK MeterProvider and a manual reader for testing.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider that is collected on demand.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads all metrics recorded so far.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// Provider adapts a test trace and meter provider pair to observability.Provider.
type Provider struct {
	Traces  *TestTraceProvider
	Metrics *TestMeterProvider
}

// NewProvider bundles tp and mp.
func NewProvider(tp *TestTraceProvider, mp *TestMeterProvider) *Provider {
	return &Provider{Traces: tp, Metrics: mp}
}

func (p *Provider) TracerProvider() trace.TracerProvider { return p.Traces.TracerProvider }
func (p *Provider) MeterProvider() metric.MeterProvider  { return p.Metrics.MeterProvider }

func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.Traces.Shutdown(ctx); err != nil {
		return err
	}
	return p.Metrics.Shutdown(ctx)
}

func (p *Provider) ForceFlush(ctx context.Context) error {
	if err := p.Traces.ForceFlush(ctx); err != nil {
		return err
	}
	return p.Metrics.ForceFlush(ctx)
}

// SpanCollector filters captured spans fluently.
type SpanCollector struct {
	t     *testing.T
	spans tracetest.SpanStubs
}

// NewSpanCollector snapshots the spans held by exporter.
func NewSpanCollector(t *testing.T, exporter *tracetest.InMemoryExporter) *SpanCollector {
	t.Helper()
	return &SpanCollector{t: t, spans: exporter.GetSpans()}
}

// Len returns the number of collected spans.
func (sc *SpanCollector) Len() int {
	return len(sc.spans)
}

// WithName keeps only spans named name.
func (sc *SpanCollector) WithName(name string) *SpanCollector {
	filtered := make(tracetest.SpanStubs, 0, len(sc.spans))
	for i := range sc.spans {
		if sc.spans[i].Name == name {
			filtered = append(filtered, sc.spans[i])
		}
	}
	return &SpanCollector{t: sc.t, spans: filtered}
}

// First returns the first span, failing the test when there is none.
func (sc *SpanCollector) First() tracetest.SpanStub {
	sc.t.Helper()
	require.NotEmpty(sc.t, sc.spans, "no spans in collection")
	return sc.spans[0]
}

// AssertCount asserts the number of collected spans.
func (sc *SpanCollector) AssertCount(expected int) *SpanCollector {
	sc.t.Helper()
	assert.Len(sc.t, sc.spans, expected, "unexpected number of spans")
	return sc
}

// AssertSpanAttribute asserts that span carries key with the string value expected.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key, expected string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) {
			assert.Equal(t, expected, attr.Value.Emit(), "attribute %s value mismatch", key)
			return
		}
	}
	t.Errorf("attribute %s not found on span %s", key, span.Name)
}

// AssertSpanStatus asserts the span status code.
func AssertSpanStatus(t *testing.T, span *tracetest.SpanStub, expected codes.Code) {
	t.Helper()
	assert.Equal(t, expected, span.Status.Code, "span status mismatch")
}

// FindMetric returns the metric named name, or nil.
func FindMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// CounterValue sums an Int64 counter across the data points whose attributes
// include every attribute in match.
func CounterValue(rm metricdata.ResourceMetrics, name string, match ...attribute.KeyValue) int64 {
	m := FindMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}

	var total int64
	for _, dp := range sum.DataPoints {
		if hasAttributes(dp.Attributes, match) {
			total += dp.Value
		}
	}
	return total
}

// AssertCounter asserts the summed value of an Int64 counter.
func AssertCounter(t *testing.T, rm metricdata.ResourceMetrics, name string, expected int64, match ...attribute.KeyValue) {
	t.Helper()
	require.NotNil(t, FindMetric(rm, name), "metric %s not found", name)
	assert.Equal(t, expected, CounterValue(rm, name, match...), "metric %s value mismatch", name)
}

// AssertHistogramCount asserts how many values a Float64 histogram recorded.
func AssertHistogramCount(t *testing.T, rm metricdata.ResourceMetrics, name string, expected uint64) {
	t.Helper()
	m := FindMetric(rm, name)
	require.NotNil(t, m, "metric %s not found", name)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is %T, not a float64 histogram", name, m.Data)

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, expected, count, "metric %s count mismatch", name)
}

func hasAttributes(set attribute.Set, match []attribute.KeyValue) bool {
	for _, kv := range match {
		v, ok := set.Value(kv.Key)
		if !ok || v.Type() != kv.Value.Type() || v.Emit() != kv.Value.Emit() {
			return false
		}
	}
	return true
}
