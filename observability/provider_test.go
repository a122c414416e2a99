package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	obtest "github.com/gaborage/go-apicall/observability/testing"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()

	assert.Equal(t, "apicall", cfg.ServiceName)
	assert.Equal(t, EnvironmentDevelopment, cfg.Environment)
	assert.Equal(t, EndpointStdout, cfg.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	require.NotNil(t, cfg.SampleRate)
	assert.InDelta(t, 1.0, *cfg.SampleRate, 0.0001)
	assert.Equal(t, defaultExportInterval, cfg.ExportInterval)
}

func TestConfigValidate(t *testing.T) {
	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)

	disabled := Config{Protocol: "carrier-pigeon"}
	assert.NoError(t, disabled.Validate())

	badRate := Config{Enabled: true, SampleRate: Float64Ptr(1.5)}
	assert.ErrorIs(t, badRate.Validate(), ErrInvalidSampleRate)

	badProtocol := Config{Enabled: true, Endpoint: "collector:4318", Protocol: "udp"}
	assert.ErrorIs(t, badProtocol.Validate(), ErrInvalidProtocol)

	stdout := Config{Enabled: true, Endpoint: EndpointStdout, Protocol: "ignored"}
	assert.NoError(t, stdout.Validate())
}

func TestNewProviderDisabledIsNoop(t *testing.T) {
	p, err := NewProvider(&Config{})
	require.NoError(t, err)
	assert.IsType(t, noopProvider{}, p)
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))

	p, err = NewProvider(nil)
	require.NoError(t, err)
	assert.IsType(t, noopProvider{}, p)
}

func TestNewProviderRejectsInvalidConfig(t *testing.T) {
	_, err := NewProvider(&Config{Enabled: true, Endpoint: "collector:4318", Protocol: "udp"})
	assert.ErrorIs(t, err, ErrInvalidProtocol)
	assert.Panics(t, func() {
		MustNewProvider(&Config{Enabled: true, SampleRate: Float64Ptr(-1)})
	})
}

func TestNewProviderStdout(t *testing.T) {
	p, err := NewProvider(&Config{Enabled: true, Endpoint: EndpointStdout})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.NotNil(t, p.TracerProvider())
	assert.NotNil(t, p.MeterProvider())
}

func TestNewProviderOTLPHTTP(t *testing.T) {
	// Exporters connect lazily, so construction succeeds without a collector.
	p, err := NewProvider(&Config{Enabled: true, Endpoint: "localhost:4318", Protocol: ProtocolHTTP, Insecure: true})
	require.NoError(t, err)
	assert.NotNil(t, p.TracerProvider())
}

func TestCallInstrumentsRecordCall(t *testing.T) {
	tp := obtest.NewTestTraceProvider()
	mp := obtest.NewTestMeterProvider()
	ci, err := NewCallInstruments(obtest.NewProvider(tp, mp))
	require.NoError(t, err)

	ctx, scope := ci.StartCall(context.Background(), "GET", "https://api.test/users")
	scope.Attempt(ctx, 1)
	scope.Attempt(ctx, 2)
	scope.HookFailure(ctx, "after")
	scope.End(ctx, OutcomeSuccess, nil)

	span := obtest.NewSpanCollector(t, tp.Exporter).WithName("apicall GET").AssertCount(1).First()
	obtest.AssertSpanAttribute(t, &span, "url.full", "https://api.test/users")
	obtest.AssertSpanAttribute(t, &span, "apicall.outcome", OutcomeSuccess)
	obtest.AssertSpanStatus(t, &span, codes.Ok)

	rm := mp.Collect(t)
	obtest.AssertCounter(t, rm, MetricCalls, 1, attribute.String("outcome", OutcomeSuccess))
	obtest.AssertCounter(t, rm, MetricAttempts, 2)
	obtest.AssertCounter(t, rm, MetricHookFailures, 1, attribute.String("hook", "after"))
	obtest.AssertHistogramCount(t, rm, MetricDuration, 1)
}

func TestCallInstrumentsRecordError(t *testing.T) {
	tp := obtest.NewTestTraceProvider()
	mp := obtest.NewTestMeterProvider()
	ci, err := NewCallInstruments(obtest.NewProvider(tp, mp))
	require.NoError(t, err)

	ctx, scope := ci.StartCall(context.Background(), "POST", "https://api.test/orders")
	scope.End(ctx, OutcomeError, errors.New("mock not found"))

	span := obtest.NewSpanCollector(t, tp.Exporter).WithName("apicall POST").First()
	obtest.AssertSpanStatus(t, &span, codes.Error)
	obtest.AssertCounter(t, mp.Collect(t), MetricCalls, 1, attribute.String("method", "POST"))
}

func TestNilCallInstrumentsAreSafe(t *testing.T) {
	var ci *CallInstruments
	ctx, scope := ci.StartCall(context.Background(), "GET", "")
	assert.NotPanics(t, func() {
		scope.Attempt(ctx, 1)
		scope.HookFailure(ctx, "before")
		scope.End(ctx, OutcomeMock, nil)
	})
}
