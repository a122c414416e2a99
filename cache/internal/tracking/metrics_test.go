package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeterProvider(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	ResetForTesting()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		otel.SetMeterProvider(prev)
		ResetForTesting()
	})

	return reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRecordCacheOperationHitsAndMisses(t *testing.T) {
	reader := setupTestMeterProvider(t)
	ctx := context.Background()

	RecordCacheOperation(ctx, SystemMemory, OpGet, time.Millisecond, true, nil)
	RecordCacheOperation(ctx, SystemMemory, OpGet, time.Millisecond, true, nil)
	RecordCacheOperation(ctx, SystemMemory, OpGet, time.Millisecond, false, nil)
	RecordCacheOperation(ctx, SystemMemory, OpSet, time.Millisecond, false, nil)

	metrics := collect(t, reader)

	hits, ok := metrics[metricCacheHit].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, hits.DataPoints, 1)
	assert.Equal(t, int64(2), hits.DataPoints[0].Value)

	misses, ok := metrics[metricCacheMiss].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, misses.DataPoints, 1)
	assert.Equal(t, int64(1), misses.DataPoints[0].Value)

	duration, ok := metrics[metricCacheOperationDuration].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var total uint64
	for _, dp := range duration.DataPoints {
		total += dp.Count
	}
	assert.Equal(t, uint64(4), total)
}

func TestRecordCacheOperationErrorType(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordCacheOperation(context.Background(), SystemRedis, OpSet, time.Millisecond, false, errors.New("connection refused"))

	metrics := collect(t, reader)
	duration, ok := metrics[metricCacheOperationDuration].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, duration.DataPoints, 1)

	v, found := duration.DataPoints[0].Attributes.Value(attribute.Key(attrErrorType))
	require.True(t, found)
	assert.Equal(t, "connection_error", v.AsString())

	sys, _ := duration.DataPoints[0].Attributes.Value(attribute.Key(attrDBSystem))
	assert.Equal(t, SystemRedis, sys.AsString())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{errors.New("dial: Connection reset"), "connection_error"},
		{errors.New("i/o timeout"), "timeout"},
		{errors.New("cache: store closed"), "closed"},
		{errors.New("boom"), "error"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, classifyError(tc.err))
		})
	}
}
