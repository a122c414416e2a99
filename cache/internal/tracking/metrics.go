// Package tracking records cache store metrics on the global meter provider.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	cacheMeterName = "go-apicall/cache"

	metricCacheOperationDuration = "db.client.operation.duration" // Histogram in seconds
	metricCacheHit               = "cache.hit"
	metricCacheMiss              = "cache.miss"

	attrDBSystem       = "db.system.name"
	attrDBOperation    = "db.operation.name"
	attrErrorType      = "error.type"
	attrCacheHitStatus = "cache.hit"
)

// Cache operation names
const (
	OpGet    = "get"
	OpSet    = "set"
	OpDelete = "delete"
	OpHealth = "ping"
)

// Store systems reported in db.system.name.
const (
	SystemMemory = "memory"
	SystemRedis  = "redis"
)

var (
	meterMu sync.Mutex
	inited  bool

	cacheOperationDuration metric.Float64Histogram
	cacheHitCounter        metric.Int64Counter
	cacheMissCounter       metric.Int64Counter
)

func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize cache metric %s: %v\n", metricName, err)
	}
}

// ensureInstruments binds the instruments to whatever meter provider is
// global the first time a store operation is recorded.
func ensureInstruments() {
	meterMu.Lock()
	defer meterMu.Unlock()
	if inited {
		return
	}

	meter := otel.Meter(cacheMeterName)

	var err error
	cacheOperationDuration, err = meter.Float64Histogram(
		metricCacheOperationDuration,
		metric.WithDescription("Duration of cache store operations"),
		metric.WithUnit("s"),
	)
	logMetricError(metricCacheOperationDuration, err)

	cacheHitCounter, err = meter.Int64Counter(
		metricCacheHit,
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	logMetricError(metricCacheHit, err)

	cacheMissCounter, err = meter.Int64Counter(
		metricCacheMiss,
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	logMetricError(metricCacheMiss, err)

	inited = true
}

// RecordCacheOperation records the duration of one store operation. Get
// operations also count a hit or a miss.
func RecordCacheOperation(ctx context.Context, system, operation string, duration time.Duration, hit bool, err error) {
	ensureInstruments()

	attrs := []attribute.KeyValue{
		attribute.String(attrDBSystem, system),
		attribute.String(attrDBOperation, operation),
	}
	if operation == OpGet {
		attrs = append(attrs, attribute.Bool(attrCacheHitStatus, hit))
	}
	if err != nil {
		attrs = append(attrs, attribute.String(attrErrorType, classifyError(err)))
	}

	opt := metric.WithAttributes(attrs...)
	if cacheOperationDuration != nil {
		cacheOperationDuration.Record(ctx, duration.Seconds(), opt)
	}

	if operation != OpGet {
		return
	}
	if hit && cacheHitCounter != nil {
		cacheHitCounter.Add(ctx, 1, opt)
	}
	if !hit && cacheMissCounter != nil {
		cacheMissCounter.Add(ctx, 1, opt)
	}
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection"):
		return "connection_error"
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "closed"):
		return "closed"
	default:
		return "error"
	}
}

// ResetForTesting drops the bound instruments so the next operation binds to
// the current global meter provider.
func ResetForTesting() {
	meterMu.Lock()
	defer meterMu.Unlock()
	inited = false
	cacheOperationDuration = nil
	cacheHitCounter = nil
	cacheMissCounter = nil
}
