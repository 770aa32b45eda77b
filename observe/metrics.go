package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exports request execution metrics to the configured meter.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRun records a completed request run with duration and error status.
	RecordRun(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordCacheLookup records one cache lookup and whether it hit.
	RecordCacheLookup(ctx context.Context, operation string, hit bool)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheLookups metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"request.exec.total",
		metric.WithDescription("Total number of request executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"request.exec.errors",
		metric.WithDescription("Total number of request execution errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"request.exec.duration_ms",
		metric.WithDescription("Request execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"request.cache.lookups",
		metric.WithDescription("Total number of cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		cacheLookups: cacheLookups,
	}, nil
}

// RecordRun records metrics for a completed request run.
func (m *metricsImpl) RecordRun(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("op.name", meta.Operation),
	}
	if meta.Dataset != "" {
		attrs = append(attrs, attribute.String("op.dataset", meta.Dataset))
	}

	opt := metric.WithAttributes(attrs...)

	// Always increment total counter
	m.totalCount.Add(ctx, 1, opt)

	// Increment error counter on failure
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	// Record duration in milliseconds
	durationMs := float64(duration.Microseconds()) / 1000.0
	m.durationHist.Record(ctx, durationMs, opt)
}

// RecordCacheLookup records one cache lookup with its outcome.
func (m *metricsImpl) RecordCacheLookup(ctx context.Context, operation string, hit bool) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op.name", operation),
		attribute.Bool("cache.hit", hit),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordRun(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordCacheLookup(ctx context.Context, operation string, hit bool) {}

// NewNoopMetrics returns a Metrics implementation that discards everything.
func NewNoopMetrics() Metrics { return &noopMetrics{} }
