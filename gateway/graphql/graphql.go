package graphql

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/filmgraph/metric"
)

// MetricsRecorder wraps resolver work for logging and metrics.
type MetricsRecorder interface {
	RecordMetrics(ctx context.Context, operation string, fn func() error) error
}

// Recorder is the MetricsRecorder used by the service. It logs each call and
// counts outcomes in Prometheus and in local counters.
type Recorder struct {
	logger  *slog.Logger
	metrics *metric.Metrics

	requestsTotal  atomic.Uint64
	requestsFailed atomic.Uint64

	mu           sync.RWMutex
	lastActivity time.Time
}

// NewRecorder creates a recorder. metrics may be nil.
func NewRecorder(logger *slog.Logger, metrics *metric.Metrics) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger, metrics: metrics}
}

// RecordMetrics runs fn and records its outcome under operation.
func (r *Recorder) RecordMetrics(_ context.Context, operation string, fn func() error) error {
	start := time.Now()
	r.requestsTotal.Add(1)

	err := fn()
	duration := time.Since(start)

	if err != nil {
		r.requestsFailed.Add(1)
		r.logger.Warn("GraphQL operation failed",
			"operation", operation,
			"duration", duration,
			"error", err)
	} else {
		r.logger.Debug("GraphQL operation succeeded",
			"operation", operation,
			"duration", duration)
	}
	r.metrics.RecordResolver(operation, err)

	r.mu.Lock()
	r.lastActivity = time.Now()
	r.mu.Unlock()

	return err
}

// Stats returns the number of recorded calls, the number that failed and the
// time of the last call.
func (r *Recorder) Stats() (total, failed uint64, lastActivity time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.requestsTotal.Load(), r.requestsFailed.Load(), r.lastActivity
}

// NopRecorder runs fn without recording anything.
type NopRecorder struct{}

// RecordMetrics runs fn.
func (NopRecorder) RecordMetrics(_ context.Context, _ string, fn func() error) error {
	return fn()
}

var (
	_ MetricsRecorder = (*Recorder)(nil)
	_ MetricsRecorder = NopRecorder{}
)
