package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "filmgraph"

// Metrics contains the service-level metrics shared by the GraphQL gateway,
// the storage gateway and the metadata client.
type Metrics struct {
	// GraphQL metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	FieldErrors     *prometheus.CounterVec
	ResolverCalls   *prometheus.CounterVec

	// Storage metrics
	StorageOperations *prometheus.CounterVec
	StorageDuration   *prometheus.HistogramVec

	// Upstream metrics
	UpstreamRequests *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "requests_total",
				Help:      "Total number of GraphQL requests by operation and HTTP status",
			},
			[]string{"operation", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "request_duration_seconds",
				Help:      "GraphQL request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		FieldErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "field_errors_total",
				Help:      "Total number of GraphQL errors by extension code",
			},
			[]string{"code"},
		),

		ResolverCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "resolver_calls_total",
				Help:      "Total number of resolver calls by field and outcome",
			},
			[]string{"field", "status"},
		),

		StorageOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "operations_total",
				Help:      "Total number of storage operations by outcome",
			},
			[]string{"operation", "status"},
		),

		StorageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "operation_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Total number of metadata provider requests by outcome",
			},
			[]string{"endpoint", "status"},
		),
	}
}

// Collectors returns every collector owned by Metrics.
func (c *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.RequestsTotal,
		c.RequestDuration,
		c.FieldErrors,
		c.ResolverCalls,
		c.StorageOperations,
		c.StorageDuration,
		c.UpstreamRequests,
	}
}

// RecordRequest records a GraphQL request outcome and its duration
func (c *Metrics) RecordRequest(operation string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.RequestsTotal.WithLabelValues(operation, statusLabel(status)).Inc()
	c.RequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordFieldError increments the error counter for an extension code
func (c *Metrics) RecordFieldError(code string) {
	if c == nil {
		return
	}
	c.FieldErrors.WithLabelValues(code).Inc()
}

// RecordResolver increments the resolver call counter
func (c *Metrics) RecordResolver(field string, err error) {
	if c == nil {
		return
	}
	c.ResolverCalls.WithLabelValues(field, outcome(err)).Inc()
}

// RecordStorage records a storage operation outcome and its duration
func (c *Metrics) RecordStorage(operation string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	c.StorageOperations.WithLabelValues(operation, outcome(err)).Inc()
	c.StorageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordUpstream increments the upstream request counter
func (c *Metrics) RecordUpstream(endpoint string, err error) {
	if c == nil {
		return
	}
	c.UpstreamRequests.WithLabelValues(endpoint, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 200 && status < 300:
		return "2xx"
	default:
		return "other"
	}
}
