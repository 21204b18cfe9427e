// Package metric provides Prometheus-based metrics collection and the HTTP
// server that exposes them.
//
// MetricsRegistry owns a private prometheus.Registry with the Go runtime and
// process collectors plus the core service metrics (Metrics):
//
//   - filmgraph_graphql_requests_total{operation,status}
//   - filmgraph_graphql_request_duration_seconds{operation}
//   - filmgraph_graphql_field_errors_total{code}
//   - filmgraph_storage_operations_total{operation,status}
//   - filmgraph_storage_operation_duration_seconds{operation}
//   - filmgraph_upstream_requests_total{endpoint,status}
//
// Components register additional collectors through MetricsRegistrar; the
// storage pool uses it to publish connection pool gauges.
//
// Basic usage:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//	go server.Start()
//	defer server.Stop(ctx)
//
// All Record methods are safe to call on a nil *Metrics, so components can be
// constructed without metrics in tests.
package metric
