// Package health runs dependency checks and reports the service's health.
//
// A Checker holds named CheckFunc probes, for example a storage ping. Run
// executes them concurrently, each under its own timeout, and aggregates the
// results: any unhealthy check makes the service unhealthy. Error messages are
// sanitized before they reach a Status, so connection strings, addresses and
// credentials never leak through the /health endpoint.
//
//	checker := health.NewChecker("filmgraph", 2*time.Second)
//	checker.Register("storage", pool.Ping)
//	router.Handle("/health", checker.Handler())
package health
