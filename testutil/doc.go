// Package testutil provides test doubles and fixtures shared by filmgraph tests.
//
// MemoryFilms is an in-memory film.Acquirer:
//   - Thread-safe for concurrent use
//   - Keeps insertion order, which stands in for table order
//   - Counts acquired and released connections so tests can assert that every
//     connection is released
//   - FailAcquire and FailQueries inject storage failures
//
// StartPostgres runs a real Postgres in a container through testcontainers-go
// and is used by tests behind the "integration" build tag:
//
//	//go:build integration
//
//	func TestIntegration_Films(t *testing.T) {
//	    ctx := context.Background()
//	    dsn := testutil.StartPostgres(ctx, t)
//	    ...
//	}
package testutil
