// Package film is the storage gateway for the films table.
//
// Resolvers never see the pool directly. They receive an Acquirer, take a Conn
// per operation and release it with defer:
//
//	conn, err := acquirer.Acquire(ctx)
//	if err != nil {
//	    return nil, err
//	}
//	defer conn.Release()
//
//	films, err := conn.ListFilms(ctx, film.Page{Limit: &first})
//
// Pool is the Postgres implementation backed by pgxpool. Every SQL failure is
// returned as a transient error wrapping errors.ErrStorageQuery, and pool
// exhaustion or an unreachable database as errors.ErrStorageUnavailable. A
// missing row is not an error: GetFilm returns (nil, nil).
//
// The schema lives in migrations/ and is applied with Migrate through goose.
package film
