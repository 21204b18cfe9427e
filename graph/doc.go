// Package graph binds the film schema to storage and to the movie metadata
// client.
//
// The schema exposes getFilms, getFilm and searchMovies queries and a
// createFilm mutation. Resolvers obtain a film.Conn from the per-request
// Context and release it before returning; the metadata client is shared by
// all requests through the Resolver.
//
// Usage:
//
//	resolver := graph.NewResolver(tmdbClient, graphql.NewRecorder(logger, metrics))
//	schema, err := graph.NewSchema(resolver, graphql.WithMaxDepth(15))
//	if err != nil {
//		return err
//	}
//	handler := graphql.NewHandler(schema, graph.ContextFunc(pool), logger, metrics)
package graph
