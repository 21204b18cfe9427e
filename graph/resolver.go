package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/c360/filmgraph/errors"
	"github.com/c360/filmgraph/film"
	"github.com/c360/filmgraph/gateway/graphql"
	"github.com/c360/filmgraph/tmdb"
)

// MovieSearcher looks up movies by title in the external metadata provider.
type MovieSearcher interface {
	SearchMovies(ctx context.Context, title string) (*tmdb.SearchMovieResults, error)
}

// Resolver holds the long-lived dependencies shared by every request.
type Resolver struct {
	movies   MovieSearcher
	recorder graphql.MetricsRecorder
}

// NewResolver creates a Resolver. movies may be nil, in which case
// searchMovies reports an upstream error. A nil recorder records nothing.
func NewResolver(movies MovieSearcher, recorder graphql.MetricsRecorder) *Resolver {
	if recorder == nil {
		recorder = graphql.NopRecorder{}
	}
	return &Resolver{movies: movies, recorder: recorder}
}

type params = graphql.ResolveParams[Context]

// Resolvers returns the resolver table for the film schema.
func (r *Resolver) Resolvers() graphql.Resolvers[Context] {
	return graphql.Resolvers[Context]{
		"Query": {
			"getFilms":     r.recorded("getFilms", r.getFilms),
			"getFilm":      r.recorded("getFilm", r.getFilm),
			"searchMovies": r.recorded("searchMovies", r.searchMovies),
		},
		"Mutation": {
			"createFilm": r.recorded("createFilm", r.createFilm),
		},
		"Film": {
			"id":          filmField(func(f *film.Film) any { return f.ID }),
			"createdAt":   filmField(func(f *film.Film) any { return f.CreatedAt }),
			"updatedAt":   filmField(func(f *film.Film) any { return f.UpdatedAt }),
			"title":       filmField(func(f *film.Film) any { return f.Title }),
			"releaseYear": filmField(func(f *film.Film) any { return f.ReleaseYear }),
			"summary":     filmField(func(f *film.Film) any { return f.Summary }),
			"runtimeMins": filmField(func(f *film.Film) any { return f.RuntimeMins }),
		},
		"SearchMovie": {
			"id":               movieField(func(m *tmdb.SearchMovie) any { return m.ID }),
			"title":            movieField(func(m *tmdb.SearchMovie) any { return m.Title }),
			"originalTitle":    movieField(func(m *tmdb.SearchMovie) any { return m.OriginalTitle }),
			"originalLanguage": movieField(func(m *tmdb.SearchMovie) any { return m.OriginalLanguage }),
			"overview":         movieField(func(m *tmdb.SearchMovie) any { return m.Overview }),
			"releaseDate":      movieField(func(m *tmdb.SearchMovie) any { return m.ReleaseDate.Ptr() }),
			"genreIds":         movieField(func(m *tmdb.SearchMovie) any { return nonNilInts(m.GenreIDs) }),
			"posterPath":       movieField(func(m *tmdb.SearchMovie) any { return m.PosterPath }),
			"backdropPath":     movieField(func(m *tmdb.SearchMovie) any { return m.BackdropPath }),
			"popularity":       movieField(func(m *tmdb.SearchMovie) any { return m.Popularity }),
			"adult":            movieField(func(m *tmdb.SearchMovie) any { return m.Adult }),
		},
		"SearchMovieResults": {
			"page":         resultsField(func(s *tmdb.SearchMovieResults) any { return s.Page }),
			"totalPages":   resultsField(func(s *tmdb.SearchMovieResults) any { return s.TotalPages }),
			"totalResults": resultsField(func(s *tmdb.SearchMovieResults) any { return s.TotalResults }),
			"results": resultsField(func(s *tmdb.SearchMovieResults) any {
				if s.Results == nil {
					return []tmdb.SearchMovie{}
				}
				return s.Results
			}),
		},
	}
}

// recorded wraps a root resolver in the metrics recorder.
func (r *Resolver) recorded(operation string, fn graphql.FieldResolver[Context]) graphql.FieldResolver[Context] {
	return func(ctx context.Context, p params) (any, error) {
		var out any
		err := r.recorder.RecordMetrics(ctx, operation, func() error {
			var err error
			out, err = fn(ctx, p)
			return err
		})
		return out, err
	}
}

// withConn acquires a connection for the duration of fn.
func withConn(ctx context.Context, p params, fn func(film.Conn) (any, error)) (any, error) {
	conn, err := p.Context.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	return fn(conn)
}

func (r *Resolver) getFilms(ctx context.Context, p params) (any, error) {
	page := film.Page{Limit: optionalInt32(p.Args, "first"), Offset: optionalInt32(p.Args, "offset")}
	return withConn(ctx, p, func(conn film.Conn) (any, error) {
		return conn.ListFilms(ctx, page)
	})
}

func (r *Resolver) getFilm(ctx context.Context, p params) (any, error) {
	id, ok := p.Args["id"].(uuid.UUID)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrInvalidID, "Graph", "GetFilm", "read id argument")
	}
	return withConn(ctx, p, func(conn film.Conn) (any, error) {
		f, err := conn.GetFilm(ctx, id)
		if err != nil || f == nil {
			return nil, err
		}
		return f, nil
	})
}

func (r *Resolver) createFilm(ctx context.Context, p params) (any, error) {
	input, err := createFilmInput(p.Args["input"])
	if err != nil {
		return nil, err
	}
	return withConn(ctx, p, func(conn film.Conn) (any, error) {
		f, err := conn.CreateFilm(ctx, input)
		if err != nil || f == nil {
			return nil, err
		}
		return f, nil
	})
}

func (r *Resolver) searchMovies(ctx context.Context, p params) (any, error) {
	if r.movies == nil {
		return nil, errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrUpstream, tmdb.ErrNotConfigured),
			"Graph", "SearchMovies", "search movies")
	}
	title, _ := p.Args["title"].(string)
	results, err := r.movies.SearchMovies(ctx, title)
	if err != nil || results == nil {
		return nil, err
	}
	return results, nil
}

func createFilmInput(v any) (film.CreateFilm, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return film.CreateFilm{}, errors.WrapInvalid(errors.ErrInvalidInput, "Graph", "CreateFilm", "read input argument")
	}
	title, _ := m["title"].(string)
	summary, _ := m["summary"].(string)
	year, _ := m["releaseYear"].(int32)
	runtime, _ := m["runtimeMins"].(int32)
	return film.CreateFilm{
		Title:       title,
		ReleaseYear: year,
		Summary:     summary,
		RuntimeMins: runtime,
	}, nil
}

func optionalInt32(args map[string]any, name string) *int32 {
	v, ok := args[name].(int32)
	if !ok {
		return nil
	}
	return &v
}

func nonNilInts(v []int32) []int32 {
	if v == nil {
		return []int32{}
	}
	return v
}

func filmField(fn func(*film.Film) any) graphql.FieldResolver[Context] {
	return func(_ context.Context, p params) (any, error) {
		f, err := graphql.Source[film.Film](p.Source)
		if err != nil {
			return nil, err
		}
		return fn(f), nil
	}
}

func movieField(fn func(*tmdb.SearchMovie) any) graphql.FieldResolver[Context] {
	return func(_ context.Context, p params) (any, error) {
		m, err := graphql.Source[tmdb.SearchMovie](p.Source)
		if err != nil {
			return nil, err
		}
		return fn(m), nil
	}
}

func resultsField(fn func(*tmdb.SearchMovieResults) any) graphql.FieldResolver[Context] {
	return func(_ context.Context, p params) (any, error) {
		s, err := graphql.Source[tmdb.SearchMovieResults](p.Source)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}
