package graph

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/c360/filmgraph/film"
	"github.com/c360/filmgraph/gateway/graphql"
	"github.com/c360/filmgraph/tmdb"
)

// Scalars returns the codecs for the custom scalars of the film schema. ID is
// overridden so that every id argument is a UUID before any resolver runs.
func Scalars() graphql.Scalars {
	return graphql.Scalars{
		"ID":       {Parse: parseFilmID, Serialize: serializeFilmID},
		"DateTime": {Parse: parseDateTime, Serialize: serializeDateTime},
		"Date":     {Parse: parseDate, Serialize: serializeDate},
	}
}

func parseFilmID(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("ID must be a UUID string, got %T", v)
	}
	return film.ParseID(s)
}

func serializeFilmID(v any) (any, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x.String(), nil
	case string:
		return x, nil
	}
	return nil, fmt.Errorf("ID cannot represent %T", v)
}

func parseDateTime(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("DateTime must be a string, got %T", v)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("DateTime %q: %w", s, err)
	}
	return t.UTC(), nil
}

func serializeDateTime(v any) (any, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("DateTime cannot represent %T", v)
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}

func parseDate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("Date must be a string, got %T", v)
	}
	d, err := tmdb.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("Date %q: %w", s, err)
	}
	return d, nil
}

func serializeDate(v any) (any, error) {
	switch x := v.(type) {
	case tmdb.Date:
		return x.String(), nil
	case tmdb.OptionalDate:
		if !x.Valid {
			return nil, nil
		}
		return x.Date.String(), nil
	case time.Time:
		return x.Format(tmdb.DateLayout), nil
	}
	return nil, fmt.Errorf("Date cannot represent %T", v)
}
