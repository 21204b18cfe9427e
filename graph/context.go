package graph

import (
	"context"
	"net/http"

	"github.com/c360/filmgraph/errors"
	"github.com/c360/filmgraph/film"
	"github.com/c360/filmgraph/gateway/graphql"
)

// Context is the per-request capability handed to resolvers. Callers must
// Release every connection they obtain.
type Context interface {
	Conn(ctx context.Context) (film.Conn, error)
}

type requestContext struct {
	films film.Acquirer
}

// NewContext returns a Context backed by acq.
func NewContext(acq film.Acquirer) Context {
	return &requestContext{films: acq}
}

func (c *requestContext) Conn(ctx context.Context) (film.Conn, error) {
	return c.films.Acquire(ctx)
}

// ContextFunc builds a Context for every HTTP request served by the handler.
func ContextFunc(acq film.Acquirer) graphql.ContextFunc[Context] {
	return func(*http.Request) (Context, error) {
		if acq == nil {
			return nil, errors.WrapFatal(errors.ErrStorageUnavailable, "Graph", "ContextFunc", "no film store configured")
		}
		return NewContext(acq), nil
	}
}
