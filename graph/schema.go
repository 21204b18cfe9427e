package graph

import (
	_ "embed"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/c360/filmgraph/gateway/graphql"
)

//go:embed schema.graphql
var schemaSDL string

// SchemaSource returns the film schema SDL.
func SchemaSource() *ast.Source {
	return &ast.Source{Name: "schema.graphql", Input: schemaSDL}
}

// NewSchema compiles the film schema with the resolvers of r.
func NewSchema(r *Resolver, opts ...graphql.SchemaOption) (*graphql.Schema[Context], error) {
	return graphql.NewSchema(SchemaSource(), r.Resolvers(), Scalars(), opts...)
}
