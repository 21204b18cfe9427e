package graphql

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/c360/filmgraph/errors"
)

// ResolveParams carries everything a field resolver may look at.
type ResolveParams[C any] struct {
	// Context is the per-request application context.
	Context C

	// Source is the parent value. It is nil for root fields.
	Source any

	// Args holds coerced argument values. Absent optional arguments have no key.
	Args map[string]any

	Field *ast.Field
	Path  ast.Path
}

// FieldResolver produces the raw value of one field. The executor completes
// the value against the field's declared type.
type FieldResolver[C any] func(ctx context.Context, p ResolveParams[C]) (any, error)

// Resolvers maps object type name to field name to resolver.
type Resolvers[C any] map[string]map[string]FieldResolver[C]

// ScalarCodec converts scalar values at the edges of execution.
type ScalarCodec struct {
	// Parse coerces an input value: a variable from JSON or a literal from
	// the query document.
	Parse func(v any) (any, error)

	// Serialize converts a resolved value to its JSON form.
	Serialize func(v any) (any, error)
}

// Scalars maps scalar name to codec. Entries override the builtin codecs.
type Scalars map[string]ScalarCodec

// SchemaOption adjusts a Schema at construction.
type SchemaOption func(*schemaOptions)

type schemaOptions struct {
	maxDepth int
}

// WithMaxDepth rejects operations whose selection nesting exceeds depth.
// Zero disables the check.
func WithMaxDepth(depth int) SchemaOption {
	return func(o *schemaOptions) {
		o.maxDepth = depth
	}
}

// Schema is a compiled, immutable schema bound to its resolvers. It is safe for
// concurrent use.
type Schema[C any] struct {
	schema    *ast.Schema
	resolvers Resolvers[C]
	scalars   Scalars
	maxDepth  int
}

// NewSchema loads the SDL and checks the resolver table against it. Every
// field of every non-builtin object type needs a resolver, every resolver
// must name a declared field, and every custom scalar needs a codec.
func NewSchema[C any](source *ast.Source, resolvers Resolvers[C], scalars Scalars, opts ...SchemaOption) (*Schema[C], error) {
	if source == nil {
		return nil, errors.WrapFatal(errors.ErrInvalidConfig, "Schema", "NewSchema", "schema source is nil")
	}

	options := schemaOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	schema, err := gqlparser.LoadSchema(source)
	if err != nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, err.Error()),
			"Schema", "NewSchema", "load schema")
	}

	merged := builtinScalars()
	for name, codec := range scalars {
		if codec.Parse == nil || codec.Serialize == nil {
			return nil, errors.WrapFatal(
				fmt.Errorf("%w: scalar %s codec needs both Parse and Serialize", errors.ErrInvalidConfig, name),
				"Schema", "NewSchema", "bind scalars")
		}
		merged[name] = codec
	}

	if problems := checkBindings(schema, resolvers, merged); len(problems) > 0 {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(problems, "; ")),
			"Schema", "NewSchema", "bind resolvers")
	}

	return &Schema[C]{
		schema:    schema,
		resolvers: resolvers,
		scalars:   merged,
		maxDepth:  options.maxDepth,
	}, nil
}

// AST exposes the loaded schema.
func (s *Schema[C]) AST() *ast.Schema {
	return s.schema
}

func checkBindings[C any](schema *ast.Schema, resolvers Resolvers[C], scalars Scalars) []string {
	var problems []string

	for name, def := range schema.Types {
		if def.BuiltIn || strings.HasPrefix(name, "__") {
			continue
		}
		switch def.Kind {
		case ast.Object:
			fields := resolvers[name]
			for _, field := range def.Fields {
				if strings.HasPrefix(field.Name, "__") {
					continue
				}
				if fields[field.Name] == nil {
					problems = append(problems, fmt.Sprintf("no resolver for %s.%s", name, field.Name))
				}
			}
		case ast.Scalar:
			if _, ok := scalars[name]; !ok {
				problems = append(problems, fmt.Sprintf("no codec for scalar %s", name))
			}
		}
	}

	for typeName, fields := range resolvers {
		def := schema.Types[typeName]
		if def == nil || def.Kind != ast.Object {
			problems = append(problems, fmt.Sprintf("resolvers bound to unknown object type %s", typeName))
			continue
		}
		for fieldName := range fields {
			if def.Fields.ForName(fieldName) == nil {
				problems = append(problems, fmt.Sprintf("resolver bound to unknown field %s.%s", typeName, fieldName))
			}
		}
	}

	sort.Strings(problems)
	return problems
}
