package graphql

import (
	"github.com/99designs/gqlgen/graphql/introspection"
)

// introspectionFunc resolves a field of one of the __ meta types.
type introspectionFunc func(source any, args map[string]any) (any, error)

func includeDeprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func onSchema(fn func(*introspection.Schema) any) introspectionFunc {
	return func(source any, _ map[string]any) (any, error) {
		s, err := Source[introspection.Schema](source)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

func onType(fn func(*introspection.Type, map[string]any) any) introspectionFunc {
	return func(source any, args map[string]any) (any, error) {
		t, err := Source[introspection.Type](source)
		if err != nil {
			return nil, err
		}
		return fn(t, args), nil
	}
}

func onField(fn func(*introspection.Field) any) introspectionFunc {
	return func(source any, _ map[string]any) (any, error) {
		f, err := Source[introspection.Field](source)
		if err != nil {
			return nil, err
		}
		return fn(f), nil
	}
}

func onInputValue(fn func(*introspection.InputValue) any) introspectionFunc {
	return func(source any, _ map[string]any) (any, error) {
		v, err := Source[introspection.InputValue](source)
		if err != nil {
			return nil, err
		}
		return fn(v), nil
	}
}

func onEnumValue(fn func(*introspection.EnumValue) any) introspectionFunc {
	return func(source any, _ map[string]any) (any, error) {
		v, err := Source[introspection.EnumValue](source)
		if err != nil {
			return nil, err
		}
		return fn(v), nil
	}
}

func onDirective(fn func(*introspection.Directive) any) introspectionFunc {
	return func(source any, _ map[string]any) (any, error) {
		d, err := Source[introspection.Directive](source)
		if err != nil {
			return nil, err
		}
		return fn(d), nil
	}
}

// introspectionResolvers answers the meta types over gqlgen's schema wrappers.
// The schema description is served by the executor since it lives on the AST.
var introspectionResolvers = map[string]map[string]introspectionFunc{
	"__Schema": {
		"types":            onSchema(func(s *introspection.Schema) any { return s.Types() }),
		"queryType":        onSchema(func(s *introspection.Schema) any { return s.QueryType() }),
		"mutationType":     onSchema(func(s *introspection.Schema) any { return s.MutationType() }),
		"subscriptionType": onSchema(func(s *introspection.Schema) any { return s.SubscriptionType() }),
		"directives":       onSchema(func(s *introspection.Schema) any { return s.Directives() }),
	},
	"__Type": {
		"kind":           onType(func(t *introspection.Type, _ map[string]any) any { return t.Kind() }),
		"name":           onType(func(t *introspection.Type, _ map[string]any) any { return t.Name() }),
		"description":    onType(func(t *introspection.Type, _ map[string]any) any { return t.Description() }),
		"specifiedByURL": onType(func(*introspection.Type, map[string]any) any { return nil }),
		"fields": onType(func(t *introspection.Type, args map[string]any) any {
			return t.Fields(includeDeprecated(args))
		}),
		"interfaces":    onType(func(t *introspection.Type, _ map[string]any) any { return t.Interfaces() }),
		"possibleTypes": onType(func(t *introspection.Type, _ map[string]any) any { return t.PossibleTypes() }),
		"enumValues": onType(func(t *introspection.Type, args map[string]any) any {
			return t.EnumValues(includeDeprecated(args))
		}),
		"inputFields": onType(func(t *introspection.Type, _ map[string]any) any { return t.InputFields() }),
		"ofType":      onType(func(t *introspection.Type, _ map[string]any) any { return t.OfType() }),
		"isOneOf":     onType(func(*introspection.Type, map[string]any) any { return false }),
	},
	"__Field": {
		"name":              onField(func(f *introspection.Field) any { return f.Name }),
		"description":       onField(func(f *introspection.Field) any { return f.Description() }),
		"args":              onField(func(f *introspection.Field) any { return f.Args }),
		"type":              onField(func(f *introspection.Field) any { return f.Type }),
		"isDeprecated":      onField(func(f *introspection.Field) any { return f.IsDeprecated() }),
		"deprecationReason": onField(func(f *introspection.Field) any { return f.DeprecationReason() }),
	},
	"__InputValue": {
		"name":              onInputValue(func(v *introspection.InputValue) any { return v.Name }),
		"description":       onInputValue(func(v *introspection.InputValue) any { return v.Description() }),
		"type":              onInputValue(func(v *introspection.InputValue) any { return v.Type }),
		"defaultValue":      onInputValue(func(v *introspection.InputValue) any { return v.DefaultValue }),
		"isDeprecated":      onInputValue(func(*introspection.InputValue) any { return false }),
		"deprecationReason": onInputValue(func(*introspection.InputValue) any { return nil }),
	},
	"__EnumValue": {
		"name":              onEnumValue(func(v *introspection.EnumValue) any { return v.Name }),
		"description":       onEnumValue(func(v *introspection.EnumValue) any { return v.Description() }),
		"isDeprecated":      onEnumValue(func(v *introspection.EnumValue) any { return v.IsDeprecated() }),
		"deprecationReason": onEnumValue(func(v *introspection.EnumValue) any { return v.DeprecationReason() }),
	},
	"__Directive": {
		"name":         onDirective(func(d *introspection.Directive) any { return d.Name }),
		"description":  onDirective(func(d *introspection.Directive) any { return d.Description() }),
		"locations":    onDirective(func(d *introspection.Directive) any { return d.Locations }),
		"args":         onDirective(func(d *introspection.Directive) any { return d.Args }),
		"isRepeatable": onDirective(func(d *introspection.Directive) any { return d.IsRepeatable }),
	},
}
