package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	gqlgen "github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/introspection"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// Request is one GraphQL request.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Result is the outcome of executing a Request.
type Result struct {
	gqlgen.Response

	operation string
	ok        bool
}

// OK reports whether the request got as far as execution. Field errors do
// not affect it.
func (r *Result) OK() bool {
	return r.ok
}

// Operation is the executed operation type, or "invalid" when execution
// never started.
func (r *Result) Operation() string {
	if r.operation == "" {
		return "invalid"
	}
	return r.operation
}

func failedResult(errs gqlerror.List) *Result {
	return &Result{Response: gqlgen.Response{Errors: errs}}
}

// Source returns a parent value as *T. Parents may be held by value or by
// pointer.
func Source[T any](source any) (*T, error) {
	switch v := source.(type) {
	case *T:
		if v == nil {
			return nil, fmt.Errorf("nil parent value")
		}
		return v, nil
	case T:
		return &v, nil
	}
	var zero T
	return nil, fmt.Errorf("expected parent of type %T, got %T", zero, source)
}

// Execute runs req against the schema with rc as the application context.
// Parsing, validation, operation selection and input coercion all finish
// before any resolver runs; a failure in any of them yields a result with no
// data and OK false.
func (s *Schema[C]) Execute(ctx context.Context, rc C, req *Request) *Result {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return failedResult(gqlerror.List{newError(CodeBadUserInput, nil, "must provide a query string")})
	}

	doc, parseErr := parser.ParseQuery(&ast.Source{Name: "request", Input: req.Query})
	if parseErr != nil {
		return failedResult(errorList(parseErr, CodeParseFailed))
	}
	if errs := validator.Validate(s.schema, doc); len(errs) > 0 {
		return failedResult(errorList(errs, CodeValidationFailed))
	}

	op, opErr := selectOperation(doc, req.OperationName)
	if opErr != nil {
		return failedResult(gqlerror.List{opErr})
	}

	vars, varErr := validator.VariableValues(s.schema, op, normalizeVariables(req.Variables))
	if varErr != nil {
		return failedResult(errorList(varErr, CodeBadUserInput))
	}

	e := &execution[C]{
		schema: s,
		rc:     rc,
		doc:    doc,
		op:     op,
		vars:   vars,
		args:   make(map[*ast.Field]map[string]any),
	}

	if s.maxDepth > 0 {
		if depth := e.depth(op.SelectionSet); depth > s.maxDepth {
			return failedResult(gqlerror.List{newError(CodeValidationFailed, op.Position,
				"query depth %d exceeds the maximum of %d", depth, s.maxDepth)})
		}
	}

	if errs := e.prepare(op.SelectionSet, make(map[string]bool)); len(errs) > 0 {
		return failedResult(errs)
	}

	root := s.rootType(op.Operation)
	if root == nil {
		return failedResult(gqlerror.List{newError(CodeValidationFailed, op.Position,
			"schema does not support %s operations", op.Operation)})
	}

	result := &Result{operation: string(op.Operation), ok: true}
	data, ok := e.executeSelectionSet(ctx, root, nil, op.SelectionSet, nil)
	if ok {
		raw, err := json.Marshal(data)
		if err != nil {
			e.errs = append(e.errs, newError(CodeInternal, nil, "encode result: %s", err.Error()))
		} else {
			result.Data = raw
		}
	}
	result.Errors = e.errs
	return result
}

func (s *Schema[C]) rootType(op ast.Operation) *ast.Definition {
	switch op {
	case ast.Query:
		return s.schema.Query
	case ast.Mutation:
		return s.schema.Mutation
	case ast.Subscription:
		return s.schema.Subscription
	}
	return nil
}

func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, *gqlerror.Error) {
	if name == "" {
		switch len(doc.Operations) {
		case 0:
			return nil, newError(CodeBadUserInput, nil, "document contains no operations")
		case 1:
			return doc.Operations[0], nil
		}
		return nil, newError(CodeBadUserInput, nil, "operation name is required when the document contains multiple operations")
	}

	op := doc.Operations.ForName(name)
	if op == nil {
		return nil, newError(CodeBadUserInput, nil, "unknown operation named %q", name)
	}
	return op, nil
}

func normalizeVariables(vars map[string]any) map[string]any {
	if vars == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = normalizeNumbers(v)
	}
	return out
}

type execution[C any] struct {
	schema *Schema[C]
	rc     C
	doc    *ast.QueryDocument
	op     *ast.OperationDefinition
	vars   map[string]any
	args   map[*ast.Field]map[string]any
	errs   gqlerror.List
}

func (e *execution[C]) fragment(spread *ast.FragmentSpread) *ast.FragmentDefinition {
	if spread.Definition != nil {
		return spread.Definition
	}
	return e.doc.Fragments.ForName(spread.Name)
}

// depth counts nested fields. Fragments add no depth of their own.
func (e *execution[C]) depth(set ast.SelectionSet) int {
	deepest := 0
	for _, sel := range set {
		var d int
		switch sel := sel.(type) {
		case *ast.Field:
			d = 1 + e.depth(sel.SelectionSet)
		case *ast.InlineFragment:
			d = e.depth(sel.SelectionSet)
		case *ast.FragmentSpread:
			if frag := e.fragment(sel); frag != nil {
				d = e.depth(frag.SelectionSet)
			}
		}
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}

// prepare coerces the arguments of every field reachable from set.
func (e *execution[C]) prepare(set ast.SelectionSet, visited map[string]bool) gqlerror.List {
	var errs gqlerror.List
	for _, sel := range set {
		switch sel := sel.(type) {
		case *ast.Field:
			if sel.Definition != nil {
				args, err := e.schema.argumentValues(sel.Definition.Arguments, sel.Arguments, e.vars)
				if err != nil {
					errs = append(errs, newError(CodeBadUserInput, sel.Position,
						"invalid value for argument of field %q: %s", sel.Name, err.Error()))
				} else {
					e.args[sel] = args
				}
			}
			errs = append(errs, e.prepare(sel.SelectionSet, visited)...)
		case *ast.InlineFragment:
			errs = append(errs, e.prepare(sel.SelectionSet, visited)...)
		case *ast.FragmentSpread:
			if visited[sel.Name] {
				continue
			}
			visited[sel.Name] = true
			if frag := e.fragment(sel); frag != nil {
				errs = append(errs, e.prepare(frag.SelectionSet, visited)...)
			}
		}
	}
	return errs
}

type fieldGroup struct {
	key    string
	fields []*ast.Field
}

func (e *execution[C]) collectFields(obj *ast.Definition, set ast.SelectionSet) []*fieldGroup {
	var groups []*fieldGroup
	index := make(map[string]*fieldGroup)
	e.collectInto(obj, set, &groups, index, make(map[string]bool))
	return groups
}

func (e *execution[C]) collectInto(obj *ast.Definition, set ast.SelectionSet, groups *[]*fieldGroup, index map[string]*fieldGroup, visited map[string]bool) {
	for _, sel := range set {
		switch sel := sel.(type) {
		case *ast.Field:
			if !e.included(sel.Directives) {
				continue
			}
			key := sel.Alias
			if key == "" {
				key = sel.Name
			}
			g, ok := index[key]
			if !ok {
				g = &fieldGroup{key: key}
				index[key] = g
				*groups = append(*groups, g)
			}
			g.fields = append(g.fields, sel)

		case *ast.InlineFragment:
			if !e.included(sel.Directives) || !e.applies(obj, sel.TypeCondition) {
				continue
			}
			e.collectInto(obj, sel.SelectionSet, groups, index, visited)

		case *ast.FragmentSpread:
			if visited[sel.Name] || !e.included(sel.Directives) {
				continue
			}
			visited[sel.Name] = true
			frag := e.fragment(sel)
			if frag == nil || !e.applies(obj, frag.TypeCondition) {
				continue
			}
			e.collectInto(obj, frag.SelectionSet, groups, index, visited)
		}
	}
}

func (e *execution[C]) applies(obj *ast.Definition, condition string) bool {
	if condition == "" || condition == obj.Name {
		return true
	}
	def := e.schema.schema.Types[condition]
	if def == nil || !def.IsAbstractType() {
		return false
	}
	for _, t := range e.schema.schema.GetPossibleTypes(def) {
		if t.Name == obj.Name {
			return true
		}
	}
	return false
}

// included evaluates @skip and @include.
func (e *execution[C]) included(directives ast.DirectiveList) bool {
	for _, d := range directives {
		if d.Name != "skip" && d.Name != "include" {
			continue
		}
		def := d.Definition
		if def == nil {
			def = e.schema.schema.Directives[d.Name]
		}
		if def == nil {
			continue
		}
		args, err := e.schema.argumentValues(def.Arguments, d.Arguments, e.vars)
		if err != nil {
			continue
		}
		cond, _ := args["if"].(bool)
		if d.Name == "skip" && cond {
			return false
		}
		if d.Name == "include" && !cond {
			return false
		}
	}
	return true
}

func (e *execution[C]) addError(err *gqlerror.Error) {
	e.errs = append(e.errs, err)
}

func extendPath(path ast.Path, elem ast.PathElement) ast.Path {
	out := make(ast.Path, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

// executeSelectionSet returns false when a non-null field of obj failed, in
// which case obj itself is null.
func (e *execution[C]) executeSelectionSet(ctx context.Context, obj *ast.Definition, source any, set ast.SelectionSet, path ast.Path) (object, bool) {
	groups := e.collectFields(obj, set)
	stopOnError := path == nil && e.op.Operation == ast.Mutation

	out := make(object, 0, len(groups))
	ok := true
	for _, g := range groups {
		if !ok && stopOnError {
			break
		}
		v, fieldOK := e.executeField(ctx, obj, source, g, path)
		if !fieldOK {
			ok = false
			continue
		}
		out = append(out, objectField{Key: g.key, Value: v})
	}
	if !ok {
		return nil, false
	}
	return out, true
}

func (e *execution[C]) executeField(ctx context.Context, obj *ast.Definition, source any, g *fieldGroup, path ast.Path) (any, bool) {
	field := g.fields[0]
	fieldPath := extendPath(path, ast.PathName(g.key))

	if field.Name == "__typename" {
		return obj.Name, true
	}

	def := obj.Fields.ForName(field.Name)
	if def == nil {
		e.addError(wrapError(fmt.Errorf("field %s.%s is not defined", obj.Name, field.Name), fieldPath, field.Position))
		return nil, true
	}

	value, err := e.resolve(ctx, obj, field, source, fieldPath)
	if err != nil {
		e.addError(wrapError(err, fieldPath, field.Position))
		return nil, !def.Type.NonNull
	}

	return e.complete(ctx, def.Type, g.fields, value, fieldPath)
}

func (e *execution[C]) resolve(ctx context.Context, obj *ast.Definition, field *ast.Field, source any, path ast.Path) (any, error) {
	args := e.args[field]
	if args == nil {
		args = map[string]any{}
	}
	schema := e.schema.schema

	if schema.Query != nil && obj.Name == schema.Query.Name {
		switch field.Name {
		case "__schema":
			return introspection.WrapSchema(schema), nil
		case "__type":
			name, _ := args["name"].(string)
			return introspection.WrapTypeFromDef(schema, schema.Types[name]), nil
		}
	}

	if strings.HasPrefix(obj.Name, "__") {
		if obj.Name == "__Schema" && field.Name == "description" {
			if schema.Description == "" {
				return nil, nil
			}
			desc := schema.Description
			return &desc, nil
		}
		fn := introspectionResolvers[obj.Name][field.Name]
		if fn == nil {
			return nil, nil
		}
		return fn(source, args)
	}

	fn := e.schema.resolvers[obj.Name][field.Name]
	if fn == nil {
		return nil, fmt.Errorf("no resolver for %s.%s", obj.Name, field.Name)
	}
	return fn(ctx, ResolveParams[C]{
		Context: e.rc,
		Source:  source,
		Args:    args,
		Field:   field,
		Path:    path,
	})
}

// complete converts a resolved value to its response form. It returns false
// when the value is null in a non-null position, so the caller must null
// itself. A nil slice in a non-null list position completes as [].
func (e *execution[C]) complete(ctx context.Context, typ *ast.Type, fields []*ast.Field, value any, path ast.Path) (any, bool) {
	if typ.NonNull && typ.Elem != nil && isNilSlice(value) {
		return []any{}, true
	}
	v, ok := e.completeNullable(ctx, typ, fields, value, path)
	if !typ.NonNull {
		if !ok {
			return nil, true
		}
		return v, true
	}
	if !ok {
		return nil, false
	}
	if v == nil {
		field := fields[0]
		err := newError(CodeInternal, field.Position, "cannot return null for non-nullable field %s", field.Name)
		err.Path = path
		e.addError(err)
		return nil, false
	}
	return v, true
}

func (e *execution[C]) completeNullable(ctx context.Context, typ *ast.Type, fields []*ast.Field, value any, path ast.Path) (any, bool) {
	if isNil(value) {
		return nil, true
	}
	field := fields[0]

	if typ.Elem != nil {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			e.addError(wrapError(fmt.Errorf("expected a list for field %s, got %T", field.Name, value), path, field.Position))
			return nil, false
		}
		out := make([]any, rv.Len())
		for i := range out {
			item, ok := e.complete(ctx, typ.Elem, fields, rv.Index(i).Interface(), extendPath(path, ast.PathIndex(i)))
			if !ok {
				return nil, false
			}
			out[i] = item
		}
		return out, true
	}

	def := e.schema.schema.Types[typ.NamedType]
	if def == nil {
		e.addError(wrapError(fmt.Errorf("unknown type %s", typ.NamedType), path, field.Position))
		return nil, false
	}

	switch def.Kind {
	case ast.Scalar:
		codec := e.schema.scalars[def.Name]
		out, err := codec.Serialize(deref(value))
		if err != nil {
			e.addError(wrapError(fmt.Errorf("serialize %s: %w", def.Name, err), path, field.Position))
			return nil, false
		}
		return out, true

	case ast.Enum:
		v := deref(value)
		name, ok := v.(string)
		if s, isStringer := v.(fmt.Stringer); !ok && isStringer {
			name, ok = s.String(), true
		}
		if !ok || def.EnumValues.ForName(name) == nil {
			e.addError(wrapError(fmt.Errorf("%v is not a value of enum %s", v, def.Name), path, field.Position))
			return nil, false
		}
		return name, true

	case ast.Object:
		obj, ok := e.executeSelectionSet(ctx, def, value, mergeSelectionSets(fields), path)
		if !ok {
			return nil, false
		}
		return obj, true

	case ast.Interface, ast.Union:
		typed, ok := value.(Typed)
		var concrete *ast.Definition
		if ok {
			concrete = e.schema.schema.Types[typed.GraphQLType()]
		}
		if concrete == nil || !e.applies(concrete, def.Name) {
			e.addError(wrapError(fmt.Errorf("cannot resolve runtime type of %s for field %s", def.Name, field.Name), path, field.Position))
			return nil, false
		}
		obj, ok := e.executeSelectionSet(ctx, concrete, value, mergeSelectionSets(fields), path)
		if !ok {
			return nil, false
		}
		return obj, true
	}

	e.addError(wrapError(fmt.Errorf("type %s cannot be an output", def.Name), path, field.Position))
	return nil, false
}

// Typed is implemented by values returned for interface and union fields.
type Typed interface {
	GraphQLType() string
}

func mergeSelectionSets(fields []*ast.Field) ast.SelectionSet {
	if len(fields) == 1 {
		return fields[0].SelectionSet
	}
	var set ast.SelectionSet
	for _, f := range fields {
		set = append(set, f.SelectionSet...)
	}
	return set
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func isNilSlice(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.IsNil()
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// object is a response map that keeps selection order.
type object []objectField

type objectField struct {
	Key   string
	Value any
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
