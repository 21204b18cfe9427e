package graphql

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
)

func builtinScalars() Scalars {
	return Scalars{
		"Int":     {Parse: ParseInt32, Serialize: SerializeInt32},
		"Float":   {Parse: parseFloat, Serialize: parseFloat},
		"String":  {Parse: parseString, Serialize: serializeString},
		"Boolean": {Parse: parseBoolean, Serialize: parseBoolean},
		"ID":      {Parse: parseID, Serialize: serializeString},
	}
}

// ParseInt32 coerces an integral input to int32, rejecting fractions and
// values outside the 32-bit range.
func ParseInt32(v any) (any, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int32:
		return x, nil
	case int64:
		n = x
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", x)
		}
		if x < math.MinInt32 || x > math.MaxInt32 {
			return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", x)
		}
		return int32(x), nil
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent value: %s", x)
		}
		n = i
	default:
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", v)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", n)
	}
	return int32(n), nil
}

// SerializeInt32 renders resolved integers, which must fit in 32 bits.
func SerializeInt32(v any) (any, error) {
	switch x := v.(type) {
	case int8, int16, uint8, uint16:
		return reflect.ValueOf(x).Convert(reflect.TypeOf(int32(0))).Interface(), nil
	case uint32:
		return ParseInt32(int64(x))
	}
	return ParseInt32(v)
}

func parseFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("Float cannot represent value: %s", x)
		}
		return f, nil
	}
	return nil, fmt.Errorf("Float cannot represent non numeric value: %v", v)
}

func parseString(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("String cannot represent a non string value: %v", v)
	}
	return s, nil
}

func serializeString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	}
	return nil, fmt.Errorf("cannot represent %T as a string", v)
}

func parseBoolean(v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", v)
	}
	return b, nil
}

func parseID(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case json.Number:
		if _, err := x.Int64(); err != nil {
			return nil, fmt.Errorf("ID cannot represent value: %s", x)
		}
		return x.String(), nil
	}
	return nil, fmt.Errorf("ID cannot represent value: %v", v)
}

// inputError is a coercion failure at a position inside an argument value.
type inputError struct {
	path string
	msg  string
}

func (e *inputError) Error() string {
	if e.path == "" {
		return e.msg
	}
	return e.path + ": " + e.msg
}

func subPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// coerceInput converts a raw input value (from variables or literals) to the
// value a resolver sees for typ.
func (s *Schema[C]) coerceInput(typ *ast.Type, v any, path string) (any, error) {
	if v == nil {
		if typ.NonNull {
			return nil, &inputError{path: path, msg: fmt.Sprintf("expected non-null value of type %s", typ.String())}
		}
		return nil, nil
	}

	if typ.Elem != nil {
		// Variable validation hands back typed slices such as []string.
		items := reflect.ValueOf(v)
		if items.Kind() != reflect.Slice && items.Kind() != reflect.Array {
			// A single value is accepted where a list is expected.
			item, err := s.coerceInput(typ.Elem, v, path)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, items.Len())
		for i := range out {
			c, err := s.coerceInput(typ.Elem, items.Index(i).Interface(), subPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}

	def := s.schema.Types[typ.NamedType]
	if def == nil {
		return nil, &inputError{path: path, msg: fmt.Sprintf("unknown type %s", typ.NamedType)}
	}

	switch def.Kind {
	case ast.Scalar:
		codec, ok := s.scalars[def.Name]
		if !ok {
			return nil, &inputError{path: path, msg: fmt.Sprintf("no codec for scalar %s", def.Name)}
		}
		out, err := codec.Parse(v)
		if err != nil {
			return nil, &inputError{path: path, msg: err.Error()}
		}
		return out, nil

	case ast.Enum:
		name, ok := v.(string)
		if !ok || def.EnumValues.ForName(name) == nil {
			return nil, &inputError{path: path, msg: fmt.Sprintf("value %v is not a member of enum %s", v, def.Name)}
		}
		return name, nil

	case ast.InputObject:
		fields, ok := v.(map[string]any)
		if !ok {
			return nil, &inputError{path: path, msg: fmt.Sprintf("expected an object of type %s", def.Name)}
		}
		for key := range fields {
			if def.Fields.ForName(key) == nil {
				return nil, &inputError{path: path, msg: fmt.Sprintf("field %q is not defined by type %s", key, def.Name)}
			}
		}
		out := make(map[string]any, len(def.Fields))
		for _, field := range def.Fields {
			raw, present := fields[field.Name]
			if !present {
				if field.DefaultValue != nil {
					dv, err := field.DefaultValue.Value(nil)
					if err != nil {
						return nil, &inputError{path: subPath(path, field.Name), msg: err.Error()}
					}
					raw, present = dv, true
				} else if field.Type.NonNull {
					return nil, &inputError{path: subPath(path, field.Name), msg: fmt.Sprintf("missing required field of type %s", field.Type.String())}
				}
			}
			if !present {
				continue
			}
			c, err := s.coerceInput(field.Type, raw, subPath(path, field.Name))
			if err != nil {
				return nil, err
			}
			out[field.Name] = c
		}
		return out, nil
	}

	return nil, &inputError{path: path, msg: fmt.Sprintf("type %s is not an input type", def.Name)}
}

// argumentValues resolves and coerces the arguments of a field or directive.
// Arguments that are neither supplied nor defaulted are left out.
func (s *Schema[C]) argumentValues(defs ast.ArgumentDefinitionList, args ast.ArgumentList, vars map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(defs))
	for _, def := range defs {
		var (
			raw     any
			present bool
		)
		if arg := args.ForName(def.Name); arg != nil {
			if arg.Value.Kind == ast.Variable {
				raw, present = vars[arg.Value.Raw]
			} else {
				v, err := arg.Value.Value(vars)
				if err != nil {
					return nil, &inputError{path: def.Name, msg: err.Error()}
				}
				raw, present = v, true
			}
		}
		if !present && def.DefaultValue != nil {
			v, err := def.DefaultValue.Value(vars)
			if err != nil {
				return nil, &inputError{path: def.Name, msg: err.Error()}
			}
			raw, present = v, true
		}
		if !present {
			if def.Type.NonNull {
				return nil, &inputError{path: def.Name, msg: fmt.Sprintf("argument of type %s is required", def.Type.String())}
			}
			continue
		}

		c, err := s.coerceInput(def.Type, raw, def.Name)
		if err != nil {
			return nil, err
		}
		out[def.Name] = c
	}
	return out, nil
}

// normalizeNumbers replaces json.Number values with int64 when integral and
// float64 otherwise, so variable validation sees native kinds.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, item := range x {
			x[k] = normalizeNumbers(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = normalizeNumbers(item)
		}
		return x
	}
	return v
}
