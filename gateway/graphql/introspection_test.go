package graphql

import (
	"encoding/json"
	"testing"

	"github.com/99designs/gqlgen/graphql/introspection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type typeRef struct {
	Kind   string   `json:"kind"`
	Name   *string  `json:"name"`
	OfType *typeRef `json:"ofType"`
}

type inputValue struct {
	Name         string  `json:"name"`
	Type         typeRef `json:"type"`
	DefaultValue *string `json:"defaultValue"`
}

type fieldInfo struct {
	Name              string       `json:"name"`
	Args              []inputValue `json:"args"`
	Type              typeRef      `json:"type"`
	IsDeprecated      bool         `json:"isDeprecated"`
	DeprecationReason *string      `json:"deprecationReason"`
}

type enumValueInfo struct {
	Name         string `json:"name"`
	IsDeprecated bool   `json:"isDeprecated"`
}

type fullType struct {
	Kind          string          `json:"kind"`
	Name          string          `json:"name"`
	Description   *string         `json:"description"`
	Fields        []fieldInfo     `json:"fields"`
	InputFields   []inputValue    `json:"inputFields"`
	Interfaces    []typeRef       `json:"interfaces"`
	EnumValues    []enumValueInfo `json:"enumValues"`
	PossibleTypes []typeRef       `json:"possibleTypes"`
}

type directiveInfo struct {
	Name      string       `json:"name"`
	Locations []string     `json:"locations"`
	Args      []inputValue `json:"args"`
}

type schemaInfo struct {
	Schema struct {
		QueryType        *struct{ Name string } `json:"queryType"`
		MutationType     *struct{ Name string } `json:"mutationType"`
		SubscriptionType *struct{ Name string } `json:"subscriptionType"`
		Types            []fullType             `json:"types"`
		Directives       []directiveInfo        `json:"directives"`
	} `json:"__schema"`
}

func wantTypeRef(t *introspection.Type) typeRef {
	ref := typeRef{Kind: t.Kind(), Name: t.Name()}
	if of := t.OfType(); of != nil {
		inner := wantTypeRef(of)
		ref.OfType = &inner
	}
	return ref
}

func wantInputValues(values []introspection.InputValue) []inputValue {
	out := make([]inputValue, len(values))
	for i, v := range values {
		out[i] = inputValue{Name: v.Name, Type: wantTypeRef(v.Type), DefaultValue: v.DefaultValue}
	}
	return out
}

func wantTypeRefs(types []introspection.Type) []typeRef {
	out := make([]typeRef, len(types))
	for i := range types {
		out[i] = wantTypeRef(&types[i])
	}
	return out
}

// wantType renders gqlgen's own introspection model in response form.
func wantType(t *introspection.Type) fullType {
	out := fullType{
		Kind:          t.Kind(),
		Name:          *t.Name(),
		Description:   t.Description(),
		InputFields:   wantInputValues(t.InputFields()),
		Interfaces:    wantTypeRefs(t.Interfaces()),
		PossibleTypes: wantTypeRefs(t.PossibleTypes()),
	}

	fields := t.Fields(true)
	out.Fields = make([]fieldInfo, len(fields))
	for i, f := range fields {
		out.Fields[i] = fieldInfo{
			Name:              f.Name,
			Args:              wantInputValues(f.Args),
			Type:              wantTypeRef(f.Type),
			IsDeprecated:      f.IsDeprecated(),
			DeprecationReason: f.DeprecationReason(),
		}
	}

	values := t.EnumValues(true)
	out.EnumValues = make([]enumValueInfo, len(values))
	for i, v := range values {
		out.EnumValues[i] = enumValueInfo{Name: v.Name, IsDeprecated: v.IsDeprecated()}
	}
	return out
}

func introspect(t *testing.T, s *Schema[*library]) schemaInfo {
	t.Helper()
	r := execute(t, s, &Request{Query: introspection.Query, OperationName: "IntrospectionQuery"})
	require.True(t, r.OK())
	require.Empty(t, r.Errors)

	var info schemaInfo
	require.NoError(t, json.Unmarshal(r.Data, &info))
	return info
}

func TestExecute_IntrospectionQuery(t *testing.T) {
	s := newLibrarySchema(t, WithMaxDepth(15))
	info := introspect(t, s)

	require.NotNil(t, info.Schema.QueryType)
	assert.Equal(t, "Query", info.Schema.QueryType.Name)
	require.NotNil(t, info.Schema.MutationType)
	assert.Equal(t, "Mutation", info.Schema.MutationType.Name)
	assert.Nil(t, info.Schema.SubscriptionType)

	model := introspection.WrapSchema(s.AST())
	types := model.Types()
	require.Len(t, info.Schema.Types, len(types))
	for i := range types {
		want := wantType(&types[i])
		assert.Equal(t, want, info.Schema.Types[i], want.Name)
	}

	directives := model.Directives()
	require.Len(t, info.Schema.Directives, len(directives))
	for i, d := range directives {
		got := info.Schema.Directives[i]
		assert.Equal(t, d.Name, got.Name)
		assert.Equal(t, d.Locations, got.Locations, d.Name)
		assert.Equal(t, wantInputValues(d.Args), got.Args, d.Name)
	}
}

func TestExecute_IntrospectionArgumentlessFields(t *testing.T) {
	info := introspect(t, newLibrarySchema(t))

	var book *fullType
	for i := range info.Schema.Types {
		if info.Schema.Types[i].Name == "Book" {
			book = &info.Schema.Types[i]
		}
	}
	require.NotNil(t, book)
	require.NotEmpty(t, book.Fields)
	for _, f := range book.Fields {
		assert.NotNil(t, f.Args, f.Name)
		assert.Empty(t, f.Args, f.Name)
	}
	assert.NotNil(t, book.Interfaces)
	assert.Empty(t, book.Interfaces)
}
