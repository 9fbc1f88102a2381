package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeIsA(t *testing.T) {
	t.Parallel()
	reg := NewRegistry("ast")
	expr, err := reg.Define("ast", "Expr", true, nil)
	require.NoError(t, err)
	call, err := reg.Define("ast", "CallExpr", false, []Field{{Name: "Fun"}, {Name: "Args", Kind: FieldNodeList}}, expr)
	require.NoError(t, err)

	cases := []struct {
		a, b  *Type
		match bool
	}{
		{Nil, Nil, true},
		{Nil, Object, true},
		{String, Object, true},
		{String, Symbol, false},
		{Integer, Float, false},
		{Array, Object, true},
		{call, call, true},
		{call, expr, true},
		{call, Node, true},
		{call, Object, true},
		{expr, call, false},
		{Node, call, false},
		{String, Node, false},
	}
	for i, tc := range cases {
		assert.Equal(t, tc.match, tc.a.IsA(tc.b), "[%v] %s isa %s", i, tc.a, tc.b)
	}
}

func TestTypeString(t *testing.T) {
	t.Parallel()
	reg := NewRegistry("ast")
	call, err := reg.Define("ast", "CallExpr", false, nil)
	require.NoError(t, err)
	nested, err := reg.Define("a::b", "C", false, nil)
	require.NoError(t, err)

	cases := []struct {
		defn     *Type
		expected string
	}{
		{Object, NameObject},
		{Nil, NameNil},
		{String, NameString},
		{Node, NameNode},
		{call, "ast::CallExpr"},
		{nested, "a::b::C"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, tc.defn.String())
	}
}

func TestTypeFields(t *testing.T) {
	t.Parallel()
	reg := NewRegistry("ast")
	call, err := reg.Define("ast", "CallExpr", false, []Field{
		{Name: "Fun", Kind: FieldScalar},
		{Name: "Args", Kind: FieldNodeList},
		{Name: "Tags", Kind: FieldScalarList},
	})
	require.NoError(t, err)
	assert.True(t, call.Decomposable())
	assert.True(t, call.Groupable())

	field, ok := call.Field("Args")
	require.True(t, ok)
	assert.True(t, field.Kind.IsList())
	idx, ok := call.FieldIndex("Tags")
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	field, ok = call.Field("Fun")
	require.True(t, ok)
	assert.False(t, field.Kind.IsList())
	_, ok = call.Field("Missing")
	assert.False(t, ok)

	empty, err := reg.Define("ast", "Empty", false, nil)
	require.NoError(t, err)
	assert.True(t, empty.Decomposable())

	abstract, err := reg.Define("ast", "Abstract", true, nil)
	require.NoError(t, err)
	assert.False(t, abstract.Decomposable())
	assert.False(t, abstract.Groupable())

	special, err := reg.Define("ast", "SpecialCall", false, nil, call)
	require.NoError(t, err)
	assert.False(t, call.Groupable())
	assert.True(t, special.Groupable())
	assert.True(t, special.IsA(call))

	assert.False(t, String.Decomposable())
	assert.False(t, String.Groupable())
	_, ok = String.Field("x")
	assert.False(t, ok)
}

func TestFieldKindText(t *testing.T) {
	t.Parallel()
	cases := map[string]FieldKind{
		"scalar":        FieldScalar,
		"node":          FieldScalar,
		"":              FieldScalar,
		"scalar_list":   FieldScalarList,
		"constant_list": FieldScalarList,
		"node_list":     FieldNodeList,
	}
	for text, expected := range cases {
		var kind FieldKind
		require.NoError(t, kind.UnmarshalText([]byte(text)))
		assert.Equal(t, expected, kind, text)
	}
	var kind FieldKind
	assert.Error(t, kind.UnmarshalText([]byte("bogus")))

	out, err := FieldNodeList.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "node_list", string(out))
}

func TestRegistryDefine(t *testing.T) {
	t.Parallel()
	reg := NewRegistry("ast")
	first, err := reg.Define("ast", "A", false, nil)
	require.NoError(t, err)
	second, err := reg.Define("ast", "B", false, nil)
	require.NoError(t, err)
	assert.Equal(t, ID(len(Builtins)), first.ID)
	assert.Equal(t, first.ID+1, second.ID)

	_, err = reg.Define("ast", "A", false, nil)
	assert.EqualError(t, err, "ast::A is already defined")
	_, err = reg.Define("ast", "", false, nil)
	assert.Error(t, err)
	_, err = reg.Define("ast", "C", false, nil, String)
	assert.Error(t, err)
	_, err = reg.Define("ast", "D", false, []Field{{Name: "x"}, {Name: "x"}})
	assert.Error(t, err)

	byID, ok := reg.ByID(second.ID)
	require.True(t, ok)
	assert.Same(t, second, byID)
	_, ok = reg.ByID(1000)
	assert.False(t, ok)
	assert.Len(t, reg.Types(), len(Builtins)+2)
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()
	reg := NewRegistry("ast")
	call, err := reg.Define("ast", "CallExpr", false, nil)
	require.NoError(t, err)

	found, ok := reg.Find("ast::CallExpr")
	require.True(t, ok)
	assert.Same(t, call, found)
	found, ok = reg.Find("::ast::CallExpr")
	require.True(t, ok)
	assert.Same(t, call, found)
	found, ok = reg.Find("String")
	require.True(t, ok)
	assert.Same(t, String, found)
	_, ok = reg.Find("CallExpr")
	assert.False(t, ok)
	_, ok = reg.Find("nope::CallExpr")
	assert.False(t, ok)
	_, ok = reg.Find("")
	assert.False(t, ok)

	ns, ok := reg.Namespace(reg.Root(), "ast")
	require.True(t, ok)
	assert.Same(t, reg.DefaultNamespace(), ns)
	assert.Equal(t, "ast", ns.Path())
	found, ok = reg.Type(ns, "CallExpr")
	require.True(t, ok)
	assert.Same(t, call, found)
}

func TestRegistryAlias(t *testing.T) {
	t.Parallel()
	reg := NewRegistry("ast")
	call, err := reg.Define("ast", "CallExpr", false, nil)
	require.NoError(t, err)
	require.NoError(t, reg.Alias("", "Call", call))
	found, ok := reg.Find("Call")
	require.True(t, ok)
	assert.Same(t, call, found)
	assert.Error(t, reg.Alias("", "Call", call))
}

func TestRegistryLoad(t *testing.T) {
	t.Parallel()
	reg := NewRegistry("ast")
	err := reg.Load(strings.NewReader(`
[log]
level = "debug"

[[type]]
namespace = "shapes"
name = "Shape"
abstract = true

[[type]]
namespace = "shapes"
name = "Circle"
supers = ["shapes::Shape"]
[[type.field]]
name = "radius"
[[type.field]]
name = "points"
kind = "node_list"

[[type]]
name = "Round"
alias = "shapes::Circle"
`))
	require.NoError(t, err)

	shape, ok := reg.Find("shapes::Shape")
	require.True(t, ok)
	assert.True(t, shape.Abstract)
	circle, ok := reg.Find("shapes::Circle")
	require.True(t, ok)
	assert.True(t, circle.IsA(shape))
	assert.Equal(t, []Field{{Name: "radius", Kind: FieldScalar}, {Name: "points", Kind: FieldNodeList}}, circle.Fields)
	round, ok := reg.Find("Round")
	require.True(t, ok)
	assert.Same(t, circle, round)
}

func TestRegistryLoadErrors(t *testing.T) {
	t.Parallel()
	cases := []string{
		"[[type]]\nname = \"A\"\nsupers = [\"Missing\"]\n",
		"[[type]]\nname = \"A\"\nalias = \"Missing\"\n",
		"[[type]]\nname = \"A\"\n[[type.field]]\nname = \"x\"\nkind = \"wat\"\n",
		"[[type",
	}
	for _, src := range cases {
		reg := NewRegistry("ast")
		assert.Error(t, reg.Load(strings.NewReader(src)), src)
	}
}
