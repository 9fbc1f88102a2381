package goast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nodes "github.com/tanema/nodepat/src/ast"
	"github.com/tanema/nodepat/src/compiler"
	"github.com/tanema/nodepat/src/parse"
	"github.com/tanema/nodepat/src/runtime"
	"github.com/tanema/nodepat/src/types"
)

func newRegistry(t *testing.T) *types.Registry {
	t.Helper()
	reg := types.NewRegistry(Namespace)
	require.NoError(t, Register(reg))
	return reg
}

func TestRegister(t *testing.T) {
	t.Parallel()
	reg := newRegistry(t)

	expr, ok := reg.Find("ast::Expr")
	require.True(t, ok)
	assert.True(t, expr.Abstract)
	assert.False(t, expr.Decomposable())

	ident, ok := reg.Find("ast::Ident")
	require.True(t, ok)
	assert.True(t, ident.IsA(expr))
	assert.True(t, ident.Groupable())
	assert.Equal(t, []types.Field{{Name: "Name", Kind: types.FieldScalar}}, ident.Fields)

	call, ok := reg.Find("ast::CallExpr")
	require.True(t, ok)
	args, ok := call.Field("Args")
	require.True(t, ok)
	assert.Equal(t, types.FieldNodeList, args.Kind)
	_, ok = call.Field("Lparen")
	assert.False(t, ok)

	stmt, _ := reg.Find("ast::Stmt")
	assign, ok := reg.Find("ast::AssignStmt")
	require.True(t, ok)
	assert.True(t, assign.IsA(stmt))
	assert.False(t, assign.IsA(expr))

	field, ok := reg.Find("ast::Field")
	require.True(t, ok)
	assert.Equal(t, []*types.Type{types.Node}, field.Supers)

	assert.Error(t, Register(reg))
}

func TestParseExpr(t *testing.T) {
	t.Parallel()
	reg := newRegistry(t)
	node, err := ParseExpr(reg, `fmt.Println(x, "y")`)
	require.NoError(t, err)

	assert.Equal(t, "CallExpr", node.Type.Name)
	assert.Equal(t, "<expr>:1:1", node.Pos)
	fun, ok := node.Field("Fun").(*nodes.Node)
	require.True(t, ok)
	assert.Equal(t, "SelectorExpr", fun.Type.Name)
	args, ok := node.Field("Args").([]any)
	require.True(t, ok)
	require.Len(t, args, 2)
	lit, ok := args[1].(*nodes.Node)
	require.True(t, ok)
	assert.Equal(t, nodes.Symbol("STRING"), lit.Field("Kind"))
	assert.Equal(t, `"y"`, lit.Field("Value"))
	assert.Equal(t, "<expr>:1:16", lit.Pos)
}

func TestConvertEmptyLists(t *testing.T) {
	t.Parallel()
	reg := newRegistry(t)
	node, err := ParseExpr(reg, `f()`)
	require.NoError(t, err)
	assert.Equal(t, []any{}, node.Field("Args"))
	assert.Equal(t, "f", node.Field("Fun").(*nodes.Node).Field("Name"))
}

func TestParseFileMatch(t *testing.T) {
	t.Parallel()
	reg := newRegistry(t)
	src := `package main

import "fmt"

func main() {
	x := 1
	fmt.Println(x + 2)
	println("debug")
}
`
	file, err := ParseFile(reg, "main.go", src)
	require.NoError(t, err)

	tests := []struct {
		pattern string
		found   []string
	}{
		{`CallExpr(Fun: Ident(Name: "println"))`, []string{"main.go:8:2"}},
		{`CallExpr(Fun: SelectorExpr(X: Ident(Name: "fmt")), Args: [BinaryExpr(Op: :"+")])`, []string{"main.go:7:2"}},
		{`AssignStmt(Tok: :":=", Rhs: [BasicLit(Kind: :INT, Value: "1")])`, []string{"main.go:6:2"}},
		{`FuncDecl(Name: Ident(Name: /^ma/))`, []string{"main.go:5:1"}},
		{`ImportSpec(Path: BasicLit(Value: "\"fmt\""))`, []string{"main.go:3:8", "main.go:3:8"}},
		{`Ident(Name: "x") | BasicLit(Kind: :INT)`, []string{"main.go:6:2", "main.go:6:7", "main.go:7:14", "main.go:7:18"}},
		{`ReturnStmt`, nil},
	}
	for _, test := range tests {
		pred, err := parse.ParseString(test.pattern)
		require.NoError(t, err, test.pattern)
		prog, err := compiler.Compile(reg, pred)
		require.NoError(t, err, test.pattern)

		var found []string
		nodes.Walk(file, func(node *nodes.Node) bool {
			if runtime.Execute(prog, node) {
				found = append(found, node.Pos)
			}
			return true
		})
		assert.Equal(t, test.found, found, test.pattern)
	}
}
