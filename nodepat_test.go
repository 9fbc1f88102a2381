package nodepat

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanema/nodepat/src/ast"
	"github.com/tanema/nodepat/src/goast"
	"github.com/tanema/nodepat/src/lerrors"
	"github.com/tanema/nodepat/src/runtime"
)

const testSrc = `package main

func main() {
	a := b + 1
	println(a, "b")
}
`

func parseTestFile(t *testing.T) *ast.Node {
	t.Helper()
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	file, err := goast.ParseFile(reg, "main.go", testSrc)
	require.NoError(t, err)
	return file
}

func TestPatternMatch(t *testing.T) {
	t.Parallel()
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	pattern, err := New(`CallExpr(Fun: Ident(Name: "f"), Args: [Object])`, nil)
	require.NoError(t, err)

	tests := map[string]bool{
		`f(1)`:    true,
		`f(1, 2)`: false,
		`f()`:     false,
		`g(1)`:    false,
		`f`:       false,
	}
	for src, expected := range tests {
		subject, err := goast.ParseExpr(reg, src)
		require.NoError(t, err)
		matched, err := pattern.Match(subject)
		require.NoError(t, err)
		assert.Equal(t, expected, matched, src)
	}
}

func TestPatternOr(t *testing.T) {
	t.Parallel()
	left := MustNew(`Ident(Name: "a")`, nil)
	right := MustNew(` Ident(Name: "b") `, nil)
	either := left.Or(right)
	assert.Equal(t, `Ident(Name: "a") | Ident(Name: "b")`, either.Source())

	combined := MustNew(either.Source(), nil)
	expected, err := combined.Disasm()
	require.NoError(t, err)
	actual, err := either.Disasm()
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	reg, _ := DefaultRegistry()
	for src, expected := range map[string]bool{"a": true, "b": true, "c": false} {
		subject, err := goast.ParseExpr(reg, src)
		require.NoError(t, err)
		matched, err := either.Match(subject)
		require.NoError(t, err)
		assert.Equal(t, expected, matched, src)
	}
}

func TestPatternCompileOnce(t *testing.T) {
	t.Parallel()
	pattern := MustNew(`Ident | BasicLit`, nil)
	var wg sync.WaitGroup
	programs := make([]any, 8)
	for i := range programs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prog, err := pattern.Compile()
			assert.NoError(t, err)
			programs[i] = prog
		}()
	}
	wg.Wait()
	for _, prog := range programs {
		assert.Same(t, programs[0], prog)
	}
}

func TestPatternErrors(t *testing.T) {
	t.Parallel()
	_, err := New(`CallExpr(Fun: `, nil)
	assert.ErrorIs(t, err, io.EOF)

	_, err = New(`CallExpr(]`, nil)
	var lerr *lerrors.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, lerrors.ParserErr, lerr.Kind)

	tests := map[string]lerrors.ErrorKind{
		`Missing`:          lerrors.NameErr,
		`Ident(Name: [1])`: lerrors.FieldErr,
		`CallExpr(**rest)`: lerrors.CompileErr,
	}
	for src, kind := range tests {
		pattern := MustNew(src, nil)
		_, err := pattern.Match(nil)
		require.ErrorAs(t, err, &lerr, src)
		assert.Equal(t, kind, lerr.Kind, src)
		_, again := pattern.Compile()
		assert.Equal(t, err, again)
	}

	assert.Panics(t, func() { MustNew(`(`, nil) })
}

func TestPatternScan(t *testing.T) {
	t.Parallel()
	file := parseTestFile(t)
	pattern := MustNew(`Ident(Name: "a" | "b")`, nil)
	found, err := pattern.Scan(file)
	require.NoError(t, err)
	locations := make([]string, len(found))
	for i, node := range found {
		locations[i] = Location(node)
	}
	assert.Equal(t, []string{
		"main.go:4:2: Ident",
		"main.go:4:7: Ident",
		"main.go:5:10: Ident",
	}, locations)
}

func TestPatternDumpLoad(t *testing.T) {
	t.Parallel()
	file := parseTestFile(t)
	pattern := MustNew(`BinaryExpr(Op: :"+", Y: BasicLit(Kind: :INT))`, nil)
	data, err := pattern.Dump()
	require.NoError(t, err)

	loaded, err := Load(data, nil)
	require.NoError(t, err)
	assert.Empty(t, loaded.Source())
	expected, _ := pattern.Scan(file)
	actual, err := loaded.Scan(file)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
	assert.Len(t, actual, 1)

	_, err = loaded.Or(pattern).Compile()
	assert.ErrorIs(t, err, errNoSource)

	_, err = Load([]byte("nope"), nil)
	var lerr *lerrors.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, lerrors.DumpErr, lerr.Kind)
}

func TestPatternTrace(t *testing.T) {
	t.Parallel()
	pattern := MustNew(`nil`, nil)
	pcs := []int{}
	matched, err := pattern.Trace(nil, func(step runtime.Step) { pcs = append(pcs, step.PC) })
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, []int{0, 1}, pcs)
}

func TestEvalPattern(t *testing.T) {
	t.Parallel()
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	file := parseTestFile(t)
	subjects := []*ast.Node{file}

	var out bytes.Buffer
	require.NoError(t, evalPattern(reg, subjects, "  \n", &out))
	assert.Empty(t, out.String())

	require.NoError(t, evalPattern(reg, subjects, `BasicLit(Kind: :STRING)`+"\n", &out))
	assert.Equal(t, "main.go:5:13: BasicLit\n1 matches\n", out.String())

	out.Reset()
	require.NoError(t, evalPattern(reg, subjects, `ReturnStmt`, &out))
	assert.Equal(t, "0 matches\n", out.String())

	out.Reset()
	require.NoError(t, evalPattern(reg, subjects, ":disasm nil\n", &out))
	assert.Equal(t, "0000 checknil     0002\n0001 jump         0003\n0002 fail\n", out.String())

	out.Reset()
	err = evalPattern(reg, subjects, "CallExpr(\n", &out)
	assert.True(t, errors.Is(err, io.EOF))
	require.NoError(t, evalPattern(reg, subjects, "CallExpr(\nFun: Ident(Name: \"println\"))\n", &out))
	assert.Equal(t, "main.go:5:2: CallExpr\n1 matches\n", out.String())

	out.Reset()
	assert.Error(t, evalPattern(reg, subjects, "Unknown::Type", &out))
	assert.Empty(t, out.String())
}
