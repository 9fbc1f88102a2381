package bytecode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanema/nodepat/src/ast"
)

func i64(n int64) *int64 { return &n }

func TestLiteralMatches(t *testing.T) {
	t.Parallel()
	re, err := NewRegexp("^fo+$", "i")
	require.NoError(t, err)

	tests := []struct {
		lit   Literal
		val   any
		match bool
	}{
		{Str("x"), "x", true},
		{Str("x"), "y", false},
		{Str("x"), ast.Symbol("x"), false},
		{Str(""), nil, false},
		{Sym("foo"), ast.Symbol("foo"), true},
		{Sym("foo"), "foo", false},
		{Sym("foo"), ast.Symbol("bar"), false},
		{Int(42), 42, true},
		{Int(42), int64(42), true},
		{Int(42), uint8(42), true},
		{Int(42), 42.0, true},
		{Int(42), 42.5, false},
		{Int(42), "42", false},
		{Int(-1), uint64(math.MaxUint64), false},
		{NewRange(i64(1), i64(5), false), 5, true},
		{NewRange(i64(1), i64(5), true), 5, false},
		{NewRange(i64(1), i64(5), true), 4.99, true},
		{NewRange(i64(1), i64(5), false), 0, false},
		{NewRange(nil, i64(5), false), math.MinInt64, true},
		{NewRange(i64(1), nil, false), math.MaxInt64, true},
		{NewRange(i64(1), nil, false), math.NaN(), false},
		{NewRange(i64(1), i64(5), false), "3", false},
		{NewRange(i64(1), i64(5), false), NewRange(i64(1), i64(5), false), true},
		{NewRange(i64(1), i64(5), false), NewRange(i64(1), i64(5), true), false},
		{NewRange(nil, i64(5), false), NewRange(i64(0), i64(5), false), false},
		{re, "FOO", true},
		{re, ast.Symbol("foo"), true},
		{re, "bar", false},
		{re, 12, false},
		{re, &Regexp{Source: "^fo+$", Flags: "i"}, true},
		{re, &Regexp{Source: "^fo+$"}, false},
	}

	for _, test := range tests {
		assert.Equal(t, test.match, test.lit.Matches(test.val), "%v matching %v", test.lit, test.val)
	}
}

func TestLiteralString(t *testing.T) {
	t.Parallel()
	re, err := NewRegexp("a/b", "mim")
	require.NoError(t, err)
	assert.Equal(t, `"x\n"`, Str("x\n").String())
	assert.Equal(t, ":foo", Sym("foo").String())
	assert.Equal(t, `:"foo bar"`, Sym("foo bar").String())
	assert.Equal(t, "-12", Int(-12).String())
	assert.Equal(t, "1..5", NewRange(i64(1), i64(5), false).String())
	assert.Equal(t, "1...5", NewRange(i64(1), i64(5), true).String())
	assert.Equal(t, "..5", NewRange(nil, i64(5), false).String())
	assert.Equal(t, "1..", NewRange(i64(1), nil, false).String())
	assert.Equal(t, `/a\/b/mi`, re.String())
}

func TestNewRegexpErrors(t *testing.T) {
	t.Parallel()
	_, err := NewRegexp("abc", "x")
	assert.Error(t, err)
	_, err = NewRegexp("(abc", "")
	assert.Error(t, err)
}
