package lerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	cases := []struct {
		err      *Error
		expected string
	}{
		{&Error{Kind: CompileErr, Err: errors.New("[1, *rest]")}, "Compile Error: unable to compile the node represented by [1, *rest]"},
		{&Error{Kind: NameErr, Err: errors.New("Foo::Bar")}, "Name Error: unable to find the constant path Foo::Bar"},
		{&Error{Kind: FieldErr, Err: errors.New("nope")}, "Field Error: nope"},
		{&Error{Kind: ParserErr, Filename: "<pattern>", Line: 1, Column: 4, Err: cause}, "Parse Error: <pattern>:1:4 boom"},
		{&Error{Kind: LexerErr, Err: cause}, "Lex Error: boom"},
		{&Error{Kind: DumpErr, Err: cause}, "Dump Error: boom"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, tc.err.Error())
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", &Error{Kind: NameErr, Err: cause})
	var lerr *Error
	assert.ErrorAs(t, err, &lerr)
	assert.Equal(t, NameErr, lerr.Kind)
	assert.ErrorIs(t, err, cause)
}
