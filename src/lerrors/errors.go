// Package lerrors is a unified errors package for pattern parsing and compiling
// so that they can be formatted in a unified way and handled in a unified way.
package lerrors

import (
	"fmt"
)

type (
	// ErrorKind is an enum to describe where the error originates from.
	ErrorKind int
	// Error captures all errors raised while turning pattern source into a
	// program. It distinguishes between lexer, parser and the compile time
	// errors and will format them accordingly.
	Error struct {
		Line     int64
		Column   int64
		Kind     ErrorKind
		Err      error
		Filename string
	}
)

const (
	// CompileErr is raised when a pattern node has no compilation rule.
	CompileErr ErrorKind = iota
	// NameErr is raised when a constant path does not resolve in the registry.
	NameErr
	// FieldErr is raised when a field can never be matched by the given sub pattern.
	FieldErr
	// ParserErr is an error that originates from the parser.
	ParserErr
	// LexerErr is an error that originates from the lexer.
	LexerErr
	// DumpErr is raised when a dumped program cannot be read back.
	DumpErr
)

func (err *Error) Error() string {
	switch err.Kind {
	case CompileErr:
		return fmt.Sprintf("Compile Error: unable to compile the node represented by %v", err.Err)
	case NameErr:
		return fmt.Sprintf("Name Error: unable to find the constant path %v", err.Err)
	case FieldErr:
		return fmt.Sprintf("Field Error: %v", err.Err)
	case ParserErr:
		return fmt.Sprintf(`Parse Error: %s:%v:%v %v`, err.Filename, err.Line, err.Column, err.Err)
	case LexerErr:
		return fmt.Sprintf("Lex Error: %v", err.Err.Error())
	case DumpErr:
		return fmt.Sprintf("Dump Error: %v", err.Err)
	default:
		return err.Err.Error()
	}
}

func (err *Error) Unwrap() error { return err.Err }
