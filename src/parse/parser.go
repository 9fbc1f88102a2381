package parse

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/tanema/nodepat/src/lerrors"
)

// Parser turns pattern source into a pattern tree. A parser handles one
// source at a time.
type Parser struct {
	lex      *lexer
	filename string
}

// File is a helper function around Parse to open and close a file automatically.
func File(path string) (*MatchPredicate, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return Parse(path, src)
}

// Parse parses a whole pattern. If the source ends before the pattern is
// complete the error wraps io.EOF so that callers like the repl can ask for
// more input.
func Parse(filename string, src io.Reader) (*MatchPredicate, error) {
	return New().Parse(filename, src)
}

// ParseString parses pattern source held in a string.
func ParseString(src string) (*MatchPredicate, error) {
	return Parse("<pattern>", strings.NewReader(src))
}

// New creates a new parser.
func New() *Parser {
	return &Parser{}
}

// Parse parses a single pattern from src.
func (p *Parser) Parse(filename string, src io.Reader) (*MatchPredicate, error) {
	p.filename = filename
	p.lex = newLexer(filename, src)
	pattern, err := p.alternation()
	if err != nil {
		return nil, err
	}
	tk, err := p.next()
	if err != nil {
		return nil, err
	} else if tk.Kind != tokenEOS {
		return nil, p.parseErr(tk, fmt.Errorf("unexpected %v after pattern", tk))
	}
	return &MatchPredicate{Pattern: pattern}, nil
}

func (p *Parser) parseErr(tk *token, err error) error {
	if err == nil {
		return nil
	}
	var lerr *lerrors.Error
	if errors.As(err, &lerr) {
		return err
	}
	newErr := &lerrors.Error{
		Kind:     lerrors.ParserErr,
		Filename: p.filename,
		Err:      err,
	}
	if tk != nil {
		newErr.Line = tk.Line
		newErr.Column = tk.Column
	} else {
		newErr.Line = p.lex.Line
		newErr.Column = p.lex.Column
	}
	return newErr
}

func (p *Parser) eofErr(tk *token) error {
	return p.parseErr(tk, fmt.Errorf("unexpected end of pattern: %w", io.EOF))
}

func (p *Parser) peek() (*token, error) {
	tk, err := p.lex.Peek()
	if errors.Is(err, io.EOF) {
		return nil, p.eofErr(nil)
	}
	return tk, err
}

func (p *Parser) next() (*token, error) {
	tk, err := p.lex.Next()
	if errors.Is(err, io.EOF) {
		return nil, p.eofErr(nil)
	}
	return tk, err
}

func (p *Parser) consumeToken(tt tokenType) (*token, error) {
	tk, err := p.next()
	if err != nil {
		return nil, err
	} else if tk.Kind == tokenEOS {
		return nil, p.eofErr(tk)
	} else if tt != tk.Kind {
		return nil, p.parseErr(tk, fmt.Errorf("expected %q but consumed %v", tt, tk))
	}
	return tk, nil
}

// alternation -> range { '|' range }.
func (p *Parser) alternation() (Node, error) {
	left, err := p.rangePattern()
	if err != nil {
		return nil, err
	}
	for {
		tk, err := p.peek()
		if err != nil {
			return nil, err
		} else if tk.Kind != tokenPipe {
			return left, nil
		}
		_, _ = p.next()
		right, err := p.rangePattern()
		if err != nil {
			return nil, err
		}
		left = &Alternation{Left: left, Right: right}
	}
}

// range -> ('..' | '...') value | value [('..' | '...') [value]].
func (p *Parser) rangePattern() (Node, error) {
	tk, err := p.peek()
	if err != nil {
		return nil, err
	} else if tk.Kind == tokenRange || tk.Kind == tokenRangeExcl {
		_, _ = p.next()
		right, err := p.value()
		if err != nil {
			return nil, err
		}
		return &Range{Right: right, Exclusive: tk.Kind == tokenRangeExcl}, nil
	}

	left, err := p.value()
	if err != nil {
		return nil, err
	}
	tk, err = p.peek()
	if err != nil {
		return nil, err
	} else if tk.Kind != tokenRange && tk.Kind != tokenRangeExcl {
		return left, nil
	}
	_, _ = p.next()
	rng := &Range{Left: left, Exclusive: tk.Kind == tokenRangeExcl}
	if startsValue, err := p.startsValue(); err != nil {
		return nil, err
	} else if startsValue {
		if rng.Right, err = p.value(); err != nil {
			return nil, err
		}
	}
	return rng, nil
}

func (p *Parser) startsValue() (bool, error) {
	tk, err := p.peek()
	if err != nil {
		return false, err
	}
	switch tk.Kind {
	case tokenNil, tokenInteger, tokenString, tokenSymbol, tokenRegex, tokenIdentifier,
		tokenDoubleColon, tokenOpenBracket, tokenOpenCurly, tokenOpenParen:
		return true, nil
	default:
		return false, nil
	}
}

// value -> nil | integer | string | symbol | regex | constant | binding
// | '[' items ']' | '{' items '}' | '(' alternation ')'.
func (p *Parser) value() (Node, error) {
	tk, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tk.Kind {
	case tokenNil:
		return &Nil{}, nil
	case tokenInteger:
		return &Integer{Value: tk.IntVal}, nil
	case tokenString:
		return &String{Value: tk.StringVal}, nil
	case tokenSymbol:
		return &Symbol{Value: tk.StringVal}, nil
	case tokenRegex:
		return &Regex{Source: tk.StringVal, Flags: tk.Flags}, nil
	case tokenOpenBracket:
		return p.items(nil, tokenCloseBracket)
	case tokenOpenCurly:
		return p.items(nil, tokenCloseCurly)
	case tokenOpenParen:
		pattern, err := p.alternation()
		if err != nil {
			return nil, err
		} else if _, err := p.consumeToken(tokenCloseParen); err != nil {
			return nil, err
		}
		return pattern, nil
	case tokenDoubleColon:
		name, err := p.consumeToken(tokenIdentifier)
		if err != nil {
			return nil, err
		}
		return p.constant(&ConstantPath{Name: name.StringVal})
	case tokenIdentifier:
		next, err := p.peek()
		if err != nil {
			return nil, err
		} else if isConstName(tk.StringVal) || next.Kind == tokenDoubleColon {
			return p.constant(&ConstantRead{Name: tk.StringVal})
		}
		return &Binding{Name: tk.StringVal}, nil
	case tokenEOS:
		return nil, p.eofErr(tk)
	default:
		return nil, p.parseErr(tk, fmt.Errorf("unexpected %v", tk))
	}
}

// constant -> name { '::' name } [ '[' items ']' | '(' items ')' ].
func (p *Parser) constant(node Node) (Node, error) {
	for {
		tk, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch tk.Kind {
		case tokenDoubleColon:
			_, _ = p.next()
			name, err := p.consumeToken(tokenIdentifier)
			if err != nil {
				return nil, err
			}
			node = &ConstantPath{Parent: node, Name: name.StringVal}
		case tokenOpenBracket:
			_, _ = p.next()
			return p.items(node, tokenCloseBracket)
		case tokenOpenParen:
			_, _ = p.next()
			return p.items(node, tokenCloseParen)
		default:
			return node, nil
		}
	}
}

// items -> [ item { ',' item } [','] ] closer
// item -> label alternation | string-label alternation | '**' [name] | '*' [name] | alternation.
func (p *Parser) items(constant Node, closer tokenType) (Node, error) {
	var positional, assocs []Node
	var first *token
	for {
		tk, err := p.peek()
		if err != nil {
			return nil, err
		} else if tk.Kind == closer {
			_, _ = p.next()
			break
		} else if first == nil {
			first = tk
		}

		switch tk.Kind {
		case tokenLabel, tokenStringLabel:
			_, _ = p.next()
			value, err := p.alternation()
			if err != nil {
				return nil, err
			}
			var key Node = &Symbol{Value: tk.StringVal}
			if tk.Kind == tokenStringLabel {
				key = &String{Value: tk.StringVal}
			}
			assocs = append(assocs, &Assoc{Key: key, Value: value})
		case tokenDoubleStar:
			_, _ = p.next()
			name, err := p.optionalName()
			if err != nil {
				return nil, err
			}
			assocs = append(assocs, &KeywordSplat{Name: name})
		case tokenStar:
			_, _ = p.next()
			name, err := p.optionalName()
			if err != nil {
				return nil, err
			}
			positional = append(positional, &Splat{Name: name})
		default:
			item, err := p.alternation()
			if err != nil {
				return nil, err
			}
			positional = append(positional, item)
		}

		tk, err = p.next()
		if err != nil {
			return nil, err
		} else if tk.Kind == tokenEOS {
			return nil, p.eofErr(tk)
		} else if tk.Kind == closer {
			break
		} else if tk.Kind != tokenComma {
			return nil, p.parseErr(tk, fmt.Errorf("expected %q or %q but consumed %v", tokenComma, closer, tk))
		}
	}

	if len(assocs) > 0 || closer == tokenCloseCurly {
		if len(positional) > 0 {
			return nil, p.parseErr(first, errors.New("cannot mix positional and keyed entries in one pattern"))
		}
		return &HashPattern{Constant: constant, Assocs: assocs}, nil
	}
	return p.arrayPattern(constant, positional, first)
}

func (p *Parser) arrayPattern(constant Node, items []Node, first *token) (Node, error) {
	var splats []int
	for i, item := range items {
		if _, isSplat := item.(*Splat); isSplat {
			splats = append(splats, i)
		}
	}
	switch {
	case len(splats) == 0:
		return &ArrayPattern{Constant: constant, Requireds: items}, nil
	case len(splats) == 1:
		at := splats[0]
		return &ArrayPattern{
			Constant:  constant,
			Requireds: nonEmpty(items[:at]),
			Rest:      items[at].(*Splat),
			Posts:     nonEmpty(items[at+1:]),
		}, nil
	case len(splats) == 2 && splats[0] == 0 && splats[1] == len(items)-1:
		return &FindPattern{
			Constant:  constant,
			Left:      items[0].(*Splat),
			Requireds: nonEmpty(items[1 : len(items)-1]),
			Right:     items[len(items)-1].(*Splat),
		}, nil
	default:
		return nil, p.parseErr(first, errors.New("a pattern may have one splat or a leading and trailing splat"))
	}
}

func (p *Parser) optionalName() (string, error) {
	tk, err := p.peek()
	if err != nil {
		return "", err
	} else if tk.Kind != tokenIdentifier {
		return "", nil
	}
	_, _ = p.next()
	return tk.StringVal, nil
}

func nonEmpty(nodes []Node) []Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes
}

func isConstName(name string) bool {
	for _, ch := range name {
		return unicode.IsUpper(ch)
	}
	return false
}
