package parse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tanema/nodepat/src/lerrors"
)

var escapeCodes = map[rune]rune{
	'a':  '\x07', // bell
	'b':  '\x08', // backspace
	'f':  '\x0C', // form feed
	'n':  '\n',   // newline
	'r':  '\r',   // carriage return
	't':  '\t',   // tab
	'v':  '\x0B', // vertical tab
	'0':  '\x00',
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
}

type lexer struct {
	filename string
	rdr      *bufio.Reader
	peeked   *token
	LineInfo
}

func newLexer(filename string, src io.Reader) *lexer {
	return &lexer{
		filename: filename,
		LineInfo: LineInfo{Line: 1},
		rdr:      bufio.NewReaderSize(src, 4096),
	}
}

func (lex *lexer) errf(msg string, data ...any) error {
	return lex.err(fmt.Errorf(msg, data...))
}

func (lex *lexer) err(err error) error {
	if errors.Is(err, io.EOF) {
		return err
	}
	return &lerrors.Error{
		Filename: lex.filename,
		Kind:     lerrors.LexerErr,
		Line:     lex.Line,
		Column:   lex.Column,
		Err:      err,
	}
}

func (lex *lexer) peek() rune {
	chs, _ := lex.rdr.Peek(1)
	if len(chs) == 0 {
		return 0
	}
	return rune(chs[0])
}

// followedByColon reports if the next rune is a single colon, a double colon
// starts a constant path instead.
func (lex *lexer) followedByColon() bool {
	chs, _ := lex.rdr.Peek(2)
	return len(chs) > 0 && chs[0] == ':' && (len(chs) == 1 || chs[1] != ':')
}

func (lex *lexer) next() (rune, error) {
	ch, _, err := lex.rdr.ReadRune()
	if err != nil {
		return ch, lex.err(err)
	}
	if ch == '\n' {
		lex.Line++
		lex.Column = 0
	} else {
		lex.Column++
	}
	return ch, nil
}

func (lex *lexer) mustNext(expected rune) error {
	ch, err := lex.next()
	if err != nil {
		return err
	} else if ch != expected {
		return lex.errf("expected %q but found %q", expected, ch)
	}
	return nil
}

func (lex *lexer) skipWhitespace() error {
	for {
		switch lex.peek() {
		case ' ', '\t', '\n', '\r':
			if _, err := lex.next(); err != nil {
				return err
			}
		case '#':
			for ch := lex.peek(); ch != '\n' && ch != 0; ch = lex.peek() {
				if _, err := lex.next(); err != nil {
					return err
				}
			}
		default:
			return nil
		}
	}
}

func (lex *lexer) tokenVal(tk tokenType, linfo LineInfo) (*token, error) {
	return &token{Kind: tk, LineInfo: linfo}, nil
}

func (lex *lexer) takeTokenVal(tk tokenType, linfo LineInfo) (*token, error) {
	_, err := lex.next()
	return &token{Kind: tk, LineInfo: linfo}, err
}

func (lex *lexer) Peek() (*token, error) {
	if lex.peeked == nil {
		tk, err := lex.Next()
		if err != nil {
			return nil, err
		}
		lex.peeked = tk
	}
	return lex.peeked, nil
}

// Next returns the next token. The end of input is a tokenEOS while running
// out of input inside of a token is io.EOF.
func (lex *lexer) Next() (*token, error) {
	if lex.peeked != nil {
		tk := lex.peeked
		lex.peeked = nil
		return tk, nil
	}
	if err := lex.skipWhitespace(); err != nil {
		return nil, err
	}
	ch, err := lex.next()
	if errors.Is(err, io.EOF) {
		return &token{Kind: tokenEOS, LineInfo: LineInfo{Line: lex.Line, Column: lex.Column + 1}}, nil
	} else if err != nil {
		return nil, err
	}
	linfo := lex.LineInfo
	peekCh := lex.peek()
	switch {
	case ch == '|':
		return lex.tokenVal(tokenPipe, linfo)
	case ch == ',':
		return lex.tokenVal(tokenComma, linfo)
	case ch == '(':
		return lex.tokenVal(tokenOpenParen, linfo)
	case ch == ')':
		return lex.tokenVal(tokenCloseParen, linfo)
	case ch == '[':
		return lex.tokenVal(tokenOpenBracket, linfo)
	case ch == ']':
		return lex.tokenVal(tokenCloseBracket, linfo)
	case ch == '{':
		return lex.tokenVal(tokenOpenCurly, linfo)
	case ch == '}':
		return lex.tokenVal(tokenCloseCurly, linfo)
	case ch == '*' && peekCh == '*':
		return lex.takeTokenVal(tokenDoubleStar, linfo)
	case ch == '*':
		return lex.tokenVal(tokenStar, linfo)
	case ch == '.':
		if err := lex.mustNext('.'); err != nil {
			return nil, err
		} else if lex.peek() == '.' {
			return lex.takeTokenVal(tokenRangeExcl, linfo)
		}
		return lex.tokenVal(tokenRange, linfo)
	case ch == ':' && peekCh == ':':
		return lex.takeTokenVal(tokenDoubleColon, linfo)
	case ch == ':' && (peekCh == '"' || peekCh == '\''):
		if _, err := lex.next(); err != nil {
			return nil, err
		}
		str, err := lex.readString(peekCh)
		if err != nil {
			return nil, err
		}
		return &token{Kind: tokenSymbol, StringVal: str, LineInfo: linfo}, nil
	case ch == ':' && isIdentStart(peekCh):
		start, err := lex.next()
		if err != nil {
			return nil, err
		}
		return &token{Kind: tokenSymbol, StringVal: lex.readIdent(start), LineInfo: linfo}, nil
	case ch == ':':
		return lex.tokenVal(tokenColon, linfo)
	case ch == '-' && isDigit(peekCh), isDigit(ch):
		return lex.parseNumber(ch, linfo)
	case ch == '"' || ch == '\'':
		return lex.parseString(ch, linfo)
	case ch == '/':
		return lex.parseRegex(linfo)
	case isIdentStart(ch):
		return lex.parseIdentifier(ch, linfo)
	}
	return nil, lex.errf("unexpected character %q", ch)
}

func (lex *lexer) readIdent(start rune) string {
	var ident strings.Builder
	ident.WriteRune(start)
	for isIdentChar(lex.peek()) {
		ch, _ := lex.next()
		ident.WriteRune(ch)
	}
	return ident.String()
}

func (lex *lexer) parseIdentifier(start rune, linfo LineInfo) (*token, error) {
	strVal := lex.readIdent(start)
	if lex.followedByColon() {
		_, err := lex.next()
		return &token{Kind: tokenLabel, StringVal: strVal, LineInfo: linfo}, err
	} else if kw, ok := keywords[strVal]; ok {
		return lex.tokenVal(kw, linfo)
	}
	return &token{Kind: tokenIdentifier, StringVal: strVal, LineInfo: linfo}, nil
}

func (lex *lexer) parseString(delimiter rune, linfo LineInfo) (*token, error) {
	str, err := lex.readString(delimiter)
	if err != nil {
		return nil, err
	}
	tk := &token{Kind: tokenString, StringVal: str, LineInfo: linfo}
	if lex.followedByColon() {
		tk.Kind = tokenStringLabel
		_, err = lex.next()
	}
	return tk, err
}

func (lex *lexer) readString(delimiter rune) (string, error) {
	var str strings.Builder
	for {
		ch, err := lex.next()
		if err != nil {
			return "", err
		} else if ch == delimiter {
			return str.String(), nil
		} else if ch != '\\' {
			str.WriteRune(ch)
			continue
		}
		ch, err = lex.next()
		if err != nil {
			return "", err
		} else if esc, ok := escapeCodes[ch]; ok {
			str.WriteRune(esc)
		} else if ch == 'u' {
			r, err := lex.readUnicode()
			if err != nil {
				return "", err
			}
			str.WriteRune(r)
		} else {
			return "", lex.errf("unexpected escape code \\%s", string(ch))
		}
	}
}

// \u{XXX} where XXX is one or more hexadecimal digits.
func (lex *lexer) readUnicode() (rune, error) {
	if err := lex.mustNext('{'); err != nil {
		return 0, err
	}
	var hex strings.Builder
	for isHexDigit(lex.peek()) {
		ch, _ := lex.next()
		hex.WriteRune(ch)
	}
	if err := lex.mustNext('}'); err != nil {
		return 0, err
	}
	ivalue, err := strconv.ParseInt(hex.String(), 16, 32)
	if err != nil {
		return 0, lex.errf("invalid unicode escape %q", hex.String())
	}
	return rune(ivalue), nil
}

// Regexes are delimited by slashes, an escaped slash is a literal slash and
// every other escape is kept for the regexp engine. Trailing letters are flags.
func (lex *lexer) parseRegex(linfo LineInfo) (*token, error) {
	var src strings.Builder
	for {
		ch, err := lex.next()
		if err != nil {
			return nil, err
		} else if ch == '/' {
			break
		} else if ch == '\\' {
			esc, err := lex.next()
			if err != nil {
				return nil, err
			} else if esc != '/' {
				src.WriteRune('\\')
			}
			src.WriteRune(esc)
			continue
		}
		src.WriteRune(ch)
	}
	var flags strings.Builder
	for isLetter(lex.peek()) {
		ch, _ := lex.next()
		flags.WriteRune(ch)
	}
	return &token{Kind: tokenRegex, StringVal: src.String(), Flags: flags.String(), LineInfo: linfo}, nil
}

func (lex *lexer) parseNumber(start rune, linfo LineInfo) (*token, error) {
	var number strings.Builder
	number.WriteRune(start)
	for peekCh := lex.peek(); isDigit(peekCh) || peekCh == '_'; peekCh = lex.peek() {
		ch, _ := lex.next()
		if ch != '_' {
			number.WriteRune(ch)
		}
	}
	if isIdentChar(lex.peek()) {
		return nil, lex.errf("malformed number near %q", number.String()+string(lex.peek()))
	}
	ivalue, err := strconv.ParseInt(number.String(), 10, 64)
	if err != nil {
		return nil, lex.errf("malformed number %q", number.String())
	}
	return &token{Kind: tokenInteger, IntVal: ivalue, LineInfo: linfo}, nil
}

func isDigit(ch rune) bool { return '0' <= ch && ch <= '9' }

func isLetter(ch rune) bool { return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') }

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isIdentStart(ch rune) bool { return isLetter(ch) || ch == '_' }

func isIdentChar(ch rune) bool { return isIdentStart(ch) || isDigit(ch) }
