package parse

import (
	"fmt"
)

type (
	tokenType string
	token     struct {
		LineInfo
		Kind      tokenType
		StringVal string
		Flags     string
		IntVal    int64
	}
	// LineInfo is the position of a token in the pattern source.
	LineInfo struct {
		Line   int64
		Column int64
	}
)

const (
	tokenPipe         tokenType = "|"
	tokenComma        tokenType = ","
	tokenColon        tokenType = ":"
	tokenDoubleColon  tokenType = "::"
	tokenRange        tokenType = ".."
	tokenRangeExcl    tokenType = "..."
	tokenStar         tokenType = "*"
	tokenDoubleStar   tokenType = "**"
	tokenOpenParen    tokenType = "("
	tokenCloseParen   tokenType = ")"
	tokenOpenCurly    tokenType = "{"
	tokenCloseCurly   tokenType = "}"
	tokenOpenBracket  tokenType = "["
	tokenCloseBracket tokenType = "]"
	tokenNil          tokenType = "nil"
	tokenInteger      tokenType = "integer"
	tokenString       tokenType = "string"
	tokenStringLabel  tokenType = "string label"
	tokenSymbol       tokenType = "symbol"
	tokenRegex        tokenType = "regex"
	tokenIdentifier   tokenType = "identifier"
	tokenLabel        tokenType = "label"
	tokenEOS          tokenType = "<eof>"
)

var keywords = map[string]tokenType{
	"nil": tokenNil,
}

func (tk *token) String() string {
	switch tk.Kind {
	case tokenInteger:
		return fmt.Sprintf("integer %d", tk.IntVal)
	case tokenString, tokenSymbol, tokenIdentifier:
		return fmt.Sprintf("%v %q", tk.Kind, tk.StringVal)
	case tokenLabel, tokenStringLabel:
		return fmt.Sprintf("%v %q", tk.Kind, tk.StringVal+":")
	case tokenRegex:
		return fmt.Sprintf("regex /%v/%v", tk.StringVal, tk.Flags)
	case tokenEOS:
		return string(tk.Kind)
	default:
		return fmt.Sprintf("%q", string(tk.Kind))
	}
}
