package bytecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tanema/nodepat/src/ast"
)

type (
	// Literal is a checkobject operand. Matches applies the literal's equality
	// rule to a subject value.
	Literal interface {
		fmt.Stringer
		Matches(val any) bool
	}
	// Str matches strings with the exact same content.
	Str string
	// Sym matches the same symbol.
	Sym ast.Symbol
	// Int matches numerically equal integers and floats.
	Int int64
	// Range matches numbers inside the interval, or an equal range.
	Range struct {
		Lower     *int64
		Upper     *int64
		Exclusive bool
	}
	// Regexp matches strings and symbols that the expression matches, or a
	// regexp with the same source and flags.
	Regexp struct {
		Source string
		Flags  string
		re     *regexp.Regexp
	}
)

const regexpFlags = "imsU"

// Matches implements Literal.
func (lit Str) Matches(val any) bool {
	str, ok := val.(string)
	return ok && str == string(lit)
}

func (lit Str) String() string { return strconv.Quote(string(lit)) }

// Matches implements Literal.
func (lit Sym) Matches(val any) bool {
	sym, ok := val.(ast.Symbol)
	return ok && sym == ast.Symbol(lit)
}

func (lit Sym) String() string { return ast.Symbol(lit).String() }

// Matches implements Literal.
func (lit Int) Matches(val any) bool {
	if i, ok := toInt(val); ok {
		return i == int64(lit)
	} else if f, ok := toFloat(val); ok {
		return f == float64(lit)
	}
	return false
}

func (lit Int) String() string { return strconv.FormatInt(int64(lit), 10) }

// NewRange creates a range literal, either bound may be nil for an open end.
func NewRange(lower, upper *int64, exclusive bool) *Range {
	return &Range{Lower: lower, Upper: upper, Exclusive: exclusive}
}

// Matches implements Literal.
func (lit *Range) Matches(val any) bool {
	switch tval := val.(type) {
	case *Range:
		return lit.Equal(tval)
	case Range:
		return lit.Equal(&tval)
	}
	if i, ok := toInt(val); ok {
		return lit.coversInt(i)
	} else if f, ok := toFloat(val); ok {
		return lit.coversFloat(f)
	}
	return false
}

// Equal compares the bounds and exclusivity of two ranges.
func (lit *Range) Equal(other *Range) bool {
	return other != nil &&
		boundEqual(lit.Lower, other.Lower) &&
		boundEqual(lit.Upper, other.Upper) &&
		lit.Exclusive == other.Exclusive
}

func (lit *Range) coversInt(n int64) bool {
	if lit.Lower != nil && n < *lit.Lower {
		return false
	} else if lit.Upper != nil && lit.Exclusive && n >= *lit.Upper {
		return false
	} else if lit.Upper != nil && !lit.Exclusive && n > *lit.Upper {
		return false
	}
	return true
}

func (lit *Range) coversFloat(n float64) bool {
	if math.IsNaN(n) {
		return false
	} else if lit.Lower != nil && n < float64(*lit.Lower) {
		return false
	} else if lit.Upper != nil && lit.Exclusive && n >= float64(*lit.Upper) {
		return false
	} else if lit.Upper != nil && !lit.Exclusive && n > float64(*lit.Upper) {
		return false
	}
	return true
}

func (lit *Range) String() string {
	var out strings.Builder
	if lit.Lower != nil {
		out.WriteString(strconv.FormatInt(*lit.Lower, 10))
	}
	if lit.Exclusive {
		out.WriteString("...")
	} else {
		out.WriteString("..")
	}
	if lit.Upper != nil {
		out.WriteString(strconv.FormatInt(*lit.Upper, 10))
	}
	return out.String()
}

// NewRegexp compiles a regexp literal. Flags are a subset of the go regexp
// flags imsU and are applied to the whole expression.
func NewRegexp(source, flags string) (*Regexp, error) {
	seen := map[rune]bool{}
	var clean strings.Builder
	for _, flag := range flags {
		if !strings.ContainsRune(regexpFlags, flag) {
			return nil, fmt.Errorf("unknown regexp flag %q", flag)
		} else if !seen[flag] {
			seen[flag] = true
			clean.WriteRune(flag)
		}
	}
	expr := source
	if clean.Len() > 0 {
		expr = "(?" + clean.String() + ")" + source
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Regexp{Source: source, Flags: clean.String(), re: re}, nil
}

// Matches implements Literal.
func (lit *Regexp) Matches(val any) bool {
	switch tval := val.(type) {
	case string:
		return lit.re.MatchString(tval)
	case ast.Symbol:
		return lit.re.MatchString(string(tval))
	case *Regexp:
		return tval != nil && tval.Source == lit.Source && tval.Flags == lit.Flags
	default:
		return false
	}
}

func (lit *Regexp) String() string {
	return "/" + strings.ReplaceAll(lit.Source, "/", `\/`) + "/" + lit.Flags
}

func boundEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func toInt(val any) (int64, bool) {
	switch tval := val.(type) {
	case int:
		return int64(tval), true
	case int8:
		return int64(tval), true
	case int16:
		return int64(tval), true
	case int32:
		return int64(tval), true
	case int64:
		return tval, true
	case uint:
		return int64(tval), uint64(tval) <= math.MaxInt64
	case uint8:
		return int64(tval), true
	case uint16:
		return int64(tval), true
	case uint32:
		return int64(tval), true
	case uint64:
		return int64(tval), tval <= math.MaxInt64
	default:
		return 0, false
	}
}

func toFloat(val any) (float64, bool) {
	switch tval := val.(type) {
	case float32:
		return float64(tval), true
	case float64:
		return tval, true
	default:
		return 0, false
	}
}
