package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tanema/nodepat/src/ast"
)

type (
	// Node is a pattern syntax node. The set of nodes is closed, every node
	// renders back to pattern source with String.
	Node interface {
		fmt.Stringer
		patternNode()
	}
	// MatchPredicate is the entry point of a parsed pattern.
	MatchPredicate struct {
		Pattern Node
	}
	// Alternation matches if either side matches.
	Alternation struct {
		Left  Node
		Right Node
	}
	// ArrayPattern matches a sequence positionally. Rest and Posts are only set
	// when the pattern contains a splat.
	ArrayPattern struct {
		Constant  Node
		Requireds []Node
		Rest      *Splat
		Posts     []Node
	}
	// FindPattern searches a sequence, [*, x, *].
	FindPattern struct {
		Constant  Node
		Left      *Splat
		Requireds []Node
		Right     *Splat
	}
	// ConstantRead is a single segment constant.
	ConstantRead struct {
		Name string
	}
	// ConstantPath is a scoped constant. A nil Parent anchors the path at the root.
	ConstantPath struct {
		Parent Node
		Name   string
	}
	// HashPattern matches the named fields of a record.
	HashPattern struct {
		Constant Node
		Assocs   []Node
	}
	// Assoc is a single key value entry of a hash pattern.
	Assoc struct {
		Key   Node
		Value Node
	}
	// KeywordSplat is a **rest entry of a hash pattern.
	KeywordSplat struct {
		Name string
	}
	// Splat is a *rest entry of an array pattern.
	Splat struct {
		Name string
	}
	// Binding is a bare lowercase identifier.
	Binding struct {
		Name string
	}
	// Nil matches nil.
	Nil struct{}
	// Integer matches an integer value.
	Integer struct {
		Value int64
	}
	// Range matches numbers within bounds. Either bound may be nil.
	Range struct {
		Left      Node
		Right     Node
		Exclusive bool
	}
	// Regex matches strings and symbols.
	Regex struct {
		Source string
		Flags  string
	}
	// String matches a string value.
	String struct {
		Value string
	}
	// Symbol matches a symbol value.
	Symbol struct {
		Value string
	}
)

func (*MatchPredicate) patternNode() {}
func (*Alternation) patternNode()    {}
func (*ArrayPattern) patternNode()   {}
func (*FindPattern) patternNode()    {}
func (*ConstantRead) patternNode()   {}
func (*ConstantPath) patternNode()   {}
func (*HashPattern) patternNode()    {}
func (*Assoc) patternNode()          {}
func (*KeywordSplat) patternNode()   {}
func (*Splat) patternNode()          {}
func (*Binding) patternNode()        {}
func (*Nil) patternNode()            {}
func (*Integer) patternNode()        {}
func (*Range) patternNode()          {}
func (*Regex) patternNode()          {}
func (*String) patternNode()         {}
func (*Symbol) patternNode()         {}

func (node *MatchPredicate) String() string { return node.Pattern.String() }

func (node *Alternation) String() string {
	return node.Left.String() + " | " + node.Right.String()
}

func (node *ArrayPattern) String() string {
	items := join(node.Requireds)
	if node.Rest != nil {
		items = append(items, node.Rest.String())
		items = append(items, join(node.Posts)...)
	}
	return sequence(node.Constant, items)
}

func (node *FindPattern) String() string {
	items := append([]string{node.Left.String()}, join(node.Requireds)...)
	return sequence(node.Constant, append(items, node.Right.String()))
}

func (node *ConstantRead) String() string { return node.Name }

func (node *ConstantPath) String() string {
	if node.Parent == nil {
		return "::" + node.Name
	}
	return node.Parent.String() + "::" + node.Name
}

func (node *HashPattern) String() string {
	items := strings.Join(join(node.Assocs), ", ")
	if node.Constant != nil {
		return node.Constant.String() + "(" + items + ")"
	}
	return "{" + items + "}"
}

func (node *Assoc) String() string {
	switch key := node.Key.(type) {
	case *Symbol:
		return key.Value + ": " + node.Value.String()
	default:
		return key.String() + ": " + node.Value.String()
	}
}

func (node *KeywordSplat) String() string { return "**" + node.Name }
func (node *Splat) String() string        { return "*" + node.Name }
func (node *Binding) String() string      { return node.Name }
func (node *Nil) String() string          { return "nil" }
func (node *Integer) String() string      { return strconv.FormatInt(node.Value, 10) }

func (node *Range) String() string {
	var out strings.Builder
	if node.Left != nil {
		out.WriteString(grouped(node.Left))
	}
	if node.Exclusive {
		out.WriteString("...")
	} else {
		out.WriteString("..")
	}
	if node.Right != nil {
		out.WriteString(grouped(node.Right))
	}
	return out.String()
}

func (node *Regex) String() string {
	return "/" + strings.ReplaceAll(node.Source, "/", `\/`) + "/" + node.Flags
}

func (node *String) String() string { return strconv.Quote(node.Value) }
func (node *Symbol) String() string { return ast.Symbol(node.Value).String() }

func join(nodes []Node) []string {
	parts := make([]string, len(nodes))
	for i, node := range nodes {
		parts[i] = node.String()
	}
	return parts
}

func sequence(constant Node, items []string) string {
	body := "[" + strings.Join(items, ", ") + "]"
	if constant != nil {
		return constant.String() + body
	}
	return body
}

func grouped(node Node) string {
	if _, ok := node.(*Alternation); ok {
		return "(" + node.String() + ")"
	}
	return node.String()
}
