// Package ast holds the subject trees that compiled patterns are executed
// against. A subject is any of nil, bool, go integers, float64, string, Symbol,
// []any for positional sequences or *Node for typed records.
package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tanema/nodepat/src/types"
)

type (
	// Symbol is an interned name. Two symbols are the same symbol when their
	// text is equal.
	Symbol string
	// Node is a typed record with its values stored in the order of the type's
	// field table.
	Node struct {
		Type   *types.Type
		Values []any
		Pos    string
	}
)

func (sym Symbol) String() string {
	if isIdent(string(sym)) {
		return ":" + string(sym)
	}
	return ":" + strconv.Quote(string(sym))
}

// New creates a node of type t. Entries in fields that are not declared by t
// are dropped.
func New(t *types.Type, pos string, fields map[string]any) *Node {
	node := &Node{Type: t, Pos: pos, Values: make([]any, len(t.Fields))}
	for name, val := range fields {
		if idx, ok := t.FieldIndex(name); ok {
			node.Values[idx] = val
		}
	}
	return node
}

// Field returns the value of the named field or nil if the type does not declare it.
func (n *Node) Field(name string) any {
	if idx, ok := n.Type.FieldIndex(name); ok && idx < len(n.Values) {
		return n.Values[idx]
	}
	return nil
}

// Len is the number of positional values of the node.
func (n *Node) Len() int { return len(n.Values) }

// Index returns the ith positional value of the node.
func (n *Node) Index(i int) any {
	if i < 0 || i >= len(n.Values) {
		return nil
	}
	return n.Values[i]
}

func (n *Node) String() string {
	parts := make([]string, len(n.Values))
	for i, val := range n.Values {
		if i < len(n.Type.Fields) {
			parts[i] = fmt.Sprintf("%s: %s", n.Type.Fields[i].Name, Inspect(val))
		} else {
			parts[i] = Inspect(val)
		}
	}
	return fmt.Sprintf("%s[%s]", n.Type.Name, strings.Join(parts, ", "))
}

// Inspect renders a subject value for diagnostics.
func Inspect(val any) string {
	switch tval := val.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(tval)
	case []any:
		parts := make([]string, len(tval))
		for i, elem := range tval {
			parts[i] = Inspect(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case fmt.Stringer:
		return tval.String()
	default:
		return fmt.Sprint(tval)
	}
}

// TypeOf returns the dynamic type of a subject value.
func TypeOf(val any) *types.Type {
	switch tval := val.(type) {
	case nil:
		return types.Nil
	case *Node:
		if tval == nil {
			return types.Nil
		}
		return tval.Type
	case bool:
		return types.Bool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return types.Integer
	case float32, float64:
		return types.Float
	case string:
		return types.String
	case Symbol:
		return types.Symbol
	case []any:
		return types.Array
	default:
		return types.Object
	}
}

// Len returns the element count of a sequence like value or -1 when the value
// cannot be deconstructed positionally.
func Len(val any) int {
	switch tval := val.(type) {
	case []any:
		return len(tval)
	case *Node:
		if tval == nil {
			return -1
		}
		return tval.Len()
	default:
		return -1
	}
}

// Index returns the ith element of a sequence like value.
func Index(val any, i int) any {
	switch tval := val.(type) {
	case []any:
		if i < 0 || i >= len(tval) {
			return nil
		}
		return tval[i]
	case *Node:
		if tval == nil {
			return nil
		}
		return tval.Index(i)
	default:
		return nil
	}
}

// FieldOf returns the named field of a node value and nil for anything else.
func FieldOf(val any, name string) any {
	if node, ok := val.(*Node); ok && node != nil {
		return node.Field(name)
	}
	return nil
}

// Walk visits every node reachable from val depth first, including nodes held
// in sequences. Returning false from fn skips the children of that node.
func Walk(val any, fn func(*Node) bool) {
	switch tval := val.(type) {
	case *Node:
		if tval == nil || !fn(tval) {
			return
		}
		for _, child := range tval.Values {
			Walk(child, fn)
		}
	case []any:
		for _, elem := range tval {
			Walk(elem, fn)
		}
	}
}

func isIdent(str string) bool {
	if str == "" {
		return false
	}
	for i, ch := range str {
		if ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || (i > 0 && '0' <= ch && ch <= '9') {
			continue
		}
		return false
	}
	return true
}
