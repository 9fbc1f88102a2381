package compiler

import (
	"errors"

	"github.com/tanema/nodepat/src/lerrors"
	"github.com/tanema/nodepat/src/parse"
	"github.com/tanema/nodepat/src/types"
)

// resolve looks up the type a constant node names. A single relative segment
// is looked up in the default namespace before the root.
func (c *Compiler) resolve(node parse.Node) (*types.Type, error) {
	parts, anchored, ok := constantParts(node)
	if !ok {
		return nil, compileErr(node)
	}
	if len(parts) == 1 && !anchored {
		if t, found := c.reg.Type(c.reg.DefaultNamespace(), parts[0]); found {
			return t, nil
		}
	}
	ns := c.reg.Root()
	for _, part := range parts[:len(parts)-1] {
		child, found := c.reg.Namespace(ns, part)
		if !found {
			return nil, nameErr(node)
		}
		ns = child
	}
	t, found := c.reg.Type(ns, parts[len(parts)-1])
	if !found {
		return nil, nameErr(node)
	}
	return t, nil
}

func constantParts(node parse.Node) (parts []string, anchored bool, ok bool) {
	switch tnode := node.(type) {
	case *parse.ConstantRead:
		return []string{tnode.Name}, false, true
	case *parse.ConstantPath:
		if tnode.Parent == nil {
			return []string{tnode.Name}, true, true
		}
		parts, anchored, ok = constantParts(tnode.Parent)
		return append(parts, tnode.Name), anchored, ok
	default:
		return nil, false, false
	}
}

func isConstant(node parse.Node) bool {
	switch node.(type) {
	case *parse.ConstantRead, *parse.ConstantPath:
		return true
	default:
		return false
	}
}

func nameErr(node parse.Node) error {
	return &lerrors.Error{Kind: lerrors.NameErr, Err: errors.New(node.String())}
}
