// Package compiler turns a parsed pattern into a linked bytecode program.
//
// Every node is compiled against a pair of labels. When the node matches,
// control reaches the passing label, when it does not, control branches to the
// failing label. Sub patterns of sequences and records run with the element
// pushed on the stack, so their failures are routed through a stub that pops
// the element before continuing at the parent's failing label.
package compiler

import (
	"errors"
	"fmt"

	"github.com/tanema/nodepat/src/bytecode"
	"github.com/tanema/nodepat/src/conf"
	"github.com/tanema/nodepat/src/lerrors"
	"github.com/tanema/nodepat/src/parse"
	"github.com/tanema/nodepat/src/types"
)

type (
	// Compiler compiles patterns against the types in a registry. A compiler
	// may be reused but must not be used by more than one goroutine at a time.
	Compiler struct {
		reg          *types.Registry
		code         []bytecode.Instruction
		labels       []*label
		checkingType bool
		passing      int
		failing      int
		terminal     int
		depth        int
	}
	typeGroup struct {
		typ     *types.Type
		clauses []parse.Node
	}
)

// New creates a compiler that resolves constants in reg.
func New(reg *types.Registry) *Compiler {
	return &Compiler{reg: reg}
}

// Compile is a helper that compiles a single node with a fresh compiler.
func Compile(reg *types.Registry, node parse.Node) (*bytecode.Program, error) {
	return New(reg).Compile(node)
}

// Compile compiles node into a program. Nodes other than a MatchPredicate are
// treated as the pattern of one. The first error aborts compilation.
func (c *Compiler) Compile(node parse.Node) (*bytecode.Program, error) {
	pred, ok := node.(*parse.MatchPredicate)
	if !ok {
		pred = &parse.MatchPredicate{Pattern: node}
	}
	c.code = []bytecode.Instruction{}
	c.labels = []*label{}
	c.depth = 0
	c.checkingType = true
	c.passing = c.newLabel()
	c.failing = c.newLabel()
	c.terminal = c.failing

	if err := c.visit(pred.Pattern); err != nil {
		return nil, err
	}
	c.pushlabel(c.failing)
	c.fail()
	c.pushlabel(c.passing)
	return c.link()
}

func (c *Compiler) visit(node parse.Node) error {
	switch tnode := node.(type) {
	case *parse.Alternation:
		return c.visitAlternation(tnode)
	case *parse.ArrayPattern:
		return c.visitArrayPattern(tnode)
	case *parse.ConstantRead, *parse.ConstantPath:
		if err := c.visitConstant(tnode); err != nil {
			return err
		}
	case *parse.HashPattern:
		return c.visitHashPattern(tnode)
	case *parse.Nil:
		c.checknil(c.failing)
	case *parse.Integer:
		c.checkobject(bytecode.Int(tnode.Value), c.failing)
	case *parse.Range:
		if err := c.visitRange(tnode); err != nil {
			return err
		}
	case *parse.Regex:
		re, err := bytecode.NewRegexp(tnode.Source, tnode.Flags)
		if err != nil {
			return &lerrors.Error{Kind: lerrors.CompileErr, Err: fmt.Errorf("%v: %w", tnode, err)}
		}
		c.checkobject(re, c.failing)
	case *parse.String:
		c.checkobject(bytecode.Str(tnode.Value), c.failing)
	case *parse.Symbol:
		c.checkobject(bytecode.Sym(tnode.Value), c.failing)
	default:
		return compileErr(node)
	}
	c.jump(c.passing)
	return nil
}

// in Foo | Bar(Name: "x") | Foo[1].
func (c *Compiler) visitAlternation(node *parse.Alternation) error {
	clauses := flatten(node)
	groups, grouped, err := c.groupClauses(clauses)
	if err != nil {
		return err
	}

	parentFailing := c.failing
	defer func() { c.failing = parentFailing }()

	if !grouped || len(groups) < 2 {
		return c.visitClauses(clauses, parentFailing, false)
	}

	// every clause names a distinct concrete type so check the type once and
	// branch straight to the clauses for it.
	targets := make([]int, len(groups))
	for i := range groups {
		targets[i] = c.newLabel()
	}
	c.splittype(groups, targets, parentFailing)

	parentChecking := c.checkingType
	defer func() { c.checkingType = parentChecking }()
	for i, group := range groups {
		c.pushlabel(targets[i])
		c.checkingType = false
		if err := c.visitClauses(group.clauses, parentFailing, true); err != nil {
			return err
		}
	}
	return nil
}

// visitClauses compiles clauses so that each one falls back to the next and the
// last one falls back to failing. Constant clauses are skipped when the type
// has already been checked by a splittype.
func (c *Compiler) visitClauses(clauses []parse.Node, failing int, typeChecked bool) error {
	for i, clause := range clauses {
		last := i == len(clauses)-1
		c.failing = failing
		if !last {
			c.failing = c.newLabel()
		}
		if typeChecked && isConstant(clause) {
			c.jump(c.passing)
		} else if err := c.visit(clause); err != nil {
			return err
		}
		if !last {
			c.pushlabel(c.failing)
		}
	}
	return nil
}

func flatten(node parse.Node) []parse.Node {
	if alt, ok := node.(*parse.Alternation); ok {
		return append(flatten(alt.Left), flatten(alt.Right)...)
	}
	return []parse.Node{node}
}

// groupClauses groups clauses by the node type their constant names in the
// order the types first appear. grouped is false if any clause has no such
// type.
func (c *Compiler) groupClauses(clauses []parse.Node) ([]*typeGroup, bool, error) {
	var groups []*typeGroup
	byType := map[types.ID]*typeGroup{}
	grouped := true
	for _, clause := range clauses {
		var constant parse.Node
		switch tclause := clause.(type) {
		case *parse.ArrayPattern:
			constant = tclause.Constant
		case *parse.FindPattern:
			constant = tclause.Constant
		case *parse.HashPattern:
			constant = tclause.Constant
		case *parse.ConstantRead, *parse.ConstantPath:
			constant = tclause
		}
		if constant == nil {
			grouped = false
			continue
		}
		t, err := c.resolve(constant)
		if err != nil {
			return nil, false, err
		} else if !t.Groupable() {
			grouped = false
			continue
		}
		group, ok := byType[t.ID]
		if !ok {
			group = &typeGroup{typ: t}
			byType[t.ID] = group
			groups = append(groups, group)
		}
		group.clauses = append(group.clauses, clause)
	}
	return groups, grouped, nil
}

// in [foo, bar, baz].
func (c *Compiler) visitArrayPattern(node *parse.ArrayPattern) error {
	if node.Rest != nil || len(node.Posts) > 0 {
		return compileErr(node)
	}
	if c.checkingType {
		if node.Constant != nil {
			t, err := c.resolve(node.Constant)
			if err != nil {
				return err
			}
			c.checktype(t, c.failing)
		} else {
			c.checktype(types.Array, c.failing)
		}
	}
	c.checklength(len(node.Requireds), c.failing)

	parentFailing := c.failing
	cleanup := c.cleanupLabel()
	for i, required := range node.Requireds {
		c.pushindex(i)
		if err := c.visitNested(required, true, cleanup); err != nil {
			return err
		}
		c.pop()
	}
	c.jump(c.passing)
	c.pushcleanup(cleanup, parentFailing)
	return nil
}

// in Ident.
func (c *Compiler) visitConstant(node parse.Node) error {
	t, err := c.resolve(node)
	if err != nil {
		return err
	}
	c.checktype(t, c.failing)
	return nil
}

// in CallExpr(Fun: Ident, Args: [BasicLit]).
func (c *Compiler) visitHashPattern(node *parse.HashPattern) error {
	var constant *types.Type
	if node.Constant != nil {
		t, err := c.resolve(node.Constant)
		if err != nil {
			return err
		} else if !t.Decomposable() {
			return compileErr(node.Constant)
		}
		constant = t
		if c.checkingType {
			c.checktype(constant, c.failing)
		}
	}

	parentFailing := c.failing
	cleanup := c.cleanupLabel()
	for _, entry := range node.Assocs {
		assoc, ok := entry.(*parse.Assoc)
		if !ok {
			return compileErr(entry)
		}
		key, ok := assoc.Key.(*parse.Symbol)
		if !ok {
			return compileErr(assoc)
		}

		checking := true
		if constant != nil {
			if field, found := constant.Field(key.Value); found {
				_, isSequence := assoc.Value.(*parse.ArrayPattern)
				if isSequence && field.Kind.IsList() {
					checking = false
				} else if isSequence {
					return &lerrors.Error{
						Kind: lerrors.FieldErr,
						Err:  fmt.Errorf("%v#%v is a %v field and cannot match %v", constant, key.Value, field.Kind, assoc.Value),
					}
				}
			}
		}

		c.pushfield(key.Value)
		if err := c.visitNested(assoc.Value, checking, cleanup); err != nil {
			return err
		}
		c.pop()
	}
	c.jump(c.passing)
	c.pushcleanup(cleanup, parentFailing)
	return nil
}

// in 1..5.
func (c *Compiler) visitRange(node *parse.Range) error {
	lower, ok := rangeBound(node.Left)
	if !ok {
		return compileErr(node)
	}
	upper, ok := rangeBound(node.Right)
	if !ok {
		return compileErr(node)
	}
	c.checkobject(bytecode.NewRange(lower, upper, node.Exclusive), c.failing)
	return nil
}

func rangeBound(node parse.Node) (*int64, bool) {
	switch tnode := node.(type) {
	case nil, *parse.Nil:
		return nil, true
	case *parse.Integer:
		val := tnode.Value
		return &val, true
	default:
		return nil, false
	}
}

// visitNested compiles a sub pattern of a pushed element. It passes by
// reaching the code right after it and fails by branching to failing.
func (c *Compiler) visitNested(node parse.Node, checking bool, failing int) error {
	parentPassing, parentFailing, parentChecking := c.passing, c.failing, c.checkingType
	defer func() {
		c.passing, c.failing, c.checkingType = parentPassing, parentFailing, parentChecking
		c.depth--
	}()
	c.depth++
	if c.depth > conf.MAXDEPTH {
		return &lerrors.Error{
			Kind: lerrors.CompileErr,
			Err:  fmt.Errorf("%v: patterns nest deeper than %d", node, conf.MAXDEPTH),
		}
	}
	next := c.newLabel()
	c.passing, c.failing, c.checkingType = next, failing, checking
	if err := c.visit(node); err != nil {
		return err
	}
	c.pushlabel(next)
	return nil
}

// cleanupLabel is the failing label for pushed elements. Failing to the
// terminal fail needs no cleanup since the stack is dropped anyway.
func (c *Compiler) cleanupLabel() int {
	if c.failing == c.terminal {
		return c.failing
	}
	return c.newLabel()
}

func (c *Compiler) pushcleanup(cleanup, failing int) {
	if cleanup == failing {
		return
	}
	c.pushlabel(cleanup)
	c.pop()
	c.jump(failing)
}

func (c *Compiler) emit(inst bytecode.Instruction) int {
	c.code = append(c.code, inst)
	return len(c.code) - 1
}

func (c *Compiler) branch(inst bytecode.Instruction, lbl int) {
	inst.Target = lbl
	pc := c.emit(inst)
	c.labels[lbl].jumps = append(c.labels[lbl].jumps, pc)
}

func (c *Compiler) checklength(n, lbl int) {
	c.branch(bytecode.Instruction{Op: bytecode.CHECKLENGTH, N: n}, lbl)
}

func (c *Compiler) checknil(lbl int) {
	c.branch(bytecode.Instruction{Op: bytecode.CHECKNIL}, lbl)
}

func (c *Compiler) checkobject(obj bytecode.Literal, lbl int) {
	c.branch(bytecode.Instruction{Op: bytecode.CHECKOBJECT, Object: obj}, lbl)
}

func (c *Compiler) checktype(t *types.Type, lbl int) {
	c.branch(bytecode.Instruction{Op: bytecode.CHECKTYPE, Type: t}, lbl)
}

func (c *Compiler) fail() { c.emit(bytecode.Instruction{Op: bytecode.FAIL}) }

func (c *Compiler) jump(lbl int) {
	c.branch(bytecode.Instruction{Op: bytecode.JUMP}, lbl)
}

func (c *Compiler) pushfield(name string) {
	c.emit(bytecode.Instruction{Op: bytecode.PUSHFIELD, Name: name})
}

func (c *Compiler) pushindex(i int) {
	c.emit(bytecode.Instruction{Op: bytecode.PUSHINDEX, N: i})
}

func (c *Compiler) pop() { c.emit(bytecode.Instruction{Op: bytecode.POP}) }

func (c *Compiler) splittype(groups []*typeGroup, targets []int, lbl int) {
	cases := make([]bytecode.Case, len(groups))
	pc := len(c.code)
	for i, group := range groups {
		cases[i] = bytecode.Case{Type: group.typ, Target: targets[i]}
		c.labels[targets[i]].splits = append(c.labels[targets[i]].splits, splitSite{pc: pc, id: group.typ.ID})
	}
	c.branch(bytecode.Instruction{Op: bytecode.SPLITTYPE, Cases: cases}, lbl)
}

func compileErr(node parse.Node) error {
	return &lerrors.Error{Kind: lerrors.CompileErr, Err: errors.New(node.String())}
}
