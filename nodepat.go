package nodepat

import (
	"errors"
	"strings"
	"sync"

	"github.com/tanema/nodepat/src/ast"
	"github.com/tanema/nodepat/src/bytecode"
	"github.com/tanema/nodepat/src/compiler"
	"github.com/tanema/nodepat/src/goast"
	"github.com/tanema/nodepat/src/parse"
	"github.com/tanema/nodepat/src/runtime"
	"github.com/tanema/nodepat/src/types"
)

// Pattern is a parsed pattern bound to a registry. It is compiled the first
// time it is needed and can then be matched from many goroutines.
type Pattern struct {
	src  string
	reg  *types.Registry
	pred *parse.MatchPredicate
	once sync.Once
	prog *bytecode.Program
	err  error
}

var errNoSource = errors.New("patterns loaded from a program cannot be combined")

var (
	defaultOnce sync.Once
	defaultReg  *types.Registry
	defaultErr  error
)

// NewRegistry creates a registry with the builtin types and every go/ast node
// type declared in the default namespace.
func NewRegistry() (*types.Registry, error) {
	reg := types.NewRegistry(goast.Namespace)
	if err := goast.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// DefaultRegistry is a shared registry created by NewRegistry. Declaring more
// types in it affects every pattern that uses it.
func DefaultRegistry() (*types.Registry, error) {
	defaultOnce.Do(func() { defaultReg, defaultErr = NewRegistry() })
	return defaultReg, defaultErr
}

// New parses src into a pattern that resolves its constants in reg. A nil reg
// uses the DefaultRegistry.
func New(src string, reg *types.Registry) (*Pattern, error) {
	if reg == nil {
		var err error
		if reg, err = DefaultRegistry(); err != nil {
			return nil, err
		}
	}
	pred, err := parse.ParseString(src)
	if err != nil {
		return nil, err
	}
	return &Pattern{src: strings.TrimSpace(src), reg: reg, pred: pred}, nil
}

// MustNew is like New but panics if the pattern cannot be parsed.
func MustNew(src string, reg *types.Registry) *Pattern {
	p, err := New(src, reg)
	if err != nil {
		panic(err)
	}
	return p
}

// Load creates a pattern from a dumped program. The pattern has no source.
func Load(data []byte, reg *types.Registry) (*Pattern, error) {
	if reg == nil {
		var err error
		if reg, err = DefaultRegistry(); err != nil {
			return nil, err
		}
	}
	prog, err := bytecode.Undump(data, reg)
	if err != nil {
		return nil, err
	}
	p := &Pattern{reg: reg, prog: prog}
	p.once.Do(func() {})
	return p, nil
}

// Source is the pattern text as it was given.
func (p *Pattern) Source() string { return p.src }

// Or combines two patterns into one that matches when either does. It uses
// the registry of p.
func (p *Pattern) Or(other *Pattern) *Pattern {
	if p.pred == nil || other.pred == nil {
		return &Pattern{reg: p.reg, err: errNoSource}
	}
	return &Pattern{
		src:  p.src + " | " + other.src,
		reg:  p.reg,
		pred: &parse.MatchPredicate{Pattern: &parse.Alternation{Left: p.pred.Pattern, Right: other.pred.Pattern}},
	}
}

// Compile compiles the pattern once and returns the same program every time.
func (p *Pattern) Compile() (*bytecode.Program, error) {
	p.once.Do(func() {
		if p.err == nil {
			p.prog, p.err = compiler.Compile(p.reg, p.pred)
		}
	})
	return p.prog, p.err
}

// Match reports if subject matches the pattern.
func (p *Pattern) Match(subject any) (bool, error) {
	prog, err := p.Compile()
	if err != nil {
		return false, err
	}
	return runtime.Execute(prog, subject), nil
}

// Trace matches subject like Match and calls fn before every instruction.
func (p *Pattern) Trace(subject any, fn runtime.Tracer) (bool, error) {
	prog, err := p.Compile()
	if err != nil {
		return false, err
	}
	return runtime.Trace(prog, subject, fn), nil
}

// Scan walks subject depth first and returns every node that matches.
func (p *Pattern) Scan(subject any) ([]*ast.Node, error) {
	prog, err := p.Compile()
	if err != nil {
		return nil, err
	}
	found := []*ast.Node{}
	ast.Walk(subject, func(node *ast.Node) bool {
		if runtime.Execute(prog, node) {
			found = append(found, node)
		}
		return true
	})
	return found, nil
}

// Disasm compiles the pattern and returns its disassembly.
func (p *Pattern) Disasm() (string, error) {
	prog, err := p.Compile()
	if err != nil {
		return "", err
	}
	return prog.String(), nil
}

// Dump compiles the pattern and serializes its program.
func (p *Pattern) Dump() ([]byte, error) {
	prog, err := p.Compile()
	if err != nil {
		return nil, err
	}
	return prog.Dump()
}

// Location formats where a node was found as position and type name.
func Location(node *ast.Node) string {
	pos := node.Pos
	if pos == "" {
		pos = "-"
	}
	return pos + ": " + node.Type.Name
}
