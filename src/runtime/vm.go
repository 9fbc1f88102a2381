// Package runtime executes compiled pattern programs against subject values.
package runtime

import (
	"github.com/tanema/nodepat/src/ast"
	"github.com/tanema/nodepat/src/bytecode"
	"github.com/tanema/nodepat/src/conf"
)

type (
	// Step is the state of the vm right before an instruction runs.
	Step struct {
		PC    int
		Inst  bytecode.Instruction
		Top   any
		Depth int
	}
	// Tracer is called by Trace for every executed instruction.
	Tracer func(Step)
)

// Execute runs prog against subject and reports if the subject matched. A
// program can be executed by many goroutines at once.
func Execute(prog *bytecode.Program, subject any) bool {
	return run(prog, subject, nil)
}

// Trace runs prog like Execute and calls fn before every instruction.
func Trace(prog *bytecode.Program, subject any, fn Tracer) bool {
	return run(prog, subject, fn)
}

func run(prog *bytecode.Program, subject any, trace Tracer) bool {
	stack := make([]any, 1, conf.INITIALSTACKSIZE)
	stack[0] = subject
	code := prog.Code
	pc := 0
	for pc < len(code) {
		inst := code[pc]
		top := stack[len(stack)-1]
		if trace != nil {
			trace(Step{PC: pc, Inst: inst, Top: top, Depth: len(stack)})
		}
		pc++
		switch inst.Op {
		case bytecode.CHECKLENGTH:
			if ast.Len(top) != inst.N {
				pc = inst.Target
			}
		case bytecode.CHECKNIL:
			if !isNil(top) {
				pc = inst.Target
			}
		case bytecode.CHECKOBJECT:
			if !inst.Object.Matches(top) {
				pc = inst.Target
			}
		case bytecode.CHECKTYPE:
			if !ast.TypeOf(top).IsA(inst.Type) {
				pc = inst.Target
			}
		case bytecode.FAIL:
			return false
		case bytecode.JUMP:
			pc = inst.Target
		case bytecode.PUSHFIELD:
			stack = append(stack, ast.FieldOf(top, inst.Name))
		case bytecode.PUSHINDEX:
			stack = append(stack, ast.Index(top, inst.N))
		case bytecode.POP:
			stack = stack[:len(stack)-1]
		case bytecode.SPLITTYPE:
			pc = inst.Target
			typ := ast.TypeOf(top)
			for _, c := range inst.Cases {
				if c.Type.ID == typ.ID {
					pc = c.Target
					break
				}
			}
		}
	}
	return true
}

func isNil(val any) bool {
	switch tval := val.(type) {
	case nil:
		return true
	case *ast.Node:
		return tval == nil
	default:
		return false
	}
}
