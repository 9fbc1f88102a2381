// Package bytecode is the instruction set of the pattern vm. A compiled pattern
// is a Program, a dense list of instructions where every branch operand is an
// absolute address into the list. Reaching the address equal to the length of
// the program means the subject matched.
package bytecode

import (
	"fmt"
	"strings"

	"github.com/tanema/nodepat/src/types"
)

type (
	// Op describes which kind of instruction each instruction is.
	Op uint8
	// Instruction is a single operation and its operands. Only the operands
	// that the op uses are set.
	Instruction struct {
		Op Op
		// Target is the branch destination of conditional ops, jump and the
		// default of splittype. Before linking it holds a label id.
		Target int
		// N is the expected length for checklength and the index for pushindex.
		N int
		// Name is the field name for pushfield.
		Name string
		// Type is the type for checktype.
		Type *types.Type
		// Object is the literal for checkobject.
		Object Literal
		// Cases is the dispatch table for splittype.
		Cases []Case
	}
	// Case is one entry of a splittype dispatch table.
	Case struct {
		Type   *types.Type
		Target int
	}
	// Program is a fully linked list of instructions. It is never modified after
	// it has been created so it can be executed by many goroutines at once.
	Program struct {
		Code []Instruction
	}
)

const (
	// CHECKLENGTH falls through if the element count of the top value is N, else jumps to Target.
	CHECKLENGTH Op = iota
	// CHECKNIL falls through if the top value is nil, else jumps to Target.
	CHECKNIL
	// CHECKOBJECT falls through if Object matches the top value, else jumps to Target.
	CHECKOBJECT
	// CHECKTYPE falls through if the top value is a Type, else jumps to Target.
	CHECKTYPE
	// FAIL terminates execution with no match.
	FAIL
	// JUMP unconditionally moves to Target.
	JUMP
	// PUSHFIELD pushes the named field of the top value.
	PUSHFIELD
	// PUSHINDEX pushes the Nth element of the top value.
	PUSHINDEX
	// POP discards the top value.
	POP
	// SPLITTYPE jumps to the case matching the exact type of the top value, else to Target.
	SPLITTYPE
	// LABEL is a placeholder for a label position, it never survives linking.
	LABEL
)

var opcodeToString = map[Op]string{
	CHECKLENGTH: "checklength",
	CHECKNIL:    "checknil",
	CHECKOBJECT: "checkobject",
	CHECKTYPE:   "checktype",
	FAIL:        "fail",
	JUMP:        "jump",
	PUSHFIELD:   "pushfield",
	PUSHINDEX:   "pushindex",
	POP:         "pop",
	SPLITTYPE:   "splittype",
	LABEL:       "label",
}

func (op Op) String() string {
	if name, ok := opcodeToString[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", op)
}

// Branches reports whether the op has a Target operand.
func (op Op) Branches() bool {
	switch op {
	case CHECKLENGTH, CHECKNIL, CHECKOBJECT, CHECKTYPE, JUMP, SPLITTYPE:
		return true
	default:
		return false
	}
}

// Len is the number of instructions in the program.
func (p *Program) Len() int { return len(p.Code) }

// String disassembles the program into one line per instruction.
func (p *Program) String() string {
	var out strings.Builder
	for pc, inst := range p.Code {
		out.WriteString(inst.format(pc))
		out.WriteByte('\n')
	}
	return out.String()
}

func (inst Instruction) String() string {
	return strings.TrimSpace(inst.format(0)[5:])
}

func (inst Instruction) format(pc int) string {
	var line string
	switch inst.Op {
	case CHECKLENGTH:
		line = fmt.Sprintf("%04d %-12s %d, %04d", pc, inst.Op, inst.N, inst.Target)
	case CHECKNIL, JUMP:
		line = fmt.Sprintf("%04d %-12s %04d", pc, inst.Op, inst.Target)
	case CHECKOBJECT:
		line = fmt.Sprintf("%04d %-12s %v, %04d", pc, inst.Op, inst.Object, inst.Target)
	case CHECKTYPE:
		line = fmt.Sprintf("%04d %-12s %v, %04d", pc, inst.Op, inst.Type, inst.Target)
	case PUSHFIELD:
		line = fmt.Sprintf("%04d %-12s %s", pc, inst.Op, inst.Name)
	case PUSHINDEX:
		line = fmt.Sprintf("%04d %-12s %d", pc, inst.Op, inst.N)
	case SPLITTYPE:
		cases := make([]string, len(inst.Cases))
		for i, c := range inst.Cases {
			cases[i] = fmt.Sprintf("%v => %04d", c.Type, c.Target)
		}
		line = fmt.Sprintf("%04d %-12s {%s}, %04d", pc, inst.Op, strings.Join(cases, ", "), inst.Target)
	default:
		line = fmt.Sprintf("%04d %-12s", pc, inst.Op)
	}
	return strings.TrimRight(line, " ")
}
