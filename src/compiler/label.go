package compiler

import (
	"fmt"

	"github.com/tanema/nodepat/src/bytecode"
	"github.com/tanema/nodepat/src/lerrors"
	"github.com/tanema/nodepat/src/types"
)

type (
	// label is a placeholder for a not yet known address. Branches emitted
	// before linking hold the label id as their target and are recorded here
	// so they can be patched once the address is known.
	label struct {
		pos    int
		jumps  []int
		splits []splitSite
	}
	splitSite struct {
		pc int
		id types.ID
	}
)

func (c *Compiler) newLabel() int {
	c.labels = append(c.labels, &label{pos: -1})
	return len(c.labels) - 1
}

func (c *Compiler) pushlabel(id int) {
	c.labels[id].pos = len(c.code)
	c.code = append(c.code, bytecode.Instruction{Op: bytecode.LABEL, N: id})
}

// link resolves every label into an address and strips the placeholders,
// returning the finished program.
func (c *Compiler) link() (*bytecode.Program, error) {
	c.collapseJumps()
	removed := c.dropAdjacentJumps()

	addrs := make([]int, len(c.code)+1)
	kept := 0
	for pc, inst := range c.code {
		addrs[pc] = kept
		if inst.Op != bytecode.LABEL && !removed[pc] {
			kept++
		}
	}
	addrs[len(c.code)] = kept

	for id, lbl := range c.labels {
		if lbl.pos < 0 {
			if len(lbl.jumps) > 0 || len(lbl.splits) > 0 {
				return nil, &lerrors.Error{
					Kind: lerrors.CompileErr,
					Err:  fmt.Errorf("label %d was branched to but never placed", id),
				}
			}
			continue
		}
		addr := addrs[lbl.pos]
		for _, pc := range lbl.jumps {
			c.code[pc].Target = addr
		}
		for _, site := range lbl.splits {
			c.caseFor(site).Target = addr
		}
	}

	code := make([]bytecode.Instruction, 0, kept)
	for pc, inst := range c.code {
		if inst.Op != bytecode.LABEL && !removed[pc] {
			code = append(code, inst)
		}
	}
	return &bytecode.Program{Code: code}, nil
}

// collapseJumps repoints every label that is immediately followed by an
// unconditional jump at the final destination of the jump chain.
func (c *Compiler) collapseJumps() {
	for id, lbl := range c.labels {
		if lbl.pos < 0 {
			continue
		}
		dest := id
		seen := map[int]bool{id: true}
		for {
			next, ok := c.jumpAfter(c.labels[dest].pos)
			if !ok || seen[next] || c.labels[next].pos < 0 {
				break
			}
			seen[next] = true
			dest = next
		}
		if dest != id {
			c.moveSites(id, dest)
		}
	}
}

// jumpAfter returns the label targeted by the first real instruction after
// pos if that instruction is a jump.
func (c *Compiler) jumpAfter(pos int) (int, bool) {
	for pc := pos + 1; pc < len(c.code); pc++ {
		switch c.code[pc].Op {
		case bytecode.LABEL:
			continue
		case bytecode.JUMP:
			return c.code[pc].Target, true
		default:
			return 0, false
		}
	}
	return 0, false
}

func (c *Compiler) moveSites(from, to int) {
	src, dst := c.labels[from], c.labels[to]
	for _, pc := range src.jumps {
		c.code[pc].Target = to
	}
	for _, site := range src.splits {
		c.caseFor(site).Target = to
	}
	dst.jumps = append(dst.jumps, src.jumps...)
	dst.splits = append(dst.splits, src.splits...)
	src.jumps, src.splits = nil, nil
}

// dropAdjacentJumps marks jumps whose destination is the very next real
// instruction.
func (c *Compiler) dropAdjacentJumps() []bool {
	removed := make([]bool, len(c.code))
	for pc, inst := range c.code {
		if inst.Op != bytecode.JUMP {
			continue
		}
		pos := c.labels[inst.Target].pos
		if pos <= pc {
			continue
		}
		adjacent := true
		for between := pc + 1; between < pos; between++ {
			if c.code[between].Op != bytecode.LABEL {
				adjacent = false
				break
			}
		}
		removed[pc] = adjacent
	}
	return removed
}

func (c *Compiler) caseFor(site splitSite) *bytecode.Case {
	cases := c.code[site.pc].Cases
	for i := range cases {
		if cases[i].Type.ID == site.id {
			return &cases[i]
		}
	}
	panic(fmt.Sprintf("splittype at %d has no case for type %d", site.pc, site.id))
}
