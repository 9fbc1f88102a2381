package bytecode

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/tanema/nodepat/src/ast"
	"github.com/tanema/nodepat/src/conf"
	"github.com/tanema/nodepat/src/lerrors"
	"github.com/tanema/nodepat/src/types"
)

type (
	literalKind uint8

	dumpedProgram struct {
		Code []dumpedInstruction `cbor:"code"`
	}
	dumpedInstruction struct {
		Op     Op             `cbor:"op"`
		Target int            `cbor:"target,omitempty"`
		N      int            `cbor:"n,omitempty"`
		Name   string         `cbor:"name,omitempty"`
		Type   string         `cbor:"type,omitempty"`
		Object *dumpedLiteral `cbor:"object,omitempty"`
		Cases  []dumpedCase   `cbor:"cases,omitempty"`
	}
	dumpedCase struct {
		Type   string `cbor:"type"`
		Target int    `cbor:"target"`
	}
	dumpedLiteral struct {
		Kind      literalKind `cbor:"kind"`
		Str       string      `cbor:"str,omitempty"`
		Int       int64       `cbor:"int,omitempty"`
		Lower     *int64      `cbor:"lower,omitempty"`
		Upper     *int64      `cbor:"upper,omitempty"`
		Exclusive bool        `cbor:"exclusive,omitempty"`
		Flags     string      `cbor:"flags,omitempty"`
	}
)

const (
	litStr literalKind = iota
	litSym
	litInt
	litRange
	litRegexp
)

var dumpEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	dumpEncMode = em
}

// HasSignature reports whether data starts like a dumped program.
func HasSignature(data []byte) bool {
	return bytes.HasPrefix(data, []byte(conf.SIGNATURE))
}

// Dump will serialize the program into a byte array for writing out to a file.
// Types are written by their full name so the program can be loaded against
// any registry that declares the same names.
func (p *Program) Dump() ([]byte, error) {
	dp := dumpedProgram{Code: make([]dumpedInstruction, len(p.Code))}
	for i, inst := range p.Code {
		di := dumpedInstruction{Op: inst.Op, Target: inst.Target, N: inst.N, Name: inst.Name}
		if inst.Type != nil {
			di.Type = inst.Type.FullName()
		}
		if inst.Object != nil {
			lit, err := dumpLiteral(inst.Object)
			if err != nil {
				return nil, dumpErr(err)
			}
			di.Object = lit
		}
		for _, c := range inst.Cases {
			di.Cases = append(di.Cases, dumpedCase{Type: c.Type.FullName(), Target: c.Target})
		}
		dp.Code[i] = di
	}
	body, err := dumpEncMode.Marshal(dp)
	if err != nil {
		return nil, dumpErr(err)
	}
	buf := append([]byte(conf.SIGNATURE), byte(conf.FORMAT))
	return append(buf, body...), nil
}

// Undump reads a program written by Dump, resolving types in reg.
func Undump(data []byte, reg *types.Registry) (*Program, error) {
	if !HasSignature(data) {
		return nil, dumpErr(errors.New("data is not a dumped program"))
	}
	data = data[len(conf.SIGNATURE):]
	if len(data) == 0 || data[0] != conf.FORMAT {
		return nil, dumpErr(errors.New("unsupported dump format"))
	}
	var dp dumpedProgram
	if err := cbor.Unmarshal(data[1:], &dp); err != nil {
		return nil, dumpErr(err)
	}

	size := len(dp.Code)
	prog := &Program{Code: make([]Instruction, size)}
	for pc, di := range dp.Code {
		if di.Op >= LABEL {
			return nil, dumpErr(fmt.Errorf("invalid op %v at %04d", di.Op, pc))
		} else if di.Op.Branches() && (di.Target <= pc || di.Target > size) {
			return nil, dumpErr(fmt.Errorf("target %v out of range at %04d", di.Target, pc))
		}
		inst := Instruction{Op: di.Op, Target: di.Target, N: di.N, Name: di.Name}
		if di.Type != "" {
			t, ok := reg.Find(di.Type)
			if !ok {
				return nil, dumpErr(fmt.Errorf("unknown type %v at %04d", di.Type, pc))
			}
			inst.Type = t
		}
		if di.Object != nil {
			lit, err := undumpLiteral(di.Object)
			if err != nil {
				return nil, dumpErr(err)
			}
			inst.Object = lit
		}
		for _, dc := range di.Cases {
			t, ok := reg.Find(dc.Type)
			if !ok {
				return nil, dumpErr(fmt.Errorf("unknown type %v at %04d", dc.Type, pc))
			} else if dc.Target <= pc || dc.Target > size {
				return nil, dumpErr(fmt.Errorf("target %v out of range at %04d", dc.Target, pc))
			}
			inst.Cases = append(inst.Cases, Case{Type: t, Target: dc.Target})
		}
		if err := checkOperands(inst); err != nil {
			return nil, dumpErr(fmt.Errorf("%w at %04d", err, pc))
		}
		prog.Code[pc] = inst
	}
	if err := checkStack(prog.Code); err != nil {
		return nil, dumpErr(err)
	}
	return prog, nil
}

// checkStack follows every path through code, which only branches forward,
// and makes sure no pop can remove the subject from the stack.
func checkStack(code []Instruction) error {
	depths := make([]int, len(code)+1)
	reach := func(pc, depth int) {
		if depths[pc] == 0 || depth < depths[pc] {
			depths[pc] = depth
		}
	}
	depths[0] = 1
	for pc, inst := range code {
		depth := depths[pc]
		if depth == 0 {
			continue
		}
		switch inst.Op {
		case PUSHFIELD, PUSHINDEX:
			depth++
		case POP:
			if depth <= 1 {
				return fmt.Errorf("pop of the subject at %04d", pc)
			}
			depth--
		}
		if inst.Op.Branches() {
			reach(inst.Target, depth)
		}
		for _, c := range inst.Cases {
			reach(c.Target, depth)
		}
		if inst.Op != JUMP && inst.Op != FAIL && inst.Op != SPLITTYPE {
			reach(pc+1, depth)
		}
	}
	return nil
}

func checkOperands(inst Instruction) error {
	switch {
	case inst.Op == CHECKTYPE && inst.Type == nil:
		return errors.New("checktype without a type")
	case inst.Op == CHECKOBJECT && inst.Object == nil:
		return errors.New("checkobject without a literal")
	case inst.Op == SPLITTYPE && len(inst.Cases) == 0:
		return errors.New("splittype without cases")
	default:
		return nil
	}
}

func dumpLiteral(lit Literal) (*dumpedLiteral, error) {
	switch tlit := lit.(type) {
	case Str:
		return &dumpedLiteral{Kind: litStr, Str: string(tlit)}, nil
	case Sym:
		return &dumpedLiteral{Kind: litSym, Str: string(tlit)}, nil
	case Int:
		return &dumpedLiteral{Kind: litInt, Int: int64(tlit)}, nil
	case *Range:
		return &dumpedLiteral{Kind: litRange, Lower: tlit.Lower, Upper: tlit.Upper, Exclusive: tlit.Exclusive}, nil
	case *Regexp:
		return &dumpedLiteral{Kind: litRegexp, Str: tlit.Source, Flags: tlit.Flags}, nil
	default:
		return nil, fmt.Errorf("cannot dump literal %v", lit)
	}
}

func undumpLiteral(dl *dumpedLiteral) (Literal, error) {
	switch dl.Kind {
	case litStr:
		return Str(dl.Str), nil
	case litSym:
		return Sym(ast.Symbol(dl.Str)), nil
	case litInt:
		return Int(dl.Int), nil
	case litRange:
		return NewRange(dl.Lower, dl.Upper, dl.Exclusive), nil
	case litRegexp:
		return NewRegexp(dl.Str, dl.Flags)
	default:
		return nil, fmt.Errorf("unknown literal kind %v", dl.Kind)
	}
}

func dumpErr(err error) error {
	return &lerrors.Error{Kind: lerrors.DumpErr, Err: err}
}
