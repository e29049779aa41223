// Package rv32 encodes validated IR into RV32 machine code for the
// embedded controller target. Output is position independent: literal
// pools and absolute addresses are avoided, and builtin calls are left as
// relocation records the embedding resolves at load time.
package rv32

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/luxforge/shadec/internal/ir"
	"github.com/luxforge/shadec/internal/target"
)

// Hard register numbers used by the code generator. Virtual registers
// live in stack slots; t0-t2 are the per-instruction scratch set and a0-a7
// carry arguments and results, matching the standard calling convention.
const (
	x0 = 0 // hardwired zero
	ra = 1
	sp = 2
	t0 = 5
	t1 = 6
	t2 = 7
	a0 = 10
)

// maxArgs is the number of argument registers (a0-a7).
const maxArgs = 8

// Reloc marks a builtin call site. Offset points at an AUIPC+JALR pair;
// the embedding patches both words once the symbol's load address is
// known.
type Reloc struct {
	Offset int
	Symbol string
}

// Object is the encoded form of one function.
type Object struct {
	Name      string
	Code      []byte
	Relocs    []Reloc
	FrameSize int32
}

// Emit encodes fn for the descriptor's instruction set. The function must
// already have passed validation; Emit re-validates as a cheap guard since
// an unsupported instruction past this point is a miscompile.
func Emit(fn *ir.Func, d target.Descriptor) (*Object, error) {
	if d.Kind != target.EmbeddedISA {
		return nil, fmt.Errorf("rv32: descriptor %s is not an embedded target", d)
	}
	if err := target.Validate(fn, d); err != nil {
		return nil, err
	}

	e := &emitter{fn: fn, d: d}
	if err := e.emit(); err != nil {
		return nil, err
	}
	slog.Debug("encoded function", "name", fn.Name, "bytes", len(e.code), "relocs", len(e.relocs))
	return &Object{Name: fn.Name, Code: e.code, Relocs: e.relocs, FrameSize: e.frame}, nil
}

// EmitProgram encodes every function of the unit.
func EmitProgram(p *ir.Program, d target.Descriptor) ([]*Object, error) {
	objs := make([]*Object, 0, len(p.Funcs))
	for _, fn := range p.Funcs {
		obj, err := Emit(fn, d)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

type emitter struct {
	fn     *ir.Func
	d      target.Descriptor
	code   []byte
	relocs []Reloc
	frame  int32
}

// slot returns the stack offset of a virtual register's home.
func (e *emitter) slot(r ir.Reg) int32 {
	return int32(r) * 4
}

func (e *emitter) emit() error {
	// One word per virtual register plus the saved return address,
	// rounded to the 16-byte stack alignment.
	raw := int32(e.fn.NumRegs)*4 + 4
	e.frame = (raw + 15) &^ 15
	if e.frame > 2032 {
		return fmt.Errorf("rv32: %s: frame of %d bytes exceeds the addressable range", e.fn.Name, e.frame)
	}
	if len(e.fn.Params) > maxArgs {
		return fmt.Errorf("rv32: %s: %d parameters exceed the %d argument registers", e.fn.Name, len(e.fn.Params), maxArgs)
	}

	// Prologue: claim the frame, save ra, spill incoming arguments to
	// their register homes.
	if err := e.addi(sp, sp, -e.frame); err != nil {
		return err
	}
	if err := e.sw(sp, e.frame-4, ra); err != nil {
		return err
	}
	for i, p := range e.fn.Params {
		if err := e.sw(sp, e.slot(p), uint32(a0+i)); err != nil {
			return err
		}
	}

	for idx, inst := range e.fn.Code {
		if err := e.inst(inst); err != nil {
			return fmt.Errorf("rv32: %s inst %d (%s): %w", e.fn.Name, idx, inst.Op, err)
		}
	}
	return nil
}

func (e *emitter) inst(inst ir.Inst) error {
	switch inst.Op {
	case ir.OpNop:
		return nil

	case ir.OpConst:
		if err := e.li(t0, int32(inst.Imm)); err != nil {
			return err
		}
		return e.sw(sp, e.slot(inst.Dst), t0)

	case ir.OpMov:
		if err := e.lw(t0, sp, e.slot(inst.A)); err != nil {
			return err
		}
		return e.sw(sp, e.slot(inst.Dst), t0)

	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpMul, ir.OpDiv:
		if err := e.loadPair(inst.A, inst.B); err != nil {
			return err
		}
		var word uint32
		switch inst.Op {
		case ir.OpAdd:
			word = encodeR(0x00, t1, t0, 0, t0, opOP)
		case ir.OpSub:
			word = encodeR(0x20, t1, t0, 0, t0, opOP)
		case ir.OpAnd:
			word = encodeR(0x00, t1, t0, 7, t0, opOP)
		case ir.OpOr:
			word = encodeR(0x00, t1, t0, 6, t0, opOP)
		case ir.OpXor:
			word = encodeR(0x00, t1, t0, 4, t0, opOP)
		case ir.OpMul:
			word = encodeR(0x01, t1, t0, 0, t0, opOP)
		case ir.OpDiv:
			word = encodeR(0x01, t1, t0, 4, t0, opOP)
		}
		e.word(word)
		return e.sw(sp, e.slot(inst.Dst), t0)

	case ir.OpNeg:
		if err := e.lw(t0, sp, e.slot(inst.A)); err != nil {
			return err
		}
		e.word(encodeR(0x20, t0, x0, 0, t0, opOP))
		return e.sw(sp, e.slot(inst.Dst), t0)

	case ir.OpSra, ir.OpSrl, ir.OpSll:
		if err := e.lw(t0, sp, e.slot(inst.A)); err != nil {
			return err
		}
		shamt := int32(inst.Imm) & 31
		var word uint32
		var err error
		switch inst.Op {
		case ir.OpSra:
			word, err = encodeI(0x400|shamt, t0, 5, t0, opOPIMM)
		case ir.OpSrl:
			word, err = encodeI(shamt, t0, 5, t0, opOPIMM)
		case ir.OpSll:
			word, err = encodeI(shamt, t0, 1, t0, opOPIMM)
		}
		if err != nil {
			return err
		}
		e.word(word)
		return e.sw(sp, e.slot(inst.Dst), t0)

	case ir.OpCmpLT:
		if err := e.loadPair(inst.A, inst.B); err != nil {
			return err
		}
		e.word(encodeR(0x00, t1, t0, 2, t0, opOP)) // slt
		return e.sw(sp, e.slot(inst.Dst), t0)

	case ir.OpCmpEQ:
		if err := e.loadPair(inst.A, inst.B); err != nil {
			return err
		}
		e.word(encodeR(0x00, t1, t0, 4, t0, opOP)) // xor
		word, err := encodeI(1, t0, 3, t0, opOPIMM) // sltiu t0, t0, 1
		if err != nil {
			return err
		}
		e.word(word)
		return e.sw(sp, e.slot(inst.Dst), t0)

	case ir.OpSelect:
		return e.sel(inst)

	case ir.OpLoad:
		if err := e.lw(t0, sp, e.slot(inst.A)); err != nil {
			return err
		}
		if err := e.lw(t0, t0, inst.Off); err != nil {
			return err
		}
		return e.sw(sp, e.slot(inst.Dst), t0)

	case ir.OpStore:
		if err := e.lw(t0, sp, e.slot(inst.A)); err != nil {
			return err
		}
		if err := e.lw(t1, sp, e.slot(inst.B)); err != nil {
			return err
		}
		return e.sw(t0, inst.Off, t1)

	case ir.OpAtomicAdd:
		if err := e.lw(t0, sp, e.slot(inst.A)); err != nil {
			return err
		}
		if inst.Off != 0 {
			if err := e.addi(t0, t0, inst.Off); err != nil {
				return err
			}
		}
		if err := e.lw(t1, sp, e.slot(inst.B)); err != nil {
			return err
		}
		e.word(encodeR(0x00, t1, t0, 2, t0, opAMO)) // amoadd.w
		return e.sw(sp, e.slot(inst.Dst), t0)

	case ir.OpCall:
		return e.call(inst)

	case ir.OpRet:
		if inst.A != ir.NoReg {
			if err := e.lw(a0, sp, e.slot(inst.A)); err != nil {
				return err
			}
		}
		if err := e.lw(ra, sp, e.frame-4); err != nil {
			return err
		}
		if err := e.addi(sp, sp, e.frame); err != nil {
			return err
		}
		word, err := encodeI(0, ra, 0, x0, opJALR)
		if err != nil {
			return err
		}
		e.word(word)
		return nil

	default:
		return fmt.Errorf("no encoding for %s", inst.Op)
	}
}

// sel lowers select without branches: a zero/all-ones mask from the
// condition picks between the two sources, keeping the code straight-line.
func (e *emitter) sel(inst ir.Inst) error {
	if err := e.lw(t0, sp, e.slot(inst.A)); err != nil {
		return err
	}
	if err := e.lw(t1, sp, e.slot(inst.B)); err != nil {
		return err
	}
	if err := e.lw(t2, sp, e.slot(inst.C)); err != nil {
		return err
	}
	e.word(encodeR(0x00, t0, x0, 3, t0, opOP)) // sltu t0, x0, t0
	e.word(encodeR(0x20, t0, x0, 0, t0, opOP)) // sub t0, x0, t0 (mask)
	e.word(encodeR(0x00, t0, t1, 7, t1, opOP)) // and t1, t1, t0
	not, err := encodeI(-1, t0, 4, t0, opOPIMM) // xori t0, t0, -1
	if err != nil {
		return err
	}
	e.word(not)
	e.word(encodeR(0x00, t0, t2, 7, t2, opOP)) // and t2, t2, t0
	e.word(encodeR(0x00, t2, t1, 6, t0, opOP)) // or t0, t1, t2
	return e.sw(sp, e.slot(inst.Dst), t0)
}

// call loads arguments into a0-a7 and emits a relocated AUIPC+JALR pair.
// Every live value has a stack home, so nothing needs saving across the
// call beyond ra, which the prologue already spilled.
func (e *emitter) call(inst ir.Inst) error {
	if len(inst.Args) > maxArgs {
		return fmt.Errorf("call to %q passes %d arguments, max %d", inst.Sym, len(inst.Args), maxArgs)
	}
	for i, arg := range inst.Args {
		if err := e.lw(uint32(a0+i), sp, e.slot(arg)); err != nil {
			return err
		}
	}
	e.relocs = append(e.relocs, Reloc{Offset: len(e.code), Symbol: inst.Sym})
	e.word(encodeU(0, ra, opAUIPC))
	jalr, err := encodeI(0, ra, 0, ra, opJALR)
	if err != nil {
		return err
	}
	e.word(jalr)
	if inst.Dst != ir.NoReg {
		return e.sw(sp, e.slot(inst.Dst), a0)
	}
	return nil
}

func (e *emitter) loadPair(a, b ir.Reg) error {
	if err := e.lw(t0, sp, e.slot(a)); err != nil {
		return err
	}
	return e.lw(t1, sp, e.slot(b))
}

func (e *emitter) addi(rd, rs1 uint32, imm int32) error {
	word, err := encodeI(imm, rs1, 0, rd, opOPIMM)
	if err != nil {
		return err
	}
	e.word(word)
	return nil
}

// li materializes an immediate with ADDI, or LUI+ADDI when it exceeds the
// 12-bit range.
func (e *emitter) li(rd uint32, value int32) error {
	if value >= -2048 && value <= 2047 {
		return e.addi(rd, x0, value)
	}
	hi := (int64(value) + (1 << 11)) >> 12
	lo := int64(value) - (hi << 12)
	e.word(encodeU(int32(hi), rd, opLUI))
	return e.addi(rd, rd, int32(lo))
}

func (e *emitter) lw(rd, rs1 uint32, off int32) error {
	word, err := encodeI(off, rs1, 2, rd, opLOAD)
	if err != nil {
		return err
	}
	e.word(word)
	return nil
}

func (e *emitter) sw(rs1 uint32, off int32, rs2 uint32) error {
	word, err := encodeS(off, rs1, rs2, 2, opSTORE)
	if err != nil {
		return err
	}
	e.word(word)
	return nil
}

func (e *emitter) word(insn uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], insn)
	e.code = append(e.code, buf[:]...)
}
