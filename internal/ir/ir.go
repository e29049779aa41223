// Package ir defines the target-neutral low-level IR produced by the Q32
// lowering transform and consumed by the code emitters. Functions are flat
// instruction lists over virtual registers; register allocation is the
// emitter's job.
package ir

import "fmt"

// Reg identifies a virtual register within one function.
type Reg uint32

// NoReg marks an absent register operand.
const NoReg Reg = ^Reg(0)

// Width is the operand width of an instruction in bits.
type Width uint8

const (
	W32  Width = 32
	W64  Width = 64
	W128 Width = 128
)

// Op enumerates the IR instruction set.
type Op uint8

const (
	OpNop Op = iota

	// Data movement.
	OpConst // Dst = Imm
	OpMov   // Dst = A

	// Integer arithmetic at Width.
	OpAdd // Dst = A + B
	OpSub // Dst = A - B
	OpNeg // Dst = -A
	OpSra // Dst = A >> Imm (arithmetic)
	OpSrl // Dst = A >> Imm (logical)
	OpSll // Dst = A << Imm
	OpAnd // Dst = A & B
	OpOr  // Dst = A | B
	OpXor // Dst = A ^ B

	// Multiply/divide extension class.
	OpMulWide // Dst(64) = sext(A) * sext(B), full product
	OpMul     // Dst = A * B, low half
	OpDiv     // Dst = A / B, signed

	// Compare and select; branch-free conditionals.
	OpCmpLT  // Dst = (A < B) ? 1 : 0, signed
	OpCmpEQ  // Dst = (A == B) ? 1 : 0
	OpSelect // Dst = (A != 0) ? B : C

	// Memory, always one Q32 component per access.
	OpLoad  // Dst = mem32[A + Off]
	OpStore // mem32[A + Off] = B

	// Calls and returns.
	OpCall // Dst = Sym(Args...)
	OpRet  // return A

	// Atomics extension class.
	OpAtomicAdd // Dst = atomic { mem32[A + Off] += B }

	// Floating-point extension class. Hosted targets only; the Q32
	// transform never emits these.
	OpFAdd
	OpFMul
	OpFDiv
)

// Class groups opcodes by the capability they require.
type Class uint8

const (
	ClassALU Class = iota
	ClassMem
	ClassCall
	ClassMulDiv
	ClassAtomic
	ClassFloat
)

var opNames = [...]string{
	OpNop:       "nop",
	OpConst:     "const",
	OpMov:       "mov",
	OpAdd:       "add",
	OpSub:       "sub",
	OpNeg:       "neg",
	OpSra:       "sra",
	OpSrl:       "srl",
	OpSll:       "sll",
	OpAnd:       "and",
	OpOr:        "or",
	OpXor:       "xor",
	OpMulWide:   "mulwide",
	OpMul:       "mul",
	OpDiv:       "div",
	OpCmpLT:     "cmplt",
	OpCmpEQ:     "cmpeq",
	OpSelect:    "select",
	OpLoad:      "load",
	OpStore:     "store",
	OpCall:      "call",
	OpRet:       "ret",
	OpAtomicAdd: "amoadd",
	OpFAdd:      "fadd",
	OpFMul:      "fmul",
	OpFDiv:      "fdiv",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Class reports the capability class of o.
func (o Op) Class() Class {
	switch o {
	case OpMulWide, OpMul, OpDiv:
		return ClassMulDiv
	case OpAtomicAdd:
		return ClassAtomic
	case OpFAdd, OpFMul, OpFDiv:
		return ClassFloat
	case OpLoad, OpStore:
		return ClassMem
	case OpCall:
		return ClassCall
	default:
		return ClassALU
	}
}

// HasDst reports whether o writes a destination register.
func (o Op) HasDst() bool {
	switch o {
	case OpNop, OpStore, OpRet:
		return false
	default:
		return true
	}
}

// Inst is one IR instruction. Unused register fields hold NoReg.
type Inst struct {
	Op    Op
	Width Width
	Dst   Reg
	A     Reg
	B     Reg
	C     Reg // third source for select
	Imm   int64
	Off   int32 // byte displacement for memory ops
	Sym   string
	Args  []Reg // call arguments
}

// Func is one lowered function.
type Func struct {
	Name string

	// Params lists the registers holding incoming arguments in order.
	// Pointer-based lvalue bases arrive here as addresses.
	Params []Reg

	Code []Inst

	// NumRegs is one past the highest virtual register used.
	NumRegs uint32
}

// Program groups the lowered functions of one compilation unit.
type Program struct {
	Funcs []*Func
}

// NewFunc returns an empty function with nParams parameter registers
// pre-allocated as r0..r(n-1).
func NewFunc(name string, nParams int) *Func {
	f := &Func{Name: name, NumRegs: uint32(nParams)}
	for i := 0; i < nParams; i++ {
		f.Params = append(f.Params, Reg(i))
	}
	return f
}

// NewReg allocates a fresh virtual register.
func (f *Func) NewReg() Reg {
	r := Reg(f.NumRegs)
	f.NumRegs++
	return r
}

// Emit appends inst to the function body.
func (f *Func) Emit(inst Inst) {
	f.Code = append(f.Code, inst)
}

// CheckDefs verifies every register is defined (or is a parameter) before
// use. The frontend guarantees this for abstract IR; this is a debugging
// aid for transform changes, not a user-facing validation pass.
func (f *Func) CheckDefs() error {
	defined := make([]bool, f.NumRegs)
	for _, p := range f.Params {
		if uint32(p) >= f.NumRegs {
			return fmt.Errorf("ir: %s: parameter %s out of range", f.Name, p)
		}
		defined[p] = true
	}
	use := func(idx int, r Reg) error {
		if r == NoReg {
			return nil
		}
		if uint32(r) >= f.NumRegs {
			return fmt.Errorf("ir: %s: inst %d uses out-of-range %s", f.Name, idx, r)
		}
		if !defined[r] {
			return fmt.Errorf("ir: %s: inst %d uses undefined %s", f.Name, idx, r)
		}
		return nil
	}
	for idx, inst := range f.Code {
		for _, r := range []Reg{inst.A, inst.B, inst.C} {
			if err := use(idx, r); err != nil {
				return err
			}
		}
		for _, r := range inst.Args {
			if err := use(idx, r); err != nil {
				return err
			}
		}
		if inst.Op.HasDst() {
			if uint32(inst.Dst) >= f.NumRegs {
				return fmt.Errorf("ir: %s: inst %d defines out-of-range %s", f.Name, idx, inst.Dst)
			}
			defined[inst.Dst] = true
		}
	}
	return nil
}

func (r Reg) String() string {
	if r == NoReg {
		return "_"
	}
	return fmt.Sprintf("r%d", uint32(r))
}
