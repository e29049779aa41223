package ir

// Instruction constructors. These exist so unused register fields are
// reliably NoReg; building Inst literals by hand risks aliasing r0.

func Const(dst Reg, imm int64, w Width) Inst {
	return Inst{Op: OpConst, Width: w, Dst: dst, A: NoReg, B: NoReg, C: NoReg, Imm: imm}
}

func Mov(dst, a Reg, w Width) Inst {
	return Inst{Op: OpMov, Width: w, Dst: dst, A: a, B: NoReg, C: NoReg}
}

// Bin builds a two-source ALU instruction (add, sub, and, or, xor, mul,
// div, mulwide, cmplt, cmpeq, fadd, fmul, fdiv).
func Bin(op Op, w Width, dst, a, b Reg) Inst {
	return Inst{Op: op, Width: w, Dst: dst, A: a, B: b, C: NoReg}
}

// Un builds a one-source instruction (neg).
func Un(op Op, w Width, dst, a Reg) Inst {
	return Inst{Op: op, Width: w, Dst: dst, A: a, B: NoReg, C: NoReg}
}

// Shift builds an immediate-shift instruction (sra, srl, sll).
func Shift(op Op, w Width, dst, a Reg, amount int64) Inst {
	return Inst{Op: op, Width: w, Dst: dst, A: a, B: NoReg, C: NoReg, Imm: amount}
}

// Select builds dst = (cond != 0) ? ifTrue : ifFalse.
func Select(dst, cond, ifTrue, ifFalse Reg, w Width) Inst {
	return Inst{Op: OpSelect, Width: w, Dst: dst, A: cond, B: ifTrue, C: ifFalse}
}

func Load(dst, base Reg, off int32) Inst {
	return Inst{Op: OpLoad, Width: W32, Dst: dst, A: base, B: NoReg, C: NoReg, Off: off}
}

func Store(base Reg, off int32, src Reg) Inst {
	return Inst{Op: OpStore, Width: W32, Dst: NoReg, A: base, B: src, C: NoReg, Off: off}
}

func Call(dst Reg, sym string, args ...Reg) Inst {
	return Inst{Op: OpCall, Width: W32, Dst: dst, A: NoReg, B: NoReg, C: NoReg, Sym: sym, Args: args}
}

func Ret(a Reg) Inst {
	return Inst{Op: OpRet, Width: W32, Dst: NoReg, A: a, B: NoReg, C: NoReg}
}

func AtomicAdd(dst, base Reg, off int32, src Reg) Inst {
	return Inst{Op: OpAtomicAdd, Width: W32, Dst: dst, A: base, B: src, C: NoReg, Off: off}
}
