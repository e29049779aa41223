package rv32

import (
	"encoding/binary"
	"testing"

	"github.com/luxforge/shadec/internal/builtin"
	"github.com/luxforge/shadec/internal/ir"
	"github.com/luxforge/shadec/internal/lower"
	"github.com/luxforge/shadec/internal/target"
)

func word(t *testing.T, code []byte, idx int) uint32 {
	t.Helper()
	off := idx * 4
	if off+4 > len(code) {
		t.Fatalf("code has %d words, wanted word %d", len(code)/4, idx)
	}
	return binary.LittleEndian.Uint32(code[off:])
}

func TestEncodings(t *testing.T) {
	// Reference words cross-checked against a stock assembler.
	addi, err := encodeI(-32, sp, 0, sp, opOPIMM)
	if err != nil {
		t.Fatalf("addi: %v", err)
	}
	if addi != 0xfe010113 { // addi sp, sp, -32
		t.Fatalf("addi sp, sp, -32 = %#08x", addi)
	}

	sw, err := encodeS(28, sp, ra, 2, opSTORE)
	if err != nil {
		t.Fatalf("sw: %v", err)
	}
	if sw != 0x00112e23 { // sw ra, 28(sp)
		t.Fatalf("sw ra, 28(sp) = %#08x", sw)
	}

	if lui := encodeU(1, t0, opLUI); lui != 0x000012b7 { // lui t0, 1
		t.Fatalf("lui t0, 1 = %#08x", lui)
	}

	if mul := encodeR(0x01, t1, t0, 0, t0, opOP); mul != 0x026282b3 { // mul t0, t0, t1
		t.Fatalf("mul t0, t0, t1 = %#08x", mul)
	}

	if auipc := encodeU(0, ra, opAUIPC); auipc != 0x00000097 { // auipc ra, 0
		t.Fatalf("auipc ra, 0 = %#08x", auipc)
	}

	jalr, err := encodeI(0, ra, 0, ra, opJALR)
	if err != nil {
		t.Fatalf("jalr: %v", err)
	}
	if jalr != 0x000080e7 { // jalr ra, 0(ra)
		t.Fatalf("jalr ra, 0(ra) = %#08x", jalr)
	}
}

func TestEncodeImmediateRange(t *testing.T) {
	if _, err := encodeI(2048, 0, 0, 0, opOPIMM); err == nil {
		t.Fatalf("I-type accepted an out-of-range immediate")
	}
	if _, err := encodeS(-2049, 0, 0, 2, opSTORE); err == nil {
		t.Fatalf("S-type accepted an out-of-range immediate")
	}
}

func addFunc() *ir.Func {
	f := ir.NewFunc("add", 2)
	sum := f.NewReg()
	f.Emit(ir.Bin(ir.OpAdd, ir.W32, sum, 0, 1))
	f.Emit(ir.Ret(sum))
	return f
}

func TestEmitAdd(t *testing.T) {
	obj, err := Emit(addFunc(), target.Embedded())
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(obj.Code)%4 != 0 {
		t.Fatalf("code length %d not word aligned", len(obj.Code))
	}
	if len(obj.Relocs) != 0 {
		t.Fatalf("plain add produced %d relocs", len(obj.Relocs))
	}

	// Three register homes plus saved ra, aligned: 16-byte frame.
	if obj.FrameSize != 16 {
		t.Fatalf("frame = %d, want 16", obj.FrameSize)
	}
	if got := word(t, obj.Code, 0); got != 0xff010113 { // addi sp, sp, -16
		t.Fatalf("prologue word = %#08x", got)
	}
}

func TestEmitCallRelocation(t *testing.T) {
	f := ir.NewFunc("curve", 1)
	res := f.NewReg()
	f.Emit(ir.Call(res, "shadec_q32_sin1", 0))
	f.Emit(ir.Ret(res))

	obj, err := Emit(f, target.Embedded())
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(obj.Relocs) != 1 {
		t.Fatalf("relocs = %d, want 1", len(obj.Relocs))
	}
	rel := obj.Relocs[0]
	if rel.Symbol != "shadec_q32_sin1" {
		t.Fatalf("reloc symbol = %q", rel.Symbol)
	}
	if rel.Offset%4 != 0 {
		t.Fatalf("reloc offset %d not word aligned", rel.Offset)
	}
	if got := word(t, obj.Code, rel.Offset/4); got != 0x00000097 { // auipc ra, 0
		t.Fatalf("call site word = %#08x, want auipc", got)
	}
	if got := word(t, obj.Code, rel.Offset/4+1); got != 0x000080e7 { // jalr ra, 0(ra)
		t.Fatalf("call site word = %#08x, want jalr", got)
	}
}

func TestEmitRejectsHostTarget(t *testing.T) {
	if _, err := Emit(addFunc(), target.Host()); err == nil {
		t.Fatalf("host descriptor accepted")
	}
}

func TestEmitRevalidates(t *testing.T) {
	f := ir.NewFunc("wide", 2)
	dst := f.NewReg()
	f.Emit(ir.Bin(ir.OpAdd, ir.W64, dst, 0, 1))
	f.Emit(ir.Ret(dst))

	if _, err := Emit(f, target.Embedded(target.ExtMulDiv)); err == nil {
		t.Fatalf("64-bit instruction accepted by the embedded emitter")
	}

	mul := ir.NewFunc("mul", 2)
	dst = mul.NewReg()
	mul.Emit(ir.Bin(ir.OpMul, ir.W32, dst, 0, 1))
	mul.Emit(ir.Ret(dst))
	if _, err := Emit(mul, target.Embedded()); err == nil {
		t.Fatalf("multiply accepted without the muldiv extension")
	}
	if _, err := Emit(mul, target.Embedded(target.ExtMulDiv)); err != nil {
		t.Fatalf("multiply rejected with muldiv present: %v", err)
	}
}

func TestEmitAtomicAdd(t *testing.T) {
	f := ir.NewFunc("bump", 2)
	old := f.NewReg()
	f.Emit(ir.AtomicAdd(old, 0, 0, 1))
	f.Emit(ir.Ret(old))

	if _, err := Emit(f, target.Embedded()); err == nil {
		t.Fatalf("atomic accepted without the atomics extension")
	}
	obj, err := Emit(f, target.Embedded(target.ExtAtomics))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	// amoadd.w t0, t1, (t0)
	found := false
	for i := 0; i < len(obj.Code)/4; i++ {
		if word(t, obj.Code, i) == encodeR(0x00, t1, t0, 2, t0, opAMO) {
			found = true
		}
	}
	if !found {
		t.Fatalf("no amoadd.w in emitted code")
	}
}

func TestEmitLoweredDivide(t *testing.T) {
	fn := &lower.Function{
		Name:   "div",
		Params: []lower.Param{{Name: "a"}, {Name: "b"}},
		Ops: []lower.Operation{
			{Kind: lower.Divide, Result: 2, Args: []lower.Operand{lower.Value(0), lower.Value(1)}},
			{Kind: lower.Return, Args: []lower.Operand{lower.Value(2)}},
		},
	}
	d := target.Embedded(target.ExtMulDiv)
	low, err := lower.Lower(fn, d, builtin.NewRegistry(), lower.Options{})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	obj, err := Emit(low, d)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(obj.Relocs) != 1 || obj.Relocs[0].Symbol != "shadec_q32_div2" {
		t.Fatalf("relocs = %+v, want one shadec_q32_div2 site", obj.Relocs)
	}
}

func TestEmitFrameLimit(t *testing.T) {
	f := ir.NewFunc("huge", 1)
	var last ir.Reg
	for i := 0; i < 600; i++ {
		last = f.NewReg()
		f.Emit(ir.Const(last, int64(i), ir.W32))
	}
	f.Emit(ir.Ret(last))
	if _, err := Emit(f, target.Embedded()); err == nil {
		t.Fatalf("oversized frame accepted")
	}
}
