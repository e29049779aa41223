package lower

import (
	"testing"

	"github.com/luxforge/shadec/internal/builtin"
	"github.com/luxforge/shadec/internal/fixed"
	"github.com/luxforge/shadec/internal/ir"
	"github.com/luxforge/shadec/internal/target"
)

// evalEnv walks lowered IR over concrete values so transform semantics can
// be checked without a real emitter. Registers are kept sign-extended in 64
// bits; 32-bit ops wrap through int32. Memory is a flat array of Q32
// components addressed in bytes.
type evalEnv struct {
	mem      []int32
	builtins map[string]builtin.Fn
}

func hostBuiltins(t *testing.T) map[string]builtin.Fn {
	t.Helper()
	reg := builtin.NewRegistry()
	out := make(map[string]builtin.Fn)
	rows := []struct {
		id    builtin.ID
		arity int
	}{
		{builtin.IDMul, 2}, {builtin.IDDiv, 2}, {builtin.IDFma, 3},
		{builtin.IDSin, 1}, {builtin.IDCos, 1}, {builtin.IDSqrt, 1},
		{builtin.IDPow, 2},
	}
	for _, row := range rows {
		e, err := reg.Lookup(row.id, row.arity, target.HostExecution)
		if err != nil {
			t.Fatalf("lookup %s: %v", row.id, err)
		}
		out[builtin.Symbol(row.id, row.arity)] = e.Impl.(builtin.Local).Fn
	}
	return out
}

func (env *evalEnv) run(t *testing.T, fn *ir.Func, args ...int64) int64 {
	t.Helper()
	regs := make([]int64, fn.NumRegs)
	if len(args) != len(fn.Params) {
		t.Fatalf("%s takes %d args, got %d", fn.Name, len(fn.Params), len(args))
	}
	for i, a := range args {
		regs[fn.Params[i]] = a
	}

	w32 := func(v int64) int64 { return int64(int32(v)) }

	for _, inst := range fn.Code {
		var res int64
		switch inst.Op {
		case ir.OpConst:
			res = inst.Imm
			if inst.Width == ir.W32 {
				res = w32(res)
			}
		case ir.OpMov:
			res = regs[inst.A]
		case ir.OpAdd:
			res = regs[inst.A] + regs[inst.B]
		case ir.OpSub:
			res = regs[inst.A] - regs[inst.B]
		case ir.OpNeg:
			res = -regs[inst.A]
		case ir.OpAnd:
			res = regs[inst.A] & regs[inst.B]
		case ir.OpOr:
			res = regs[inst.A] | regs[inst.B]
		case ir.OpXor:
			res = regs[inst.A] ^ regs[inst.B]
		case ir.OpSra:
			if inst.Width == ir.W32 {
				res = int64(int32(regs[inst.A]) >> uint(inst.Imm))
			} else {
				res = regs[inst.A] >> uint(inst.Imm)
			}
		case ir.OpSrl:
			if inst.Width == ir.W32 {
				res = int64(int32(uint32(regs[inst.A]) >> uint(inst.Imm)))
			} else {
				res = int64(uint64(regs[inst.A]) >> uint(inst.Imm))
			}
		case ir.OpSll:
			res = regs[inst.A] << uint(inst.Imm)
		case ir.OpMulWide:
			res = int64(int32(regs[inst.A])) * int64(int32(regs[inst.B]))
		case ir.OpMul:
			res = regs[inst.A] * regs[inst.B]
		case ir.OpDiv:
			res = regs[inst.A] / regs[inst.B]
		case ir.OpCmpLT:
			var lt bool
			if inst.Width == ir.W32 {
				lt = int32(regs[inst.A]) < int32(regs[inst.B])
			} else {
				lt = regs[inst.A] < regs[inst.B]
			}
			if lt {
				res = 1
			}
		case ir.OpCmpEQ:
			if regs[inst.A] == regs[inst.B] {
				res = 1
			}
		case ir.OpSelect:
			if regs[inst.A] != 0 {
				res = regs[inst.B]
			} else {
				res = regs[inst.C]
			}
		case ir.OpLoad:
			addr := regs[inst.A] + int64(inst.Off)
			res = int64(env.mem[addr/4])
		case ir.OpStore:
			addr := regs[inst.A] + int64(inst.Off)
			env.mem[addr/4] = int32(regs[inst.B])
			continue
		case ir.OpCall:
			fnImpl, ok := env.builtins[inst.Sym]
			if !ok {
				t.Fatalf("eval: unknown builtin %q", inst.Sym)
			}
			fargs := make([]fixed.Value, len(inst.Args))
			for i, a := range inst.Args {
				fargs[i] = fixed.FromRaw(int32(regs[a]))
			}
			res = int64(fnImpl(fargs).Raw())
		case ir.OpRet:
			return regs[inst.A]
		case ir.OpNop:
			continue
		default:
			t.Fatalf("eval: unhandled op %s", inst.Op)
		}
		if inst.Width == ir.W32 {
			res = w32(res)
		}
		regs[inst.Dst] = res
	}
	t.Fatalf("%s fell off the end without ret", fn.Name)
	return 0
}
