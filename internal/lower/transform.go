package lower

import (
	"fmt"
	"log/slog"

	"github.com/luxforge/shadec/internal/builtin"
	"github.com/luxforge/shadec/internal/ir"
	"github.com/luxforge/shadec/internal/target"
)

// Options tunes lowering for one compilation unit.
type Options struct {
	// FastMath omits the saturation clamp on add/subtract, wrapping on
	// overflow instead. It never changes multiply, divide, or
	// transcendental lowering; those need their widened intermediates
	// for correctness, not overflow policy.
	FastMath bool
}

// Q32 bit patterns used by the inline sequences.
const (
	maxFixed = int64(0x7fffffff)
	minFixed = -int64(0x80000000)
	fracBits = 16
	signBit  = 31
)

type compiler struct {
	fn     *ir.Func
	d      target.Descriptor
	reg    *builtin.Registry
	opts   Options
	values map[ValueID]ir.Reg
}

// Lower rewrites fn into target-neutral IR and validates it against d. A
// function either fully lowers and validates or fails with a diagnostic;
// there is no partial success.
func Lower(fn *Function, d target.Descriptor, reg *builtin.Registry, opts Options) (*ir.Func, error) {
	c := &compiler{
		fn:     ir.NewFunc(fn.Name, len(fn.Params)),
		d:      d,
		reg:    reg,
		opts:   opts,
		values: make(map[ValueID]ir.Reg, len(fn.Params)+len(fn.Ops)),
	}
	for i := range fn.Params {
		c.values[ValueID(i)] = ir.Reg(i)
	}

	for i, op := range fn.Ops {
		if err := c.lowerOp(op); err != nil {
			return nil, fmt.Errorf("lower %s op %d (%s): %w", fn.Name, i, op.Kind, err)
		}
	}

	if err := c.fn.CheckDefs(); err != nil {
		return nil, err
	}
	if err := target.Validate(c.fn, d); err != nil {
		return nil, err
	}
	slog.Debug("lowered function", "name", fn.Name, "insts", len(c.fn.Code), "target", d.String())
	return c.fn, nil
}

func (c *compiler) bind(id ValueID, r ir.Reg) {
	c.values[id] = r
}

func (c *compiler) valueReg(id ValueID) (ir.Reg, error) {
	if r, ok := c.values[id]; ok {
		return r, nil
	}
	return ir.NoReg, fmt.Errorf("lower: value v%d used before definition", id)
}

// operandReg resolves one scalar operand to a register, emitting loads for
// lvalue operands and materializing constants.
func (c *compiler) operandReg(op Operand) (ir.Reg, error) {
	switch op.kind {
	case operandValue:
		return c.valueReg(op.val)
	case operandConst:
		r := c.fn.NewReg()
		c.fn.Emit(ir.Const(r, int64(op.imm.Raw()), ir.W32))
		return r, nil
	case operandLValue:
		regs, err := c.read(op.lv)
		if err != nil {
			return ir.NoReg, err
		}
		if len(regs) != 1 {
			return ir.NoReg, fmt.Errorf("lower: %d-component lvalue used as scalar operand", len(regs))
		}
		return regs[0], nil
	default:
		return ir.NoReg, fmt.Errorf("lower: invalid operand")
	}
}

func (c *compiler) constReg(imm int64, w ir.Width) ir.Reg {
	r := c.fn.NewReg()
	c.fn.Emit(ir.Const(r, imm, w))
	return r
}

// finish routes a scalar result to the operation's destination.
func (c *compiler) finish(op Operation, result ir.Reg) error {
	if op.Dst != nil {
		return c.write(*op.Dst, []ir.Reg{result})
	}
	c.bind(op.Result, result)
	return nil
}

func (c *compiler) lowerOp(op Operation) error {
	if want := op.Kind.arity(); want >= 0 && len(op.Args) != want {
		return fmt.Errorf("lower: %s expects %d operands, got %d", op.Kind, want, len(op.Args))
	}

	switch op.Kind {
	case Add, Subtract:
		return c.lowerAddSub(op)
	case Multiply:
		return c.lowerMultiply(op)
	case Divide:
		if err := c.requireMulDiv(ir.OpDiv); err != nil {
			return err
		}
		return c.lowerRegistryCall(op, builtin.IDDiv, 2)
	case FusedMultiplyAdd:
		return c.lowerFma(op)
	case Negate:
		return c.lowerNegate(op)
	case AbsoluteValue:
		return c.lowerAbs(op)
	case Minimum, Maximum:
		return c.lowerMinMax(op)
	case Compare:
		return c.lowerCompare(op)
	case Transcendental:
		id, arity := op.Trans.builtinID()
		if id == builtin.IDInvalid {
			return fmt.Errorf("lower: unknown transcendental kind %d", op.Trans)
		}
		if err := c.requireMulDiv(ir.OpDiv); err != nil {
			return err
		}
		return c.lowerRegistryCall(op, id, arity)
	case Copy:
		return c.lowerCopy(op)
	case Return:
		a, err := c.operandReg(op.Args[0])
		if err != nil {
			return err
		}
		c.fn.Emit(ir.Ret(a))
		return nil
	default:
		return fmt.Errorf("lower: unsupported operation %s", op.Kind)
	}
}

// lowerAddSub emits a single native 32-bit add or subtract. Precise mode
// appends the branch-free clamp to [MIN_FIXED, MAX_FIXED]; fast-math
// wraps. This is the only place fast-math changes emitted shape.
func (c *compiler) lowerAddSub(op Operation) error {
	a, err := c.operandReg(op.Args[0])
	if err != nil {
		return err
	}
	b, err := c.operandReg(op.Args[1])
	if err != nil {
		return err
	}

	irOp := ir.OpAdd
	if op.Kind == Subtract {
		irOp = ir.OpSub
	}
	sum := c.fn.NewReg()
	c.fn.Emit(ir.Bin(irOp, ir.W32, sum, a, b))

	if c.opts.FastMath {
		return c.finish(op, sum)
	}

	// Signed overflow detection without branches:
	// add: overflow iff ~(a^b) & (a^sum) has its sign bit set;
	// sub: overflow iff  (a^b) & (a^sum) has its sign bit set.
	abx := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpXor, ir.W32, abx, a, b))
	if op.Kind == Add {
		ones := c.constReg(-1, ir.W32)
		inv := c.fn.NewReg()
		c.fn.Emit(ir.Bin(ir.OpXor, ir.W32, inv, abx, ones))
		abx = inv
	}
	asx := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpXor, ir.W32, asx, a, sum))
	ovf := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpAnd, ir.W32, ovf, abx, asx))
	zero := c.constReg(0, ir.W32)
	neg := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpCmpLT, ir.W32, neg, ovf, zero))

	// The saturated value follows the first operand's sign: a >> 31
	// gives 0 or -1; xor with MAX_FIXED flips that into MAX or MIN.
	sgn := c.fn.NewReg()
	c.fn.Emit(ir.Shift(ir.OpSra, ir.W32, sgn, a, signBit))
	maxc := c.constReg(maxFixed, ir.W32)
	sat := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpXor, ir.W32, sat, sgn, maxc))

	res := c.fn.NewReg()
	c.fn.Emit(ir.Select(res, neg, sat, sum, ir.W32))
	return c.finish(op, res)
}

// lowerMultiply widens to a double-width product, rescales, and saturates.
// Hosted targets with hardware multiply inline the sequence via the native
// high/low product pair; everything else routes through the registry.
func (c *compiler) lowerMultiply(op Operation) error {
	if err := c.requireMulDiv(ir.OpMul); err != nil {
		return err
	}
	if !c.d.InlineMultiply() {
		return c.lowerRegistryCall(op, builtin.IDMul, 2)
	}

	a, err := c.operandReg(op.Args[0])
	if err != nil {
		return err
	}
	b, err := c.operandReg(op.Args[1])
	if err != nil {
		return err
	}

	wide := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpMulWide, ir.W64, wide, a, b))
	shifted := c.fn.NewReg()
	c.fn.Emit(ir.Shift(ir.OpSra, ir.W64, shifted, wide, fracBits))
	res, err := c.clamp64(shifted)
	if err != nil {
		return err
	}
	return c.finish(op, res)
}

// lowerFma keeps the widened product at 64 bits, adds the widened addend,
// and saturates once. Without inline multiply the fused form comes from
// the registry so the single-rounding contract still holds.
func (c *compiler) lowerFma(op Operation) error {
	if err := c.requireMulDiv(ir.OpMul); err != nil {
		return err
	}
	if !c.d.InlineMultiply() {
		return c.lowerRegistryCall(op, builtin.IDFma, 3)
	}

	a, err := c.operandReg(op.Args[0])
	if err != nil {
		return err
	}
	b, err := c.operandReg(op.Args[1])
	if err != nil {
		return err
	}
	addend, err := c.operandReg(op.Args[2])
	if err != nil {
		return err
	}

	wide := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpMulWide, ir.W64, wide, a, b))
	shifted := c.fn.NewReg()
	c.fn.Emit(ir.Shift(ir.OpSra, ir.W64, shifted, wide, fracBits))

	// mov.64 of a 32-bit-defined register sign-extends.
	wideC := c.fn.NewReg()
	c.fn.Emit(ir.Mov(wideC, addend, ir.W64))
	sum := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpAdd, ir.W64, sum, shifted, wideC))

	res, err := c.clamp64(sum)
	if err != nil {
		return err
	}
	return c.finish(op, res)
}

// clamp64 saturates a 64-bit intermediate back into the 32-bit fixed
// range. The result register is consumed at 32 bits (low half).
func (c *compiler) clamp64(v ir.Reg) (ir.Reg, error) {
	maxc := c.constReg(maxFixed, ir.W64)
	minc := c.constReg(minFixed, ir.W64)
	over := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpCmpLT, ir.W64, over, maxc, v))
	hi := c.fn.NewReg()
	c.fn.Emit(ir.Select(hi, over, maxc, v, ir.W64))
	under := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpCmpLT, ir.W64, under, hi, minc))
	res := c.fn.NewReg()
	c.fn.Emit(ir.Select(res, under, minc, hi, ir.W64))
	return res, nil
}

// lowerNegate emits a two's-complement negation, selecting MAX_FIXED for
// the single overflowing input.
func (c *compiler) lowerNegate(op Operation) error {
	a, err := c.operandReg(op.Args[0])
	if err != nil {
		return err
	}
	neg := c.fn.NewReg()
	c.fn.Emit(ir.Un(ir.OpNeg, ir.W32, neg, a))

	minc := c.constReg(minFixed, ir.W32)
	isMin := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpCmpEQ, ir.W32, isMin, a, minc))
	maxc := c.constReg(maxFixed, ir.W32)
	res := c.fn.NewReg()
	c.fn.Emit(ir.Select(res, isMin, maxc, neg, ir.W32))
	return c.finish(op, res)
}

// lowerAbs is compare-and-select over the negation, branch-free.
func (c *compiler) lowerAbs(op Operation) error {
	a, err := c.operandReg(op.Args[0])
	if err != nil {
		return err
	}
	neg := c.fn.NewReg()
	c.fn.Emit(ir.Un(ir.OpNeg, ir.W32, neg, a))
	minc := c.constReg(minFixed, ir.W32)
	isMin := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpCmpEQ, ir.W32, isMin, a, minc))
	maxc := c.constReg(maxFixed, ir.W32)
	sel := c.fn.NewReg()
	c.fn.Emit(ir.Select(sel, isMin, maxc, neg, ir.W32))
	neg = sel
	zero := c.constReg(0, ir.W32)
	isNeg := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpCmpLT, ir.W32, isNeg, a, zero))
	res := c.fn.NewReg()
	c.fn.Emit(ir.Select(res, isNeg, neg, a, ir.W32))
	return c.finish(op, res)
}

func (c *compiler) lowerMinMax(op Operation) error {
	a, err := c.operandReg(op.Args[0])
	if err != nil {
		return err
	}
	b, err := c.operandReg(op.Args[1])
	if err != nil {
		return err
	}
	lt := c.fn.NewReg()
	c.fn.Emit(ir.Bin(ir.OpCmpLT, ir.W32, lt, a, b))
	res := c.fn.NewReg()
	if op.Kind == Minimum {
		c.fn.Emit(ir.Select(res, lt, a, b, ir.W32))
	} else {
		c.fn.Emit(ir.Select(res, lt, b, a, ir.W32))
	}
	return c.finish(op, res)
}

// lowerCompare produces the fixed-point booleans 1.0 or 0.0.
func (c *compiler) lowerCompare(op Operation) error {
	a, err := c.operandReg(op.Args[0])
	if err != nil {
		return err
	}
	b, err := c.operandReg(op.Args[1])
	if err != nil {
		return err
	}

	bit := c.fn.NewReg()
	invert := false
	switch op.Cmp {
	case CmpEq:
		c.fn.Emit(ir.Bin(ir.OpCmpEQ, ir.W32, bit, a, b))
	case CmpNe:
		c.fn.Emit(ir.Bin(ir.OpCmpEQ, ir.W32, bit, a, b))
		invert = true
	case CmpLt:
		c.fn.Emit(ir.Bin(ir.OpCmpLT, ir.W32, bit, a, b))
	case CmpGe:
		c.fn.Emit(ir.Bin(ir.OpCmpLT, ir.W32, bit, a, b))
		invert = true
	case CmpGt:
		c.fn.Emit(ir.Bin(ir.OpCmpLT, ir.W32, bit, b, a))
	case CmpLe:
		c.fn.Emit(ir.Bin(ir.OpCmpLT, ir.W32, bit, b, a))
		invert = true
	default:
		return fmt.Errorf("lower: unknown compare kind %d", op.Cmp)
	}
	if invert {
		one := c.constReg(1, ir.W32)
		flipped := c.fn.NewReg()
		c.fn.Emit(ir.Bin(ir.OpXor, ir.W32, flipped, bit, one))
		bit = flipped
	}
	res := c.fn.NewReg()
	c.fn.Emit(ir.Shift(ir.OpSll, ir.W32, res, bit, fracBits))
	return c.finish(op, res)
}

// lowerCopy moves whole multi-component values between lvalues.
func (c *compiler) lowerCopy(op Operation) error {
	if op.Dst == nil {
		return fmt.Errorf("lower: copy needs an lvalue destination")
	}
	src := op.Args[0]
	var regs []ir.Reg
	var err error
	switch src.kind {
	case operandLValue:
		regs, err = c.read(src.lv)
	case operandValue:
		var r ir.Reg
		r, err = c.valueReg(src.val)
		regs = []ir.Reg{r}
	case operandConst:
		regs = []ir.Reg{c.constReg(int64(src.imm.Raw()), ir.W32)}
	}
	if err != nil {
		return err
	}
	return c.write(*op.Dst, regs)
}

// lowerRegistryCall routes an operation through the builtin registry. A
// lookup miss is reported immediately, never deferred to emission.
func (c *compiler) lowerRegistryCall(op Operation, id builtin.ID, arity int) error {
	if len(op.Args) != arity {
		return fmt.Errorf("lower: %s expects %d operands, got %d", id, arity, len(op.Args))
	}
	entry, err := c.reg.Lookup(id, arity, c.d.Kind)
	if err != nil {
		return err
	}
	args := make([]ir.Reg, arity)
	for i, a := range op.Args {
		r, regErr := c.operandReg(a)
		if regErr != nil {
			return regErr
		}
		args[i] = r
	}
	res := c.fn.NewReg()
	c.fn.Emit(ir.Call(res, builtin.Symbol(entry.ID, entry.Arity), args...))
	return c.finish(op, res)
}

// requireMulDiv gates the multiply/divide/transcendental family: without
// the extension these operations cannot lower at all on an embedded
// target.
func (c *compiler) requireMulDiv(wouldEmit ir.Op) error {
	if c.d.Extensions.Has(target.ExtMulDiv) {
		return nil
	}
	return &target.UnsupportedInstructionError{
		Func:     c.fn.Name,
		Index:    -1,
		Inst:     ir.Inst{Op: wouldEmit, Width: ir.W32},
		Required: target.ExtMulDiv,
	}
}
