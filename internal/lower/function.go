// Package lower rewrites abstract real-valued operations into Q16.16
// fixed-point IR. The frontend hands it functions whose operands are
// already resolved to SSA values or lvalues; lowering picks, per operation
// and target, between an inline instruction sequence and a builtin
// registry call, then validates the result against the target before any
// emission happens.
package lower

import (
	"fmt"

	"github.com/luxforge/shadec/internal/builtin"
	"github.com/luxforge/shadec/internal/fixed"
)

// ValueID names an SSA value assigned by the frontend. Function parameters
// occupy 0..len(Params)-1; every Operation result must introduce a fresh
// id.
type ValueID uint32

// OpKind tags an abstract operation.
type OpKind uint8

const (
	Invalid OpKind = iota
	Add
	Subtract
	Multiply
	Divide
	FusedMultiplyAdd
	Negate
	AbsoluteValue
	Minimum
	Maximum
	Compare
	Transcendental
	Copy
	Return
)

var opKindNames = [...]string{
	Invalid:          "invalid",
	Add:              "add",
	Subtract:         "subtract",
	Multiply:         "multiply",
	Divide:           "divide",
	FusedMultiplyAdd: "fma",
	Negate:           "negate",
	AbsoluteValue:    "abs",
	Minimum:          "min",
	Maximum:          "max",
	Compare:          "compare",
	Transcendental:   "transcendental",
	Copy:             "copy",
	Return:           "return",
}

func (k OpKind) String() string {
	if int(k) < len(opKindNames) {
		return opKindNames[k]
	}
	return fmt.Sprintf("opkind(%d)", uint8(k))
}

// arity returns the declared operand count, or -1 when variable.
func (k OpKind) arity() int {
	switch k {
	case Add, Subtract, Multiply, Divide, Minimum, Maximum, Compare:
		return 2
	case FusedMultiplyAdd:
		return 3
	case Negate, AbsoluteValue, Copy, Return:
		return 1
	case Transcendental:
		return -1
	default:
		return -1
	}
}

// CmpKind selects the comparison for Compare operations.
type CmpKind uint8

const (
	CmpEq CmpKind = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// TransKind selects the transcendental function.
type TransKind uint8

const (
	TransSin TransKind = iota
	TransCos
	TransTan
	TransExp
	TransLog
	TransSqrt
	TransInvSqrt
	TransPow
	TransAtan
	TransAtan2
	TransSinh
	TransCosh
)

// builtinID maps a transcendental kind onto its registry identity.
func (t TransKind) builtinID() (builtin.ID, int) {
	switch t {
	case TransSin:
		return builtin.IDSin, 1
	case TransCos:
		return builtin.IDCos, 1
	case TransTan:
		return builtin.IDTan, 1
	case TransExp:
		return builtin.IDExp, 1
	case TransLog:
		return builtin.IDLog, 1
	case TransSqrt:
		return builtin.IDSqrt, 1
	case TransInvSqrt:
		return builtin.IDInvSqrt, 1
	case TransPow:
		return builtin.IDPow, 2
	case TransAtan:
		return builtin.IDAtan, 1
	case TransAtan2:
		return builtin.IDAtan2, 2
	case TransSinh:
		return builtin.IDSinh, 1
	case TransCosh:
		return builtin.IDCosh, 1
	default:
		return builtin.IDInvalid, 0
	}
}

// Operand is an SSA value, an immediate constant, or an lvalue reference.
type Operand struct {
	kind operandKind
	val  ValueID
	imm  fixed.Value
	lv   LValue
}

type operandKind uint8

const (
	operandValue operandKind = iota
	operandConst
	operandLValue
)

// Value references a frontend SSA value.
func Value(id ValueID) Operand {
	return Operand{kind: operandValue, val: id}
}

// Const embeds a lowered fixed-point constant.
func Const(v fixed.Value) Operand {
	return Operand{kind: operandConst, imm: v}
}

// Ref reads through an lvalue.
func Ref(lv LValue) Operand {
	return Operand{kind: operandLValue, lv: lv}
}

// Operation is one abstract operation with resolved operands. Result names
// the SSA value the operation introduces; Dst, when set, routes the result
// through an lvalue write instead.
type Operation struct {
	Kind   OpKind
	Cmp    CmpKind
	Trans  TransKind
	Result ValueID
	Dst    *LValue
	Args   []Operand
}

// Param declares one function parameter. Pointer parameters carry the base
// address of caller-owned storage (output/inout parameters, arrays, matrix
// columns); value parameters carry one Q32 word.
type Param struct {
	Name    string
	Pointer bool
}

// Function is the abstract-IR input: operations in execution order over
// resolved operands. Scoped to one compilation; never shared.
type Function struct {
	Name   string
	Params []Param
	Ops    []Operation
}
