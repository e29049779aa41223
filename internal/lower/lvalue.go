package lower

import (
	"fmt"

	"github.com/luxforge/shadec/internal/ir"
)

// componentSize is the byte width of one Q32 component.
const componentSize = 4

// AccessPattern selects which components of pointer-addressed storage an
// access touches.
type AccessPattern interface {
	accessPattern()
	componentOffsets(shape Shape) ([]int32, error)
}

// Direct addresses Count consecutive components from the base.
type Direct struct {
	Count int
}

// Component addresses the named component indices only, in order; partial
// and swizzled reads/writes.
type Component struct {
	Indices []int
}

// ArrayElement first resolves one element of an array, then applies Direct
// or single-component semantics atop it. A negative Component means the
// whole element.
type ArrayElement struct {
	Index     int
	Component int
}

func (Direct) accessPattern()       {}
func (Component) accessPattern()    {}
func (ArrayElement) accessPattern() {}

// Shape is the declared extent of the pointee: Elems array elements of
// Comps components each. Scalars and vectors have Elems == 1.
type Shape struct {
	Elems int
	Comps int
}

// InvalidLValueAccessError reports an access pattern outside the pointee's
// declared shape. This is a lowering-time invariant violation: runtime
// bound checking is the frontend's concern, but a pattern that can never
// be in range is a structural bug worth failing on.
type InvalidLValueAccessError struct {
	Shape   Shape
	Pattern string
}

func (e *InvalidLValueAccessError) Error() string {
	return fmt.Sprintf("lower: access %s outside declared shape %dx%d",
		e.Pattern, e.Shape.Elems, e.Shape.Comps)
}

func (p Direct) componentOffsets(shape Shape) ([]int32, error) {
	if p.Count <= 0 || p.Count > shape.Comps {
		return nil, &InvalidLValueAccessError{Shape: shape, Pattern: fmt.Sprintf("direct[%d]", p.Count)}
	}
	offs := make([]int32, p.Count)
	for i := range offs {
		offs[i] = int32(i) * componentSize
	}
	return offs, nil
}

func (p Component) componentOffsets(shape Shape) ([]int32, error) {
	if len(p.Indices) == 0 {
		return nil, &InvalidLValueAccessError{Shape: shape, Pattern: "component[]"}
	}
	offs := make([]int32, len(p.Indices))
	for i, idx := range p.Indices {
		if idx < 0 || idx >= shape.Comps {
			return nil, &InvalidLValueAccessError{Shape: shape, Pattern: fmt.Sprintf("component[%d]", idx)}
		}
		offs[i] = int32(idx) * componentSize
	}
	return offs, nil
}

func (p ArrayElement) componentOffsets(shape Shape) ([]int32, error) {
	if p.Index < 0 || p.Index >= shape.Elems {
		return nil, &InvalidLValueAccessError{Shape: shape, Pattern: fmt.Sprintf("element[%d]", p.Index)}
	}
	base := int32(p.Index) * int32(shape.Comps) * componentSize
	if p.Component >= 0 {
		if p.Component >= shape.Comps {
			return nil, &InvalidLValueAccessError{
				Shape:   shape,
				Pattern: fmt.Sprintf("element[%d].%d", p.Index, p.Component),
			}
		}
		return []int32{base + int32(p.Component)*componentSize}, nil
	}
	offs := make([]int32, shape.Comps)
	for i := range offs {
		offs[i] = base + int32(i)*componentSize
	}
	return offs, nil
}

// LValue is a place a value lives: either an SSA-held value or
// pointer-addressed storage with an access pattern. Resolved once by the
// frontend, consumed by exactly one read or write, never retained across
// operations.
type LValue struct {
	pointer bool
	id      ValueID // SSA value, or the base-address value when pointer
	shape   Shape
	pattern AccessPattern
}

// SSA wraps a register-held value as an lvalue.
func SSA(id ValueID) LValue {
	return LValue{id: id, shape: Shape{Elems: 1, Comps: 1}}
}

// Pointer builds a pointer-based lvalue over base, which must hold an
// address valid for the enclosing activation's lifetime.
func Pointer(base ValueID, shape Shape, pattern AccessPattern) LValue {
	return LValue{pointer: true, id: base, shape: shape, pattern: pattern}
}

// Components reports how many components a read of lv yields.
func (lv LValue) Components() (int, error) {
	if !lv.pointer {
		return 1, nil
	}
	offs, err := lv.pattern.componentOffsets(lv.shape)
	if err != nil {
		return 0, err
	}
	return len(offs), nil
}

// read emits the loads (or register aliasing) for one lvalue read and
// returns the component registers. The same path serves SSA-held values,
// output/inout parameters, array elements, and matrix columns; only the
// offsets differ.
func (c *compiler) read(lv LValue) ([]ir.Reg, error) {
	if !lv.pointer {
		r, err := c.valueReg(lv.id)
		if err != nil {
			return nil, err
		}
		return []ir.Reg{r}, nil
	}

	base, err := c.valueReg(lv.id)
	if err != nil {
		return nil, err
	}
	offs, err := lv.pattern.componentOffsets(lv.shape)
	if err != nil {
		return nil, err
	}
	regs := make([]ir.Reg, len(offs))
	for i, off := range offs {
		regs[i] = c.fn.NewReg()
		c.fn.Emit(ir.Load(regs[i], base, off))
	}
	return regs, nil
}

// write emits the stores (or SSA binding) for one lvalue write. Component
// patterns touch only the requested offsets, leaving every other component
// of the pointee at its prior value.
func (c *compiler) write(lv LValue, regs []ir.Reg) error {
	if !lv.pointer {
		if len(regs) != 1 {
			return fmt.Errorf("lower: %d components written to a register value", len(regs))
		}
		c.bind(lv.id, regs[0])
		return nil
	}

	base, err := c.valueReg(lv.id)
	if err != nil {
		return err
	}
	offs, err := lv.pattern.componentOffsets(lv.shape)
	if err != nil {
		return err
	}
	if len(regs) != len(offs) {
		return fmt.Errorf("lower: %d components written through a %d-component pattern", len(regs), len(offs))
	}
	for i, off := range offs {
		c.fn.Emit(ir.Store(base, off, regs[i]))
	}
	return nil
}
