package target

import (
	"fmt"
	"log/slog"

	"github.com/luxforge/shadec/internal/ir"
)

// UnsupportedInstructionError reports an instruction the selected target
// cannot execute. When the instruction belongs to an extension-gated class,
// Required names the extension a caller could enable; width violations
// leave Required zero.
type UnsupportedInstructionError struct {
	Func     string
	Index    int
	Inst     ir.Inst
	Required Extension
	Reason   string
}

func (e *UnsupportedInstructionError) Error() string {
	if e.Required != 0 {
		return fmt.Sprintf("target: %s: inst %d (%s) requires the %s extension",
			e.Func, e.Index, e.Inst.Op, e.Required)
	}
	return fmt.Sprintf("target: %s: inst %d (%s): %s", e.Func, e.Index, e.Inst.Op, e.Reason)
}

// Validate checks that fn uses only instructions d can execute. It runs
// once per function, strictly before emission, so an unsupported
// instruction is a clean compile error rather than a miscompile.
func Validate(fn *ir.Func, d Descriptor) error {
	for idx, inst := range fn.Code {
		if err := checkInst(fn.Name, idx, inst, d); err != nil {
			slog.Debug("validator rejected instruction",
				"func", fn.Name, "index", idx, "op", inst.Op.String(), "target", d.String())
			return err
		}
	}
	return nil
}

// ValidateProgram validates every function of the unit against d.
func ValidateProgram(p *ir.Program, d Descriptor) error {
	for _, fn := range p.Funcs {
		if err := Validate(fn, d); err != nil {
			return err
		}
	}
	return nil
}

func checkInst(fnName string, idx int, inst ir.Inst, d Descriptor) error {
	// Width support. Nothing executes 128-bit operations; a 32-bit
	// freestanding target has no 64-bit temporaries either.
	switch inst.Width {
	case ir.W32:
	case ir.W64:
		if d.Kind == EmbeddedISA {
			return &UnsupportedInstructionError{
				Func: fnName, Index: idx, Inst: inst,
				Reason: "64-bit operation on a 32-bit freestanding target",
			}
		}
	case ir.W128:
		return &UnsupportedInstructionError{
			Func: fnName, Index: idx, Inst: inst,
			Reason: "128-bit operations are not supported on any target",
		}
	default:
		return &UnsupportedInstructionError{
			Func: fnName, Index: idx, Inst: inst,
			Reason: fmt.Sprintf("invalid operand width %d", inst.Width),
		}
	}

	// Extension-gated instruction classes.
	switch inst.Op.Class() {
	case ir.ClassMulDiv:
		if !d.Extensions.Has(ExtMulDiv) {
			return &UnsupportedInstructionError{
				Func: fnName, Index: idx, Inst: inst, Required: ExtMulDiv,
			}
		}
	case ir.ClassAtomic:
		if !d.Extensions.Has(ExtAtomics) {
			return &UnsupportedInstructionError{
				Func: fnName, Index: idx, Inst: inst, Required: ExtAtomics,
			}
		}
	case ir.ClassFloat:
		if !d.Extensions.Has(ExtFloat) {
			return &UnsupportedInstructionError{
				Func: fnName, Index: idx, Inst: inst, Required: ExtFloat,
			}
		}
	}
	return nil
}
