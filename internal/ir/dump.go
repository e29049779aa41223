package ir

import (
	"fmt"
	"strings"
)

// Dump renders the function as stable text, one instruction per line. The
// format is the diagnostic surface and the golden-test anchor; keep it
// deterministic.
func (f *Func) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(")\n")
	for idx, inst := range f.Code {
		fmt.Fprintf(&b, "%4d  %s\n", idx, inst.String())
	}
	return b.String()
}

func (i Inst) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.%d", i.Op, i.Width)
	if i.Op.HasDst() {
		fmt.Fprintf(&b, " %s <-", i.Dst)
	}
	switch i.Op {
	case OpConst:
		fmt.Fprintf(&b, " %#x", i.Imm)
	case OpSra, OpSrl, OpSll:
		fmt.Fprintf(&b, " %s, %d", i.A, i.Imm)
	case OpLoad:
		fmt.Fprintf(&b, " [%s%+d]", i.A, i.Off)
	case OpStore:
		fmt.Fprintf(&b, " [%s%+d], %s", i.A, i.Off, i.B)
	case OpAtomicAdd:
		fmt.Fprintf(&b, " [%s%+d], %s", i.A, i.Off, i.B)
	case OpCall:
		args := make([]string, len(i.Args))
		for n, a := range i.Args {
			args[n] = a.String()
		}
		fmt.Fprintf(&b, " %s(%s)", i.Sym, strings.Join(args, ", "))
	case OpRet:
		fmt.Fprintf(&b, " %s", i.A)
	case OpSelect:
		fmt.Fprintf(&b, " %s, %s, %s", i.A, i.B, i.C)
	default:
		if i.A != NoReg {
			fmt.Fprintf(&b, " %s", i.A)
		}
		if i.B != NoReg {
			fmt.Fprintf(&b, ", %s", i.B)
		}
	}
	return b.String()
}

// Dump renders every function of the program.
func (p *Program) Dump() string {
	var b strings.Builder
	for i, f := range p.Funcs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Dump())
	}
	return b.String()
}
