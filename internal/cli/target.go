package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/luxforge/shadec/internal/builtin"
	"github.com/luxforge/shadec/internal/fixed"
	"github.com/luxforge/shadec/internal/lower"
	"github.com/luxforge/shadec/internal/target"
)

// NewTargetCommand groups the target descriptor subcommands.
func NewTargetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Inspect target descriptors",
	}
	cmd.AddCommand(newTargetShowCommand())
	cmd.AddCommand(newTargetSymbolsCommand())
	cmd.AddCommand(newTargetCheckCommand())
	return cmd
}

func newTargetShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <config.yaml>",
		Short: "Print the parsed target descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := target.LoadDescriptor(args[0])
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(d)
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			return nil
		},
	}
}

func newTargetSymbolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "symbols <config.yaml>",
		Short: "List external symbols the embedding must supply",
		Long: `List the external builtin symbols an embedding application must export
for the given target. Host targets bind every builtin locally and print
nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := target.LoadDescriptor(args[0])
			if err != nil {
				return err
			}
			for _, sym := range builtin.NewRegistry().Symbols(d.Kind) {
				cmd.Println(sym)
			}
			return nil
		},
	}
}

func newTargetCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <config.yaml>",
		Short: "Report which operations the target can execute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := target.LoadDescriptor(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("target: %s\n", d)

			reg := builtin.NewRegistry()
			failures := 0
			for _, probe := range probes() {
				_, err := lower.Lower(probe.fn, d, reg, lower.Options{})
				if err != nil {
					failures++
					cmd.Printf("%-16s unsupported: %v\n", probe.name, err)
					continue
				}
				cmd.Printf("%-16s ok\n", probe.name)
			}
			if failures > 0 {
				return fmt.Errorf("%d operation kinds unsupported on this target", failures)
			}
			return nil
		},
	}
}

type probe struct {
	name string
	fn   *lower.Function
}

// probes builds one minimal function per operation kind the transform
// lowers, each returning its result.
func probes() []probe {
	unary := func(name string, kind lower.OpKind) probe {
		return probe{name: name, fn: &lower.Function{
			Name:   name,
			Params: []lower.Param{{Name: "a"}},
			Ops: []lower.Operation{
				{Kind: kind, Result: 1, Args: []lower.Operand{lower.Value(0)}},
				{Kind: lower.Return, Args: []lower.Operand{lower.Value(1)}},
			},
		}}
	}
	binary := func(name string, kind lower.OpKind) probe {
		return probe{name: name, fn: &lower.Function{
			Name:   name,
			Params: []lower.Param{{Name: "a"}, {Name: "b"}},
			Ops: []lower.Operation{
				{Kind: kind, Result: 2, Args: []lower.Operand{lower.Value(0), lower.Value(1)}},
				{Kind: lower.Return, Args: []lower.Operand{lower.Value(2)}},
			},
		}}
	}

	ps := []probe{
		binary("add", lower.Add),
		binary("subtract", lower.Subtract),
		binary("multiply", lower.Multiply),
		binary("divide", lower.Divide),
		unary("negate", lower.Negate),
		unary("abs", lower.AbsoluteValue),
		binary("min", lower.Minimum),
		binary("max", lower.Maximum),
	}

	ps = append(ps, probe{name: "fma", fn: &lower.Function{
		Name:   "fma",
		Params: []lower.Param{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		Ops: []lower.Operation{
			{Kind: lower.FusedMultiplyAdd, Result: 3, Args: []lower.Operand{lower.Value(0), lower.Value(1), lower.Value(2)}},
			{Kind: lower.Return, Args: []lower.Operand{lower.Value(3)}},
		},
	}})

	ps = append(ps, probe{name: "compare", fn: &lower.Function{
		Name:   "compare",
		Params: []lower.Param{{Name: "a"}, {Name: "b"}},
		Ops: []lower.Operation{
			{Kind: lower.Compare, Cmp: lower.CmpLt, Result: 2, Args: []lower.Operand{lower.Value(0), lower.Value(1)}},
			{Kind: lower.Return, Args: []lower.Operand{lower.Value(2)}},
		},
	}})

	ps = append(ps, probe{name: "transcendental", fn: &lower.Function{
		Name:   "transcendental",
		Params: []lower.Param{{Name: "a"}},
		Ops: []lower.Operation{
			{Kind: lower.Transcendental, Trans: lower.TransSin, Result: 1, Args: []lower.Operand{lower.Value(0)}},
			{Kind: lower.Return, Args: []lower.Operand{lower.Value(1)}},
		},
	}})

	copyDst := lower.SSA(1)
	ps = append(ps, probe{name: "copy", fn: &lower.Function{
		Name:   "copy",
		Params: []lower.Param{{Name: "a"}},
		Ops: []lower.Operation{
			{Kind: lower.Copy, Dst: &copyDst, Args: []lower.Operand{lower.Const(fixed.One)}},
			{Kind: lower.Return, Args: []lower.Operand{lower.Value(1)}},
		},
	}})

	return ps
}
