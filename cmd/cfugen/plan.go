package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/cfugen/internal/asm"
	"github.com/example/cfugen/internal/kernel"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var family string
	var left, right, width int
	var render bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the loop plan of one kernel",
		Long: "Show the loop plan of one kernel: block layout, replication and\n" +
			"elements per inner-loop iteration. With --render the assembly is\n" +
			"printed instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			fam, err := kernel.ParseFamily(family)
			if err != nil {
				return err
			}
			if right == 0 {
				right = left
			}

			p, err := kernel.New(cfg.Gen.Params(), kernel.Tuple{
				Family: fam,
				Left:   kernel.Precision(left),
				Right:  kernel.Precision(right),
				Width:  kernel.VectorWidth(width),
			})
			if err != nil {
				return err
			}

			if render {
				text, err := asm.NewRenderer(cfg.Gen.Header).Render(p)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(text)
				return err
			}
			writePlan(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", string(kernel.MatrixSymmetric), "Kernel family (symmetric|asymmetric|dotp)")
	cmd.Flags().IntVar(&left, "left", 8, "Activation precision in bits")
	cmd.Flags().IntVar(&right, "right", 0, "Weight precision in bits (default: same as --left)")
	cmd.Flags().IntVar(&width, "width", 64, "VPU vector register width in bits")
	cmd.Flags().BoolVar(&render, "render", false, "Print the rendered assembly instead of the plan")

	return cmd
}

func writePlan(w io.Writer, p kernel.Plan) {
	_, _ = fmt.Fprintf(w, "function:        %s\n", p.FunctionName)
	_, _ = fmt.Fprintf(w, "path:            %s\n", p.Path())
	_, _ = fmt.Fprintf(w, "precisions:      int%d x int%d\n", p.Left, p.Right)
	_, _ = fmt.Fprintf(w, "config:          vpu_CONFIG(%d, %d)\n", p.ConfigHigh, p.ConfigLow)
	_, _ = fmt.Fprintf(w, "step bytes:      %d\n", p.StepBytes)
	_, _ = fmt.Fprintf(w, "block elements:  %d\n", p.Natural)
	_, _ = fmt.Fprintf(w, "repeat:          %d\n", p.Repeat)
	_, _ = fmt.Fprintf(w, "per iteration:   %d\n", p.Effective)
	_, _ = fmt.Fprintf(w, "dots/iteration:  %d\n", p.Ops(kernel.OpDot))

	if len(p.Blocks) == 0 {
		return
	}
	ops := make([]string, 0, len(p.Blocks[0].Ops))
	for _, op := range p.Blocks[0].Ops {
		ops = append(ops, op.String())
	}
	_, _ = fmt.Fprintf(w, "block:           %s\n", strings.Join(ops, " "))
}
