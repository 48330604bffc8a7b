package main

import (
	"fmt"

	"github.com/example/cfugen/internal/kernel"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the kernels the current configuration generates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			families, err := cfg.Gen.KernelFamilies()
			if err != nil {
				return err
			}
			params := cfg.Gen.Params()
			if err := params.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, t := range params.Tuples(families...) {
				p, err := kernel.New(params, t)
				if err != nil {
					_, _ = fmt.Fprintf(out, "%-36s  error: %v\n", t, err)
					continue
				}
				_, _ = fmt.Fprintf(out, "%-36s  %-36s  %4d elems/iter\n", t, p.Path(), p.Effective)
			}
			return nil
		},
	}

	return cmd
}
