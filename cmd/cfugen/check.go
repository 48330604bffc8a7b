package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/example/cfugen/internal/check"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Lint generated kernels (labels, branch targets, register contract)",
		Long: "Lint generated kernels. Each path may be a .S file or a directory,\n" +
			"which is searched recursively. Without arguments the configured\n" +
			"output directory is checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{cfg.Gen.OutDir}
			}

			var files []string
			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					return err
				}
				if !info.IsDir() {
					files = append(files, arg)
					continue
				}
				found, err := check.Collect(arg)
				if err != nil {
					return err
				}
				files = append(files, found...)
			}
			if len(files) == 0 {
				return errors.New("no .S files found")
			}

			result := check.Run(files, cmd.OutOrStdout())
			if result.Failed() {
				for _, f := range result.Failures() {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}
				return errors.New("kernel checks failed")
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d kernels passed\n", len(files))
			return nil
		},
	}

	return cmd
}
