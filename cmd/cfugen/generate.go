package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/example/cfugen/internal/generate"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var progress bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate every configured kernel under <out-dir>/v<width>/",
		Long: "Generate every configured kernel under <out-dir>/v<width>/.\n\n" +
			"Kernels are independent: a kernel that fails is reported with its\n" +
			"precision pair and width and the remaining kernels are still written.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			families, err := cfg.Gen.KernelFamilies()
			if err != nil {
				return err
			}

			opts := generate.Options{
				Params:   cfg.Gen.Params(),
				Families: families,
				OutDir:   cfg.Gen.OutDir,
				Header:   cfg.Gen.Header,
				Workers:  cfg.Gen.Workers,
				Logger:   slog.Default(),
			}

			var bar *progressbar.ProgressBar
			if progress {
				bar = newProgressBar(cmd.ErrOrStderr(), len(opts.Params.Tuples(families...)))
				opts.OnKernel = func(generate.Result) { _ = bar.Add(1) }
			}

			report, err := generate.Run(cmd.Context(), opts)
			if bar != nil {
				_ = bar.Finish()
				_, _ = fmt.Fprintln(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, res := range report.Results {
				if res.Err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %v\n", res.Err)
					continue
				}
				rel, relErr := filepath.Rel(cfg.Gen.OutDir, res.Path)
				if relErr != nil {
					rel = res.Path
				}
				_, _ = fmt.Fprintf(out, "Generated %s\n", filepath.ToSlash(rel))
			}
			_, _ = fmt.Fprintln(out, report.Summary())

			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d kernels failed", len(failed), len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&progress, "progress", false, "Show a progress bar on stderr")

	return cmd
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("generating"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("kernels"),
		progressbar.OptionThrottle(0),
	)
}
