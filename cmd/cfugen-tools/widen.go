package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/example/cfugen/internal/check"
	"github.com/example/cfugen/internal/widen"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWidenCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "widen [path...]",
		Short: "Rewrite generated kernels for a 64-bit register file",
		Long: "Apply the configured widen.table find/replace pairs, in order, to\n" +
			"every .S file under the given paths (default: gen.out_dir).\n" +
			"Files are only rewritten when their content changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			table := widen.Table(cfg.Widen.Table)
			if err := table.Validate(); err != nil {
				return fmt.Errorf("widen table: %w", err)
			}

			if len(args) == 0 {
				args = []string{cfg.Gen.OutDir}
			}

			files, err := collect(args)
			if err != nil {
				return err
			}

			changed, err := widenFiles(cmd.Context(), files, table, dryRun, cfg.Gen.Workers)
			if err != nil {
				return err
			}

			n := 0
			for i, path := range files {
				if !changed[i] {
					continue
				}
				n++
				if dryRun {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Would widen %s\n", path)
				} else {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Widened %s\n", path)
				}
			}

			slog.Info("widen finished", "files", len(files), "changed", n, "dry_run", dryRun)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d files changed\n", n, len(files))

			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report files that would change without writing them")

	return cmd
}

// widenFiles applies table to every file with at most workers files in
// flight and reports, per file, whether its content changed.
func widenFiles(ctx context.Context, files []string, table widen.Table, dryRun bool, workers int) ([]bool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	changed := make([]bool, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			if dryRun {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}

				changed[i] = widen.Apply(string(data), table) != string(data)
				return nil
			}

			ok, err := widen.PatchFile(path, table)
			if err != nil {
				return err
			}

			if ok {
				slog.Debug("widened kernel", "path", path)
			}
			changed[i] = ok
			return nil
		})
	}

	return changed, g.Wait()
}

func collect(paths []string) ([]string, error) {
	var files []string

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		found, err := check.Collect(p)
		if err != nil {
			return nil, err
		}

		files = append(files, found...)
	}

	return files, nil
}
