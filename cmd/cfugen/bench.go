package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/example/cfugen/internal/bench"
	"github.com/example/cfugen/internal/config"
	"github.com/example/cfugen/internal/generate"
	"github.com/example/cfugen/internal/kernel"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		runs    int
		format  string
		maxMean time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark full generation runs into a scratch directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			families, err := cfg.Gen.KernelFamilies()
			if err != nil {
				return err
			}

			results, err := runBench(cmd.Context(), cfg.Gen, families, runs)
			if err != nil {
				return err
			}

			durations := make([]time.Duration, len(results))
			for i, r := range results {
				durations[i] = r.Duration
			}
			stats := bench.ComputeStats(durations)

			switch format {
			case "json":
				bench.FormatJSON(results, stats, cmd.OutOrStdout())
			default:
				bench.FormatTable(results, stats, cmd.OutOrStdout())
			}

			return bench.CheckMeanThreshold(stats.Mean, maxMean)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 5, "Number of generation runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().DurationVar(&maxMean, "max-mean", 0, "Exit non-zero if the mean run time exceeds this value (0 = disabled)")

	return cmd
}

// runBench generates the configured batch runs times, each into a fresh
// scratch directory that is removed afterwards.
func runBench(ctx context.Context, gen config.GenConfig, families []kernel.Family, runs int) ([]bench.RunResult, error) {
	results := make([]bench.RunResult, 0, runs)

	for i := range runs {
		dir, err := os.MkdirTemp("", "cfugen-bench-*")
		if err != nil {
			return nil, err
		}

		start := time.Now()
		report, err := generate.Run(ctx, generate.Options{
			Params:   gen.Params(),
			Families: families,
			OutDir:   dir,
			Header:   gen.Header,
			Workers:  gen.Workers,
			Logger:   slog.Default(),
		})
		elapsed := time.Since(start)
		_ = os.RemoveAll(dir)

		if err != nil {
			return nil, err
		}
		if err := report.Err(); err != nil {
			return nil, fmt.Errorf("bench run %d: %w", i+1, err)
		}

		results = append(results, bench.RunResult{
			Index:    i,
			Cold:     i == 0,
			Duration: elapsed,
			Kernels:  report.Written(),
			Bytes:    report.TotalBytes(),
		})
	}

	return results, nil
}
