// Package generate runs a batch of kernel generations: plan, render and
// write every requested tuple, concurrently and independently.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/example/cfugen/internal/asm"
	"github.com/example/cfugen/internal/emit"
	"github.com/example/cfugen/internal/kernel"
	"golang.org/x/sync/errgroup"
)

// Options configures one batch.
type Options struct {
	Params   kernel.Params
	Families []kernel.Family
	// Tuples, when set, replaces the enumeration of Params and Families.
	Tuples  []kernel.Tuple
	OutDir  string
	Header  string
	// Workers bounds concurrent kernels; 0 means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
	// OnKernel, when set, is called once per tuple as soon as its outcome is
	// known. It may be called from several goroutines at once.
	OnKernel func(Result)
}

// Result is the outcome of one kernel.
type Result struct {
	Tuple        kernel.Tuple
	FunctionName string
	Path         string
	Bytes        int
	Err          error
}

// Report lists the results in enumeration order.
type Report struct {
	Results []Result
}

// Failed returns the results that carry an error.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Written returns the number of kernels written successfully.
func (r Report) Written() int {
	return len(r.Results) - len(r.Failed())
}

// Err joins every per-kernel error, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

// TotalBytes sums the size of every kernel written successfully.
func (r Report) TotalBytes() uint64 {
	var total uint64
	for _, res := range r.Results {
		if res.Err == nil {
			total += uint64(res.Bytes)
		}
	}
	return total
}

// Summary is a one-line human readable account of the batch.
func (r Report) Summary() string {
	s := fmt.Sprintf("wrote %d kernels (%s)", r.Written(), humanize.Bytes(r.TotalBytes()))
	if n := len(r.Failed()); n > 0 {
		s += fmt.Sprintf(", %d failed", n)
	}
	return s
}

// Run generates every kernel selected by opts. Per-kernel failures are
// reported in the Report and do not stop the batch; the returned error is
// reserved for problems that prevent the batch from starting.
func Run(ctx context.Context, opts Options) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tuples := opts.Tuples
	if tuples == nil {
		if err := opts.Params.Validate(); err != nil {
			return Report{}, err
		}
		for _, fam := range opts.Families {
			if err := fam.Validate(); err != nil {
				return Report{}, err
			}
		}
		tuples = opts.Params.Tuples(opts.Families...)
	}

	results := make([]Result, len(tuples))
	plans := make([]kernel.Plan, len(tuples))
	owners := make(map[string]kernel.Tuple, len(tuples))
	for i, t := range tuples {
		results[i].Tuple = t
		p, err := kernel.New(opts.Params, t)
		if err != nil {
			results[i].Err = err
			continue
		}
		if prev, ok := owners[p.Path()]; ok {
			return Report{}, fmt.Errorf("kernels %s and %s both map to %s", prev, t, p.Path())
		}
		owners[p.Path()] = t
		plans[i] = p
		results[i].FunctionName = p.FunctionName
	}

	renderer := asm.NewRenderer(opts.Header)
	writer := emit.Writer{Root: opts.OutDir}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Failures are recorded in results; jobs always return nil.
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range tuples {
		g.Go(func() error {
			if results[i].Err == nil {
				generateOne(ctx, &results[i], plans[i], renderer, writer, logger)
			}
			if opts.OnKernel != nil {
				opts.OnKernel(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Results: results}
	for _, res := range report.Failed() {
		logger.Error("kernel generation failed",
			"family", string(res.Tuple.Family),
			"left", int(res.Tuple.Left),
			"right", int(res.Tuple.Right),
			"width", int(res.Tuple.Width),
			"error", res.Err)
	}
	logger.Info(report.Summary(), "out_dir", opts.OutDir)
	return report, nil
}

func generateOne(ctx context.Context, res *Result, p kernel.Plan, renderer *asm.Renderer, writer emit.Writer, logger *slog.Logger) {
	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("kernel %s: %w", res.Tuple, err)
		return
	}

	text, err := renderer.Render(p)
	if err != nil {
		res.Err = fmt.Errorf("kernel %s: %w", res.Tuple, err)
		return
	}
	path, err := writer.Write(p, text)
	if err != nil {
		res.Err = err
		return
	}
	res.Path = path
	res.Bytes = len(text)
	logger.Debug("kernel generated", "path", path, "function", res.FunctionName,
		"elements_per_iteration", p.Effective, "repeat", p.Repeat)
}
