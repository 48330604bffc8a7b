// Package bench provides timing primitives for the cfugen bench command.
package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and output size of one full generation run.
type RunResult struct {
	Index    int
	Cold     bool // true for the first run
	Duration time.Duration
	Kernels  int
	Bytes    uint64
}

// KernelsPerSecond is the generation throughput of the run.
func (r RunResult) KernelsPerSecond() float64 {
	return Throughput(r.Kernels, r.Duration)
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		mn = min(mn, d)
		mx = max(mx, d)
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Throughput returns kernels per second. Returns 0 for a zero duration.
func Throughput(kernels int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(kernels) / d.Seconds()
}

// CheckMeanThreshold returns an error if mean exceeds limit.
// A limit of 0 disables the gate.
func CheckMeanThreshold(mean, limit time.Duration) error {
	if limit <= 0 {
		return nil
	}
	if mean > limit {
		return fmt.Errorf("mean run time %v exceeds limit %v", mean, limit)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %8s  %10s  %10s\n", "Run", "Cold", "MS", "Kernels", "Size", "Kernels/s")
	fmt.Fprintln(sb, strings.Repeat("-", 58))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.1f  %8d  %10s  %10.0f\n",
			r.Index+1,
			cold,
			ms(r.Duration),
			r.Kernels,
			humanize.Bytes(r.Bytes),
			r.KernelsPerSecond(),
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 58))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (min)\n", "", "", ms(stats.Min))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (mean)\n", "", "", ms(stats.Mean))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (max)\n", "", "", ms(stats.Max))

	fmt.Fprint(w, sb.String())
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index            int     `json:"index"`
	Cold             bool    `json:"cold"`
	DurationMS       float64 `json:"duration_ms"`
	Kernels          int     `json:"kernels"`
	Bytes            uint64  `json:"bytes"`
	KernelsPerSecond float64 `json:"kernels_per_second"`
}

type jsonStats struct {
	MinMS  float64 `json:"min_ms"`
	MeanMS float64 `json:"mean_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:  ms(stats.Min),
			MeanMS: ms(stats.Mean),
			MaxMS:  ms(stats.Max),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:            r.Index,
			Cold:             r.Cold,
			DurationMS:       ms(r.Duration),
			Kernels:          r.Kernels,
			Bytes:            r.Bytes,
			KernelsPerSecond: r.KernelsPerSecond(),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
