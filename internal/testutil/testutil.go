// Package testutil provides shared fixtures for kernel tests.
//
// Each helper calls tb.Fatal on failure so callers can stay focused on the
// property under test:
//
//	func TestMyKernel(t *testing.T) {
//	    p := testutil.Plan(t, kernel.DefaultParams(), kernel.Tuple{...})
//	    text := testutil.Render(t, p)
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/cfugen/internal/asm"
	"github.com/example/cfugen/internal/kernel"
)

// Plan plans t with params and fails the test on a configuration error.
func Plan(tb testing.TB, params kernel.Params, t kernel.Tuple) kernel.Plan {
	tb.Helper()

	p, err := kernel.New(params, t)
	if err != nil {
		tb.Fatalf("plan %s: %v", t, err)
	}

	return p
}

// Render renders p with the default include header.
func Render(tb testing.TB, p kernel.Plan) string {
	tb.Helper()

	text, err := asm.NewRenderer("").Render(p)
	if err != nil {
		tb.Fatalf("render %s: %v", p.FunctionName, err)
	}

	return string(text)
}

// AllPlans plans every tuple params enumerates for the given families.
func AllPlans(tb testing.TB, params kernel.Params, families ...kernel.Family) []kernel.Plan {
	tb.Helper()

	tuples := params.Tuples(families...)
	plans := make([]kernel.Plan, 0, len(tuples))

	for _, t := range tuples {
		plans = append(plans, Plan(tb, params, t))
	}

	return plans
}

// WriteFile writes body to dir/rel, creating parent directories, and returns
// the full path.
func WriteFile(tb testing.TB, dir, rel, body string) string {
	tb.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}

	return path
}

// ReadFile returns the content of path.
func ReadFile(tb testing.TB, path string) string {
	tb.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("read %s: %v", path, err)
	}

	return string(data)
}
