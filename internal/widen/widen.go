// Package widen rewrites already generated kernels for a 64-bit register
// file. It is a literal find/replace pass applied after generation and knows
// nothing about kernel plans.
package widen

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/example/cfugen/internal/emit"
)

// Replacement is one exact-match substitution.
type Replacement struct {
	Old string `mapstructure:"old"`
	New string `mapstructure:"new"`
}

// Table is applied in declared order.
type Table []Replacement

// DefaultTable widens 32-bit pointer steps, scalar loads and the unrolled
// loop advance to their 64-bit forms.
func DefaultTable() Table {
	return Table{
		{Old: "addi a5, a5, 4", New: "addi a5, a5, 8"},
		{Old: "addi a1, a1, 4", New: "addi a1, a1, 8"},
		{Old: "lw t2, 0(a5)", New: "ld t2, 0(a5)"},
		{Old: "lw t3, 0(a1)", New: "ld t3, 0(a1)"},
		{Old: "lw t3, 0(a5)", New: "ld t3, 0(a5)"},
		{Old: "lw t2, 0(a1)", New: "ld t2, 0(a1)"},
		{Old: "addi t1, t1, 32", New: "addi t1, t1, 64"},
	}
}

// Validate rejects entries that cannot be applied idempotently.
func (t Table) Validate() error {
	var errs []error
	for i, r := range t {
		if r.Old == "" {
			errs = append(errs, fmt.Errorf("entry %d: empty pattern", i))
			continue
		}
		if strings.Contains(r.New, r.Old) {
			errs = append(errs, fmt.Errorf("entry %d: replacement %q contains its pattern %q", i, r.New, r.Old))
		}
	}
	return errors.Join(errs...)
}

// Apply returns text with every entry of t replaced, in order.
func Apply(text string, t Table) string {
	for _, r := range t {
		text = strings.ReplaceAll(text, r.Old, r.New)
	}
	return text
}

// PatchFile applies t to the file at path. The file is rewritten only when
// its content changes.
func PatchFile(path string, t Table) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	patched := Apply(string(data), t)
	if patched == string(data) {
		return false, nil
	}
	if err := emit.WriteFile(path, []byte(patched)); err != nil {
		return false, fmt.Errorf("rewrite %s: %w", path, err)
	}
	return true, nil
}
