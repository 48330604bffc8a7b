package config

import (
	"fmt"

	"github.com/example/cfugen/internal/kernel"
	"github.com/samber/lo"
)

// Params returns the planner configuration described by g.
func (g GenConfig) Params() kernel.Params {
	return kernel.Params{
		Precisions:   lo.Map(g.Precisions, func(p int, _ int) kernel.Precision { return kernel.Precision(p) }),
		Widths:       lo.Map(g.Widths, func(w int, _ int) kernel.VectorWidth { return kernel.VectorWidth(w) }),
		MinInnerLoop: kernel.ElementCount(g.MinInnerLoop),
	}
}

// KernelFamilies parses the configured family names. An empty list selects
// every family.
func (g GenConfig) KernelFamilies() ([]kernel.Family, error) {
	if len(g.Families) == 0 {
		return kernel.Families(), nil
	}
	out := make([]kernel.Family, 0, len(g.Families))
	for _, name := range g.Families {
		fam, err := kernel.ParseFamily(name)
		if err != nil {
			return nil, fmt.Errorf("gen.families: %w", err)
		}
		out = append(out, fam)
	}
	return lo.Uniq(out), nil
}
