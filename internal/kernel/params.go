package kernel

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// DefaultMinInnerLoop is the minimum number of elements one inner-loop
// iteration must consume.
const DefaultMinInnerLoop ElementCount = 32

// Params is the immutable configuration of the parameter space and planner.
type Params struct {
	Precisions   []Precision
	Widths       []VectorWidth
	MinInnerLoop ElementCount
}

// DefaultParams returns the precision set, width set and inner-loop minimum
// of the CFU target.
func DefaultParams() Params {
	return Params{
		Precisions:   []Precision{8, 4, 2, 1},
		Widths:       []VectorWidth{64, 128, 256, 512},
		MinInnerLoop: DefaultMinInnerLoop,
	}
}

// Validate checks that every value is positive and that the sets are not empty.
// Divisibility is checked per kernel by Plan.
func (p Params) Validate() error {
	var errs []error
	if len(p.Precisions) == 0 {
		errs = append(errs, errors.New("no precisions configured"))
	}
	if len(p.Widths) == 0 {
		errs = append(errs, errors.New("no vector widths configured"))
	}
	for _, prec := range p.Precisions {
		if prec <= 0 {
			errs = append(errs, fmt.Errorf("precision %d must be positive", prec))
		}
	}
	for _, w := range p.Widths {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("vector width %d must be positive", w))
		}
	}
	if p.MinInnerLoop <= 0 {
		errs = append(errs, fmt.Errorf("min inner loop %d must be positive", p.MinInnerLoop))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// Tuples enumerates the kernels of the requested families, in family order,
// then precision order, then width order. With no families given all are
// enumerated. Repeated precisions or widths are collapsed. Families that fail
// Family.Validate yield no tuples.
func (p Params) Tuples(families ...Family) []Tuple {
	if len(families) == 0 {
		families = Families()
	}
	precs := lo.Uniq(p.Precisions)
	widths := lo.Uniq(p.Widths)

	var out []Tuple
	for _, fam := range lo.Uniq(families) {
		switch fam {
		case MatrixSymmetric, DotProduct:
			for _, prec := range precs {
				for _, w := range widths {
					out = append(out, Tuple{Family: fam, Left: prec, Right: prec, Width: w})
				}
			}
		case MatrixAsymmetric:
			for _, left := range precs {
				for _, right := range precs {
					if left == right {
						continue
					}
					for _, w := range widths {
						out = append(out, Tuple{Family: fam, Left: left, Right: right, Width: w})
					}
				}
			}
		}
	}
	return out
}
