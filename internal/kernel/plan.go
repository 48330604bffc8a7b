package kernel

import (
	"fmt"
	"path"
	"slices"
)

// Plan is the loop shape of one kernel. Blocks holds Repeat copies of the
// same compute block, in emission order.
type Plan struct {
	FunctionName string
	Family       Family
	Left         Precision
	Right        Precision
	Width        VectorWidth

	// ConfigHigh and ConfigLow are the vpu_CONFIG operands, always (max, min).
	ConfigHigh Precision
	ConfigLow  Precision

	StepBytes int
	Natural   ElementCount
	Repeat    int
	Blocks    []ComputeBlock
	Effective ElementCount
}

// Tuple returns the parameter triple the plan was built from.
func (p Plan) Tuple() Tuple {
	return Tuple{Family: p.Family, Left: p.Left, Right: p.Right, Width: p.Width}
}

// Path is the output path relative to the generation root.
func (p Plan) Path() string {
	return path.Join(fmt.Sprintf("v%d", p.Width), p.FunctionName+".S")
}

// Loads returns how many loads of the given operand appear across all blocks.
func (p Plan) Loads(role Role) int {
	n := 0
	for _, b := range p.Blocks {
		n += b.Loads(role)
	}
	return n
}

// Ops returns how many ops of the given kind appear across all blocks.
func (p Plan) Ops(kind OpKind) int {
	n := 0
	for _, b := range p.Blocks {
		n += b.Count(kind)
	}
	return n
}

// New plans the kernel described by t under params.
func New(params Params, t Tuple) (Plan, error) {
	if t.Width <= 0 || t.Width%8 != 0 {
		return Plan{}, configErrorf(t, "vector width %d is not a positive whole number of bytes", t.Width)
	}
	if t.Left <= 0 || t.Right <= 0 {
		return Plan{}, configErrorf(t, "precisions must be positive")
	}
	if int(t.Width)%int(t.Left) != 0 || int(t.Width)%int(t.Right) != 0 {
		return Plan{}, configErrorf(t, "vector width %d is not divisible by the operand precisions", t.Width)
	}
	if params.MinInnerLoop <= 0 {
		return Plan{}, configErrorf(t, "min inner loop %d must be positive", params.MinInnerLoop)
	}

	switch t.Family {
	case MatrixSymmetric, DotProduct:
		if t.Left != t.Right {
			return Plan{}, configErrorf(t, "%s kernels need equal precisions", t.Family)
		}
		return planSymmetric(params, t)
	case MatrixAsymmetric:
		if t.Left == t.Right {
			return Plan{}, configErrorf(t, "asymmetric kernels need unequal precisions")
		}
		return planAsymmetric(params, t)
	default:
		return Plan{}, configErrorf(t, "unknown family %q", t.Family)
	}
}

func planSymmetric(params Params, t Tuple) (Plan, error) {
	step := int(t.Width) / 8
	natural := ElementCount(int(t.Width) / int(t.Left))

	block := ComputeBlock{
		Ops: []MicroOp{
			Load(Activation, step),
			Load(Weight, step),
			Dot(Normal),
			Accumulate(),
		},
		Elements: natural,
	}

	name := fmt.Sprintf("cfu_vecXmat_int%d", t.Left)
	if t.Family == DotProduct {
		name = fmt.Sprintf("cfu_dotp_int%d", t.Left)
	}

	p := Plan{
		FunctionName: name,
		Family:       t.Family,
		Left:         t.Left,
		Right:        t.Right,
		Width:        t.Width,
		ConfigHigh:   t.Left,
		ConfigLow:    t.Right,
		StepBytes:    step,
		Natural:      natural,
	}
	return replicate(params, t, p, block)
}

func planAsymmetric(params Params, t Tuple) (Plan, error) {
	low, high := min(t.Left, t.Right), max(t.Left, t.Right)
	if high%low != 0 {
		return Plan{}, configErrorf(t, "precision ratio %d/%d is not integral", high, low)
	}
	ratio := int(high / low)
	step := int(t.Width) / 8

	// One load of the low-precision operand spans v/lo elements; the
	// high-precision operand needs ratio loads to cover the same span.
	natural := ElementCount(int(t.Width) / int(low))

	variant, finer := Normal, Activation
	if t.Right > t.Left {
		variant, finer = Reversed, Weight
	}

	ops := make([]MicroOp, 0, 4+3*(ratio-1))
	ops = append(ops, Load(Activation, step), Load(Weight, step), Dot(variant), Accumulate())
	for range ratio - 1 {
		ops = append(ops, Load(finer, step), Dot(variant), Accumulate())
	}

	name := fmt.Sprintf("cfu_vecXmat_int%dxint%d", high, low)
	if variant == Reversed {
		name += "_rev"
	}

	p := Plan{
		FunctionName: name,
		Family:       t.Family,
		Left:         t.Left,
		Right:        t.Right,
		Width:        t.Width,
		ConfigHigh:   high,
		ConfigLow:    low,
		StepBytes:    step,
		Natural:      natural,
	}
	return replicate(params, t, p, ComputeBlock{Ops: ops, Elements: natural})
}

// replicate repeats block until one inner-loop iteration covers at least
// MinInnerLoop elements.
func replicate(params Params, t Tuple, p Plan, block ComputeBlock) (Plan, error) {
	repeat := 1
	if block.Elements < params.MinInnerLoop {
		if params.MinInnerLoop%block.Elements != 0 {
			return Plan{}, configErrorf(t, "min inner loop %d is not a multiple of %d elements per block",
				params.MinInnerLoop, block.Elements)
		}
		repeat = int(params.MinInnerLoop / block.Elements)
	}

	p.Repeat = repeat
	p.Blocks = make([]ComputeBlock, repeat)
	for i := range p.Blocks {
		p.Blocks[i] = ComputeBlock{Ops: slices.Clone(block.Ops), Elements: block.Elements}
	}
	p.Effective = block.Elements * ElementCount(repeat)
	return p, nil
}
