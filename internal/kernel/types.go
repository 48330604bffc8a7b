// Package kernel plans CFU/VPU assembly kernels: it enumerates the parameter
// space and computes, for one precision pair and register width, the ordered
// compute blocks and unroll factor of the inner loop.
package kernel

import "fmt"

// Precision is the bit-width of one packed element in a VPU register.
type Precision int

// VectorWidth is the number of bits in one VPU vector register.
type VectorWidth int

// ElementCount counts packed elements processed by a block or loop iteration.
type ElementCount int

// Role selects which operand stream a load advances.
type Role int

const (
	Activation Role = iota
	Weight
)

func (r Role) String() string {
	switch r {
	case Activation:
		return "activation"
	case Weight:
		return "weight"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// DotVariant selects the physical VPU dot instruction. Reversed swaps the
// vector register operands so the higher-precision operand always comes first.
type DotVariant int

const (
	Normal DotVariant = iota
	Reversed
)

func (d DotVariant) String() string {
	if d == Reversed {
		return "reversed"
	}
	return "normal"
}

// OpKind is the kind of a MicroOp.
type OpKind int

const (
	OpLoad OpKind = iota
	OpDot
	OpAccumulate
)

func (k OpKind) String() string {
	switch k {
	case OpLoad:
		return "load"
	case OpDot:
		return "dot"
	case OpAccumulate:
		return "add"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// MicroOp is the smallest emitted unit. Role and StepBytes are meaningful for
// loads only, Variant for dots only.
type MicroOp struct {
	Kind      OpKind
	Role      Role
	StepBytes int
	Variant   DotVariant
}

// Load returns a vector load of the given operand followed by a pointer bump.
func Load(role Role, stepBytes int) MicroOp {
	return MicroOp{Kind: OpLoad, Role: role, StepBytes: stepBytes}
}

// Dot returns a VPU dot product into the scratch register.
func Dot(variant DotVariant) MicroOp {
	return MicroOp{Kind: OpDot, Variant: variant}
}

// Accumulate returns the scalar add of the dot result into the accumulator.
func Accumulate() MicroOp {
	return MicroOp{Kind: OpAccumulate}
}

func (op MicroOp) String() string {
	switch op.Kind {
	case OpLoad:
		return fmt.Sprintf("load(%s,+%d)", op.Role, op.StepBytes)
	case OpDot:
		return fmt.Sprintf("dot(%s)", op.Variant)
	default:
		return op.Kind.String()
	}
}

// ComputeBlock is the ordered op sequence for one native VPU operation span.
type ComputeBlock struct {
	Ops      []MicroOp
	Elements ElementCount
}

// Count returns how many ops of the given kind the block holds.
func (b ComputeBlock) Count(kind OpKind) int {
	n := 0
	for _, op := range b.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Loads returns how many loads of the given operand the block holds.
func (b ComputeBlock) Loads(role Role) int {
	n := 0
	for _, op := range b.Ops {
		if op.Kind == OpLoad && op.Role == role {
			n++
		}
	}
	return n
}

// Family names a kernel family.
type Family string

const (
	// MatrixSymmetric is the vector x matrix kernel with equal precisions.
	MatrixSymmetric Family = "symmetric"
	// MatrixAsymmetric is the vector x matrix kernel with unequal precisions.
	MatrixAsymmetric Family = "asymmetric"
	// DotProduct is the single-loop vector dot product kernel.
	DotProduct Family = "dotp"
)

// Families lists every family in generation order.
func Families() []Family {
	return []Family{MatrixSymmetric, MatrixAsymmetric, DotProduct}
}

// Validate reports whether f is one of Families.
func (f Family) Validate() error {
	switch f {
	case MatrixSymmetric, MatrixAsymmetric, DotProduct:
		return nil
	default:
		return fmt.Errorf("%w: unknown kernel family %q", ErrConfiguration, string(f))
	}
}

// ParseFamily normalizes a family name.
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case MatrixSymmetric, MatrixAsymmetric, DotProduct:
		return Family(s), nil
	case "sym", "nxn":
		return MatrixSymmetric, nil
	case "asym", "nxm":
		return MatrixAsymmetric, nil
	case "dot":
		return DotProduct, nil
	default:
		return "", fmt.Errorf("unknown kernel family %q (want %s|%s|%s)",
			s, MatrixSymmetric, MatrixAsymmetric, DotProduct)
	}
}

// Tuple identifies one kernel to generate. Left is the activation precision,
// Right the weight precision.
type Tuple struct {
	Family Family
	Left   Precision
	Right  Precision
	Width  VectorWidth
}

func (t Tuple) String() string {
	return fmt.Sprintf("%s(int%d x int%d, v%d)", t.Family, t.Left, t.Right, t.Width)
}
