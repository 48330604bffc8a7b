// Package asm renders kernel plans into CFU assembly source.
//
// Rendering is pure substitution: every number that reaches the text comes
// from the plan. Values travel through typed slots so that a mix-up between a
// symbol and a count is rejected before any text is produced.
package asm

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/example/cfugen/internal/kernel"
)

// Symbol is an assembler symbol name.
type Symbol string

var symbolRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (s Symbol) validate() error {
	if !symbolRE.MatchString(string(s)) {
		return fmt.Errorf("invalid symbol %q", string(s))
	}
	return nil
}

// Slots holds the named values substituted into a skeleton.
type Slots struct {
	Header     string
	Symbol     Symbol
	Width      kernel.VectorWidth
	LeftBits   kernel.Precision
	RightBits  kernel.Precision
	ConfigHigh kernel.Precision
	ConfigLow  kernel.Precision
	Body       string
	Advance    kernel.ElementCount
}

// Validate rejects slot values that would render malformed assembly.
func (s Slots) Validate() error {
	var errs []error
	if s.Header == "" || strings.ContainsAny(s.Header, "\"\n") {
		errs = append(errs, fmt.Errorf("invalid include header %q", s.Header))
	}
	if err := s.Symbol.validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Width <= 0 {
		errs = append(errs, fmt.Errorf("invalid width %d", s.Width))
	}
	if s.LeftBits <= 0 || s.RightBits <= 0 || s.ConfigHigh <= 0 || s.ConfigLow <= 0 {
		errs = append(errs, errors.New("precisions must be positive"))
	}
	if strings.TrimSpace(s.Body) == "" {
		errs = append(errs, errors.New("empty compute body"))
	}
	if s.Advance <= 0 {
		errs = append(errs, fmt.Errorf("invalid loop advance %d", s.Advance))
	}
	return errors.Join(errs...)
}

// Renderer turns plans into assembly text.
type Renderer struct {
	// Header is the coprocessor macro header to include. Empty means IncludeHeader.
	Header string
}

// NewRenderer returns a renderer including the given header.
func NewRenderer(header string) *Renderer {
	return &Renderer{Header: header}
}

// SlotsFor maps a plan onto skeleton slots.
func (r *Renderer) SlotsFor(p kernel.Plan) Slots {
	header := r.Header
	if header == "" {
		header = IncludeHeader
	}
	return Slots{
		Header:     header,
		Symbol:     Symbol(p.FunctionName),
		Width:      p.Width,
		LeftBits:   p.Left,
		RightBits:  p.Right,
		ConfigHigh: p.ConfigHigh,
		ConfigLow:  p.ConfigLow,
		Body:       RenderBody(p.Blocks),
		Advance:    p.Effective,
	}
}

// Render returns the assembly source of p.
func (r *Renderer) Render(p kernel.Plan) ([]byte, error) {
	slots := r.SlotsFor(p)
	if err := slots.Validate(); err != nil {
		return nil, fmt.Errorf("render %s: %w", p.FunctionName, err)
	}

	skeleton := matrixSkeleton
	if p.Family == kernel.DotProduct {
		skeleton = dotSkeleton
	}

	var buf bytes.Buffer
	if err := skeleton.Execute(&buf, slots); err != nil {
		return nil, fmt.Errorf("render %s: %w", p.FunctionName, err)
	}
	return buf.Bytes(), nil
}

// RenderBody renders each block with its step sizes substituted and
// concatenates them in order.
func RenderBody(blocks []kernel.ComputeBlock) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(RenderBlock(b))
	}
	return sb.String()
}

// RenderBlock renders the ops of one compute block.
func RenderBlock(b kernel.ComputeBlock) string {
	var sb strings.Builder
	for _, op := range b.Ops {
		sb.WriteString(renderOp(op))
	}
	return sb.String()
}

func renderOp(op kernel.MicroOp) string {
	switch op.Kind {
	case kernel.OpLoad:
		if op.Role == kernel.Weight {
			return fmt.Sprintf(loadWeightFmt, op.StepBytes)
		}
		return fmt.Sprintf(loadActivationFmt, op.StepBytes)
	case kernel.OpDot:
		if op.Variant == kernel.Reversed {
			return dotReversed
		}
		return dotNormal
	case kernel.OpAccumulate:
		return accumulate
	default:
		panic(fmt.Sprintf("asm: unknown op kind %v", op.Kind))
	}
}
