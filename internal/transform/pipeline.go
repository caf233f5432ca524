package transform

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"irx/internal/dialect"
	"irx/internal/ir"
	"irx/internal/pattern"
)

// Pass is a single module transformation or check.
type Pass interface {
	Name() string
	Description() string
	Run(m *ir.Module) (bool, error) // Reports whether m changed
}

// Pipeline runs passes in order and prints their progress.
type Pipeline struct {
	passes []Pass
	out    io.Writer
}

// NewPipeline creates an empty pipeline printing to out; a nil out keeps
// it silent.
func NewPipeline(out io.Writer) *Pipeline {
	if out == nil {
		out = io.Discard
	}
	return &Pipeline{out: out}
}

// DefaultPipeline verifies, canonicalizes and verifies again.
func DefaultPipeline(out io.Writer, reg *dialect.Registry, cfg pattern.Config) *Pipeline {
	p := NewPipeline(out)
	p.AddPass(&VerifyPass{Registry: reg})
	p.AddPass(&CanonicalizePass{Registry: reg, Config: cfg})
	p.AddPass(&VerifyPass{Registry: reg})
	return p
}

// AddPass appends a pass to the pipeline.
func (p *Pipeline) AddPass(pass Pass) *Pipeline {
	p.passes = append(p.passes, pass)
	return p
}

// Passes returns the passes in execution order.
func (p *Pipeline) Passes() []Pass { return p.passes }

// Run executes all passes on m, stopping at the first failing one.
func (p *Pipeline) Run(m *ir.Module) error {
	fmt.Fprintf(p.out, "Running %d passes...\n", len(p.passes))

	for _, pass := range p.passes {
		fmt.Fprintf(p.out, "  - %s: %s\n", pass.Name(), pass.Description())
		changed, err := pass.Run(m)
		if err != nil {
			fmt.Fprintf(p.out, "    ✗ Failed\n")
			return errors.Wrapf(err, "pass %s", pass.Name())
		}
		if changed {
			fmt.Fprintf(p.out, "    ✓ Applied changes\n")
		} else {
			fmt.Fprintf(p.out, "    - No changes needed\n")
		}
	}
	return nil
}

// VerifyPass fails when Verify finds violations.
type VerifyPass struct {
	Registry *dialect.Registry
	Options  []VerifyOption
}

func (vp *VerifyPass) Name() string { return "verify" }

func (vp *VerifyPass) Description() string {
	return "Checks operand scoping and the registered operation definitions"
}

func (vp *VerifyPass) Run(m *ir.Module) (bool, error) {
	return false, Verify(m, vp.Registry, vp.Options...).Err()
}

// CanonicalizePass runs Canonicalize.
type CanonicalizePass struct {
	Registry *dialect.Registry
	Config   pattern.Config
}

func (cp *CanonicalizePass) Name() string { return "canonicalize" }

func (cp *CanonicalizePass) Description() string {
	return "Folds constants and identities and erases unused pure operations"
}

func (cp *CanonicalizePass) Run(m *ir.Module) (bool, error) {
	report, err := Canonicalize(m, cp.Registry, cp.Config)
	if err != nil {
		return report != nil && report.Rewrites > 0, err
	}
	return report.Rewrites > 0, nil
}

// PatternPass applies a pattern set greedily.
type PatternPass struct {
	Label  string
	Set    *pattern.Set
	Config pattern.Config
}

func (pp *PatternPass) Name() string {
	if pp.Label != "" {
		return pp.Label
	}
	return "apply-patterns"
}

func (pp *PatternPass) Description() string {
	return fmt.Sprintf("Applies %d rewrite patterns to a fixpoint", pp.Set.Len())
}

func (pp *PatternPass) Run(m *ir.Module) (bool, error) {
	report, err := pattern.ApplyGreedily(m, pp.Set, pp.Config)
	if report == nil {
		return false, err
	}
	return report.Rewrites > 0, err
}
