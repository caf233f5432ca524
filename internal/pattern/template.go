package pattern

import (
	"github.com/pkg/errors"

	"irx/internal/ir"
)

// Step is one instruction of a rewrite template. Steps read the slots
// bound by the matcher and bind new slots for what they create.
type Step interface {
	apply(rw *Rewriter, env *Bindings) error
}

// BuildOperation creates an operation. Operands name value slots (an
// operation slot stands for its single result); ResultTypes name type
// slots; Attributes map attribute names to attribute slots.
type BuildOperation struct {
	Slot        int
	Name        string
	Operands    []int
	Attributes  map[string]int
	ResultTypes []int
}

// BuildAttribute binds a constant attribute to Slot.
type BuildAttribute struct {
	Slot  int
	Value ir.Attribute
}

// BuildType binds a constant type to Slot.
type BuildType struct {
	Slot int
	Type ir.Type
}

// BuildResult binds result Index of the operation in slot Op to Slot.
type BuildResult struct {
	Slot  int
	Op    int
	Index int
}

// Replace replaces the operation in slot Op. Each entry of With is a value
// slot or an operation slot standing for all of its results.
type Replace struct {
	Op   int
	With []int
}

// Erase erases the operation in slot Op.
type Erase struct {
	Op int
}

func (s *BuildOperation) apply(rw *Rewriter, env *Bindings) error {
	operands := make([]ir.Value, len(s.Operands))
	for i, slot := range s.Operands {
		v, err := singleValue(env, slot)
		if err != nil {
			return errors.Wrapf(err, "%s operand #%d", s.Name, i)
		}
		operands[i] = v
	}
	resultTypes := make([]ir.Type, len(s.ResultTypes))
	for i, slot := range s.ResultTypes {
		t := env.Type(slot)
		if t == nil {
			return errors.Errorf("%s result #%d: type slot %d is not bound", s.Name, i, slot)
		}
		resultTypes[i] = t
	}
	var attrs map[string]ir.Attribute
	if len(s.Attributes) > 0 {
		attrs = make(map[string]ir.Attribute, len(s.Attributes))
		for name, slot := range s.Attributes {
			a := env.Attr(slot)
			if a == nil {
				return errors.Errorf("%s attribute %q: slot %d is not bound", s.Name, name, slot)
			}
			attrs[name] = a
		}
	}
	op, err := rw.Create(s.Name, operands, resultTypes, attrs)
	if err != nil {
		return err
	}
	env.bind(s.Slot, func(b *binding) { b.op = op })
	return nil
}

func (s *BuildAttribute) apply(_ *Rewriter, env *Bindings) error {
	env.bind(s.Slot, func(b *binding) { b.attr = s.Value })
	return nil
}

func (s *BuildType) apply(_ *Rewriter, env *Bindings) error {
	env.bind(s.Slot, func(b *binding) { b.typ = s.Type })
	return nil
}

func (s *BuildResult) apply(_ *Rewriter, env *Bindings) error {
	op := env.Op(s.Op)
	if op == nil {
		return errors.Errorf("operation slot %d is not bound", s.Op)
	}
	if s.Index < 0 || s.Index >= op.NumResults() {
		return errors.Errorf("%s has no result #%d", op.Name, s.Index)
	}
	env.bind(s.Slot, func(b *binding) {
		b.value = op.Result(s.Index)
		b.isVal = true
	})
	return nil
}

func (s *Replace) apply(rw *Rewriter, env *Bindings) error {
	op := env.Op(s.Op)
	if op == nil {
		return errors.Errorf("operation slot %d is not bound", s.Op)
	}
	var values []ir.Value
	for _, slot := range s.With {
		if v, ok := env.Value(slot); ok {
			values = append(values, v)
			continue
		}
		if with := env.Op(slot); with != nil {
			values = append(values, with.Results()...)
			continue
		}
		return errors.Errorf("replacement slot %d is not bound", slot)
	}
	rw.ReplaceOp(op, values...)
	return nil
}

func (s *Erase) apply(rw *Rewriter, env *Bindings) error {
	op := env.Op(s.Op)
	if op == nil {
		return errors.Errorf("operation slot %d is not bound", s.Op)
	}
	rw.EraseOp(op)
	return nil
}

func singleValue(env *Bindings, slot int) (ir.Value, error) {
	if v, ok := env.Value(slot); ok {
		return v, nil
	}
	if op := env.Op(slot); op != nil {
		if op.NumResults() != 1 {
			return ir.Value{}, errors.Errorf("%s has %d results, expected one", op.Name, op.NumResults())
		}
		return op.Result(0), nil
	}
	return ir.Value{}, errors.Errorf("value slot %d is not bound", slot)
}

// Pattern is a declarative pattern: a matcher tree and a rewrite template
// sharing one slot space.
type Pattern struct {
	PatternName    string
	PatternBenefit int
	Root           *OperationPattern
	Rewrite        []Step
	NumSlots       int
}

// NewPattern creates a declarative pattern and sizes its slot space.
func NewPattern(name string, benefit int, root *OperationPattern, rewrite ...Step) *Pattern {
	p := &Pattern{PatternName: name, PatternBenefit: benefit, Root: root, Rewrite: rewrite}
	p.NumSlots = countSlots(root, rewrite)
	return p
}

func (p *Pattern) Name() string     { return p.PatternName }
func (p *Pattern) Benefit() int     { return p.PatternBenefit }
func (p *Pattern) RootName() string { return p.Root.Name }

// MatchAndRewrite matches the tree against op and runs the template. The
// matched operations other than the root are erased when the rewrite
// leaves them unused.
func (p *Pattern) MatchAndRewrite(rw *Rewriter, op *ir.Operation) (bool, error) {
	env, matched, ok := Match(rw.Module(), p.Root, p.NumSlots, op)
	if !ok {
		return false, nil
	}
	for _, step := range p.Rewrite {
		if err := step.apply(rw, env); err != nil {
			return false, errors.Wrapf(err, "pattern %s", p.PatternName)
		}
	}
	rw.EraseIfUnused(matched[1:]...)
	return true, nil
}

func countSlots(root *OperationPattern, rewrite []Step) int {
	n := 0
	see := func(slot int) {
		if slot+1 > n {
			n = slot + 1
		}
	}
	var visit func(node Node)
	visit = func(node Node) {
		see(node.slot())
		switch p := node.(type) {
		case *OperationPattern:
			for _, operand := range p.Operands {
				visit(operand)
			}
			for _, a := range p.Attributes {
				visit(a)
			}
			for _, t := range p.Results {
				visit(t)
			}
		case *ValuePattern:
			if p.Type != nil {
				visit(p.Type)
			}
		case *ResultPattern:
			visit(p.Op)
		}
	}
	visit(root)
	for _, step := range rewrite {
		switch s := step.(type) {
		case *BuildOperation:
			see(s.Slot)
		case *BuildAttribute:
			see(s.Slot)
		case *BuildType:
			see(s.Slot)
		case *BuildResult:
			see(s.Slot)
		}
	}
	return n
}
