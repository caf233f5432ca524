package pattern

import (
	"irx/internal/ir"
)

// Node is a placeholder of a matcher tree: *OperationPattern,
// *ValuePattern, *ResultPattern, *TypePattern or *AttributePattern. Every
// node owns a binding slot; nodes sharing a slot must bind the same IR
// entity.
type Node interface {
	slot() int
}

// OperationPattern matches an operation. An empty Name matches any
// operation; empty Operands or Results leave the respective arity
// unconstrained.
type OperationPattern struct {
	Slot       int
	Name       string
	Operands   []Node // *ValuePattern or *ResultPattern
	Attributes map[string]*AttributePattern
	Results    []*TypePattern
}

// ValuePattern matches any value, optionally of a given type.
type ValuePattern struct {
	Slot int
	Type *TypePattern
}

// ResultPattern matches result Index of an operation matching Op.
type ResultPattern struct {
	Slot  int
	Op    *OperationPattern
	Index int
}

// TypePattern matches any type, or exactly Type when set.
type TypePattern struct {
	Slot int
	Type ir.Type
}

// AttributePattern matches any attribute, or exactly Value when set.
type AttributePattern struct {
	Slot  int
	Value ir.Attribute
}

func (p *OperationPattern) slot() int { return p.Slot }
func (p *ValuePattern) slot() int     { return p.Slot }
func (p *ResultPattern) slot() int    { return p.Slot }
func (p *TypePattern) slot() int      { return p.Slot }
func (p *AttributePattern) slot() int { return p.Slot }

// Bindings maps slots to the IR entities bound during a match.
type Bindings struct {
	slots []binding
}

type binding struct {
	bound bool
	op    *ir.Operation
	value ir.Value
	isVal bool
	typ   ir.Type
	attr  ir.Attribute
}

func newBindings(n int) *Bindings {
	return &Bindings{slots: make([]binding, n)}
}

func (b *Bindings) get(slot int) *binding {
	if slot < 0 || slot >= len(b.slots) {
		return &binding{}
	}
	return &b.slots[slot]
}

// Op returns the operation bound to slot, nil if none.
func (b *Bindings) Op(slot int) *ir.Operation { return b.get(slot).op }

// Value returns the value bound to slot.
func (b *Bindings) Value(slot int) (ir.Value, bool) {
	s := b.get(slot)
	return s.value, s.isVal
}

// Type returns the type bound to slot, nil if none.
func (b *Bindings) Type(slot int) ir.Type { return b.get(slot).typ }

// Attr returns the attribute bound to slot, nil if none.
func (b *Bindings) Attr(slot int) ir.Attribute { return b.get(slot).attr }

func (b *Bindings) bind(slot int, fill func(*binding)) {
	if slot < 0 || slot >= len(b.slots) {
		return
	}
	s := &b.slots[slot]
	s.bound = true
	fill(s)
}

// Match runs a matcher tree against op. On success it returns the bindings
// and the matched operations, root first. A failed match is not an error.
func Match(m *ir.Module, root *OperationPattern, numSlots int, op *ir.Operation) (*Bindings, []*ir.Operation, bool) {
	mt := &matcher{m: m, env: newBindings(numSlots)}
	if !mt.op(root, op) {
		return nil, nil, false
	}
	return mt.env, mt.matched, true
}

type matcher struct {
	m       *ir.Module
	env     *Bindings
	matched []*ir.Operation
}

func (mt *matcher) op(p *OperationPattern, op *ir.Operation) bool {
	if op == nil || (p.Name != "" && p.Name != op.Name) {
		return false
	}
	if s := mt.env.get(p.Slot); s.bound {
		return s.op == op
	}
	if len(p.Operands) > 0 && len(p.Operands) != op.NumOperands() {
		return false
	}
	if len(p.Results) > 0 && len(p.Results) != op.NumResults() {
		return false
	}
	mt.env.bind(p.Slot, func(s *binding) { s.op = op })
	mt.matched = append(mt.matched, op)

	for i, operand := range p.Operands {
		if !mt.value(operand, op.Operand(i)) {
			return false
		}
	}
	for name, ap := range p.Attributes {
		a := op.Attr(name)
		if a == nil || !mt.attr(ap, a) {
			return false
		}
	}
	resultTypes := op.ResultTypes()
	for i, tp := range p.Results {
		if !mt.typ(tp, resultTypes[i]) {
			return false
		}
	}
	return true
}

func (mt *matcher) value(n Node, v ir.Value) bool {
	if s := mt.env.get(n.slot()); s.bound {
		if !s.isVal || s.value != v {
			return false
		}
	}
	switch p := n.(type) {
	case *ValuePattern:
		if p.Type != nil && !mt.typ(p.Type, mt.m.TypeOf(v)) {
			return false
		}
	case *ResultPattern:
		def := mt.m.DefiningOp(v)
		if def == nil || v.Index != p.Index || !mt.op(p.Op, def) {
			return false
		}
	default:
		return false
	}
	mt.env.bind(n.slot(), func(s *binding) {
		s.value = v
		s.isVal = true
	})
	return true
}

func (mt *matcher) typ(p *TypePattern, t ir.Type) bool {
	if t == nil || (p.Type != nil && !ir.TypesEqual(p.Type, t)) {
		return false
	}
	if s := mt.env.get(p.Slot); s.bound {
		return ir.TypesEqual(s.typ, t)
	}
	mt.env.bind(p.Slot, func(s *binding) { s.typ = t })
	return true
}

func (mt *matcher) attr(p *AttributePattern, a ir.Attribute) bool {
	if p.Value != nil && !ir.AttributesEqual(p.Value, a) {
		return false
	}
	if s := mt.env.get(p.Slot); s.bound {
		return ir.AttributesEqual(s.attr, a)
	}
	mt.env.bind(p.Slot, func(s *binding) { s.attr = a })
	return true
}
