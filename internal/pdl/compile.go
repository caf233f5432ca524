package pdl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"irx/grammar"
	"irx/internal/asm"
	"irx/internal/ir"
	"irx/internal/pattern"
)

type handleKind int

const (
	typeHandle handleKind = iota
	operandHandle
	attributeHandle
	operationHandle
	resultHandle
)

func (k handleKind) String() string {
	switch k {
	case typeHandle:
		return "a type"
	case operandHandle:
		return "an operand"
	case attributeHandle:
		return "an attribute"
	case operationHandle:
		return "an operation"
	case resultHandle:
		return "a result"
	}
	return "unknown"
}

type handle struct {
	name    string
	kind    handleKind
	slot    int
	pos     grammar.Position
	stmt    *grammar.PDLStatement
	rewrite bool // Declared inside pdl.rewrite
	reached bool // Bound by the matcher tree or by a rewrite step

	typ       ir.Type      // Fixed type of a pdl.type
	attr      ir.Attribute // Fixed value of a pdl.attribute
	valueSlot int          // Slot of the first result when an operation is used as a value
}

type compiler struct {
	pattern  string
	handles  map[string]*handle
	match    []*handle
	nextSlot int
	ops      map[string]*pattern.OperationPattern
	visiting map[string]bool
	steps    []pattern.Step
}

func newCompiler(name string) *compiler {
	return &compiler{
		pattern:  name,
		handles:  make(map[string]*handle),
		ops:      make(map[string]*pattern.OperationPattern),
		visiting: make(map[string]bool),
	}
}

func (c *compiler) errorf(pos grammar.Position, format string, args ...any) error {
	return grammar.Errorf(pos, "pattern @%s: %s", c.pattern, fmt.Sprintf(format, args...))
}

func (c *compiler) fresh() int {
	slot := c.nextSlot
	c.nextSlot++
	return slot
}

func statementKind(st *grammar.PDLStatement) (handleKind, bool) {
	switch {
	case st.Type != nil:
		return typeHandle, true
	case st.Operand != nil:
		return operandHandle, true
	case st.Attribute != nil:
		return attributeHandle, true
	case st.Operation != nil:
		return operationHandle, true
	case st.Result != nil:
		return resultHandle, true
	}
	return 0, false
}

// define registers the handle introduced by st. Unnamed operations get a
// synthetic name that cannot clash with a handle.
func (c *compiler) define(st *grammar.PDLStatement, rewrite bool) (*handle, error) {
	kind, ok := statementKind(st)
	if !ok {
		if st.Name != "" {
			return nil, c.errorf(st.Pos, "%s does not define a value", st.Name)
		}
		return nil, nil
	}
	name := st.Name
	if name == "" {
		if kind != operationHandle {
			return nil, c.errorf(st.Pos, "%s must be bound to a handle", kind)
		}
		name = fmt.Sprintf("<op%d>", c.nextSlot)
	}
	if strings.Contains(name, "#") {
		return nil, c.errorf(st.Pos, "handle %s cannot carry a result index", name)
	}
	if prev, ok := c.handles[name]; ok {
		return nil, c.errorf(st.Pos, "%s is already defined at %s", name, prev.pos)
	}
	h := &handle{name: name, kind: kind, slot: c.fresh(), pos: st.Pos, stmt: st, rewrite: rewrite, valueSlot: -1}
	switch kind {
	case typeHandle:
		if st.Type.Type != nil {
			t, err := asm.ConvertType(st.Type.Type)
			if err != nil {
				return nil, err
			}
			h.typ = t
		}
	case attributeHandle:
		if st.Attribute.Value != nil {
			a, err := asm.ConvertAttribute(st.Attribute.Value)
			if err != nil {
				return nil, err
			}
			h.attr = a
		}
	}
	c.handles[name] = h
	return h, nil
}

func (c *compiler) declare(st *grammar.PDLStatement) error {
	if st.Replace != nil || st.Erase != nil {
		return c.errorf(st.Pos, "pdl.replace and pdl.erase are only valid inside pdl.rewrite")
	}
	h, err := c.define(st, false)
	if err != nil {
		return err
	}
	c.match = append(c.match, h)
	return nil
}

func (c *compiler) lookup(pos grammar.Position, name string, kinds ...handleKind) (*handle, error) {
	h, ok := c.handles[name]
	if !ok {
		return nil, c.errorf(pos, "undefined handle %s", name)
	}
	for _, k := range kinds {
		if h.kind == k {
			return h, nil
		}
	}
	return nil, c.errorf(pos, "%s is %s", name, h.kind)
}

// rootHandle is the operation named by pdl.rewrite, or the last operation
// of the match section.
func (c *compiler) rootHandle(g *grammar.PDLPattern) (string, error) {
	if g.Rewrite.Root != "" {
		h, err := c.lookup(g.Rewrite.Pos, g.Rewrite.Root, operationHandle)
		if err != nil {
			return "", err
		}
		return h.name, nil
	}
	for i := len(c.match) - 1; i >= 0; i-- {
		if c.match[i].kind == operationHandle {
			return c.match[i].name, nil
		}
	}
	return "", c.errorf(g.Pos, "no operation to match")
}

// opPattern builds the matcher of an operation handle of the match section.
// Operations reached twice share one matcher and one slot.
func (c *compiler) opPattern(name string) (*pattern.OperationPattern, error) {
	if p, ok := c.ops[name]; ok {
		return p, nil
	}
	h := c.handles[name]
	if c.visiting[name] {
		return nil, c.errorf(h.pos, "%s depends on itself", name)
	}
	c.visiting[name] = true
	defer delete(c.visiting, name)
	h.reached = true

	g := h.stmt.Operation
	p := &pattern.OperationPattern{Slot: h.slot, Name: g.OpName}
	if len(g.OperandTypes) > 0 && len(g.OperandTypes) != len(g.Operands) {
		return nil, c.errorf(g.Pos, "%d operands but %d operand types", len(g.Operands), len(g.OperandTypes))
	}
	for i, ref := range g.Operands {
		node, err := c.valueNode(g.Pos, ref)
		if err != nil {
			return nil, err
		}
		if len(g.OperandTypes) > 0 {
			if err := c.constrainOperand(g.Pos, node, g.OperandTypes[i]); err != nil {
				return nil, err
			}
		}
		p.Operands = append(p.Operands, node)
	}

	for _, binding := range g.Attributes {
		if p.Attributes == nil {
			p.Attributes = make(map[string]*pattern.AttributePattern)
		}
		if _, ok := p.Attributes[binding.Name]; ok {
			return nil, c.errorf(binding.Pos, "attribute %q is matched twice", binding.Name)
		}
		ah, err := c.lookup(binding.Pos, binding.Handle, attributeHandle)
		if err != nil {
			return nil, err
		}
		ah.reached = true
		p.Attributes[binding.Name] = &pattern.AttributePattern{Slot: ah.slot, Value: ah.attr}
	}

	results, err := c.resultPatterns(g)
	if err != nil {
		return nil, err
	}
	p.Results = results

	c.ops[name] = p
	return p, nil
}

func (c *compiler) resultPatterns(g *grammar.PDLOperation) ([]*pattern.TypePattern, error) {
	inline, err := convertTypes(g.ResultTypes)
	if err != nil {
		return nil, err
	}
	if len(g.Results) == 0 {
		results := make([]*pattern.TypePattern, len(inline))
		for i, t := range inline {
			results[i] = &pattern.TypePattern{Slot: c.fresh(), Type: t}
		}
		return results, nil
	}
	if len(inline) > 0 && len(inline) != len(g.Results) {
		return nil, c.errorf(g.Pos, "%d result handles but %d result types", len(g.Results), len(inline))
	}
	results := make([]*pattern.TypePattern, len(g.Results))
	for i, ref := range g.Results {
		tp, err := c.typePattern(g.Pos, ref)
		if err != nil {
			return nil, err
		}
		if len(inline) > 0 {
			if err := mergeType(tp, inline[i]); err != nil {
				return nil, c.errorf(g.Pos, "result #%d: %v", i, err)
			}
		}
		results[i] = tp
	}
	return results, nil
}

func (c *compiler) typePattern(pos grammar.Position, ref string) (*pattern.TypePattern, error) {
	h, err := c.lookup(pos, ref, typeHandle)
	if err != nil {
		return nil, err
	}
	if h.rewrite {
		return nil, c.errorf(pos, "%s is defined inside pdl.rewrite", ref)
	}
	h.reached = true
	return &pattern.TypePattern{Slot: h.slot, Type: h.typ}, nil
}

// valueNode builds the matcher of an operand reference. Operations used as
// values stand for their first result.
func (c *compiler) valueNode(pos grammar.Position, ref string) (pattern.Node, error) {
	h, err := c.lookup(pos, ref, operandHandle, resultHandle, operationHandle)
	if err != nil {
		return nil, err
	}
	if h.rewrite {
		return nil, c.errorf(pos, "%s is defined inside pdl.rewrite", ref)
	}
	switch h.kind {
	case operandHandle:
		h.reached = true
		vp := &pattern.ValuePattern{Slot: h.slot}
		if t := h.stmt.Operand.Type; t != "" {
			tp, err := c.typePattern(h.pos, t)
			if err != nil {
				return nil, err
			}
			vp.Type = tp
		}
		return vp, nil
	case resultHandle:
		h.reached = true
		g := h.stmt.Result
		def, err := c.lookup(g.Pos, g.Op, operationHandle)
		if err != nil {
			return nil, err
		}
		op, err := c.opPattern(def.name)
		if err != nil {
			return nil, err
		}
		return &pattern.ResultPattern{Slot: h.slot, Op: op, Index: g.Index}, nil
	default:
		op, err := c.opPattern(h.name)
		if err != nil {
			return nil, err
		}
		if h.valueSlot < 0 {
			h.valueSlot = c.fresh()
		}
		return &pattern.ResultPattern{Slot: h.valueSlot, Op: op}, nil
	}
}

func (c *compiler) constrainOperand(pos grammar.Position, node pattern.Node, gt *grammar.Type) error {
	types, err := convertTypes([]*grammar.Type{gt})
	if err != nil {
		return err
	}
	t := types[0]
	if t == nil {
		return nil
	}
	vp, ok := node.(*pattern.ValuePattern)
	if !ok {
		return c.errorf(pos, "operand types can only constrain pdl.operand handles")
	}
	if vp.Type == nil {
		vp.Type = &pattern.TypePattern{Slot: c.fresh(), Type: t}
		return nil
	}
	if err := mergeType(vp.Type, t); err != nil {
		return c.errorf(pos, "%v", err)
	}
	return nil
}

func mergeType(tp *pattern.TypePattern, t ir.Type) error {
	if t == nil {
		return nil
	}
	if tp.Type != nil && !ir.TypesEqual(tp.Type, t) {
		return errors.Errorf("type %s conflicts with %s", t, tp.Type)
	}
	tp.Type = t
	return nil
}

// checkReachable rejects match operations the root does not lead to; they
// could never be bound.
func (c *compiler) checkReachable() error {
	for _, h := range c.match {
		if h.kind == operationHandle && !h.reached {
			return c.errorf(h.pos, "operation %s is not reachable from the rewrite root", h.name)
		}
	}
	return nil
}

// convertTypes converts inline types. Types of the pdl dialect, such as
// !pdl.value or !pdl.type, only annotate handles and convert to nil.
func convertTypes(gs []*grammar.Type) ([]ir.Type, error) {
	types := make([]ir.Type, len(gs))
	for i, g := range gs {
		t, err := asm.ConvertType(g)
		if err != nil {
			return nil, err
		}
		if o, ok := t.(*ir.OpaqueType); ok && o.Dialect == "pdl" {
			continue
		}
		types[i] = t
	}
	return types, nil
}
