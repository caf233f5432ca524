package pdl

import (
	"irx/grammar"
	"irx/internal/pattern"
)

// rewrite compiles the statements of pdl.rewrite into template steps, in
// order. Constant types and attributes declared in the match section but
// not bound by the matcher are materialized when first used.
func (c *compiler) rewrite(g *grammar.PDLRewrite) ([]pattern.Step, error) {
	mutates := false
	for _, st := range g.Statements {
		switch {
		case st.Replace != nil:
			if err := c.replace(st); err != nil {
				return nil, err
			}
			mutates = true
		case st.Erase != nil:
			if st.Name != "" {
				return nil, c.errorf(st.Pos, "pdl.erase does not define a value")
			}
			op, err := c.use(st.Erase.Pos, st.Erase.Op, operationHandle)
			if err != nil {
				return nil, err
			}
			c.steps = append(c.steps, &pattern.Erase{Op: op.slot})
			mutates = true
		default:
			if err := c.build(st); err != nil {
				return nil, err
			}
		}
	}
	if !mutates {
		return nil, c.errorf(g.Pos, "pdl.rewrite must replace or erase an operation")
	}
	return c.steps, nil
}

func (c *compiler) build(st *grammar.PDLStatement) error {
	h, err := c.define(st, true)
	if err != nil {
		return err
	}
	h.reached = true
	switch h.kind {
	case typeHandle:
		if h.typ == nil {
			return c.errorf(st.Pos, "pdl.type inside pdl.rewrite needs a concrete type")
		}
		c.steps = append(c.steps, &pattern.BuildType{Slot: h.slot, Type: h.typ})
	case attributeHandle:
		if h.attr == nil {
			return c.errorf(st.Pos, "pdl.attribute inside pdl.rewrite needs a value")
		}
		c.steps = append(c.steps, &pattern.BuildAttribute{Slot: h.slot, Value: h.attr})
	case operandHandle:
		return c.errorf(st.Pos, "pdl.operand is only valid in the match section")
	case resultHandle:
		op, err := c.use(st.Result.Pos, st.Result.Op, operationHandle)
		if err != nil {
			return err
		}
		c.steps = append(c.steps, &pattern.BuildResult{Slot: h.slot, Op: op.slot, Index: st.Result.Index})
	case operationHandle:
		return c.buildOperation(h, st.Operation)
	}
	return nil
}

func (c *compiler) buildOperation(h *handle, g *grammar.PDLOperation) error {
	if g.OpName == "" {
		return c.errorf(g.Pos, "operations created by a rewrite need a name")
	}
	operandTypes, err := convertTypes(g.OperandTypes)
	if err != nil {
		return err
	}
	for _, t := range operandTypes {
		if t != nil {
			return c.errorf(g.Pos, "operand types of created operations follow from their operands")
		}
	}
	resultTypes, err := convertTypes(g.ResultTypes)
	if err != nil {
		return err
	}
	if len(g.Results) > 0 {
		if len(resultTypes) > 0 && len(resultTypes) != len(g.Results) {
			return c.errorf(g.Pos, "%d result handles but %d result types", len(g.Results), len(resultTypes))
		}
		for _, t := range resultTypes {
			if t != nil {
				return c.errorf(g.Pos, "give either result type handles or result types")
			}
		}
		resultTypes = nil
	}
	step := &pattern.BuildOperation{Slot: h.slot, Name: g.OpName}
	for _, ref := range g.Operands {
		v, err := c.use(g.Pos, ref, operandHandle, resultHandle, operationHandle)
		if err != nil {
			return err
		}
		step.Operands = append(step.Operands, v.slot)
	}
	for _, binding := range g.Attributes {
		if step.Attributes == nil {
			step.Attributes = make(map[string]int)
		}
		if _, ok := step.Attributes[binding.Name]; ok {
			return c.errorf(binding.Pos, "attribute %q is set twice", binding.Name)
		}
		a, err := c.use(binding.Pos, binding.Handle, attributeHandle)
		if err != nil {
			return err
		}
		step.Attributes[binding.Name] = a.slot
	}
	for _, ref := range g.Results {
		t, err := c.use(g.Pos, ref, typeHandle)
		if err != nil {
			return err
		}
		step.ResultTypes = append(step.ResultTypes, t.slot)
	}
	for _, t := range resultTypes {
		if t == nil {
			return c.errorf(g.Pos, "created operations need concrete result types")
		}
		slot := c.fresh()
		c.steps = append(c.steps, &pattern.BuildType{Slot: slot, Type: t})
		step.ResultTypes = append(step.ResultTypes, slot)
	}
	c.steps = append(c.steps, step)
	return nil
}

func (c *compiler) replace(st *grammar.PDLStatement) error {
	g := st.Replace
	if st.Name != "" {
		return c.errorf(st.Pos, "pdl.replace does not define a value")
	}
	op, err := c.use(g.Pos, g.Op, operationHandle)
	if err != nil {
		return err
	}
	step := &pattern.Replace{Op: op.slot}
	if g.With != "" {
		with, err := c.use(g.Pos, g.With, operationHandle, operandHandle, resultHandle)
		if err != nil {
			return err
		}
		step.With = []int{with.slot}
	} else {
		for _, ref := range g.Values {
			v, err := c.use(g.Pos, ref, operandHandle, resultHandle, operationHandle)
			if err != nil {
				return err
			}
			step.With = append(step.With, v.slot)
		}
	}
	c.steps = append(c.steps, step)
	return nil
}

// use resolves a handle referenced by the rewrite. Handles of the match
// section must be bound by the matcher, except constant types and
// attributes.
func (c *compiler) use(pos grammar.Position, ref string, kinds ...handleKind) (*handle, error) {
	h, err := c.lookup(pos, ref, kinds...)
	if err != nil {
		return nil, err
	}
	if h.reached {
		return h, nil
	}
	switch {
	case h.kind == typeHandle && h.typ != nil:
		c.steps = append(c.steps, &pattern.BuildType{Slot: h.slot, Type: h.typ})
	case h.kind == attributeHandle && h.attr != nil:
		c.steps = append(c.steps, &pattern.BuildAttribute{Slot: h.slot, Value: h.attr})
	default:
		return nil, c.errorf(pos, "%s is not bound by the match", ref)
	}
	h.reached = true
	return h, nil
}
