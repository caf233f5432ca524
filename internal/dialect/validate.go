package dialect

import (
	"fmt"

	"irx/internal/ir"
)

// Validate checks op against its registered definition and returns the
// first violation, a *NotFoundError for unregistered operations, or nil.
func (r *Registry) Validate(m *ir.Module, op *ir.Operation) error {
	violations, err := r.ValidateAll(m, op)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return violations[0]
	}
	return nil
}

// ValidateAll returns every violation of op. The error is non-nil only
// when op has no registered definition.
func (r *Registry) ValidateAll(m *ir.Module, op *ir.Operation) ([]*ConstraintViolation, error) {
	c, err := r.Lookup(op.Name)
	if err != nil {
		return nil, err
	}
	v := &validator{r: r, m: m, op: op, c: c}
	v.check()
	return v.violations, nil
}

type validator struct {
	r          *Registry
	m          *ir.Module
	op         *ir.Operation
	c          *OperationConstraint
	violations []*ConstraintViolation
}

func (v *validator) fail(position, format string, args ...any) {
	v.violations = append(v.violations, &ConstraintViolation{
		Op:       v.op.Name,
		OpID:     v.op.ID,
		Loc:      v.op.Loc,
		Position: position,
		Reason:   fmt.Sprintf(format, args...),
	})
}

func (v *validator) check() {
	operandTypes := make([]ir.Type, v.op.NumOperands())
	for i, operand := range v.op.Operands() {
		operandTypes[i] = v.m.TypeOf(operand)
	}
	v.checkValues("operand", operandTypes, v.c.Operands, OperandSegmentSizes)
	v.checkValues("result", v.op.ResultTypes(), v.c.Results, ResultSegmentSizes)
	v.checkAttributes()
	v.checkTraits(operandTypes)
}

// checkValues checks arity against the variadicity markers, then every
// value against the predicate of its segment.
func (v *validator) checkValues(kind string, types []ir.Type, args []ArgConstraint, sizesAttr string) {
	sizes, ok := v.segmentSizes(kind, len(types), args, sizesAttr)
	if !ok {
		return
	}
	idx := 0
	for s, arg := range args {
		for j := 0; j < sizes[s]; j++ {
			t := types[idx]
			position := fmt.Sprintf("%s #%d (%s)", kind, idx, arg.Name)
			switch {
			case t == nil:
				v.fail(position, "value does not resolve")
			case !arg.Predicate.Satisfied(t):
				v.fail(position, "type %s does not satisfy %s", t, arg.Predicate)
			default:
				if err := v.r.CheckType(t); err != nil {
					v.fail(position, "%v", err)
				}
			}
			idx++
		}
	}
}

func (v *validator) segmentSizes(kind string, n int, args []ArgConstraint, sizesAttr string) ([]int, bool) {
	sizes := make([]int, len(args))
	flexible := -1
	numFlexible := 0
	for i, arg := range args {
		if arg.Variadicity == Single {
			sizes[i] = 1
			continue
		}
		flexible = i
		numFlexible++
	}

	switch numFlexible {
	case 0:
		if n != len(args) {
			v.arity(kind, n, len(args), args, sizes)
			return nil, false
		}
	case 1:
		fixed := len(args) - 1
		if n < fixed {
			v.arity(kind, n, fixed, args, sizes)
			return nil, false
		}
		sizes[flexible] = n - fixed
		if args[flexible].Variadicity == Optional && sizes[flexible] > 1 {
			v.fail(fmt.Sprintf("%s #%d (%s)", kind, segmentStart(sizes, flexible)+1, args[flexible].Name),
				"optional segment %s accepts at most one value, got %d", args[flexible].Name, sizes[flexible])
			return nil, false
		}
	default:
		return v.explicitSizes(kind, n, args, sizesAttr)
	}
	return sizes, true
}

// explicitSizes reads segment sizes from the sizes attribute, required
// when more than one segment is optional or variadic.
func (v *validator) explicitSizes(kind string, n int, args []ArgConstraint, sizesAttr string) ([]int, bool) {
	position := fmt.Sprintf("attribute %q", sizesAttr)
	arr, ok := v.op.Attr(sizesAttr).(*ir.ArrayAttr)
	if !ok {
		v.fail(position, "required: more than one %s segment is optional or variadic", kind)
		return nil, false
	}
	if len(arr.Elements) != len(args) {
		v.fail(position, "lists %d segments, expected %d", len(arr.Elements), len(args))
		return nil, false
	}
	sizes := make([]int, len(args))
	total := 0
	for i, e := range arr.Elements {
		ia, ok := e.(*ir.IntegerAttr)
		if !ok {
			v.fail(position, "element #%d is not an integer", i)
			return nil, false
		}
		size := int(ia.Int64())
		switch {
		case size < 0:
			v.fail(position, "segment %s has negative size %d", args[i].Name, size)
			return nil, false
		case args[i].Variadicity == Single && size != 1:
			v.fail(position, "single segment %s has size %d", args[i].Name, size)
			return nil, false
		case args[i].Variadicity == Optional && size > 1:
			v.fail(position, "optional segment %s has size %d", args[i].Name, size)
			return nil, false
		}
		sizes[i] = size
		total += size
	}
	if total != n {
		v.fail(position, "segments add up to %d %ss, operation has %d", total, kind, n)
		return nil, false
	}
	return sizes, true
}

// arity reports a count mismatch at the first missing or extra position.
func (v *validator) arity(kind string, got, want int, args []ArgConstraint, sizes []int) {
	if got < want {
		name := ""
		idx := 0
		for s, arg := range args {
			if idx+sizes[s] > got {
				name = arg.Name
				break
			}
			idx += sizes[s]
		}
		v.fail(fmt.Sprintf("%s #%d (%s)", kind, got, name), "missing: expected %d %ss, got %d", want, kind, got)
		return
	}
	v.fail(fmt.Sprintf("%s #%d", kind, want), "unexpected: expected %d %ss, got %d", want, kind, got)
}

func segmentStart(sizes []int, segment int) int {
	start := 0
	for i := 0; i < segment; i++ {
		start += sizes[i]
	}
	return start
}

func (v *validator) checkAttributes() {
	for _, ac := range v.c.Attributes {
		position := fmt.Sprintf("attribute %q", ac.Name)
		a := v.op.Attr(ac.Name)
		if a == nil {
			if !ac.Optional {
				v.fail(position, "missing required attribute")
			}
			continue
		}
		if ac.Predicate == nil {
			continue
		}
		t := ir.AttributeType(a)
		if t == nil || !ac.Predicate.Satisfied(t) {
			v.fail(position, "attribute %s does not satisfy %s", a, ac.Predicate)
		}
	}
}

func (v *validator) checkTraits(operandTypes []ir.Type) {
	if v.c.HasTrait(SameOperandsAndResultType) {
		all := append(operandTypes, v.op.ResultTypes()...)
		for i := 1; i < len(all); i++ {
			if all[i] != nil && all[0] != nil && !ir.TypesEqual(all[0], all[i]) {
				v.fail("", "operands and results must have the same type, found %s and %s", all[0], all[i])
				break
			}
		}
	}
	if v.c.HasTrait(Terminator) {
		if b := v.m.BlockOf(v.op); b != nil {
			ids := b.OpIDs()
			if ids[len(ids)-1] != v.op.ID {
				v.fail("", "terminator must be the last operation of its block")
			}
		}
	}
	if v.c.HasTrait(ConstantLike) && v.op.NumOperands() != 0 {
		v.fail("", "constant-like operation takes no operands")
	}
}
