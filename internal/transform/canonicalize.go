package transform

import (
	"github.com/pkg/errors"
	"github.com/tliron/commonlog"

	"irx/internal/dialect"
	"irx/internal/ir"
	"irx/internal/pattern"
)

var log = commonlog.GetLogger("irx.transform")

// Canonicalize simplifies m to a fixpoint with CanonicalizationPatterns.
// Running it again on its output changes nothing.
func Canonicalize(m *ir.Module, reg *dialect.Registry, cfg pattern.Config) (*pattern.Report, error) {
	report, err := pattern.ApplyGreedily(m, CanonicalizationPatterns(reg), cfg)
	if report != nil {
		log.Infof("canonicalize: %d rewrites in %d iterations", report.Rewrites, report.Iterations)
	}
	return report, err
}

// CanonicalizationPatterns returns the builtin simplifications:
//
//   - fold_constant: binary arith operations on constants become a constant
//   - fold_identity: x+0, 0+x, x-0, x*1, 1*x and x/1 become x
//   - constant_to_rhs: commutative operations take their constant operand
//     on the right
//   - erase_unused_pure: pure operations without uses are erased
//
// Purity and commutativity come from the definitions in reg, so
// unregistered operations are never touched.
func CanonicalizationPatterns(reg *dialect.Registry) *pattern.Set {
	c := &canonicalizer{reg: reg}
	return pattern.NewSet(
		pattern.Func("fold_constant", 3, "", c.foldConstant),
		pattern.Func("fold_identity", 2, "", c.foldIdentity),
		pattern.Func("constant_to_rhs", 1, "", c.constantToRHS),
		pattern.Func("erase_unused_pure", 0, "", c.eraseUnusedPure),
	)
}

type canonicalizer struct {
	reg *dialect.Registry
}

func (c *canonicalizer) constraint(op *ir.Operation) *dialect.OperationConstraint {
	if c.reg == nil {
		return nil
	}
	oc, err := c.reg.Lookup(op.Name)
	if err != nil {
		return nil
	}
	return oc
}

// constantValue returns the value attribute of a constant-like defining
// operation of v.
func (c *canonicalizer) constantValue(m *ir.Module, v ir.Value) ir.Attribute {
	def := m.DefiningOp(v)
	if def == nil {
		return nil
	}
	oc := c.constraint(def)
	if oc == nil || !oc.HasTrait(dialect.ConstantLike) {
		return nil
	}
	return def.Attr("value")
}

func (c *canonicalizer) binary(op *ir.Operation) bool {
	return op.NumOperands() == 2 && op.NumResults() == 1 && c.constraint(op) != nil
}

func (c *canonicalizer) foldConstant(rw *pattern.Rewriter, op *ir.Operation) (bool, error) {
	if !dialect.Evaluable(op.Name) || !c.binary(op) {
		return false, nil
	}
	m := rw.Module()
	lhs, rhs := c.constantValue(m, op.Operand(0)), c.constantValue(m, op.Operand(1))
	if lhs == nil || rhs == nil {
		return false, nil
	}

	var folded ir.Attribute
	switch t := op.ResultTypes()[0].(type) {
	case *ir.IntegerType:
		a, aok := lhs.(*ir.IntegerAttr)
		b, bok := rhs.(*ir.IntegerAttr)
		if !aok || !bok {
			return false, nil
		}
		v, err := dialect.EvalInteger(op.Name, a.Value, b.Value, t.Width)
		if errors.Is(err, dialect.ErrDivisionByZero) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		folded = &ir.IntegerAttr{Value: v, Type: t}
	case *ir.FloatType:
		a, aok := lhs.(*ir.FloatAttr)
		b, bok := rhs.(*ir.FloatAttr)
		if !aok || !bok {
			return false, nil
		}
		v, err := dialect.EvalFloat(op.Name, a.Value, b.Value)
		if err != nil {
			return false, err
		}
		folded = &ir.FloatAttr{Value: v, Type: t}
	default:
		return false, nil
	}

	constant, err := rw.Create("arith.constant", nil, op.ResultTypes(), map[string]ir.Attribute{"value": folded})
	if err != nil {
		return false, err
	}
	rw.ReplaceOpWithOp(op, constant)
	return true, nil
}

func isInteger(a ir.Attribute, v uint64) bool {
	i, ok := a.(*ir.IntegerAttr)
	return ok && i.Value == v
}

func (c *canonicalizer) foldIdentity(rw *pattern.Rewriter, op *ir.Operation) (bool, error) {
	if !c.binary(op) {
		return false, nil
	}
	m := rw.Module()
	lhs, rhs := c.constantValue(m, op.Operand(0)), c.constantValue(m, op.Operand(1))

	keep := -1
	switch op.Name {
	case "arith.addi":
		switch {
		case isInteger(rhs, 0):
			keep = 0
		case isInteger(lhs, 0):
			keep = 1
		}
	case "arith.muli":
		switch {
		case isInteger(rhs, 1):
			keep = 0
		case isInteger(lhs, 1):
			keep = 1
		}
	case "arith.subi":
		if isInteger(rhs, 0) {
			keep = 0
		}
	case "arith.divui":
		if isInteger(rhs, 1) {
			keep = 0
		}
	}
	if keep < 0 {
		return false, nil
	}
	v := op.Operand(keep)
	if !ir.TypesEqual(m.TypeOf(v), op.ResultTypes()[0]) {
		return false, nil
	}
	rw.ReplaceOp(op, v)
	return true, nil
}

func (c *canonicalizer) constantToRHS(rw *pattern.Rewriter, op *ir.Operation) (bool, error) {
	if !c.binary(op) || !c.constraint(op).HasTrait(dialect.Commutative) {
		return false, nil
	}
	m := rw.Module()
	if c.constantValue(m, op.Operand(0)) == nil || c.constantValue(m, op.Operand(1)) != nil {
		return false, nil
	}
	swapped, err := rw.Create(op.Name, []ir.Value{op.Operand(1), op.Operand(0)}, op.ResultTypes(), op.Attributes)
	if err != nil {
		return false, err
	}
	rw.ReplaceOpWithOp(op, swapped)
	return true, nil
}

func (c *canonicalizer) eraseUnusedPure(rw *pattern.Rewriter, op *ir.Operation) (bool, error) {
	oc := c.constraint(op)
	if oc == nil || !(oc.HasTrait(dialect.Pure) || oc.HasTrait(dialect.ConstantLike)) {
		return false, nil
	}
	if op.NumResults() == 0 || len(op.Regions()) > 0 || rw.Module().HasUses(op) {
		return false, nil
	}
	rw.EraseOp(op)
	return true, nil
}
