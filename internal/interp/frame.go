package interp

import (
	"github.com/pkg/errors"

	"irx/internal/ir"
)

type frame struct {
	itp      *Interpreter
	function *ir.Operation
	depth    int

	vars map[ir.Value]ir.Attribute
}

func (itp *Interpreter) newFunctionFrame(fn *ir.Operation, depth int) *frame {
	return &frame{
		itp:      itp,
		function: fn,
		depth:    depth,
		vars:     make(map[ir.Value]ir.Attribute),
	}
}

func (fr *frame) define(v ir.Value, value ir.Attribute) {
	fr.vars[v] = value
}

func (fr *frame) find(v ir.Value) (ir.Attribute, error) {
	if value, ok := fr.vars[v]; ok {
		return value, nil
	}
	return nil, errors.Errorf("%s: value %s has not been computed", fr.function.Loc, v)
}

func (fr *frame) operands(op *ir.Operation) ([]ir.Attribute, error) {
	values := make([]ir.Attribute, op.NumOperands())
	for i, v := range op.Operands() {
		value, err := fr.find(v)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

// run executes a block until its func.return.
func (fr *frame) run(blk *ir.Block) ([]ir.Attribute, error) {
	for _, op := range fr.itp.m.Ops(blk) {
		if op.Name == "func.return" {
			return fr.operands(op)
		}
		if err := fr.evalOp(op); err != nil {
			return nil, err
		}
	}
	return nil, errors.Errorf("%s: function body does not end with func.return", fr.function.Loc)
}
