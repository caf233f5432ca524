package dialect

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"irx/internal/ir"
)

// ErrDivisionByZero is returned when evaluating an integer division or
// remainder by zero.
var ErrDivisionByZero = errors.New("division by zero")

// EvalInteger computes a builtin integer binary operation on canonical
// (unsigned, truncated) operands of the given width. The result is
// truncated to width.
func EvalInteger(name string, lhs, rhs uint64, width int) (uint64, error) {
	v, err := evalUnsignedBinary(name, ir.Truncate(lhs, width), ir.Truncate(rhs, width))
	if err != nil {
		return 0, err
	}
	return ir.Truncate(v, width), nil
}

// EvalFloat computes a builtin floating point binary operation.
func EvalFloat(name string, lhs, rhs float64) (float64, error) {
	return evalFloatBinary(name, lhs, rhs)
}

// Evaluable reports whether EvalInteger or EvalFloat know the operation.
func Evaluable(name string) bool {
	switch name {
	case "arith.addi", "arith.subi", "arith.muli", "arith.divui", "arith.remui",
		"arith.addf", "arith.subf", "arith.mulf", "arith.divf":
		return true
	}
	return false
}

func evalUnsignedBinary[T constraints.Unsigned](name string, a, b T) (T, error) {
	switch name {
	case "arith.addi":
		return a + b, nil
	case "arith.subi":
		return a - b, nil
	case "arith.muli":
		return a * b, nil
	case "arith.divui":
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	case "arith.remui":
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a % b, nil
	}
	return 0, &NotFoundError{Dialect: "arith", Op: name}
}

func evalFloatBinary[T constraints.Float](name string, a, b T) (T, error) {
	switch name {
	case "arith.addf":
		return a + b, nil
	case "arith.subf":
		return a - b, nil
	case "arith.mulf":
		return a * b, nil
	case "arith.divf":
		return a / b, nil
	}
	return 0, &NotFoundError{Dialect: "arith", Op: name}
}
