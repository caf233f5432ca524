// Package interp evaluates functions of a module.
//
// Values in the interpreter are attributes: integers are *ir.IntegerAttr
// and floats *ir.FloatAttr, the same representation arith.constant uses.
// Only builtin operations with known semantics (arith.constant, the arith
// binary operations, func.call and func.return) can be evaluated; modules
// using other dialects must be lowered first.
package interp

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"

	"irx/internal/dialect"
	"irx/internal/ir"
)

var log = commonlog.GetLogger("irx.interp")

// MaxCallDepth bounds recursive func.call chains.
const MaxCallDepth = 256

// Interpreter runs the func.func operations of a module.
type Interpreter struct {
	m     *ir.Module
	funcs map[string]*ir.Operation
	names []string
}

// New indexes the functions defined at the top level of m.
func New(m *ir.Module) (*Interpreter, error) {
	itp := &Interpreter{m: m, funcs: make(map[string]*ir.Operation)}
	for _, op := range m.Ops(m.Body()) {
		if op.Name != "func.func" {
			continue
		}
		name, err := symbolName(op)
		if err != nil {
			return nil, err
		}
		if _, dup := itp.funcs[name]; dup {
			return nil, errors.Errorf("%s: function @%s is defined twice", op.Loc, name)
		}
		itp.funcs[name] = op
		itp.names = append(itp.names, name)
	}
	return itp, nil
}

func symbolName(op *ir.Operation) (string, error) {
	switch a := op.Attr("sym_name").(type) {
	case *ir.StringAttr:
		return a.Value, nil
	case *ir.SymbolRefAttr:
		return a.Name, nil
	}
	return "", errors.Errorf("%s: func.func without a sym_name", op.Loc)
}

// Functions lists the defined functions in module order.
func (itp *Interpreter) Functions() []string {
	return append([]string(nil), itp.names...)
}

// Signature returns the function type of a function.
func (itp *Interpreter) Signature(name string) (*ir.FunctionType, error) {
	fn, err := itp.function(name)
	if err != nil {
		return nil, err
	}
	if ft, ok := fn.Attr("function_type").(*ir.TypeAttr); ok {
		if t, ok := ft.Type.(*ir.FunctionType); ok {
			return t, nil
		}
	}
	entry := fn.Regions()[0].Entry()
	return ir.Function(entry.ArgTypes(), nil), nil
}

func (itp *Interpreter) function(name string) (*ir.Operation, error) {
	fn, ok := itp.funcs[strings.TrimPrefix(name, "@")]
	if !ok {
		return nil, errors.Errorf("function @%s is not defined", strings.TrimPrefix(name, "@"))
	}
	if len(fn.Regions()) != 1 || fn.Regions()[0].Entry() == nil {
		return nil, errors.Errorf("%s: function @%s has no body", fn.Loc, name)
	}
	return fn, nil
}

// Call evaluates a function with the given arguments and returns the
// operands of its func.return.
func (itp *Interpreter) Call(name string, args ...ir.Attribute) ([]ir.Attribute, error) {
	return itp.call(name, args, 0)
}

func (itp *Interpreter) call(name string, args []ir.Attribute, depth int) ([]ir.Attribute, error) {
	if depth >= MaxCallDepth {
		return nil, errors.Errorf("call to @%s exceeds the maximum call depth of %d", name, MaxCallDepth)
	}
	fn, err := itp.function(name)
	if err != nil {
		return nil, err
	}
	log.Debugf("call @%s%v", name, args)
	fr := itp.newFunctionFrame(fn, depth)
	body := fn.Regions()[0]
	if len(body.Blocks()) > 1 {
		return nil, errors.Errorf("%s: @%s: control flow between blocks is not supported", fn.Loc, name)
	}
	entry := body.Entry()
	if len(args) != entry.NumArguments() {
		return nil, errors.Errorf("@%s takes %d arguments, got %d", name, entry.NumArguments(), len(args))
	}
	for i, arg := range args {
		want := entry.ArgTypes()[i]
		if got := ir.AttributeType(arg); !ir.TypesEqual(got, want) {
			return nil, errors.Errorf("argument #%d of @%s is %s, want %s", i, name, got, want)
		}
		fr.define(entry.Argument(i), arg)
	}
	return fr.run(entry)
}

// ParseArguments converts textual arguments to values of the parameter
// types of a function. Integers may be negative and are stored truncated.
func (itp *Interpreter) ParseArguments(name string, raw []string) ([]ir.Attribute, error) {
	sig, err := itp.Signature(name)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(sig.Inputs) {
		return nil, errors.Errorf("@%s takes %d arguments, got %d", strings.TrimPrefix(name, "@"), len(sig.Inputs), len(raw))
	}
	args := make([]ir.Attribute, len(raw))
	for i, s := range raw {
		switch t := sig.Inputs[i].(type) {
		case *ir.IntegerType:
			v, err := strconv.ParseInt(s, 0, 64)
			if err != nil {
				u, uerr := strconv.ParseUint(s, 0, 64)
				if uerr != nil {
					return nil, errors.Wrapf(err, "argument #%d", i)
				}
				args[i] = &ir.IntegerAttr{Value: ir.Truncate(u, t.Width), Type: t}
				continue
			}
			args[i] = ir.NewIntegerAttr(v, t)
		case *ir.FloatType:
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "argument #%d", i)
			}
			args[i] = &ir.FloatAttr{Value: v, Type: t}
		default:
			return nil, errors.Errorf("argument #%d has type %s, which cannot be given on the command line", i, t)
		}
	}
	return args, nil
}

// evalOp executes a non-terminator operation and binds its results.
func (fr *frame) evalOp(op *ir.Operation) error {
	switch {
	case op.Name == "arith.constant":
		v := op.Attr("value")
		if v == nil {
			return errors.Errorf("%s: arith.constant without a value", op.Loc)
		}
		fr.define(op.Result(0), v)
		return nil
	case op.Name == "func.call":
		return fr.evalCall(op)
	case dialect.Evaluable(op.Name):
		return fr.evalBinary(op)
	}
	return errors.Errorf("%s: no semantics for operation %s", op.Loc, op.Name)
}

func (fr *frame) evalBinary(op *ir.Operation) error {
	if op.NumOperands() != 2 || op.NumResults() != 1 {
		return errors.Errorf("%s: %s takes two operands and one result", op.Loc, op.Name)
	}
	lhs, err := fr.find(op.Operand(0))
	if err != nil {
		return err
	}
	rhs, err := fr.find(op.Operand(1))
	if err != nil {
		return err
	}
	var result ir.Attribute
	switch t := op.ResultTypes()[0].(type) {
	case *ir.IntegerType:
		a, aok := lhs.(*ir.IntegerAttr)
		b, bok := rhs.(*ir.IntegerAttr)
		if !aok || !bok {
			return errors.Errorf("%s: %s needs integer operands", op.Loc, op.Name)
		}
		v, err := dialect.EvalInteger(op.Name, a.Value, b.Value, t.Width)
		if err != nil {
			return errors.Wrapf(err, "%s: %s", op.Loc, op.Name)
		}
		result = &ir.IntegerAttr{Value: v, Type: t}
	case *ir.FloatType:
		a, aok := lhs.(*ir.FloatAttr)
		b, bok := rhs.(*ir.FloatAttr)
		if !aok || !bok {
			return errors.Errorf("%s: %s needs float operands", op.Loc, op.Name)
		}
		v, err := dialect.EvalFloat(op.Name, a.Value, b.Value)
		if err != nil {
			return errors.Wrapf(err, "%s: %s", op.Loc, op.Name)
		}
		result = &ir.FloatAttr{Value: v, Type: t}
	default:
		return errors.Errorf("%s: %s cannot produce %s", op.Loc, op.Name, t)
	}
	fr.define(op.Result(0), result)
	return nil
}

func (fr *frame) evalCall(op *ir.Operation) error {
	callee, ok := op.Attr("callee").(*ir.SymbolRefAttr)
	if !ok {
		return errors.Errorf("%s: func.call without a callee symbol", op.Loc)
	}
	args, err := fr.operands(op)
	if err != nil {
		return err
	}
	results, err := fr.itp.call(callee.Name, args, fr.depth+1)
	if err != nil {
		return errors.Wrapf(err, "%s: call @%s", op.Loc, callee.Name)
	}
	if len(results) != op.NumResults() {
		return errors.Errorf("%s: @%s returned %d values, the call expects %d", op.Loc, callee.Name, len(results), op.NumResults())
	}
	for i, r := range results {
		fr.define(op.Result(i), r)
	}
	return nil
}
