package dialect

import (
	"irx/internal/ir"
)

// BuiltinVersion is the version of the dialects shipped with the engine.
const BuiltinVersion = "v1.0.0"

// Builtins returns fresh definitions of the arith and func dialects.
func Builtins() []*Dialect {
	return []*Dialect{Arith(), Func()}
}

// RegisterBuiltins registers arith and func into r.
func RegisterBuiltins(r *Registry) error {
	for _, d := range Builtins() {
		if err := r.RegisterDialect(d); err != nil {
			return err
		}
	}
	return nil
}

// NewBuiltinRegistry returns a registry holding the builtin dialects.
func NewBuiltinRegistry() *Registry {
	return NewRegistry().MustRegister(Builtins()...)
}

func intBinary(summary string, traits ...Trait) *OperationConstraint {
	return &OperationConstraint{
		Summary:  summary,
		Operands: []ArgConstraint{Arg("lhs", BaseInteger()), Arg("rhs", BaseInteger())},
		Results:  []ArgConstraint{Arg("result", BaseInteger())},
		Traits:   append([]Trait{Pure, SameOperandsAndResultType}, traits...),
	}
}

func floatBinary(summary string, traits ...Trait) *OperationConstraint {
	return &OperationConstraint{
		Summary:  summary,
		Operands: []ArgConstraint{Arg("lhs", BaseFloat()), Arg("rhs", BaseFloat())},
		Results:  []ArgConstraint{Arg("result", BaseFloat())},
		Traits:   append([]Trait{Pure, SameOperandsAndResultType}, traits...),
	}
}

// Arith is the integer and float arithmetic dialect. Integer operations
// wrap around at the type width; division is unsigned.
func Arith() *Dialect {
	numeric := AnyOf(BaseInteger(), BaseFloat())
	d := New("arith")
	d.Version = BuiltinVersion
	return d.
		MustAddOperation("constant", &OperationConstraint{
			Summary:    "integer or float constant",
			Results:    []ArgConstraint{Arg("result", numeric)},
			Attributes: []AttrConstraint{{Name: "value", Predicate: numeric}},
			Traits:     []Trait{Pure, ConstantLike},
		}).
		MustAddOperation("addi", intBinary("integer addition", Commutative)).
		MustAddOperation("subi", intBinary("integer subtraction")).
		MustAddOperation("muli", intBinary("integer multiplication", Commutative)).
		MustAddOperation("divui", intBinary("unsigned integer division")).
		MustAddOperation("remui", intBinary("unsigned integer remainder")).
		MustAddOperation("addf", floatBinary("float addition", Commutative)).
		MustAddOperation("subf", floatBinary("float subtraction")).
		MustAddOperation("mulf", floatBinary("float multiplication", Commutative)).
		MustAddOperation("divf", floatBinary("float division"))
}

// Func is the function dialect: definitions, calls and returns.
func Func() *Dialect {
	d := New("func")
	d.Version = BuiltinVersion
	return d.
		MustAddOperation("func", &OperationConstraint{
			Summary: "function definition",
			Attributes: []AttrConstraint{
				{Name: "sym_name"},
				{Name: "function_type", Predicate: functionType{}},
			},
		}).
		MustAddOperation("return", &OperationConstraint{
			Summary:  "return from the enclosing function",
			Operands: []ArgConstraint{VariadicArg("operands", Any())},
			Traits:   []Trait{Terminator},
		}).
		MustAddOperation("call", &OperationConstraint{
			Summary:    "call a function by symbol",
			Operands:   []ArgConstraint{VariadicArg("operands", Any())},
			Results:    []ArgConstraint{VariadicArg("results", Any())},
			Attributes: []AttrConstraint{{Name: "callee"}},
		})
}

type functionType struct{}

func (functionType) Satisfied(t ir.Type) bool {
	_, ok := t.(*ir.FunctionType)
	return ok
}

func (functionType) String() string { return "function" }
