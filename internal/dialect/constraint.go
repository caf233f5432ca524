package dialect

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"irx/internal/ir"
)

// Predicate decides whether a type is acceptable at a use position.
type Predicate interface {
	Satisfied(t ir.Type) bool
	String() string
}

type isPredicate struct{ t ir.Type }

func (p isPredicate) Satisfied(t ir.Type) bool { return ir.TypesEqual(p.t, t) }
func (p isPredicate) String() string           { return p.t.String() }

type anyOfPredicate struct{ options []Predicate }

func (p anyOfPredicate) Satisfied(t ir.Type) bool {
	for _, o := range p.options {
		if o.Satisfied(t) {
			return true
		}
	}
	return false
}

func (p anyOfPredicate) String() string {
	parts := make([]string, len(p.options))
	for i, o := range p.options {
		parts[i] = o.String()
	}
	return "any_of(" + strings.Join(parts, ", ") + ")"
}

type anyPredicate struct{}

func (anyPredicate) Satisfied(t ir.Type) bool { return t != nil }
func (anyPredicate) String() string           { return "any" }

type basePredicate struct {
	name  string
	match func(ir.Type) bool
}

func (p basePredicate) Satisfied(t ir.Type) bool { return t != nil && p.match(t) }
func (p basePredicate) String() string           { return p.name }

// Is accepts exactly t.
func Is(t ir.Type) Predicate { return isPredicate{t: t} }

// AnyOf accepts a type satisfying any of the given predicates.
func AnyOf(options ...Predicate) Predicate { return anyOfPredicate{options: options} }

// Any accepts every type.
func Any() Predicate { return anyPredicate{} }

// BaseInteger accepts integers of any width.
func BaseInteger() Predicate {
	return basePredicate{name: "integer", match: func(t ir.Type) bool {
		_, ok := t.(*ir.IntegerType)
		return ok
	}}
}

// BaseFloat accepts f64.
func BaseFloat() Predicate {
	return basePredicate{name: "float", match: func(t ir.Type) bool {
		_, ok := t.(*ir.FloatType)
		return ok
	}}
}

// BaseOpaque accepts the dialect type !dialect.name.
func BaseOpaque(dialect, name string) Predicate {
	return Is(ir.Opaque(dialect, name))
}

// IsTypes is a shorthand for AnyOf over Is predicates.
func IsTypes(types ...ir.Type) Predicate {
	options := make([]Predicate, len(types))
	for i, t := range types {
		options[i] = Is(t)
	}
	return AnyOf(options...)
}

// Variadicity tells how many values a constraint position accepts.
type Variadicity uint8

const (
	Single   Variadicity = iota // exactly one
	Optional                    // zero or one
	Variadic                    // zero or more
)

func (v Variadicity) String() string {
	switch v {
	case Optional:
		return "optional"
	case Variadic:
		return "variadic"
	default:
		return "single"
	}
}

// ParseVariadicity maps the textual marker to a Variadicity; the empty
// string means single.
func ParseVariadicity(s string) (Variadicity, error) {
	switch s {
	case "", "single":
		return Single, nil
	case "optional":
		return Optional, nil
	case "variadic":
		return Variadic, nil
	}
	return Single, errors.Errorf("unknown variadicity %q", s)
}

// ArgConstraint constrains one operand or result segment.
type ArgConstraint struct {
	Name        string      // Segment name (e.g., "lhs")
	Predicate   Predicate   // Shared by every value of the segment
	Variadicity Variadicity // single, optional or variadic
}

// AttrConstraint constrains a named attribute.
type AttrConstraint struct {
	Name      string    // Attribute name (e.g., "value")
	Predicate Predicate // Type carried by the attribute; nil accepts any attribute
	Optional  bool      // Whether the attribute may be absent
}

// Trait names a property of an operation used by the verifier and the
// canonicalizer.
type Trait string

const (
	Pure                      Trait = "pure"
	SameOperandsAndResultType Trait = "same_operands_and_result_type"
	ConstantLike              Trait = "constant_like"
	Terminator                Trait = "terminator"
	Commutative               Trait = "commutative"
)

// Valid reports whether t is one of the known traits.
func (t Trait) Valid() bool {
	switch t {
	case Pure, SameOperandsAndResultType, ConstantLike, Terminator, Commutative:
		return true
	}
	return false
}

// OperandSegmentSizes is the attribute listing the size of each operand
// segment when more than one segment is optional or variadic.
const OperandSegmentSizes = "operand_segment_sizes"

// ResultSegmentSizes is the result counterpart of OperandSegmentSizes.
const ResultSegmentSizes = "result_segment_sizes"

// OperationConstraint describes the structure an operation must have.
type OperationConstraint struct {
	Name       string           // Qualified name (e.g., "felt.add")
	Summary    string           // One-line description
	Operands   []ArgConstraint  // Ordered operand segments
	Results    []ArgConstraint  // Ordered result segments
	Attributes []AttrConstraint // Named attributes
	Traits     []Trait          // Properties of the operation
}

// HasTrait reports whether the operation carries trait t.
func (c *OperationConstraint) HasTrait(t Trait) bool {
	for _, have := range c.Traits {
		if have == t {
			return true
		}
	}
	return false
}

// Signature renders the constraint as name(lhs: i32, rhs: i32) -> (res: i32).
func (c *OperationConstraint) Signature() string {
	return fmt.Sprintf("%s(%s) -> (%s)", c.Name, formatArgs(c.Operands), formatArgs(c.Results))
}

func formatArgs(args []ArgConstraint) string {
	parts := make([]string, len(args))
	for i, a := range args {
		prefix := ""
		if a.Variadicity != Single {
			prefix = a.Variadicity.String() + " "
		}
		parts[i] = fmt.Sprintf("%s: %s%s", a.Name, prefix, a.Predicate)
	}
	return strings.Join(parts, ", ")
}

// Helper functions for creating constraints
func Arg(name string, p Predicate) ArgConstraint {
	return ArgConstraint{Name: name, Predicate: p, Variadicity: Single}
}

func OptionalArg(name string, p Predicate) ArgConstraint {
	return ArgConstraint{Name: name, Predicate: p, Variadicity: Optional}
}

func VariadicArg(name string, p Predicate) ArgConstraint {
	return ArgConstraint{Name: name, Predicate: p, Variadicity: Variadic}
}
