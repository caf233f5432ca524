package ir

import (
	"fmt"
	"strings"
)

// Type is a node of the closed type hierarchy. Types are compared
// structurally with TypesEqual; two equal types are interchangeable.
type Type interface {
	String() string
	isType()
}

// IntegerType is a signless integer of Width bits (i1, i32, i64, ...).
type IntegerType struct {
	Width int
}

// FloatType is the 64-bit IEEE float type (f64).
type FloatType struct{}

// PointerType is an opaque pointer (ptr).
type PointerType struct{}

// FunctionType maps a list of inputs to a list of results.
type FunctionType struct {
	Inputs  []Type
	Results []Type
}

// OpaqueType is a type defined by a dialect and identified by name only,
// printed as !dialect.name.
type OpaqueType struct {
	Dialect string
	Name    string
}

func (*IntegerType) isType()  {}
func (*FloatType) isType()    {}
func (*PointerType) isType()  {}
func (*FunctionType) isType() {}
func (*OpaqueType) isType()   {}

// Integer returns the integer type of the given width.
func Integer(width int) *IntegerType { return &IntegerType{Width: width} }

// F64 returns the float64 type.
func F64() *FloatType { return &FloatType{} }

// Ptr returns the pointer type.
func Ptr() *PointerType { return &PointerType{} }

// Function returns a function type.
func Function(inputs, results []Type) *FunctionType {
	return &FunctionType{Inputs: inputs, Results: results}
}

// Opaque returns the dialect type dialect.name.
func Opaque(dialect, name string) *OpaqueType {
	return &OpaqueType{Dialect: dialect, Name: name}
}

func (t *IntegerType) String() string { return fmt.Sprintf("i%d", t.Width) }
func (t *FloatType) String() string   { return "f64" }
func (t *PointerType) String() string { return "ptr" }
func (t *OpaqueType) String() string  { return fmt.Sprintf("!%s.%s", t.Dialect, t.Name) }

func (t *FunctionType) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	writeTypeList(&sb, t.Inputs)
	sb.WriteString(") -> ")
	if len(t.Results) == 1 {
		if _, isFunc := t.Results[0].(*FunctionType); !isFunc {
			sb.WriteString(t.Results[0].String())
			return sb.String()
		}
	}
	sb.WriteString("(")
	writeTypeList(&sb, t.Results)
	sb.WriteString(")")
	return sb.String()
}

func writeTypeList(sb *strings.Builder, types []Type) {
	for i, t := range types {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.String())
	}
}

// TypesEqual reports whether a and b denote the same type.
func TypesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch ta := a.(type) {
	case *IntegerType:
		tb, ok := b.(*IntegerType)
		return ok && ta.Width == tb.Width
	case *FloatType:
		_, ok := b.(*FloatType)
		return ok
	case *PointerType:
		_, ok := b.(*PointerType)
		return ok
	case *FunctionType:
		tb, ok := b.(*FunctionType)
		return ok && TypeListsEqual(ta.Inputs, tb.Inputs) && TypeListsEqual(ta.Results, tb.Results)
	case *OpaqueType:
		tb, ok := b.(*OpaqueType)
		return ok && ta.Dialect == tb.Dialect && ta.Name == tb.Name
	}
	return false
}

// TypeListsEqual compares two type lists element-wise.
func TypeListsEqual(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !TypesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
