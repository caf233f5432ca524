package ir

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Attribute is a compile-time constant attached to an operation.
type Attribute interface {
	String() string
	isAttribute()
}

// IntegerAttr holds an integer of the given integer type. Value is kept in
// its canonical form: truncated to the type width and read as unsigned.
type IntegerAttr struct {
	Value uint64
	Type  *IntegerType
}

// FloatAttr holds a float64 constant.
type FloatAttr struct {
	Value float64
	Type  Type
}

type StringAttr struct {
	Value string
}

type BoolAttr struct {
	Value bool
}

// UnitAttr carries no value; its presence is the information.
type UnitAttr struct{}

type TypeAttr struct {
	Type Type
}

// SymbolRefAttr references a symbol by name (@name).
type SymbolRefAttr struct {
	Name string
}

type ArrayAttr struct {
	Elements []Attribute
}

func (*IntegerAttr) isAttribute()   {}
func (*FloatAttr) isAttribute()     {}
func (*StringAttr) isAttribute()    {}
func (*BoolAttr) isAttribute()      {}
func (*UnitAttr) isAttribute()      {}
func (*TypeAttr) isAttribute()      {}
func (*SymbolRefAttr) isAttribute() {}
func (*ArrayAttr) isAttribute()     {}

// NewIntegerAttr truncates v to the width of t.
func NewIntegerAttr(v int64, t *IntegerType) *IntegerAttr {
	return &IntegerAttr{Value: Truncate(uint64(v), t.Width), Type: t}
}

// Truncate keeps the low width bits of v.
func Truncate(v uint64, width int) uint64 {
	if width <= 0 || width >= 64 {
		return v
	}
	return v & (uint64(1)<<uint(width) - 1)
}

// Int64 returns the value sign-extended from the type width.
func (a *IntegerAttr) Int64() int64 {
	w := a.Type.Width
	if w <= 0 || w >= 64 {
		return int64(a.Value)
	}
	shift := uint(64 - w)
	return int64(a.Value<<shift) >> shift
}

func (a *IntegerAttr) String() string {
	return fmt.Sprintf("%d : %s", a.Value, a.Type)
}

func (a *FloatAttr) String() string {
	return fmt.Sprintf("%s : %s", FormatFloat(a.Value), a.Type)
}

// FormatFloat prints f so that it always lexes as a float literal.
// Infinities and NaNs print as the hexadecimal bit pattern of the value.
func FormatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Sprintf("0x%016X", math.Float64bits(f))
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	} else if strings.ContainsAny(s, "eE") && !strings.Contains(s, ".") {
		mantissa, exp, _ := strings.Cut(strings.ToLower(s), "e")
		s = mantissa + ".0e" + exp
	}
	return s
}

func (a *StringAttr) String() string    { return strconv.Quote(a.Value) }
func (a *BoolAttr) String() string      { return strconv.FormatBool(a.Value) }
func (a *UnitAttr) String() string      { return "unit" }
func (a *TypeAttr) String() string      { return a.Type.String() }
func (a *SymbolRefAttr) String() string { return "@" + a.Name }

func (a *ArrayAttr) String() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// AttributesEqual compares two attributes structurally.
func AttributesEqual(a, b Attribute) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch va := a.(type) {
	case *IntegerAttr:
		vb, ok := b.(*IntegerAttr)
		return ok && va.Value == vb.Value && TypesEqual(va.Type, vb.Type)
	case *FloatAttr:
		vb, ok := b.(*FloatAttr)
		return ok && math.Float64bits(va.Value) == math.Float64bits(vb.Value) && TypesEqual(va.Type, vb.Type)
	case *StringAttr:
		vb, ok := b.(*StringAttr)
		return ok && va.Value == vb.Value
	case *BoolAttr:
		vb, ok := b.(*BoolAttr)
		return ok && va.Value == vb.Value
	case *UnitAttr:
		_, ok := b.(*UnitAttr)
		return ok
	case *TypeAttr:
		vb, ok := b.(*TypeAttr)
		return ok && TypesEqual(va.Type, vb.Type)
	case *SymbolRefAttr:
		vb, ok := b.(*SymbolRefAttr)
		return ok && va.Name == vb.Name
	case *ArrayAttr:
		vb, ok := b.(*ArrayAttr)
		if !ok || len(va.Elements) != len(vb.Elements) {
			return false
		}
		for i := range va.Elements {
			if !AttributesEqual(va.Elements[i], vb.Elements[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// AttributeMapsEqual compares two attribute dictionaries.
func AttributeMapsEqual(a, b map[string]Attribute) bool {
	if len(a) != len(b) {
		return false
	}
	for name, va := range a {
		vb, ok := b[name]
		if !ok || !AttributesEqual(va, vb) {
			return false
		}
	}
	return true
}

// AttributeType returns the type carried by typed attributes, nil otherwise.
func AttributeType(a Attribute) Type {
	switch v := a.(type) {
	case *IntegerAttr:
		return v.Type
	case *FloatAttr:
		return v.Type
	case *TypeAttr:
		return v.Type
	}
	return nil
}

// SortedAttributeNames lists the keys of attrs in lexical order.
func SortedAttributeNames(attrs map[string]Attribute) []string {
	return slices.Sorted(maps.Keys(attrs))
}
