package asm

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"irx/grammar"
	"irx/internal/ir"
)

// ParseType parses the textual form of a type.
func ParseType(src string) (ir.Type, error) {
	g, err := grammar.ParseType(src)
	if err != nil {
		return nil, err
	}
	return ConvertType(g)
}

// ParseAttribute parses the textual form of an attribute.
func ParseAttribute(src string) (ir.Attribute, error) {
	g, err := grammar.ParseAttribute(src)
	if err != nil {
		return nil, err
	}
	return ConvertAttribute(g)
}

// ConvertType resolves a parsed type.
func ConvertType(g *grammar.Type) (ir.Type, error) {
	switch {
	case g.Function != nil:
		return convertFunctionType(g.Function)
	case g.Dialect != "":
		dialect, name := ir.SplitName(strings.TrimPrefix(g.Dialect, "!"))
		if dialect == "" || name == "" {
			return nil, grammar.Errorf(g.Pos, "dialect type %s must be qualified as !dialect.name", g.Dialect)
		}
		return ir.Opaque(dialect, name), nil
	}
	switch g.Name {
	case "f64":
		return ir.F64(), nil
	case "ptr":
		return ir.Ptr(), nil
	}
	if width, ok := integerWidth(g.Name); ok {
		return ir.Integer(width), nil
	}
	return nil, grammar.Errorf(g.Pos, "unknown type %q", g.Name)
}

func integerWidth(name string) (int, bool) {
	if !strings.HasPrefix(name, "i") {
		return 0, false
	}
	width, err := strconv.Atoi(name[1:])
	if err != nil || width < 1 || width > 64 {
		return 0, false
	}
	return width, true
}

func convertFunctionType(g *grammar.FunctionType) (*ir.FunctionType, error) {
	inputs, err := convertTypes(g.Inputs)
	if err != nil {
		return nil, err
	}
	results, err := convertTypes(g.Results)
	if err != nil {
		return nil, err
	}
	return ir.Function(inputs, results), nil
}

func convertTypes(gs []*grammar.Type) ([]ir.Type, error) {
	types := make([]ir.Type, len(gs))
	for i, g := range gs {
		t, err := ConvertType(g)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

// ConvertAttribute resolves a parsed attribute. Untyped integers default
// to i64 and untyped floats to f64.
func ConvertAttribute(g *grammar.Attribute) (ir.Attribute, error) {
	switch {
	case g.Int != nil:
		return convertInt(g.Int)
	case g.Float != nil:
		return convertFloat(g.Float)
	case g.String != nil:
		return &ir.StringAttr{Value: *g.String}, nil
	case g.Symbol != nil:
		return &ir.SymbolRefAttr{Name: strings.TrimPrefix(*g.Symbol, "@")}, nil
	case g.Array != nil:
		elements := make([]ir.Attribute, len(g.Array.Elements))
		for i, e := range g.Array.Elements {
			a, err := ConvertAttribute(e)
			if err != nil {
				return nil, err
			}
			elements[i] = a
		}
		return &ir.ArrayAttr{Elements: elements}, nil
	case g.Bool != nil:
		return &ir.BoolAttr{Value: *g.Bool == "true"}, nil
	case g.Unit:
		return &ir.UnitAttr{}, nil
	case g.Type != nil:
		t, err := ConvertType(g.Type)
		if err != nil {
			return nil, err
		}
		return &ir.TypeAttr{Type: t}, nil
	}
	return nil, grammar.Errorf(g.Pos, "empty attribute")
}

func convertInt(g *grammar.IntLiteral) (ir.Attribute, error) {
	var t ir.Type = ir.Integer(64)
	if g.Type != nil {
		var err error
		if t, err = ConvertType(g.Type); err != nil {
			return nil, err
		}
	}
	switch typ := t.(type) {
	case *ir.IntegerType:
		v, err := parseInteger(g.Value)
		if err != nil {
			return nil, grammar.Errorf(g.Pos, "invalid integer literal %s: %v", g.Value, err)
		}
		return &ir.IntegerAttr{Value: ir.Truncate(v, typ.Width), Type: typ}, nil
	case *ir.FloatType:
		if strings.HasPrefix(strings.ToLower(g.Value), "0x") {
			bits, err := parseInteger(g.Value)
			if err != nil {
				return nil, grammar.Errorf(g.Pos, "invalid float bit pattern %s: %v", g.Value, err)
			}
			return &ir.FloatAttr{Value: math.Float64frombits(bits), Type: typ}, nil
		}
		f, err := strconv.ParseFloat(g.Value, 64)
		if err != nil {
			return nil, grammar.Errorf(g.Pos, "invalid float literal %s: %v", g.Value, err)
		}
		return &ir.FloatAttr{Value: f, Type: typ}, nil
	}
	return nil, grammar.Errorf(g.Pos, "integer literal cannot have type %s", t)
}

// parseInteger accepts signed values and unsigned values up to 2^64-1.
func parseInteger(s string) (uint64, error) {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return uint64(v), nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return v, nil
}

func convertFloat(g *grammar.FloatLiteral) (ir.Attribute, error) {
	f, err := strconv.ParseFloat(g.Value, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, grammar.Errorf(g.Pos, "invalid float literal %s: %v", g.Value, err)
	}
	var t ir.Type = ir.F64()
	if g.Type != nil {
		if t, err = ConvertType(g.Type); err != nil {
			return nil, err
		}
		if _, ok := t.(*ir.FloatType); !ok {
			return nil, grammar.Errorf(g.Pos, "float literal cannot have type %s", t)
		}
	}
	return &ir.FloatAttr{Value: f, Type: t}, nil
}
