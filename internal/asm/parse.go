// Package asm converts the textual IR form into modules.
package asm

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"

	"irx/grammar"
	"irx/internal/ir"
)

// ParseModule parses a module in generic form. Syntax errors and
// conversion errors are reported as *grammar.ParseError; errors raised by
// the builder (scoping, names) stay reachable through errors.Is.
func ParseModule(filename, src string) (*ir.Module, error) {
	g, err := grammar.ParseModule(filename, src)
	if err != nil {
		return nil, err
	}
	return Convert(g)
}

// ParseFile reads and parses a module file.
func ParseFile(path string) (*ir.Module, string, error) {
	src, err := grammar.ReadSource(path)
	if err != nil {
		return nil, "", err
	}
	m, err := ParseModule(path, src)
	return m, src, err
}

// Convert builds a module from its parsed form.
func Convert(g *grammar.Module) (*ir.Module, error) {
	m := ir.NewModule(strings.TrimPrefix(g.Name, "@"))
	c := &converter{}
	c.push()
	b := ir.NewBuilder(m)
	for _, op := range g.Operations {
		if err := c.operation(b, op); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// converter tracks SSA names. Each region opens a scope; names resolve
// from the innermost scope outwards.
type converter struct {
	scopes []map[string][]ir.Value
}

func (c *converter) push() { c.scopes = append(c.scopes, make(map[string][]ir.Value)) }
func (c *converter) pop()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *converter) define(pos lexer.Position, name string, values ...ir.Value) error {
	scope := c.scopes[len(c.scopes)-1]
	if _, exists := scope[name]; exists {
		return grammar.Errorf(pos, "redefinition of value %s", name)
	}
	scope[name] = values
	return nil
}

func (c *converter) lookup(pos lexer.Position, ref string) (ir.Value, error) {
	name, index, hasIndex := strings.Cut(ref, "#")
	for i := len(c.scopes) - 1; i >= 0; i-- {
		values, ok := c.scopes[i][name]
		if !ok {
			continue
		}
		if !hasIndex {
			if len(values) != 1 {
				return ir.Value{}, grammar.Errorf(pos, "%s names %d results, use %s#N", name, len(values), name)
			}
			return values[0], nil
		}
		n, err := strconv.Atoi(index)
		if err != nil || n >= len(values) {
			return ir.Value{}, grammar.Errorf(pos, "%s has no result #%s", name, index)
		}
		return values[n], nil
	}
	return ir.Value{}, grammar.Errorf(pos, "use of undefined value %s", ref)
}

func location(pos lexer.Position) ir.Location {
	return ir.Location{File: pos.Filename, Line: pos.Line, Column: pos.Column}
}

func (c *converter) operation(b *ir.Builder, g *grammar.Operation) error {
	m := b.Module()
	fnType, err := convertFunctionType(g.Type)
	if err != nil {
		return err
	}
	if len(fnType.Inputs) != len(g.Operands) {
		return grammar.Errorf(g.Pos, "%q has %d operands but its type lists %d", g.Name, len(g.Operands), len(fnType.Inputs))
	}
	operands := make([]ir.Value, len(g.Operands))
	for i, ref := range g.Operands {
		v, err := c.lookup(g.Pos, ref)
		if err != nil {
			return err
		}
		if !ir.TypesEqual(m.TypeOf(v), fnType.Inputs[i]) {
			return grammar.Errorf(g.Pos, "operand #%d of %q is %s but its type lists %s", i, g.Name, m.TypeOf(v), fnType.Inputs[i])
		}
		operands[i] = v
	}
	if g.Results != nil {
		n := 1
		if g.Results.Count > 0 {
			n = g.Results.Count
		}
		if n != len(fnType.Results) {
			return grammar.Errorf(g.Pos, "%s names %d results but %q produces %d", g.Results.Name, n, g.Name, len(fnType.Results))
		}
	}

	attrs, err := convertAttributes(g.Attributes)
	if err != nil {
		return err
	}

	regions := make([]ir.RegionBuilder, len(g.Regions))
	for i, gr := range g.Regions {
		regions[i] = func(rb *ir.Builder, r *ir.Region) error {
			return c.region(rb, r, gr)
		}
	}

	b.SetLocation(location(g.Pos))
	op, err := b.Create(g.Name, operands, fnType.Results, attrs, regions...)
	if err != nil {
		var pe *grammar.ParseError
		if errors.As(err, &pe) {
			return pe
		}
		return &grammar.ParseError{Pos: g.Pos, Msg: err.Error(), Cause: err}
	}
	if g.Results != nil {
		return c.define(g.Pos, g.Results.Name, op.Results()...)
	}
	return nil
}

func (c *converter) region(b *ir.Builder, r *ir.Region, g *grammar.Region) error {
	c.push()
	defer c.pop()

	if len(g.Entry) > 0 {
		b.SetInsertionPointToEnd(b.AppendBlock(r))
		for _, op := range g.Entry {
			if err := c.operation(b, op); err != nil {
				return err
			}
		}
	}
	for _, gb := range g.Blocks {
		types := make([]ir.Type, len(gb.Arguments))
		for i, arg := range gb.Arguments {
			t, err := ConvertType(arg.Type)
			if err != nil {
				return err
			}
			types[i] = t
		}
		blk := b.AppendBlock(r, types...)
		for i, arg := range gb.Arguments {
			if err := c.define(arg.Pos, arg.Name, blk.Argument(i)); err != nil {
				return err
			}
		}
		b.SetInsertionPointToEnd(blk)
		for _, op := range gb.Operations {
			if err := c.operation(b, op); err != nil {
				return err
			}
		}
	}
	return nil
}

func convertAttributes(g *grammar.AttrDict) (map[string]ir.Attribute, error) {
	if g == nil {
		return nil, nil
	}
	attrs := make(map[string]ir.Attribute, len(g.Entries))
	for _, entry := range g.Entries {
		if _, exists := attrs[entry.Name]; exists {
			return nil, grammar.Errorf(entry.Pos, "duplicate attribute %q", entry.Name)
		}
		if entry.Value == nil {
			attrs[entry.Name] = &ir.UnitAttr{}
			continue
		}
		a, err := ConvertAttribute(entry.Value)
		if err != nil {
			return nil, err
		}
		attrs[entry.Name] = a
	}
	return attrs, nil
}
