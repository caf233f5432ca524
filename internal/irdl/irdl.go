// Package irdl builds dialects from their IRDL description.
package irdl

import (
	"strings"

	"irx/grammar"
	"irx/internal/asm"
	"irx/internal/dialect"
)

// Parse parses IRDL text into dialect definitions.
func Parse(filename, src string) ([]*dialect.Dialect, error) {
	f, err := grammar.ParseIRDL(filename, src)
	if err != nil {
		return nil, err
	}
	return Convert(f)
}

// ParseFile reads and parses an IRDL file.
func ParseFile(path string) ([]*dialect.Dialect, error) {
	src, err := grammar.ReadSource(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, src)
}

// Load parses IRDL text and registers every dialect it defines, in order.
func Load(r *dialect.Registry, filename, src string) ([]*dialect.Dialect, error) {
	dialects, err := Parse(filename, src)
	if err != nil {
		return nil, err
	}
	for _, d := range dialects {
		if err := r.RegisterDialect(d); err != nil {
			return nil, err
		}
	}
	return dialects, nil
}

// Convert builds dialects from parsed IRDL.
func Convert(f *grammar.IRDLFile) ([]*dialect.Dialect, error) {
	dialects := make([]*dialect.Dialect, 0, len(f.Dialects))
	for _, gd := range f.Dialects {
		d, err := convertDialect(gd)
		if err != nil {
			return nil, err
		}
		dialects = append(dialects, d)
	}
	return dialects, nil
}

func convertDialect(g *grammar.IRDLDialect) (*dialect.Dialect, error) {
	d := dialect.New(strings.TrimPrefix(g.Name, "@"))
	d.Version = g.Version
	for _, req := range g.Requires {
		d.Requires = append(d.Requires, dialect.ParseRequirement(req))
	}
	for _, item := range g.Items {
		switch {
		case item.Type != nil:
			if err := d.AddType(strings.TrimPrefix(item.Type.Name, "@")); err != nil {
				return nil, grammar.Errorf(item.Pos, "%v", err)
			}
		case item.Operation != nil:
			c, err := convertOperation(item.Operation)
			if err != nil {
				return nil, err
			}
			if err := d.AddOperation(strings.TrimPrefix(item.Operation.Name, "@"), c); err != nil {
				return nil, grammar.Errorf(item.Pos, "%v", err)
			}
		}
	}
	return d, nil
}

func convertOperation(g *grammar.IRDLOperation) (*dialect.OperationConstraint, error) {
	env := &constraintEnv{
		defs:     make(map[string]*grammar.IRDLConstraint),
		resolved: make(map[string]dialect.Predicate),
		visiting: make(map[string]bool),
	}
	for _, st := range g.Statements {
		if st.Constraint == nil {
			continue
		}
		if _, exists := env.defs[st.Constraint.Name]; exists {
			return nil, grammar.Errorf(st.Pos, "constraint %s defined twice", st.Constraint.Name)
		}
		env.defs[st.Constraint.Name] = st.Constraint
	}

	c := &dialect.OperationConstraint{}
	seen := make(map[string]bool)
	for _, st := range g.Statements {
		switch {
		case st.Segments != nil:
			if seen[st.Segments.Kind] {
				return nil, grammar.Errorf(st.Pos, "%s given twice", st.Segments.Kind)
			}
			seen[st.Segments.Kind] = true
			args, err := env.segments(st.Segments)
			if err != nil {
				return nil, err
			}
			if st.Segments.Kind == "irdl.operands" {
				c.Operands = args
			} else {
				c.Results = args
			}
		case st.Attributes != nil:
			for _, entry := range st.Attributes.Entries {
				p, err := env.resolve(entry.Pos, entry.Constraint)
				if err != nil {
					return nil, err
				}
				c.Attributes = append(c.Attributes, dialect.AttrConstraint{Name: entry.Name, Predicate: p})
			}
		case st.Traits != nil:
			for _, name := range st.Traits.Names {
				t := dialect.Trait(name)
				if !t.Valid() {
					return nil, grammar.Errorf(st.Pos, "unknown trait %q", name)
				}
				c.Traits = append(c.Traits, t)
			}
		}
	}
	return c, nil
}

// constraintEnv resolves constraint names of one operation. Names may be
// used before their definition; cycles are rejected.
type constraintEnv struct {
	defs     map[string]*grammar.IRDLConstraint
	resolved map[string]dialect.Predicate
	visiting map[string]bool
}

func (e *constraintEnv) segments(g *grammar.IRDLSegments) ([]dialect.ArgConstraint, error) {
	args := make([]dialect.ArgConstraint, 0, len(g.Args))
	for _, arg := range g.Args {
		p, err := e.resolve(arg.Pos, arg.Constraint)
		if err != nil {
			return nil, err
		}
		v, err := dialect.ParseVariadicity(arg.Variadicity)
		if err != nil {
			return nil, grammar.Errorf(arg.Pos, "%v", err)
		}
		args = append(args, dialect.ArgConstraint{Name: arg.Name, Predicate: p, Variadicity: v})
	}
	return args, nil
}

func (e *constraintEnv) resolve(pos grammar.Position, name string) (dialect.Predicate, error) {
	if p, ok := e.resolved[name]; ok {
		return p, nil
	}
	def, ok := e.defs[name]
	if !ok {
		return nil, grammar.Errorf(pos, "undefined constraint %s", name)
	}
	if e.visiting[name] {
		return nil, grammar.Errorf(def.Pos, "constraint %s refers to itself", name)
	}
	e.visiting[name] = true
	defer delete(e.visiting, name)

	var p dialect.Predicate
	switch {
	case def.Is != nil:
		t, err := asm.ConvertType(def.Is)
		if err != nil {
			return nil, err
		}
		p = dialect.Is(t)
	case def.Any:
		p = dialect.Any()
	case len(def.AnyOf) > 0:
		options := make([]dialect.Predicate, len(def.AnyOf))
		for i, ref := range def.AnyOf {
			o, err := e.resolve(def.Pos, ref)
			if err != nil {
				return nil, err
			}
			options[i] = o
		}
		p = dialect.AnyOf(options...)
	default:
		base, err := basePredicate(def)
		if err != nil {
			return nil, err
		}
		p = base
	}
	e.resolved[name] = p
	return p, nil
}

func basePredicate(def *grammar.IRDLConstraint) (dialect.Predicate, error) {
	switch def.Base {
	case "integer", "!builtin.integer":
		return dialect.BaseInteger(), nil
	case "float", "!builtin.float":
		return dialect.BaseFloat(), nil
	}
	if name, ok := strings.CutPrefix(def.Base, "!"); ok {
		d, n := splitTypeName(name)
		if d != "" && n != "" {
			return dialect.BaseOpaque(d, n), nil
		}
	}
	return nil, grammar.Errorf(def.Pos, "unknown base %q", def.Base)
}

func splitTypeName(name string) (string, string) {
	d, n, _ := strings.Cut(name, ".")
	return d, n
}
