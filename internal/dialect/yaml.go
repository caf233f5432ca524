package dialect

import (
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"irx/internal/asm"
)

// File is the YAML form of a set of dialect definitions:
//
//	dialects:
//	  - name: felt
//	    operations:
//	      - name: add
//	        operands: [{name: lhs, type: i32}, {name: rhs, type: i32}]
//	        results: [{name: res, type: i32}]
type File struct {
	Dialects []DialectSpec `yaml:"dialects"`
}

type DialectSpec struct {
	Name       string          `yaml:"name"`
	Version    string          `yaml:"version,omitempty"`
	Requires   []string        `yaml:"requires,omitempty"`
	Types      []string        `yaml:"types,omitempty"`
	Operations []OperationSpec `yaml:"operations"`
}

type OperationSpec struct {
	Name       string     `yaml:"name"`
	Summary    string     `yaml:"summary,omitempty"`
	Operands   []ArgSpec  `yaml:"operands,omitempty"`
	Results    []ArgSpec  `yaml:"results,omitempty"`
	Attributes []AttrSpec `yaml:"attributes,omitempty"`
	Traits     []string   `yaml:"traits,omitempty"`
}

type ArgSpec struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Variadicity string `yaml:"variadicity,omitempty"`
}

type AttrSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type,omitempty"`
	Optional bool   `yaml:"optional,omitempty"`
}

// LoadYAMLFile reads dialect definitions from a YAML file.
func LoadYAMLFile(path string) ([]*Dialect, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read dialect file")
	}
	dialects, err := LoadYAML(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return dialects, nil
}

// LoadYAML decodes dialect definitions. Unknown keys are rejected.
func LoadYAML(data []byte) ([]*Dialect, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "invalid dialect YAML")
	}
	dialects := make([]*Dialect, 0, len(f.Dialects))
	for _, spec := range f.Dialects {
		d, err := spec.Build()
		if err != nil {
			return nil, err
		}
		dialects = append(dialects, d)
	}
	return dialects, nil
}

// Build converts the YAML form into a dialect.
func (s DialectSpec) Build() (*Dialect, error) {
	d := New(s.Name)
	d.Version = s.Version
	for _, req := range s.Requires {
		d.Requires = append(d.Requires, ParseRequirement(req))
	}
	for _, t := range s.Types {
		if err := d.AddType(t); err != nil {
			return nil, err
		}
	}
	for _, op := range s.Operations {
		c := &OperationConstraint{Summary: op.Summary}
		var err error
		if c.Operands, err = buildArgs(op.Operands); err != nil {
			return nil, errors.Wrapf(err, "%s.%s operands", s.Name, op.Name)
		}
		if c.Results, err = buildArgs(op.Results); err != nil {
			return nil, errors.Wrapf(err, "%s.%s results", s.Name, op.Name)
		}
		for _, a := range op.Attributes {
			ac := AttrConstraint{Name: a.Name, Optional: a.Optional}
			if a.Type != "" {
				if ac.Predicate, err = ParsePredicate(a.Type); err != nil {
					return nil, errors.Wrapf(err, "%s.%s attribute %q", s.Name, op.Name, a.Name)
				}
			}
			c.Attributes = append(c.Attributes, ac)
		}
		for _, t := range op.Traits {
			if !Trait(t).Valid() {
				return nil, errors.Errorf("%s.%s: unknown trait %q", s.Name, op.Name, t)
			}
			c.Traits = append(c.Traits, Trait(t))
		}
		if err := d.AddOperation(op.Name, c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func buildArgs(specs []ArgSpec) ([]ArgConstraint, error) {
	args := make([]ArgConstraint, 0, len(specs))
	for _, spec := range specs {
		p, err := ParsePredicate(spec.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "%q", spec.Name)
		}
		v, err := ParseVariadicity(spec.Variadicity)
		if err != nil {
			return nil, errors.Wrapf(err, "%q", spec.Name)
		}
		args = append(args, ArgConstraint{Name: spec.Name, Predicate: p, Variadicity: v})
	}
	return args, nil
}

// ParsePredicate parses "any", "integer", "float", "any_of(a, b)" or a
// concrete type such as "i32" or "!felt.felt".
func ParsePredicate(s string) (Predicate, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "any":
		return Any(), nil
	case "integer":
		return BaseInteger(), nil
	case "float":
		return BaseFloat(), nil
	}
	if inner, ok := strings.CutPrefix(s, "any_of("); ok && strings.HasSuffix(inner, ")") {
		var options []Predicate
		for _, part := range splitTopLevel(strings.TrimSuffix(inner, ")")) {
			p, err := ParsePredicate(part)
			if err != nil {
				return nil, err
			}
			options = append(options, p)
		}
		return AnyOf(options...), nil
	}
	t, err := asm.ParseType(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid type constraint %q", s)
	}
	return Is(t), nil
}

// splitTopLevel splits at commas that are not nested in parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
