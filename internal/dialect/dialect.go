// Package dialect holds dialect definitions and the registry used to
// validate operations against them.
package dialect

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Dialect is a namespace of operation definitions. It is mutable while it
// is being assembled and must not change once registered.
type Dialect struct {
	Name       string                          // Dialect name (e.g., "felt")
	Version    string                          // Optional semver (e.g., "v0.1.0")
	Requires   []Requirement                   // Dialects that must be registered first
	Types      []string                        // Opaque type names (e.g., "felt" for !felt.felt)
	Operations map[string]*OperationConstraint // Keyed by unqualified name (e.g., "add")
}

// Requirement names a dialect that must be registered, optionally with a
// minimum version.
type Requirement struct {
	Dialect    string
	MinVersion string
}

// ParseRequirement parses "name" or "name@v1.2.3".
func ParseRequirement(s string) Requirement {
	name, version, _ := strings.Cut(s, "@")
	return Requirement{Dialect: name, MinVersion: version}
}

func (r Requirement) String() string {
	if r.MinVersion == "" {
		return r.Dialect
	}
	return r.Dialect + "@" + r.MinVersion
}

// New creates an empty dialect.
func New(name string) *Dialect {
	return &Dialect{Name: name, Operations: make(map[string]*OperationConstraint)}
}

// AddOperation adds an operation definition under op, an unqualified name.
func (d *Dialect) AddOperation(op string, c *OperationConstraint) error {
	if op == "" || strings.Contains(op, ".") {
		return errors.Errorf("dialect %s: invalid operation name %q", d.Name, op)
	}
	if _, exists := d.Operations[op]; exists {
		return errors.Errorf("dialect %s: operation %q defined twice", d.Name, op)
	}
	c.Name = d.Name + "." + op
	d.Operations[op] = c
	return nil
}

// MustAddOperation is AddOperation for statically known definitions.
func (d *Dialect) MustAddOperation(op string, c *OperationConstraint) *Dialect {
	if err := d.AddOperation(op, c); err != nil {
		panic(err)
	}
	return d
}

// AddType declares the opaque type !dialect.name.
func (d *Dialect) AddType(name string) error {
	if slices.Contains(d.Types, name) {
		return errors.Errorf("dialect %s: type %q defined twice", d.Name, name)
	}
	d.Types = append(d.Types, name)
	return nil
}

// OperationNames lists the qualified operation names in lexical order.
func (d *Dialect) OperationNames() []string {
	names := make([]string, 0, len(d.Operations))
	for op := range d.Operations {
		names = append(names, d.Name+"."+op)
	}
	slices.Sort(names)
	return names
}
