package dialect

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
	"golang.org/x/exp/maps"
	"golang.org/x/mod/semver"

	"irx/internal/ir"
)

var log = commonlog.GetLogger("irx.dialect")

// Registry maps dialect names to their definitions. Registration is
// guarded by a mutex; once frozen, a registry is read-only and may be
// shared by goroutines validating independent modules.
type Registry struct {
	mu       sync.RWMutex
	dialects map[string]*Dialect
	order    []string
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{dialects: make(map[string]*Dialect)}
}

// RegisterDialect adds d. It fails with *DuplicateDialectError when the
// name is taken, with ErrFrozen after Freeze and with
// *MissingRequirementError when a required dialect is absent or too old.
func (r *Registry) RegisterDialect(d *Dialect) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.Wrapf(ErrFrozen, "cannot register dialect %q", d.Name)
	}
	if d.Name == "" {
		return errors.New("dialect has no name")
	}
	if _, exists := r.dialects[d.Name]; exists {
		return &DuplicateDialectError{Name: d.Name}
	}
	if d.Version != "" && !semver.IsValid(d.Version) {
		return errors.Errorf("dialect %q: invalid version %q", d.Name, d.Version)
	}
	for _, req := range d.Requires {
		dep, ok := r.dialects[req.Dialect]
		if !ok {
			return &MissingRequirementError{Dialect: d.Name, Requirement: req}
		}
		if req.MinVersion == "" {
			continue
		}
		if !semver.IsValid(req.MinVersion) {
			return errors.Errorf("dialect %q: invalid required version %q", d.Name, req)
		}
		if !semver.IsValid(dep.Version) || semver.Compare(dep.Version, req.MinVersion) < 0 {
			return &MissingRequirementError{Dialect: d.Name, Requirement: req, Found: dep.Version}
		}
	}

	r.dialects[d.Name] = d
	r.order = append(r.order, d.Name)
	log.Debugf("registered dialect %s %s (%d operations)", d.Name, d.Version, len(d.Operations))
	return nil
}

// MustRegister registers statically known dialects and panics on error.
func (r *Registry) MustRegister(dialects ...*Dialect) *Registry {
	for _, d := range dialects {
		if err := r.RegisterDialect(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Snapshot returns an unfrozen copy sharing the (immutable) dialects.
func (r *Registry) Snapshot() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry{dialects: maps.Clone(r.dialects), order: slices.Clone(r.order)}
}

// Dialect returns the named dialect or a *NotFoundError.
func (r *Registry) Dialect(name string) (*Dialect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dialects[name]
	if !ok {
		return nil, &NotFoundError{Dialect: name}
	}
	return d, nil
}

// Dialects lists the registered dialects in registration order.
func (r *Registry) Dialects() []*Dialect {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Dialect, len(r.order))
	for i, name := range r.order {
		out[i] = r.dialects[name]
	}
	return out
}

// Lookup resolves a qualified operation name. Unknown dialects and
// operations yield a *NotFoundError, never an empty constraint.
func (r *Registry) Lookup(qualified string) (*OperationConstraint, error) {
	dialectName, op := ir.SplitName(qualified)
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dialects[dialectName]
	if !ok {
		return nil, &NotFoundError{Dialect: dialectName}
	}
	c, ok := d.Operations[op]
	if !ok {
		return nil, &NotFoundError{Dialect: dialectName, Op: qualified}
	}
	return c, nil
}

// Registered reports whether the dialect is known.
func (r *Registry) Registered(dialect string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.dialects[dialect]
	return ok
}

// OperationNames lists every registered operation, grouped by dialect in
// registration order.
func (r *Registry) OperationNames() []string {
	var names []string
	for _, d := range r.Dialects() {
		names = append(names, d.OperationNames()...)
	}
	return names
}

// CheckType reports types that reference an unknown dialect type.
func (r *Registry) CheckType(t ir.Type) error {
	switch typ := t.(type) {
	case *ir.OpaqueType:
		d, err := r.Dialect(typ.Dialect)
		if err != nil {
			return err
		}
		if !slices.Contains(d.Types, typ.Name) {
			return &NotFoundError{Dialect: typ.Dialect, Type: t.String()}
		}
	case *ir.FunctionType:
		for _, nested := range slices.Concat(typ.Inputs, typ.Results) {
			if err := r.CheckType(nested); err != nil {
				return err
			}
		}
	}
	return nil
}
