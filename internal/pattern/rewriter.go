package pattern

import (
	"fmt"

	"irx/internal/ir"
)

// Rewriter collects the effects of one pattern application on a root
// operation. New operations are inserted right before the root as they are
// created; replacements and erasures are only recorded and take effect in
// a single commit once the pattern succeeded. If the pattern fails, the
// created operations are erased again.
type Rewriter struct {
	m       *ir.Module
	root    *ir.Operation
	b       *ir.Builder
	pattern string

	created      []ir.OpID
	replacements []replacement
	erasures     []*ir.Operation
	ifUnused     []*ir.Operation
}

type replacement struct {
	op     *ir.Operation
	values []ir.Value
}

func newRewriter(m *ir.Module, root *ir.Operation, pattern string) *Rewriter {
	b := ir.NewBuilder(m)
	b.SetInsertionPointBefore(root)
	b.SetLocation(root.Loc)
	return &Rewriter{m: m, root: root, b: b, pattern: pattern}
}

// Module returns the module being rewritten.
func (rw *Rewriter) Module() *ir.Module { return rw.m }

// Root returns the operation the pattern is applied to.
func (rw *Rewriter) Root() *ir.Operation { return rw.root }

// Create builds an operation right before the root.
func (rw *Rewriter) Create(name string, operands []ir.Value, resultTypes []ir.Type, attrs map[string]ir.Attribute, regions ...ir.RegionBuilder) (*ir.Operation, error) {
	op, err := rw.b.Create(name, operands, resultTypes, attrs, regions...)
	if err != nil {
		return nil, err
	}
	rw.created = append(rw.created, op.ID)
	return op, nil
}

// ReplaceOp replaces the results of op by values, position by position,
// and erases op.
func (rw *Rewriter) ReplaceOp(op *ir.Operation, values ...ir.Value) {
	rw.replacements = append(rw.replacements, replacement{op: op, values: values})
}

// ReplaceOpWithOp replaces op by the results of newOp.
func (rw *Rewriter) ReplaceOpWithOp(op, newOp *ir.Operation) {
	rw.ReplaceOp(op, newOp.Results()...)
}

// EraseOp erases op, which must be left without uses.
func (rw *Rewriter) EraseOp(op *ir.Operation) {
	rw.erasures = append(rw.erasures, op)
}

// EraseIfUnused erases op if it has no uses once the replacements are
// done. Patterns use it for matched operations feeding the root.
func (rw *Rewriter) EraseIfUnused(ops ...*ir.Operation) {
	rw.ifUnused = append(rw.ifUnused, ops...)
}

func (rw *Rewriter) changed() bool {
	return len(rw.created) > 0 || len(rw.replacements) > 0 || len(rw.erasures) > 0
}

func (rw *Rewriter) invalid(format string, args ...any) error {
	return &InvalidRewriteError{Pattern: rw.pattern, Op: rw.root.Name, Reason: fmt.Sprintf(format, args...)}
}

// rollback erases the created operations, users first.
func (rw *Rewriter) rollback() {
	for i := len(rw.created) - 1; i >= 0; i-- {
		if op := rw.m.Op(rw.created[i]); op != nil {
			_ = rw.m.EraseOp(op)
		}
	}
	rw.created = nil
}

// check validates the recorded effects without touching the module, so
// that commit cannot fail once it starts mutating.
func (rw *Rewriter) check() error {
	dying := make(map[ir.OpID]bool)
	for _, r := range rw.replacements {
		if rw.m.Op(r.op.ID) != r.op {
			return rw.invalid("replaced operation %s is not live", r.op.Name)
		}
		if len(r.values) != r.op.NumResults() {
			return rw.invalid("%s has %d results, got %d replacement values", r.op.Name, r.op.NumResults(), len(r.values))
		}
		dying[r.op.ID] = true
	}
	for _, op := range rw.erasures {
		if rw.m.Op(op.ID) != op {
			return rw.invalid("erased operation %s is not live", op.Name)
		}
		dying[op.ID] = true
	}
	for _, r := range rw.replacements {
		for i, v := range r.values {
			if !rw.m.Resolves(v) {
				return rw.invalid("replacement #%d of %s does not resolve", i, r.op.Name)
			}
			if v.Kind == ir.ResultValue && ir.OpID(v.Owner) == r.op.ID {
				return rw.invalid("%s cannot be replaced by its own result", r.op.Name)
			}
			if def := rw.m.DefiningOp(v); def != nil && (dying[def.ID] || rw.insideDying(def.ID, dying)) {
				return rw.invalid("replacement #%d of %s is defined by erased operation %s", i, r.op.Name, def.Name)
			}
			if !ir.TypesEqual(rw.m.TypeOf(v), r.op.ResultTypes()[i]) {
				return rw.invalid("replacement #%d of %s has type %s, want %s", i, r.op.Name, rw.m.TypeOf(v), r.op.ResultTypes()[i])
			}
			if !rw.m.IsVisible(v, r.op) {
				return rw.invalid("replacement #%d of %s is not visible at its position", i, r.op.Name)
			}
		}
	}
	for _, op := range rw.erasures {
		for _, v := range op.Results() {
			for _, u := range rw.m.Uses(v) {
				if !dying[u.Op] && !rw.insideDying(u.Op, dying) {
					return rw.invalid("erased operation %s is still used by %s", op.Name, rw.m.Op(u.Op).Name)
				}
			}
		}
	}
	return nil
}

func (rw *Rewriter) insideDying(id ir.OpID, dying map[ir.OpID]bool) bool {
	for op := rw.m.ParentOp(rw.m.Op(id)); op != nil; op = rw.m.ParentOp(op) {
		if dying[op.ID] {
			return true
		}
	}
	return false
}

// commit applies the recorded replacements and erasures in one step.
func (rw *Rewriter) commit() error {
	if err := rw.check(); err != nil {
		return err
	}
	for _, r := range rw.replacements {
		for i, v := range r.values {
			if err := rw.m.ReplaceAllUsesWith(r.op.Result(i), v); err != nil {
				return err
			}
		}
	}
	var pending []*ir.Operation
	for _, r := range rw.replacements {
		pending = append(pending, r.op)
	}
	pending = append(pending, rw.erasures...)
	if err := rw.eraseAll(pending); err != nil {
		return err
	}
	for _, op := range rw.ifUnused {
		if rw.m.Op(op.ID) != op || rw.m.HasUses(op) {
			continue
		}
		if err := rw.m.EraseOp(op); err != nil {
			return err
		}
	}
	return nil
}

// eraseAll erases ops in an order where users go first.
func (rw *Rewriter) eraseAll(ops []*ir.Operation) error {
	for len(ops) > 0 {
		var rest []*ir.Operation
		var lastErr error
		for _, op := range ops {
			if rw.m.Op(op.ID) != op {
				continue
			}
			if err := rw.m.EraseOp(op); err != nil {
				rest = append(rest, op)
				lastErr = err
			}
		}
		if len(rest) == len(ops) {
			return lastErr
		}
		ops = rest
	}
	return nil
}
