package ir

import (
	"slices"

	"github.com/pkg/errors"
)

// ReplaceAllUsesWith redirects every use of from to to.
func (m *Module) ReplaceAllUsesWith(from, to Value) error {
	if !m.Resolves(to) {
		return errors.Errorf("replacement value %s does not resolve", to)
	}
	if from == to {
		return nil
	}
	for _, u := range m.uses[from] {
		m.ops[u.Op].operands[u.Operand] = to
		m.addUse(to, u)
	}
	delete(m.uses, from)
	return nil
}

// EraseOp removes op together with its regions, blocks and nested
// operations. It fails when a result of the subtree is still used outside
// of it.
func (m *Module) EraseOp(op *Operation) error {
	if m.Op(op.ID) != op {
		return errors.Errorf("operation %s (%d) is not live in this module", op.Name, op.ID)
	}
	subtree := m.Subtree(op)
	inside := make(map[OpID]bool, len(subtree))
	for _, nested := range subtree {
		inside[nested.ID] = true
	}
	for _, nested := range subtree {
		for i := range nested.resultTypes {
			for _, u := range m.uses[nested.Result(i)] {
				if !inside[u.Op] {
					return errors.Errorf("cannot erase %s: result #%d is still used by %s", nested.Name, i, m.ops[u.Op].Name)
				}
			}
		}
	}
	m.eraseSubtree(op)
	return nil
}

// eraseSubtree drops op and everything below it without checking uses.
func (m *Module) eraseSubtree(op *Operation) {
	subtree := m.Subtree(op)
	for _, nested := range subtree {
		for i, v := range nested.operands {
			m.removeUse(v, Use{Op: nested.ID, Operand: i})
		}
	}
	for _, nested := range subtree {
		for i := range nested.resultTypes {
			delete(m.uses, nested.Result(i))
		}
		for _, r := range nested.regions {
			for _, b := range r.blocks {
				for i := range b.args {
					delete(m.uses, b.Argument(i))
				}
				m.blocks[b.ID] = nil
			}
		}
	}
	if b := m.Block(op.block); b != nil {
		if i := b.indexOf(op.ID); i >= 0 {
			b.ops = slices.Delete(b.ops, i, i+1)
		}
	}
	for _, nested := range subtree {
		m.ops[nested.ID] = nil
	}
}
