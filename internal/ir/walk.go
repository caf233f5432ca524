package ir

// Walk visits every live operation in pre-order: an operation is visited
// before the operations nested in its regions, siblings in block order.
// Returning false from fn skips the regions of that operation.
func (m *Module) Walk(fn func(op *Operation) bool) {
	m.walkRegion(m.body, fn)
}

func (m *Module) walkRegion(r *Region, fn func(op *Operation) bool) {
	for _, b := range r.blocks {
		for _, id := range b.ops {
			op := m.ops[id]
			if !fn(op) {
				continue
			}
			for _, nested := range op.regions {
				m.walkRegion(nested, fn)
			}
		}
	}
}

// PreOrder snapshots the ids of every live operation in pre-order. Callers
// that mutate the module while iterating must re-resolve each id.
func (m *Module) PreOrder() []OpID {
	var ids []OpID
	m.Walk(func(op *Operation) bool {
		ids = append(ids, op.ID)
		return true
	})
	return ids
}

// Subtree returns op and all operations nested in its regions, pre-order.
func (m *Module) Subtree(op *Operation) []*Operation {
	ops := []*Operation{op}
	for _, r := range op.regions {
		m.walkRegion(r, func(nested *Operation) bool {
			ops = append(ops, nested)
			return true
		})
	}
	return ops
}

// IsAncestor reports whether anc is op or encloses op.
func (m *Module) IsAncestor(anc, op *Operation) bool {
	for cur := op; cur != nil; cur = m.ParentOp(cur) {
		if cur.ID == anc.ID {
			return true
		}
	}
	return false
}

// VisibleAt reports whether v may be used by an operation placed in block
// b right before position pos. A value is visible when it is an argument of
// b or of an enclosing block, or the result of an operation that precedes
// the insertion point (or one of its ancestors) in the same block. Values
// of sibling blocks are never visible.
func (m *Module) VisibleAt(v Value, b *Block, pos int) bool {
	if !m.Resolves(v) {
		return false
	}
	for b != nil {
		switch v.Kind {
		case ArgumentValue:
			if BlockID(v.Owner) == b.ID {
				return true
			}
		case ResultValue:
			if i := b.indexOf(OpID(v.Owner)); i >= 0 && i < pos {
				return true
			}
		}
		if b.region == nil || b.region.parent == 0 {
			return false
		}
		parent := m.ops[b.region.parent]
		b = m.Block(parent.block)
		if b == nil {
			return false
		}
		pos = b.indexOf(parent.ID)
	}
	return false
}

// IsVisible reports whether v is visible to operand slots of op.
func (m *Module) IsVisible(v Value, op *Operation) bool {
	b := m.BlockOf(op)
	if b == nil {
		return false
	}
	return m.VisibleAt(v, b, b.indexOf(op.ID))
}
