package ir

import (
	"maps"
	"slices"
)

// Clone returns a deep copy of the module. Ids are preserved so value
// handles taken on m designate the same definitions in the copy.
func (m *Module) Clone() *Module {
	c := &Module{
		Name:   m.Name,
		ops:    make([]*Operation, len(m.ops)),
		blocks: make([]*Block, len(m.blocks)),
		uses:   make(map[Value][]Use, len(m.uses)),
	}
	for i, b := range m.blocks {
		if b == nil {
			continue
		}
		c.blocks[i] = &Block{ID: b.ID, args: slices.Clone(b.args), ops: slices.Clone(b.ops)}
	}
	cloneRegion := func(r *Region) *Region {
		nr := &Region{parent: r.parent, blocks: make([]*Block, len(r.blocks))}
		for i, b := range r.blocks {
			nb := c.blocks[b.ID]
			nb.region = nr
			nr.blocks[i] = nb
		}
		return nr
	}
	c.body = cloneRegion(m.body)
	for i, op := range m.ops {
		if op == nil {
			continue
		}
		nop := &Operation{
			ID:          op.ID,
			Name:        op.Name,
			Attributes:  maps.Clone(op.Attributes),
			Loc:         op.Loc,
			operands:    slices.Clone(op.operands),
			resultTypes: slices.Clone(op.resultTypes),
			block:       op.block,
		}
		for _, r := range op.regions {
			nop.regions = append(nop.regions, cloneRegion(r))
		}
		c.ops[i] = nop
	}
	for v, uses := range m.uses {
		c.uses[v] = slices.Clone(uses)
	}
	return c
}
