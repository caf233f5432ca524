package ir

// Equivalent reports whether a and b hold the same tree up to the
// numbering of operations, blocks and values: same names, attributes,
// types and nesting, and operands that refer to corresponding definitions.
func Equivalent(a, b *Module) bool {
	if a.Name != b.Name {
		return false
	}
	eq := &equivalence{a: a, b: b, values: make(map[Value]Value)}
	return eq.regions(a.body, b.body)
}

type equivalence struct {
	a, b   *Module
	values map[Value]Value
}

func (e *equivalence) regions(ra, rb *Region) bool {
	if len(ra.blocks) != len(rb.blocks) {
		return false
	}
	for i := range ra.blocks {
		ba, bb := ra.blocks[i], rb.blocks[i]
		if !TypeListsEqual(ba.args, bb.args) || len(ba.ops) != len(bb.ops) {
			return false
		}
		for j := range ba.args {
			e.values[ba.Argument(j)] = bb.Argument(j)
		}
	}
	for i := range ra.blocks {
		ba, bb := ra.blocks[i], rb.blocks[i]
		for j := range ba.ops {
			if !e.ops(e.a.ops[ba.ops[j]], e.b.ops[bb.ops[j]]) {
				return false
			}
		}
	}
	return true
}

func (e *equivalence) ops(oa, ob *Operation) bool {
	if oa.Name != ob.Name ||
		len(oa.operands) != len(ob.operands) ||
		len(oa.regions) != len(ob.regions) ||
		!TypeListsEqual(oa.resultTypes, ob.resultTypes) ||
		!AttributeMapsEqual(oa.Attributes, ob.Attributes) {
		return false
	}
	for i, v := range oa.operands {
		mapped, ok := e.values[v]
		if !ok || mapped != ob.operands[i] {
			return false
		}
	}
	for i := range oa.regions {
		if !e.regions(oa.regions[i], ob.regions[i]) {
			return false
		}
	}
	for i := range oa.resultTypes {
		e.values[oa.Result(i)] = ob.Result(i)
	}
	return true
}
