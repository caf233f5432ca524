package ir

import (
	"fmt"
	"slices"
)

// The IR is an arena of operations and blocks owned by a Module. Operations
// and blocks are addressed by stable integer ids; operand lists hold Value
// handles (definer id + index) that are resolved through the module, so an
// erased definition can never be reached through a stale pointer.

// OpID identifies an operation inside its module. The zero value is invalid.
type OpID int

// BlockID identifies a block inside its module. The zero value is invalid.
type BlockID int

// ValueKind tells whether a Value is a block argument or an op result.
type ValueKind uint8

const (
	ResultValue ValueKind = iota
	ArgumentValue
)

// Value is a weak reference to the Index-th result of operation Owner or to
// the Index-th argument of block Owner.
type Value struct {
	Kind  ValueKind
	Owner int
	Index int
}

// ResultOf returns the handle of the i-th result of op.
func ResultOf(op OpID, i int) Value { return Value{Kind: ResultValue, Owner: int(op), Index: i} }

// ArgumentOf returns the handle of the i-th argument of block b.
func ArgumentOf(b BlockID, i int) Value { return Value{Kind: ArgumentValue, Owner: int(b), Index: i} }

func (v Value) String() string {
	if v.Kind == ArgumentValue {
		return fmt.Sprintf("block%d.arg%d", v.Owner, v.Index)
	}
	return fmt.Sprintf("op%d#%d", v.Owner, v.Index)
}

// Use records that operand Operand of operation Op reads a value.
type Use struct {
	Op      OpID
	Operand int
}

// Location is the source position an operation was parsed from.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.Line == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Operation is a named IR node. Operands are only changed by the module's
// mutation primitives so that use lists stay consistent.
type Operation struct {
	ID         OpID
	Name       string
	Attributes map[string]Attribute
	Loc        Location

	operands    []Value
	resultTypes []Type
	regions     []*Region
	block       BlockID
}

// Operands returns a copy of the operand list.
func (op *Operation) Operands() []Value { return slices.Clone(op.operands) }

// Operand returns the i-th operand.
func (op *Operation) Operand(i int) Value { return op.operands[i] }

func (op *Operation) NumOperands() int { return len(op.operands) }

func (op *Operation) NumResults() int { return len(op.resultTypes) }

// ResultTypes returns a copy of the result type list.
func (op *Operation) ResultTypes() []Type { return slices.Clone(op.resultTypes) }

// Result returns the handle of the i-th result.
func (op *Operation) Result(i int) Value { return ResultOf(op.ID, i) }

// Results returns the handles of all results.
func (op *Operation) Results() []Value {
	results := make([]Value, len(op.resultTypes))
	for i := range results {
		results[i] = op.Result(i)
	}
	return results
}

// Regions returns the regions owned by the operation.
func (op *Operation) Regions() []*Region { return op.regions }

// Dialect returns the dialect prefix of the operation name.
func (op *Operation) Dialect() string {
	dialect, _ := SplitName(op.Name)
	return dialect
}

// Attr returns the named attribute or nil.
func (op *Operation) Attr(name string) Attribute {
	if op.Attributes == nil {
		return nil
	}
	return op.Attributes[name]
}

// Region is an ordered list of blocks owned by a single operation, or by the
// module for its body.
type Region struct {
	parent OpID
	blocks []*Block
}

// Blocks returns the blocks of the region in order.
func (r *Region) Blocks() []*Block { return r.blocks }

// Parent returns the owning operation id, 0 for the module body.
func (r *Region) Parent() OpID { return r.parent }

// Entry returns the first block or nil for an empty region.
func (r *Region) Entry() *Block {
	if len(r.blocks) == 0 {
		return nil
	}
	return r.blocks[0]
}

// Block owns typed arguments and an ordered list of operations.
type Block struct {
	ID BlockID

	args   []Type
	ops    []OpID
	region *Region
}

// ArgTypes returns a copy of the argument types.
func (b *Block) ArgTypes() []Type { return slices.Clone(b.args) }

func (b *Block) NumArguments() int { return len(b.args) }

// Argument returns the handle of the i-th argument.
func (b *Block) Argument(i int) Value { return ArgumentOf(b.ID, i) }

// Arguments returns handles for every block argument.
func (b *Block) Arguments() []Value {
	args := make([]Value, len(b.args))
	for i := range args {
		args[i] = b.Argument(i)
	}
	return args
}

// OpIDs returns a copy of the operation order.
func (b *Block) OpIDs() []OpID { return slices.Clone(b.ops) }

func (b *Block) Len() int { return len(b.ops) }

// Region returns the region owning the block.
func (b *Block) Region() *Region { return b.region }

func (b *Block) indexOf(id OpID) int { return slices.Index(b.ops, id) }

// Module is the root of an IR tree. It has no parent and owns a body region
// with exactly one block.
type Module struct {
	Name string

	body   *Region
	ops    []*Operation
	blocks []*Block
	uses   map[Value][]Use
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	m := &Module{
		Name:   name,
		ops:    []*Operation{nil},
		blocks: []*Block{nil},
		uses:   make(map[Value][]Use),
	}
	m.body = &Region{}
	m.newBlock(m.body, nil)
	return m
}

// Body returns the module's only block.
func (m *Module) Body() *Block { return m.body.blocks[0] }

// BodyRegion returns the region holding the body block.
func (m *Module) BodyRegion() *Region { return m.body }

// Op resolves an operation id; erased or unknown ids yield nil.
func (m *Module) Op(id OpID) *Operation {
	if id <= 0 || int(id) >= len(m.ops) {
		return nil
	}
	return m.ops[id]
}

// Block resolves a block id; erased or unknown ids yield nil.
func (m *Module) Block(id BlockID) *Block {
	if id <= 0 || int(id) >= len(m.blocks) {
		return nil
	}
	return m.blocks[id]
}

// NumOps counts the live operations of the module.
func (m *Module) NumOps() int {
	n := 0
	for _, op := range m.ops {
		if op != nil {
			n++
		}
	}
	return n
}

// TypeOf resolves the static type of a value, nil when it does not resolve.
func (m *Module) TypeOf(v Value) Type {
	switch v.Kind {
	case ResultValue:
		op := m.Op(OpID(v.Owner))
		if op == nil || v.Index < 0 || v.Index >= len(op.resultTypes) {
			return nil
		}
		return op.resultTypes[v.Index]
	case ArgumentValue:
		b := m.Block(BlockID(v.Owner))
		if b == nil || v.Index < 0 || v.Index >= len(b.args) {
			return nil
		}
		return b.args[v.Index]
	}
	return nil
}

// Resolves reports whether v designates a live definition.
func (m *Module) Resolves(v Value) bool { return m.TypeOf(v) != nil }

// DefiningOp returns the operation producing v, nil for block arguments.
func (m *Module) DefiningOp(v Value) *Operation {
	if v.Kind != ResultValue || !m.Resolves(v) {
		return nil
	}
	return m.Op(OpID(v.Owner))
}

// Uses returns a copy of the use list of v in creation order.
func (m *Module) Uses(v Value) []Use { return slices.Clone(m.uses[v]) }

// HasUses reports whether any result of op is used.
func (m *Module) HasUses(op *Operation) bool {
	for i := range op.resultTypes {
		if len(m.uses[op.Result(i)]) > 0 {
			return true
		}
	}
	return false
}

// BlockOf returns the block containing op.
func (m *Module) BlockOf(op *Operation) *Block { return m.Block(op.block) }

// ParentOp returns the operation whose region contains op, nil at top level.
func (m *Module) ParentOp(op *Operation) *Operation {
	b := m.BlockOf(op)
	if b == nil || b.region == nil {
		return nil
	}
	return m.Op(b.region.parent)
}

// Ops resolves the operations of a block in order.
func (m *Module) Ops(b *Block) []*Operation {
	ops := make([]*Operation, 0, len(b.ops))
	for _, id := range b.ops {
		ops = append(ops, m.ops[id])
	}
	return ops
}

func (m *Module) newBlock(r *Region, args []Type) *Block {
	b := &Block{ID: BlockID(len(m.blocks)), args: slices.Clone(args), region: r}
	m.blocks = append(m.blocks, b)
	r.blocks = append(r.blocks, b)
	return b
}

func (m *Module) addUse(v Value, u Use) {
	m.uses[v] = append(m.uses[v], u)
}

func (m *Module) removeUse(v Value, u Use) {
	uses := m.uses[v]
	for i, existing := range uses {
		if existing == u {
			uses = slices.Delete(uses, i, i+1)
			break
		}
	}
	if len(uses) == 0 {
		delete(m.uses, v)
		return
	}
	m.uses[v] = uses
}

// SplitName splits "dialect.op" at the first dot.
func SplitName(name string) (dialect, op string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return "", name
}
