package ir

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// RegionBuilder populates a freshly created region of the operation being
// built. b is a builder of the same module with no insertion block yet;
// typically the callback appends a block and moves b into it.
type RegionBuilder func(b *Builder, r *Region) error

// Builder creates operations at an explicit insertion point. Builders are
// cheap values: nested regions are populated through their own builder.
type Builder struct {
	m      *Module
	block  *Block
	before OpID
	loc    Location
}

// NewBuilder returns a builder inserting at the end of the module body.
func NewBuilder(m *Module) *Builder {
	return &Builder{m: m, block: m.Body()}
}

// Module returns the module being built.
func (b *Builder) Module() *Module { return b.m }

// Block returns the current insertion block, nil when none is set.
func (b *Builder) Block() *Block { return b.block }

// SetInsertionPointToEnd makes subsequent operations append to blk.
func (b *Builder) SetInsertionPointToEnd(blk *Block) {
	b.block = blk
	b.before = 0
}

// SetInsertionPointBefore makes subsequent operations go right before op.
func (b *Builder) SetInsertionPointBefore(op *Operation) {
	b.block = b.m.BlockOf(op)
	b.before = op.ID
}

// SetLocation sets the location recorded on created operations.
func (b *Builder) SetLocation(loc Location) { b.loc = loc }

// At returns a builder appending to blk.
func (b *Builder) At(blk *Block) *Builder {
	return &Builder{m: b.m, block: blk, loc: b.loc}
}

// AppendBlock appends a block with the given argument types to r.
func (b *Builder) AppendBlock(r *Region, argTypes ...Type) *Block {
	return b.m.newBlock(r, argTypes)
}

func (b *Builder) insertionIndex() int {
	if b.before == 0 {
		return len(b.block.ops)
	}
	return b.block.indexOf(b.before)
}

// Create builds an operation at the insertion point. Every operand must be
// visible there. Region builders run after the operation is in place so
// nested operations can use values of enclosing scopes; if one fails the
// operation is erased again and the error is returned.
func (b *Builder) Create(name string, operands []Value, resultTypes []Type, attrs map[string]Attribute, regions ...RegionBuilder) (*Operation, error) {
	if err := checkName(name); err != "" {
		return nil, malformed(name, b.loc, "%s", err)
	}
	if b.block == nil {
		return nil, malformed(name, b.loc, "builder has no insertion block")
	}
	pos := b.insertionIndex()
	if pos < 0 {
		return nil, malformed(name, b.loc, "insertion point is no longer in its block")
	}
	for i, v := range operands {
		if !b.m.Resolves(v) {
			return nil, malformed(name, b.loc, "operand #%d (%s) does not resolve to a live value", i, v)
		}
		if !b.m.VisibleAt(v, b.block, pos) {
			return nil, malformed(name, b.loc, "operand #%d (%s) is not defined in an enclosing scope", i, v)
		}
	}
	for i, t := range resultTypes {
		if t == nil {
			return nil, malformed(name, b.loc, "result #%d has no type", i)
		}
	}

	op := &Operation{
		ID:          OpID(len(b.m.ops)),
		Name:        name,
		Attributes:  maps.Clone(attrs),
		Loc:         b.loc,
		operands:    slices.Clone(operands),
		resultTypes: slices.Clone(resultTypes),
		block:       b.block.ID,
	}
	if op.Attributes == nil {
		op.Attributes = make(map[string]Attribute)
	}
	b.m.ops = append(b.m.ops, op)
	b.block.ops = slices.Insert(b.block.ops, pos, op.ID)
	for i, v := range op.operands {
		b.m.addUse(v, Use{Op: op.ID, Operand: i})
	}

	for i, build := range regions {
		r := &Region{parent: op.ID}
		op.regions = append(op.regions, r)
		if build == nil {
			continue
		}
		if err := build(&Builder{m: b.m, loc: b.loc}, r); err != nil {
			b.m.eraseSubtree(op)
			return nil, &MalformedOperationError{Name: name, Loc: b.loc, Reason: "building region #" + strconv.Itoa(i), Cause: err}
		}
	}
	return op, nil
}

// CreateValue builds a single-result operation and returns its result.
func (b *Builder) CreateValue(name string, operands []Value, resultType Type, attrs map[string]Attribute) (Value, error) {
	op, err := b.Create(name, operands, []Type{resultType}, attrs)
	if err != nil {
		return Value{}, err
	}
	return op.Result(0), nil
}

// AddRegion appends an empty region to op and returns it. Used by parsers
// that populate regions after creating the operation.
func (b *Builder) AddRegion(op *Operation) *Region {
	r := &Region{parent: op.ID}
	op.regions = append(op.regions, r)
	return r
}

func checkName(name string) string {
	dialect, op := SplitName(name)
	switch {
	case name == "":
		return "empty operation name"
	case dialect == "" || op == "":
		return "operation name must be qualified as dialect.op"
	case strings.ContainsAny(name, " \t\n\""):
		return "operation name contains whitespace or quotes"
	}
	return ""
}
