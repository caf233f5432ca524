package ir

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildEntrypoint builds func.func @entrypoint(i32, i32) -> i32 whose body
// adds both arguments with felt.add.
func buildEntrypoint(t *testing.T) (*Module, *Operation) {
	t.Helper()
	i32 := Integer(32)
	m := NewModule("")
	b := NewBuilder(m)

	var add *Operation
	fn, err := b.Create("func.func", nil, nil, map[string]Attribute{
		"sym_name":      &StringAttr{Value: "entrypoint"},
		"function_type": &TypeAttr{Type: Function([]Type{i32, i32}, []Type{i32})},
	}, func(rb *Builder, r *Region) error {
		entry := rb.AppendBlock(r, i32, i32)
		rb.SetInsertionPointToEnd(entry)
		var err error
		add, err = rb.Create("felt.add", entry.Arguments(), []Type{i32}, nil)
		if err != nil {
			return err
		}
		_, err = rb.Create("func.return", add.Results(), nil, nil)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, fn)
	return m, add
}

func TestBuilderCreate(t *testing.T) {
	m, add := buildEntrypoint(t)

	assert.Equal(t, 3, m.NumOps())
	assert.Equal(t, "felt", add.Dialect())
	assert.Equal(t, 2, add.NumOperands())
	assert.True(t, TypesEqual(Integer(32), m.TypeOf(add.Result(0))))

	fn := m.ParentOp(add)
	require.NotNil(t, fn)
	assert.Equal(t, "func.func", fn.Name)
	assert.Nil(t, m.ParentOp(fn))

	uses := m.Uses(add.Result(0))
	require.Len(t, uses, 1)
	assert.Equal(t, "func.return", m.Op(uses[0].Op).Name)
}

func TestBuilderRejectsBadNames(t *testing.T) {
	b := NewBuilder(NewModule(""))
	for _, name := range []string{"", "add", ".add", "felt.", "felt .add"} {
		_, err := b.Create(name, nil, nil, nil)
		assert.ErrorIs(t, err, ErrMalformedOperation, "name %q", name)
	}
}

func TestBuilderRejectsSiblingBlockValues(t *testing.T) {
	i32 := Integer(32)
	m := NewModule("")
	b := NewBuilder(m)

	_, err := b.Create("test.two_blocks", nil, nil, nil, func(rb *Builder, r *Region) error {
		first := rb.AppendBlock(r, i32)
		second := rb.AppendBlock(r)
		rb.SetInsertionPointToEnd(second)
		_, err := rb.Create("test.use", []Value{first.Argument(0)}, nil, nil)
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedOperation)

	var malformed *MalformedOperationError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "test.two_blocks", malformed.Name)
	assert.Equal(t, 0, m.NumOps(), "a failed region builder must not leave the operation behind")
}

func TestBuilderRejectsForwardReference(t *testing.T) {
	m := NewModule("")
	b := NewBuilder(m)
	c, err := b.CreateValue("arith.constant", nil, Integer(32), map[string]Attribute{
		"value": NewIntegerAttr(1, Integer(32)),
	})
	require.NoError(t, err)

	b.SetInsertionPointBefore(m.DefiningOp(c))
	_, err = b.Create("test.use", []Value{c}, nil, nil)
	assert.ErrorIs(t, err, ErrMalformedOperation)
}

func TestBuilderOuterScopeVisible(t *testing.T) {
	i32 := Integer(32)
	m := NewModule("")
	b := NewBuilder(m)
	outer, err := b.CreateValue("test.def", nil, i32, nil)
	require.NoError(t, err)

	_, err = b.Create("test.scope", nil, nil, nil, func(rb *Builder, r *Region) error {
		rb.SetInsertionPointToEnd(rb.AppendBlock(r))
		_, err := rb.Create("test.use", []Value{outer}, nil, nil)
		return err
	})
	require.NoError(t, err)
}

func TestEraseOp(t *testing.T) {
	m, add := buildEntrypoint(t)

	err := m.EraseOp(add)
	require.Error(t, err, "felt.add is still used by func.return")

	fn := m.ParentOp(add)
	require.NoError(t, m.EraseOp(fn))
	assert.Equal(t, 0, m.NumOps())
	assert.Nil(t, m.Op(add.ID))
	assert.False(t, m.Resolves(add.Result(0)))
}

func TestReplaceAllUsesWith(t *testing.T) {
	m, add := buildEntrypoint(t)
	entry := m.BlockOf(add)

	require.NoError(t, m.ReplaceAllUsesWith(add.Result(0), entry.Argument(1)))
	assert.False(t, m.HasUses(add))
	assert.Len(t, m.Uses(entry.Argument(1)), 2)
	require.NoError(t, m.EraseOp(add))

	ret := m.Ops(entry)[0]
	assert.Equal(t, "func.return", ret.Name)
	assert.Equal(t, entry.Argument(1), ret.Operand(0))
}

func TestCloneIsIndependent(t *testing.T) {
	m, add := buildEntrypoint(t)
	c := m.Clone()
	require.True(t, Equivalent(m, c))

	entry := c.BlockOf(c.Op(add.ID))
	require.NoError(t, c.ReplaceAllUsesWith(add.Result(0), entry.Argument(0)))
	require.NoError(t, c.EraseOp(c.Op(add.ID)))

	assert.Equal(t, 3, m.NumOps())
	assert.Equal(t, 2, c.NumOps())
	assert.False(t, Equivalent(m, c))
}

func TestWalkPreOrder(t *testing.T) {
	m, _ := buildEntrypoint(t)
	var names []string
	m.Walk(func(op *Operation) bool {
		names = append(names, op.Name)
		return true
	})
	assert.Equal(t, []string{"func.func", "felt.add", "func.return"}, names)
}
