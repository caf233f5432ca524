package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irx/grammar"
)

const entrypoint = `// felt entrypoint
module @demo {
  "func.func"() ({
  ^bb0(%arg0: i32, %arg1: i32):
    %0 = "felt.add"(%arg0, %arg1) : (i32, i32) -> i32
    "func.return"(%0) : (i32) -> ()
  }) {function_type = (i32, i32) -> i32, llvm.emit_c_interface, sym_name = "entrypoint"} : () -> ()
}
`

func TestParseModule(t *testing.T) {
	m, err := grammar.ParseModule("entrypoint.mlir", entrypoint)
	require.NoError(t, err)

	assert.Equal(t, "@demo", m.Name)
	require.Len(t, m.Operations, 1)

	fn := m.Operations[0]
	assert.Equal(t, "func.func", fn.Name)
	assert.Nil(t, fn.Results)
	require.Len(t, fn.Regions, 1)
	require.NotNil(t, fn.Attributes)
	require.Len(t, fn.Attributes.Entries, 3)
	assert.Equal(t, "function_type", fn.Attributes.Entries[0].Name)
	require.NotNil(t, fn.Attributes.Entries[0].Value.Type)
	assert.NotNil(t, fn.Attributes.Entries[0].Value.Type.Function)
	assert.Equal(t, "llvm.emit_c_interface", fn.Attributes.Entries[1].Name)
	assert.Nil(t, fn.Attributes.Entries[1].Value)
	assert.Equal(t, "entrypoint", *fn.Attributes.Entries[2].Value.String)

	region := fn.Regions[0]
	assert.Empty(t, region.Entry)
	require.Len(t, region.Blocks, 1)
	block := region.Blocks[0]
	assert.Equal(t, "^bb0", block.Label)
	require.Len(t, block.Arguments, 2)
	assert.Equal(t, "%arg1", block.Arguments[1].Name)
	assert.Equal(t, "i32", block.Arguments[1].Type.Name)

	require.Len(t, block.Operations, 2)
	add := block.Operations[0]
	assert.Equal(t, "felt.add", add.Name)
	assert.Equal(t, "%0", add.Results.Name)
	assert.Equal(t, []string{"%arg0", "%arg1"}, add.Operands)
	assert.Equal(t, 5, add.Pos.Line)
}

func TestParseMultipleResults(t *testing.T) {
	src := `module {
  %0:2 = "test.pair"() : () -> (i8, f64)
  "test.use"(%0#1) {label = "x", n = -3 : i8, f = 1.5e+10 : f64, xs = [1 : i32, @f, unit]} : (f64) -> ()
}`
	m, err := grammar.ParseModule("", src)
	require.NoError(t, err)
	require.Len(t, m.Operations, 2)

	pair := m.Operations[0]
	assert.Equal(t, 2, pair.Results.Count)
	require.Len(t, pair.Type.Results, 2)
	assert.Equal(t, "f64", pair.Type.Results[1].Name)

	use := m.Operations[1]
	assert.Equal(t, []string{"%0#1"}, use.Operands)
	entries := use.Attributes.Entries
	require.Len(t, entries, 4)
	assert.Equal(t, "-3", entries[1].Value.Int.Value)
	assert.Equal(t, "1.5e+10", entries[2].Value.Float.Value)
	require.NotNil(t, entries[3].Value.Array)
	assert.Len(t, entries[3].Value.Array.Elements, 3)
	assert.True(t, entries[3].Value.Array.Elements[2].Unit)
}

func TestParseModuleError(t *testing.T) {
	_, err := grammar.ParseModule("bad.mlir", "module {\n  %0 = felt.add() : () -> i32\n}")
	require.Error(t, err)
	assert.ErrorIs(t, err, grammar.ErrParse)

	var pe *grammar.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Pos.Line)
}

func TestParseIRDL(t *testing.T) {
	src := `irdl.dialect @felt version "v0.1.0" requires ["arith"] {
  irdl.type @felt
  irdl.operation @add {
    %0 = irdl.is i32
    %1 = irdl.any_of(%0, %2)
    %2 = irdl.base "!felt.felt"
    irdl.operands(lhs: %1, rhs: variadic %0)
    irdl.results(res: %0)
    irdl.attributes {"tag" = %0}
    irdl.traits [pure, commutative]
  }
}`
	f, err := grammar.ParseIRDL("felt.irdl", src)
	require.NoError(t, err)
	require.Len(t, f.Dialects, 1)

	d := f.Dialects[0]
	assert.Equal(t, "@felt", d.Name)
	assert.Equal(t, "v0.1.0", d.Version)
	assert.Equal(t, []string{"arith"}, d.Requires)
	require.Len(t, d.Items, 2)
	assert.Equal(t, "@felt", d.Items[0].Type.Name)

	op := d.Items[1].Operation
	require.NotNil(t, op)
	require.Len(t, op.Statements, 7)
	assert.Equal(t, "i32", op.Statements[0].Constraint.Is.Name)
	assert.Equal(t, []string{"%0", "%2"}, op.Statements[1].Constraint.AnyOf)
	assert.Equal(t, "!felt.felt", op.Statements[2].Constraint.Base)

	operands := op.Statements[3].Segments
	assert.Equal(t, "irdl.operands", operands.Kind)
	require.Len(t, operands.Args, 2)
	assert.Equal(t, "", operands.Args[0].Variadicity)
	assert.Equal(t, "variadic", operands.Args[1].Variadicity)
	assert.Equal(t, "tag", op.Statements[5].Attributes.Entries[0].Name)
	assert.Equal(t, []string{"pure", "commutative"}, op.Statements[6].Traits.Names)
}

func TestParsePDL(t *testing.T) {
	src := `pdl.pattern @felt_add : benefit(2) {
  %t = pdl.type : i32
  %a = pdl.operand : %t
  %b = pdl.operand
  %root = pdl.operation "felt.add"(%a, %b : !pdl.value, !pdl.value) -> (%t : !pdl.type)
  pdl.rewrite %root {
    %k = pdl.attribute = 13 : i32
    %c = pdl.operation "arith.constant" {"value" = %k} -> (%t)
    %cv = pdl.result 0 of %c
    pdl.replace %root with (%cv)
  }
}`
	f, err := grammar.ParsePDL("felt.pdl", src)
	require.NoError(t, err)
	require.Len(t, f.Patterns, 1)

	p := f.Patterns[0]
	assert.Equal(t, "@felt_add", p.Name)
	assert.Equal(t, 2, p.Benefit)
	require.Len(t, p.Match, 4)
	assert.Equal(t, "i32", p.Match[0].Type.Type.Name)
	assert.Equal(t, "%t", p.Match[1].Operand.Type)
	root := p.Match[3].Operation
	assert.Equal(t, "felt.add", root.OpName)
	assert.Equal(t, []string{"%a", "%b"}, root.Operands)
	assert.Len(t, root.OperandTypes, 2)
	assert.Equal(t, []string{"%t"}, root.Results)

	require.NotNil(t, p.Rewrite)
	assert.Equal(t, "%root", p.Rewrite.Root)
	require.Len(t, p.Rewrite.Statements, 4)
	assert.Equal(t, "13", p.Rewrite.Statements[0].Attribute.Value.Int.Value)
	assert.Equal(t, "value", p.Rewrite.Statements[1].Operation.Attributes[0].Name)
	assert.Equal(t, 0, p.Rewrite.Statements[2].Result.Index)
	assert.Equal(t, []string{"%cv"}, p.Rewrite.Statements[3].Replace.Values)
}

func TestParseType(t *testing.T) {
	ty, err := grammar.ParseType("(i32, !felt.felt) -> (() -> ())")
	require.NoError(t, err)
	require.NotNil(t, ty.Function)
	assert.Len(t, ty.Function.Inputs, 2)
	assert.Equal(t, "!felt.felt", ty.Function.Inputs[1].Dialect)
	require.Len(t, ty.Function.Results, 1)
	assert.NotNil(t, ty.Function.Results[0].Function)
}
