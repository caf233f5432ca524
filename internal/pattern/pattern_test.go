package pattern_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irx/internal/asm"
	"irx/internal/ir"
	"irx/internal/pattern"
)

const feltModule = `module {
  "func.func"() ({
  ^bb0(%arg0: i32, %arg1: i32):
    %0 = "felt.add"(%arg0, %arg1) : (i32, i32) -> i32
    "func.return"(%0) : (i32) -> ()
  }) {function_type = (i32, i32) -> i32, sym_name = "entrypoint"} : () -> ()
}
`

func parse(t *testing.T, src string) *ir.Module {
	t.Helper()
	m, err := asm.ParseModule("", src)
	require.NoError(t, err)
	return m
}

func assertPrinted(t *testing.T, want string, m *ir.Module) {
	t.Helper()
	if diff := cmp.Diff(want, ir.Print(m)); diff != "" {
		t.Errorf("module mismatch (-want +got):\n%s", diff)
	}
}

func feltAddRoot() *pattern.OperationPattern {
	return &pattern.OperationPattern{
		Slot:     0,
		Name:     "felt.add",
		Operands: []pattern.Node{&pattern.ValuePattern{Slot: 1}, &pattern.ValuePattern{Slot: 2}},
		Results:  []*pattern.TypePattern{{Slot: 3}},
	}
}

// addToAddi rewrites felt.add(a, b) into arith.addi(a, b).
func addToAddi(benefit int) *pattern.Pattern {
	return pattern.NewPattern("felt_add_to_addi", benefit, feltAddRoot(),
		&pattern.BuildOperation{Slot: 4, Name: "arith.addi", Operands: []int{1, 2}, ResultTypes: []int{3}},
		&pattern.Replace{Op: 0, With: []int{4}},
	)
}

// addToRemui rewrites felt.add(a, b) into arith.remui(arith.addi(a, b), 13).
func addToRemui(benefit int) *pattern.Pattern {
	return pattern.NewPattern("felt_add_to_remui", benefit, feltAddRoot(),
		&pattern.BuildOperation{Slot: 4, Name: "arith.addi", Operands: []int{1, 2}, ResultTypes: []int{3}},
		&pattern.BuildAttribute{Slot: 5, Value: ir.NewIntegerAttr(13, ir.Integer(32))},
		&pattern.BuildOperation{Slot: 6, Name: "arith.constant", Attributes: map[string]int{"value": 5}, ResultTypes: []int{3}},
		&pattern.BuildOperation{Slot: 7, Name: "arith.remui", Operands: []int{4, 6}, ResultTypes: []int{3}},
		&pattern.Replace{Op: 0, With: []int{7}},
	)
}

func TestFeltAddToAddi(t *testing.T) {
	m := parse(t, feltModule)
	fn := m.Ops(m.Body())[0]
	entry := fn.Regions()[0].Entry()

	report, err := pattern.ApplyGreedily(m, pattern.NewSet(addToAddi(1)), pattern.Config{})
	require.NoError(t, err)
	assert.True(t, report.Converged)
	assert.Equal(t, 1, report.Rewrites)
	assert.Equal(t, 2, report.Iterations)

	ops := m.Ops(entry)
	require.Len(t, ops, 2)
	addi := ops[0]
	assert.Equal(t, "arith.addi", addi.Name)
	assert.Equal(t, entry.Arguments(), addi.Operands())
	assert.True(t, ir.TypesEqual(ir.Integer(32), m.TypeOf(addi.Result(0))))
	assert.Equal(t, addi.Result(0), ops[1].Operand(0))
}

func TestFeltAddToRemui(t *testing.T) {
	m := parse(t, feltModule)
	_, err := pattern.ApplyGreedily(m, pattern.NewSet(addToRemui(1)), pattern.Config{})
	require.NoError(t, err)

	assertPrinted(t, `module {
  "func.func"() ({
  ^bb0(%arg0: i32, %arg1: i32):
    %0 = "arith.addi"(%arg0, %arg1) : (i32, i32) -> i32
    %1 = "arith.constant"() {value = 13 : i32} : () -> i32
    %2 = "arith.remui"(%0, %1) : (i32, i32) -> i32
    "func.return"(%2) : (i32) -> ()
  }) {function_type = (i32, i32) -> i32, sym_name = "entrypoint"} : () -> ()
}
`, m)
}

func TestTieBreak(t *testing.T) {
	t.Run("higher benefit wins", func(t *testing.T) {
		m := parse(t, feltModule)
		set := pattern.NewSet(addToAddi(1), addToRemui(2))
		assert.Equal(t, "felt_add_to_remui", set.Patterns()[0].Name())

		report, err := pattern.ApplyGreedily(m, set, pattern.Config{})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"felt_add_to_remui": 1}, report.Applied)
	})
	t.Run("registration order breaks ties", func(t *testing.T) {
		m := parse(t, feltModule)
		report, err := pattern.ApplyGreedily(m, pattern.NewSet(addToAddi(1), addToRemui(1)), pattern.Config{})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"felt_add_to_addi": 1}, report.Applied)
	})
}

func TestDeterministicOnClones(t *testing.T) {
	m := parse(t, feltModule)
	set := pattern.NewSet(addToRemui(1), addToAddi(1))

	a, b := m.Clone(), m.Clone()
	_, err := pattern.ApplyGreedily(a, set, pattern.Config{})
	require.NoError(t, err)
	_, err = pattern.ApplyGreedily(b, set, pattern.Config{})
	require.NoError(t, err)

	assert.Equal(t, ir.Print(a), ir.Print(b))
	assert.True(t, ir.Equivalent(a, b))
	assert.Contains(t, ir.Print(m), "felt.add", "the original module is untouched")
}

func TestSubtreeMatch(t *testing.T) {
	negNeg := pattern.NewPattern("double_negation", 1, &pattern.OperationPattern{
		Slot: 0,
		Name: "test.neg",
		Operands: []pattern.Node{&pattern.ResultPattern{
			Slot: 1,
			Op: &pattern.OperationPattern{
				Slot:     2,
				Name:     "test.neg",
				Operands: []pattern.Node{&pattern.ValuePattern{Slot: 3}},
			},
		}},
	}, &pattern.Replace{Op: 0, With: []int{3}})

	m := parse(t, `module {
  %0 = "test.def"() : () -> i32
  %1 = "test.neg"(%0) : (i32) -> i32
  %2 = "test.neg"(%1) : (i32) -> i32
  "test.use"(%2) : (i32) -> ()
}`)
	_, err := pattern.ApplyGreedily(m, pattern.NewSet(negNeg), pattern.Config{})
	require.NoError(t, err)
	assertPrinted(t, `module {
  %0 = "test.def"() : () -> i32
  "test.use"(%0) : (i32) -> ()
}
`, m)

	shared := parse(t, `module {
  %0 = "test.def"() : () -> i32
  %1 = "test.neg"(%0) : (i32) -> i32
  %2 = "test.neg"(%1) : (i32) -> i32
  "test.use"(%2, %1) : (i32, i32) -> ()
}`)
	_, err = pattern.ApplyGreedily(shared, pattern.NewSet(negNeg), pattern.Config{})
	require.NoError(t, err)
	assertPrinted(t, `module {
  %0 = "test.def"() : () -> i32
  %1 = "test.neg"(%0) : (i32) -> i32
  "test.use"(%0, %1) : (i32, i32) -> ()
}
`, shared)
}

func TestPlaceholderReuse(t *testing.T) {
	// Slot 1 is used for both operands, so only add(x, x) matches.
	double := pattern.NewPattern("double", 1, &pattern.OperationPattern{
		Slot:     0,
		Name:     "felt.add",
		Operands: []pattern.Node{&pattern.ValuePattern{Slot: 1}, &pattern.ValuePattern{Slot: 1}},
	}, &pattern.Erase{Op: 0})

	m := parse(t, `module {
  %0 = "test.def"() : () -> i32
  %1 = "test.def"() : () -> i32
  "felt.add"(%0, %1) : (i32, i32) -> i32
  "felt.add"(%0, %0) : (i32, i32) -> i32
}`)
	report, err := pattern.ApplyGreedily(m, pattern.NewSet(double), pattern.Config{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rewrites)
	assert.Equal(t, 3, m.NumOps())
}

func TestMaxIterationsExceeded(t *testing.T) {
	flip := func(from, to string) pattern.RewritePattern {
		return pattern.Func(from+"_to_"+to, 1, from, func(rw *pattern.Rewriter, op *ir.Operation) (bool, error) {
			newOp, err := rw.Create(to, op.Operands(), op.ResultTypes(), nil)
			if err != nil {
				return false, err
			}
			rw.ReplaceOpWithOp(op, newOp)
			return true, nil
		})
	}
	m := parse(t, `module {
  %0 = "test.a"() : () -> i32
  "test.use"(%0) : (i32) -> ()
}`)
	report, err := pattern.ApplyGreedily(m, pattern.NewSet(flip("test.a", "test.b"), flip("test.b", "test.a")), pattern.Config{MaxIterations: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, pattern.ErrMaxIterationsExceeded)
	require.NotNil(t, report)
	assert.False(t, report.Converged)
	assert.Equal(t, 3, report.Iterations)
	assert.Equal(t, 3, report.Rewrites)

	assertPrinted(t, `module {
  %0 = "test.b"() : () -> i32
  "test.use"(%0) : (i32) -> ()
}
`, m)
}

func TestMaxIterationsReachedAtFixpoint(t *testing.T) {
	m := parse(t, feltModule)
	report, err := pattern.ApplyGreedily(m, pattern.NewSet(addToAddi(1)), pattern.Config{MaxIterations: 1})
	require.NoError(t, err)
	assert.True(t, report.Converged)
	assert.Equal(t, 2, report.Iterations)
	assert.Equal(t, 1, report.Rewrites)
	assert.Equal(t, 1, report.Applied["felt_add_to_addi"])
}

func TestInvalidRewriteRollsBack(t *testing.T) {
	wrongType := pattern.Func("wrong_type", 1, "felt.add", func(rw *pattern.Rewriter, op *ir.Operation) (bool, error) {
		f, err := rw.Create("arith.constant", nil, []ir.Type{ir.F64()}, map[string]ir.Attribute{
			"value": &ir.FloatAttr{Value: 1, Type: ir.F64()},
		})
		if err != nil {
			return false, err
		}
		rw.ReplaceOpWithOp(op, f)
		return true, nil
	})

	m := parse(t, feltModule)
	before := m.Clone()
	_, err := pattern.ApplyGreedily(m, pattern.NewSet(wrongType), pattern.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, pattern.ErrInvalidRewrite)
	assert.True(t, ir.Equivalent(before, m), ir.Print(m))
}

func TestReplacementDefinedByErasedOpRollsBack(t *testing.T) {
	// Replaces the outer negation by the inner one's result, then erases
	// the inner negation whose result just gained the outer op's uses.
	collapse := pattern.Func("collapse_neg", 1, "test.neg", func(rw *pattern.Rewriter, op *ir.Operation) (bool, error) {
		inner := rw.Module().DefiningOp(op.Operand(0))
		if inner == nil || inner.Name != "test.neg" {
			return false, nil
		}
		rw.ReplaceOp(op, inner.Result(0))
		rw.EraseOp(inner)
		return true, nil
	})

	m := parse(t, `module {
  "func.func"() ({
  ^bb0(%arg0: i32):
    %0 = "test.neg"(%arg0) : (i32) -> i32
    %1 = "test.neg"(%0) : (i32) -> i32
    "func.return"(%1) : (i32) -> ()
  }) {function_type = (i32) -> i32, sym_name = "f"} : () -> ()
}`)
	before := m.Clone()
	_, err := pattern.ApplyGreedily(m, pattern.NewSet(collapse), pattern.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, pattern.ErrInvalidRewrite)

	var invalid *pattern.InvalidRewriteError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "collapse_neg", invalid.Pattern)
	assert.True(t, ir.Equivalent(before, m), ir.Print(m))
}

func TestAnyRootPattern(t *testing.T) {
	var seen []string
	observe := pattern.Func("observe", 0, "", func(rw *pattern.Rewriter, op *ir.Operation) (bool, error) {
		seen = append(seen, op.Name)
		return false, nil
	})
	set := pattern.NewSet(observe, addToAddi(1))
	assert.Len(t, set.Candidates("felt.add"), 2)
	assert.Len(t, set.Candidates("func.return"), 1)

	m := parse(t, feltModule)
	_, err := pattern.ApplyGreedily(m, set, pattern.Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"func.func", "func.return",
		"func.func", "arith.addi", "func.return",
	}, seen)
}

func TestEmptyModuleConverges(t *testing.T) {
	m := ir.NewModule("")
	report, err := pattern.ApplyGreedily(m, pattern.NewSet(addToAddi(1)), pattern.Config{})
	require.NoError(t, err)
	assert.True(t, report.Converged)
	assert.Equal(t, 1, report.Iterations)
}
