package transform_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irx/internal/dialect"
	"irx/internal/ir"
	"irx/internal/pattern"
	"irx/internal/transform"
)

func TestDefaultPipeline(t *testing.T) {
	var out bytes.Buffer
	reg := dialect.NewBuiltinRegistry()
	p := transform.DefaultPipeline(&out, reg, pattern.Config{})
	require.Len(t, p.Passes(), 3)

	m := parse(t, `module {
  %0 = "arith.constant"() {value = 2 : i32} : () -> i32
  %1 = "arith.muli"(%0, %0) : (i32, i32) -> i32
  "test.use"(%1) : (i32) -> ()
}`)
	require.NoError(t, p.Run(m))
	assert.Equal(t, `Running 3 passes...
  - verify: Checks operand scoping and the registered operation definitions
    - No changes needed
  - canonicalize: Folds constants and identities and erases unused pure operations
    ✓ Applied changes
  - verify: Checks operand scoping and the registered operation definitions
    - No changes needed
`, out.String())
}

func TestPipelineStopsOnViolation(t *testing.T) {
	var out bytes.Buffer
	p := transform.NewPipeline(&out).
		AddPass(&transform.VerifyPass{Registry: dialect.NewBuiltinRegistry()}).
		AddPass(&transform.CanonicalizePass{Registry: dialect.NewBuiltinRegistry()})

	err := p.Run(parse(t, broken))
	require.Error(t, err)
	assert.ErrorIs(t, err, dialect.ErrConstraintViolation)
	assert.Contains(t, err.Error(), "pass verify")
	assert.NotContains(t, out.String(), "canonicalize")
}

func TestPatternPass(t *testing.T) {
	set := pattern.NewSet(pattern.Func("drop_marker", 1, "test.marker", func(rw *pattern.Rewriter, op *ir.Operation) (bool, error) {
		rw.EraseOp(op)
		return true, nil
	}))
	m := parse(t, `module {
  "test.marker"() : () -> ()
}`)
	changed, err := (&transform.PatternPass{Set: set}).Run(m)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Zero(t, m.NumOps())
}
