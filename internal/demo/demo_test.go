package demo

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irx/internal/ir"
)

func TestCoreModule(t *testing.T) {
	m, err := BuildCoreModule()
	require.NoError(t, err)
	want := `module {
  "func.func"() ({
  ^bb0(%arg0: i32, %arg1: i32):
    %0 = "felt.add"(%arg0, %arg1) : (i32, i32) -> i32
    "func.return"(%0) : (i32) -> ()
  }) {function_type = (i32, i32) -> i32, llvm.emit_c_interface, sym_name = "entrypoint"} : () -> ()
}
`
	if diff := cmp.Diff(want, ir.Print(m)); diff != "" {
		t.Errorf("core module mismatch (-want +got):\n%s", diff)
	}
}

func TestRun(t *testing.T) {
	res, err := Run(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), res.Value)
	assert.Equal(t, 1, res.Report.Rewrites)

	var titles []string
	for _, s := range res.Stages {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Dialect module", "Core module", "Pattern module", "Rewritten module", "Result"}, titles)

	assert.Contains(t, res.Stages[0].Text, "registered felt: felt.add")
	assert.Contains(t, res.Stages[0].Text, "registered cmath: cmath.mul")
	assert.Contains(t, res.Stages[1].Text, `"felt.add"(%arg0, %arg1)`)
	assert.Contains(t, res.Stages[2].Text, "pdl.pattern @felt_add_to_remui")

	rewritten := res.Stages[3].Text
	assert.NotContains(t, rewritten, "felt.add")
	assert.Contains(t, rewritten, `%2 = "arith.remui"(%0, %1) : (i32, i32) -> i32`)
	assert.Equal(t, "10 + 7 = 4 mod 13\n", res.Stages[4].Text)
}

func TestRunWraps(t *testing.T) {
	res, err := Run(Config{A: 12, B: 12})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.Value)
}

func TestPrint(t *testing.T) {
	color.NoColor = true
	res := &Result{Stages: []Stage{{Title: "A", Text: "a\n"}, {Title: "B", Text: "b\n"}}}
	var sb strings.Builder
	res.Print(&sb)
	assert.Equal(t, "== A ==\na\n\n== B ==\nb\n", sb.String())
}
