package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	for _, name := range []string{"dialects", "patterns", "max-iterations", "strict", "fail-fast", "verbose", "no-color"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected flag --%s to exist", name)
		}
	}
	for _, name := range []string{"print", "verify", "canonicalize", "apply", "run", "dialects", "demo", "repl"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("expected subcommand %s to exist", name)
		}
	}
}

func TestPrintRoundTrip(t *testing.T) {
	want, err := os.ReadFile(testdata("fold.ir"))
	require.NoError(t, err)

	out, _, err := execute(t, "print", testdata("fold.ir"))
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestPrintSyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.ir")
	require.NoError(t, os.WriteFile(path, []byte("module {\n  %0 = \"test.use\"(%9) : (i32) -> i32\n}\n"), 0o644))

	_, errOut, err := execute(t, "print", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errReported))
	assert.Contains(t, errOut, "error[E0002]")
	assert.Contains(t, errOut, path+":2:")
}

func TestVerify(t *testing.T) {
	out, _, err := execute(t, "verify", testdata("fold.ir"))
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully verified testdata/fold.ir in ")

	_, errOut, err := execute(t, "verify", testdata("broken.ir"))
	require.Error(t, err)
	assert.Contains(t, errOut, "error[E0200]: arith.addi: operand #1 (rhs): missing")
	assert.Contains(t, errOut, `%1 = "arith.addi"(%0) : (i32) -> i32`)
	assert.Contains(t, errOut, "Verification failed after")
}

func TestVerifyUnregistered(t *testing.T) {
	_, _, err := execute(t, "verify", testdata("felt.ir"))
	require.NoError(t, err, "unregistered operations are opaque by default")

	_, errOut, err := execute(t, "verify", "--strict", testdata("felt.ir"))
	require.Error(t, err)
	assert.Contains(t, errOut, `dialect "felt" is not registered`)

	for _, defs := range []string{"felt.irdl", "felt.yaml"} {
		_, _, err = execute(t, "verify", "--strict", "--dialects", testdata(defs), testdata("felt.ir"))
		assert.NoError(t, err, defs)
	}
}

func TestCanonicalize(t *testing.T) {
	out, errOut, err := execute(t, "canonicalize", testdata("fold.ir"))
	require.NoError(t, err)
	assert.Equal(t, `module {
  "func.func"() ({
  ^bb0(%arg0: i32):
    %0 = "arith.constant"() {value = 6 : i32} : () -> i32
    %1 = "arith.addi"(%arg0, %0) : (i32, i32) -> i32
    "func.return"(%1) : (i32) -> ()
  }) {function_type = (i32) -> i32, sym_name = "entrypoint"} : () -> ()
}
`, out)
	assert.Contains(t, errOut, "Running 3 passes...")
	assert.Contains(t, errOut, "  - canonicalize: ")

	_, errOut, err = execute(t, "canonicalize", "-q", testdata("fold.ir"))
	require.NoError(t, err)
	assert.Empty(t, errOut)
}

func TestApply(t *testing.T) {
	out, errOut, err := execute(t, "apply",
		"--dialects", testdata("felt.irdl"),
		"--patterns", testdata("felt_to_remui.pdl"),
		testdata("felt.ir"))
	require.NoError(t, err)
	assert.Contains(t, out, `%2 = "arith.remui"(%0, %1) : (i32, i32) -> i32`)
	assert.NotContains(t, out, "felt.add")
	assert.Contains(t, errOut, "1 rewrites in 2 iterations")
	assert.Contains(t, errOut, "  felt_add_to_remui: 1")

	_, _, err = execute(t, "apply", testdata("felt.ir"))
	assert.ErrorContains(t, err, "--patterns")
}

func TestRun(t *testing.T) {
	out, _, err := execute(t, "run",
		"--dialects", testdata("felt.irdl"),
		"--patterns", testdata("felt_to_remui.pdl"),
		testdata("felt.ir"), "10", "7")
	require.NoError(t, err)
	assert.Equal(t, "4 : i32\n", out)

	out, _, err = execute(t, "run", testdata("fold.ir"), "4")
	require.NoError(t, err)
	assert.Equal(t, "10 : i32\n", out)

	_, _, err = execute(t, "run", testdata("felt.ir"), "10", "7")
	assert.ErrorContains(t, err, "no semantics for operation felt.add")
}

func TestDialects(t *testing.T) {
	out, _, err := execute(t, "dialects", "--dialects", testdata("felt.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "arith v1.0.0\n")
	assert.Contains(t, out, "felt v0.1.0\n")
	assert.Contains(t, out, "felt.add")
	assert.Contains(t, out, "field element addition")
}

func TestDemo(t *testing.T) {
	out, _, err := execute(t, "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "== Rewritten module ==")
	assert.True(t, strings.HasSuffix(out, "10 + 7 = 4 mod 13\n"))

	out, _, err = execute(t, "demo", "--a", "5", "--b", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "5 + 9 = 1 mod 13")
}

func TestRepl(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetIn(strings.NewReader(":dialects\n:quit\n"))
	cmd.SetArgs([]string{"repl"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "arith: arith.addf")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.5ms", formatDuration(1500000))
	assert.Equal(t, "2.00s", formatDuration(2000000000))
	assert.Equal(t, "12ns", formatDuration(12))
}
