package errors

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"irx/grammar"
	"irx/internal/asm"
	"irx/internal/dialect"
	"irx/internal/ir"
	"irx/internal/pattern"
	"irx/internal/transform"
)

func init() {
	color.NoColor = true
}

const source = `module {
  %0 = "arith.constant"() : () -> i32
  %1 = "arith.constant"() {value = 1.0 : f64} : () -> f64
  %2 = "arith.addi"(%0, %1) : (i32, f64) -> i32
}`

func TestErrorReporter(t *testing.T) {
	m, err := asm.ParseModule("test.ir", source)
	require.NoError(t, err)
	violations := transform.Verify(m, dialect.NewBuiltinRegistry())
	require.Len(t, violations, 3)

	reporter := NewErrorReporter("test.ir", source)
	formatted := reporter.Report(violations.Err())

	// Should contain error level and code, once per violation
	assert.Equal(t, 3, strings.Count(formatted, "error["+ErrorConstraintViolation+"]"))
	assert.Contains(t, formatted, "arith.addi: operand #1 (rhs)")

	// Should contain location and the offending line
	assert.Contains(t, formatted, "test.ir:4:")
	assert.Contains(t, formatted, `%2 = "arith.addi"(%0, %1)`)
	assert.Contains(t, formatted, "^")
}

func TestParseFailure(t *testing.T) {
	src := "module {\n  %0 = \"test.use\"(%9) : (i32) -> i32\n}"
	_, err := asm.ParseModule("test.ir", src)
	require.Error(t, err)

	d := Diagnose(err, nil)
	assert.Equal(t, ErrorUndefinedValue, d.Code)
	assert.Equal(t, 2, d.Position.Line)
	assert.Contains(t, d.Message, "%9")

	formatted := NewErrorReporter("test.ir", src).FormatError(d)
	assert.Contains(t, formatted, "error["+ErrorUndefinedValue+"]")
	assert.Contains(t, formatted, "test.ir:2:")
	assert.Contains(t, formatted, `"test.use"(%9)`)

	_, err = asm.ParseModule("test.ir", "module {\n  %0 = \n}")
	require.Error(t, err)
	assert.Equal(t, ErrorSyntax, Diagnose(err, nil).Code)
}

func TestUnknownOperation(t *testing.T) {
	reg := dialect.NewBuiltinRegistry()
	_, err := reg.Lookup("arith.addj")
	require.Error(t, err)

	d := Diagnose(err, reg.OperationNames())
	assert.Equal(t, ErrorUnknownOperation, d.Code)
	require.Len(t, d.Suggestions, 1)
	assert.Equal(t, "did you mean one of: 'arith.addf', 'arith.addi'?", d.Suggestions[0])

	d = Diagnose(err, []string{"arith.addi"})
	assert.Equal(t, []string{"did you mean 'arith.addi'?"}, d.Suggestions)

	_, err = reg.Lookup("felt.add")
	d = Diagnose(err, reg.OperationNames())
	assert.Empty(t, d.Suggestions)
	assert.Contains(t, d.HelpText, "--dialects")
}

func TestDiagnoseCodes(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		code  string
		level ErrorLevel
	}{
		{"duplicate", &dialect.DuplicateDialectError{Name: "arith"}, ErrorDuplicateDialect, Error},
		{"frozen", pkgerrors.Wrap(dialect.ErrFrozen, "register felt"), ErrorFrozenRegistry, Error},
		{"missing", &dialect.MissingRequirementError{Dialect: "felt"}, ErrorMissingRequirement, Error},
		{"scoping", &dialect.ConstraintViolation{Op: "test.use", Reason: "not visible", Scoping: true}, ErrorScoping, Error},
		{"malformed", &ir.MalformedOperationError{Name: "bad", Reason: "no dialect"}, ErrorMalformedOperation, Error},
		{"invalid rewrite", &pattern.InvalidRewriteError{Pattern: "p", Op: "felt.add", Reason: "type mismatch"}, ErrorInvalidRewrite, Error},
		{"max iterations", &pattern.MaxIterationsExceededError{Iterations: 10, Rewrites: 10}, WarningMaxIterations, Warning},
		{"generic", pkgerrors.New("boom"), ErrorGeneric, Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Diagnose(tt.err, nil)
			assert.Equal(t, tt.code, d.Code)
			assert.Equal(t, tt.level, d.Level)
			assert.Equal(t, tt.level == Warning, IsWarning(d.Code))
		})
	}
}

func TestDiagnosticError(t *testing.T) {
	d := NewError(ErrorSyntax, "unexpected token", grammar.Position{Filename: "a.ir", Line: 3, Column: 7}).Build()
	assert.Equal(t, "a.ir:3:7: error[E0001]: unexpected token", d.Error())

	d = NewWarning(WarningMaxIterations, "no fixpoint", grammar.Position{}).Build()
	assert.Equal(t, "warning[W0001]: no fixpoint", d.Error())
}

func TestErrorCategories(t *testing.T) {
	assert.Equal(t, "Textual Form", GetErrorCategory(ErrorSyntax))
	assert.Equal(t, "Dialect Registry", GetErrorCategory(ErrorFrozenRegistry))
	assert.Equal(t, "Verification", GetErrorCategory(ErrorScoping))
	assert.Equal(t, "Rewrite", GetErrorCategory(ErrorInvalidRewrite))
	assert.Equal(t, "Warning", GetErrorCategory(WarningMaxIterations))
	assert.Equal(t, "Unknown", GetErrorCategory(""))
	assert.Equal(t, "Operand is not visible where it is used", GetErrorDescription(ErrorScoping))
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("addi", "addi"))
	assert.Equal(t, 1, levenshteinDistance("addi", "addf"))
	assert.Equal(t, 3, levenshteinDistance("", "abc"))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestMultipleErrors(t *testing.T) {
	err := multierr.Combine(
		&dialect.DuplicateDialectError{Name: "arith"},
		&pattern.MaxIterationsExceededError{Iterations: 3, Rewrites: 3},
	)
	formatted := NewErrorReporter("x.ir", "").Report(err)
	assert.Contains(t, formatted, "error[E0100]")
	assert.Contains(t, formatted, "warning[W0001]")
	assert.Contains(t, formatted, "help: raise --max-iterations")
}
