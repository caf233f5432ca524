package dialect_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"irx/internal/asm"
	"irx/internal/dialect"
	"irx/internal/ir"
)

type validateCase struct {
	Name       string            `yaml:"name"`
	Op         string            `yaml:"op"`
	Operands   []string          `yaml:"operands"`
	Results    []string          `yaml:"results"`
	Attributes map[string]string `yaml:"attributes"`
	Position   string            `yaml:"position"`
	Invalid    bool              `yaml:"invalid"`
}

func feltRegistry(t *testing.T) *dialect.Registry {
	t.Helper()
	r := dialect.NewBuiltinRegistry()
	dialects, err := dialect.LoadYAMLFile("testdata/felt.yaml")
	require.NoError(t, err)
	for _, d := range dialects {
		require.NoError(t, r.RegisterDialect(d))
	}
	r.Freeze()
	return r
}

func parseTypes(t *testing.T, srcs []string) []ir.Type {
	t.Helper()
	types := make([]ir.Type, len(srcs))
	for i, src := range srcs {
		ty, err := asm.ParseType(src)
		require.NoError(t, err, src)
		types[i] = ty
	}
	return types
}

func buildCase(t *testing.T, tc validateCase) (*ir.Module, *ir.Operation) {
	t.Helper()
	m := ir.NewModule("")
	b := ir.NewBuilder(m)
	var operands []ir.Value
	for _, ty := range parseTypes(t, tc.Operands) {
		v, err := b.CreateValue("test.def", nil, ty, nil)
		require.NoError(t, err)
		operands = append(operands, v)
	}
	attrs := make(map[string]ir.Attribute)
	for name, src := range tc.Attributes {
		a, err := asm.ParseAttribute(src)
		require.NoError(t, err, src)
		attrs[name] = a
	}
	op, err := b.Create(tc.Op, operands, parseTypes(t, tc.Results), attrs)
	require.NoError(t, err)
	return m, op
}

func TestValidateCases(t *testing.T) {
	data, err := os.ReadFile("testdata/validate_cases.yaml")
	require.NoError(t, err)
	var cases []validateCase
	require.NoError(t, yaml.Unmarshal(data, &cases))
	require.NotEmpty(t, cases)

	r := feltRegistry(t)
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			m, op := buildCase(t, tc)
			err := r.Validate(m, op)
			if tc.Position == "" && !tc.Invalid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, dialect.ErrConstraintViolation)

			var violation *dialect.ConstraintViolation
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, tc.Position, violation.Position, violation.Error())
			assert.Equal(t, tc.Op, violation.Op)
		})
	}
}

func TestValidateAllCollects(t *testing.T) {
	r := feltRegistry(t)
	m, op := buildCase(t, validateCase{
		Op:       "felt.add",
		Operands: []string{"i64", "f64"},
		Results:  []string{"ptr"},
	})
	violations, err := r.ValidateAll(m, op)
	require.NoError(t, err)
	require.Len(t, violations, 3)
	assert.Equal(t, "operand #0 (lhs)", violations[0].Position)
	assert.Equal(t, "operand #1 (rhs)", violations[1].Position)
	assert.Equal(t, "result #0 (res)", violations[2].Position)
}

func TestValidateUnregistered(t *testing.T) {
	r := feltRegistry(t)
	m, op := buildCase(t, validateCase{Op: "cmath.mul"})
	err := r.Validate(m, op)
	assert.ErrorIs(t, err, dialect.ErrNotFound)
	assert.NotErrorIs(t, err, dialect.ErrConstraintViolation)
}

func TestValidateTerminatorPosition(t *testing.T) {
	r := feltRegistry(t)
	m := ir.NewModule("")
	b := ir.NewBuilder(m)
	ret, err := b.Create("func.return", nil, nil, nil)
	require.NoError(t, err)
	_, err = b.Create("test.after", nil, nil, nil)
	require.NoError(t, err)

	err = r.Validate(m, ret)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminator")
}
