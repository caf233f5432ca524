// Package transform holds the module-level passes: verification,
// canonicalization and the pass pipeline driving them.
package transform

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"irx/internal/dialect"
	"irx/internal/ir"
)

// Violations are the problems found by Verify, in pre-order of the
// operations they concern.
type Violations []*dialect.ConstraintViolation

// Err combines the violations into one error, nil when there are none.
func (v Violations) Err() error {
	var err error
	for _, violation := range v {
		err = multierr.Append(err, violation)
	}
	return err
}

type verifyConfig struct {
	failFast bool
	strict   bool
}

// VerifyOption configures Verify.
type VerifyOption func(*verifyConfig)

// FailFast stops verification at the first violation.
func FailFast() VerifyOption {
	return func(c *verifyConfig) { c.failFast = true }
}

// Strict reports operations without a registered definition. By default
// they are opaque and only their operand scoping is checked.
func Strict() VerifyOption {
	return func(c *verifyConfig) { c.strict = true }
}

// Verify checks every operation of m. Operands must resolve to values
// visible at the operation and registered operations must satisfy their
// definitions. A nil reg has no dialects: every operation is unregistered.
func Verify(m *ir.Module, reg *dialect.Registry, opts ...VerifyOption) Violations {
	cfg := &verifyConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if reg == nil {
		reg = dialect.NewRegistry()
	}
	var violations Violations
	done := false
	m.Walk(func(op *ir.Operation) bool {
		if done {
			return false
		}
		violations = append(violations, verifyOp(m, reg, op, cfg)...)
		if cfg.failFast && len(violations) > 0 {
			violations = violations[:1]
			done = true
			return false
		}
		return true
	})
	return violations
}

func verifyOp(m *ir.Module, reg *dialect.Registry, op *ir.Operation, cfg *verifyConfig) Violations {
	var violations Violations
	fail := func(position, format string, args ...any) *dialect.ConstraintViolation {
		v := &dialect.ConstraintViolation{
			Op:       op.Name,
			OpID:     op.ID,
			Loc:      op.Loc,
			Position: position,
			Reason:   fmt.Sprintf(format, args...),
		}
		violations = append(violations, v)
		return v
	}

	for i, v := range op.Operands() {
		switch {
		case !m.Resolves(v):
			fail(fmt.Sprintf("operand #%d", i), "value %s does not exist", v).Scoping = true
		case !m.IsVisible(v, op):
			fail(fmt.Sprintf("operand #%d", i), "value %s is not visible here", v).Scoping = true
		}
	}

	found, err := reg.ValidateAll(m, op)
	var notFound *dialect.NotFoundError
	switch {
	case errors.As(err, &notFound):
		if cfg.strict {
			fail("", "%v", err)
		}
		return violations
	case err != nil:
		fail("", "%v", err)
		return violations
	}
	return append(violations, found...)
}
