package dialect

import (
	"fmt"

	"github.com/pkg/errors"

	"irx/internal/ir"
)

var (
	// ErrDuplicateDialect is matched by *DuplicateDialectError.
	ErrDuplicateDialect = errors.New("duplicate dialect")
	// ErrNotFound is matched by *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrConstraintViolation is matched by *ConstraintViolation.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrFrozen is returned when registering into a frozen registry.
	ErrFrozen = errors.New("registry is frozen")
)

type DuplicateDialectError struct {
	Name string
}

func (e *DuplicateDialectError) Error() string {
	return fmt.Sprintf("dialect %q is already registered", e.Name)
}

func (e *DuplicateDialectError) Is(target error) bool { return target == ErrDuplicateDialect }

// NotFoundError reports an unregistered dialect, operation or dialect
// type. Op and Type are empty when the dialect itself is unknown.
type NotFoundError struct {
	Dialect string
	Op      string
	Type    string
}

func (e *NotFoundError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("type %s is not defined by dialect %q", e.Type, e.Dialect)
	}
	if e.Op == "" {
		return fmt.Sprintf("dialect %q is not registered", e.Dialect)
	}
	return fmt.Sprintf("operation %q is not defined by dialect %q", e.Op, e.Dialect)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConstraintViolation reports an operation that does not satisfy its
// definition. Position names the offending slot, e.g. "operand #1 (rhs)".
type ConstraintViolation struct {
	Op       string
	OpID     ir.OpID
	Loc      ir.Location
	Position string
	Reason   string
	Scoping  bool // Operand not visible at its use
}

func (e *ConstraintViolation) Error() string {
	if e.Position == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Position, e.Reason)
}

func (e *ConstraintViolation) Is(target error) bool { return target == ErrConstraintViolation }

// MissingRequirementError reports a dialect registered before one of the
// dialects it requires, or with a dependency that is too old.
type MissingRequirementError struct {
	Dialect     string
	Requirement Requirement
	Found       string
}

func (e *MissingRequirementError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("dialect %q requires %q, which is not registered", e.Dialect, e.Requirement)
	}
	return fmt.Sprintf("dialect %q requires %q, found version %q", e.Dialect, e.Requirement, e.Found)
}

func (e *MissingRequirementError) Is(target error) bool { return target == ErrNotFound }
