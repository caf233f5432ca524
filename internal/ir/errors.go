package ir

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMalformedOperation is matched by every *MalformedOperationError.
var ErrMalformedOperation = errors.New("malformed operation")

// MalformedOperationError reports an operation that could not be
// constructed: a bad name, an operand from an unreachable scope or a
// failing region builder.
type MalformedOperationError struct {
	Name   string
	Reason string
	Loc    Location
	Cause  error
}

func (e *MalformedOperationError) Error() string {
	msg := fmt.Sprintf("malformed operation %q: %s", e.Name, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MalformedOperationError) Is(target error) bool { return target == ErrMalformedOperation }

func (e *MalformedOperationError) Unwrap() error { return e.Cause }

func malformed(name string, loc Location, format string, args ...any) *MalformedOperationError {
	return &MalformedOperationError{Name: name, Loc: loc, Reason: fmt.Sprintf(format, args...)}
}
