package pattern

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMaxIterationsExceeded is matched by *MaxIterationsExceededError.
	ErrMaxIterationsExceeded = errors.New("max iterations exceeded")
	// ErrInvalidRewrite is matched by *InvalidRewriteError.
	ErrInvalidRewrite = errors.New("invalid rewrite")
)

// MaxIterationsExceededError is returned together with the partially
// rewritten module when the driver stops before reaching a fixpoint.
type MaxIterationsExceededError struct {
	Iterations int
	Rewrites   int
}

func (e *MaxIterationsExceededError) Error() string {
	return fmt.Sprintf("no fixpoint after %d iterations (%d rewrites applied)", e.Iterations, e.Rewrites)
}

func (e *MaxIterationsExceededError) Is(target error) bool { return target == ErrMaxIterationsExceeded }

// InvalidRewriteError reports a rewrite that could not be committed. The
// module is left as it was before the pattern ran.
type InvalidRewriteError struct {
	Pattern string
	Op      string
	Reason  string
}

func (e *InvalidRewriteError) Error() string {
	return fmt.Sprintf("pattern %s on %s: %s", e.Pattern, e.Op, e.Reason)
}

func (e *InvalidRewriteError) Is(target error) bool { return target == ErrInvalidRewrite }
