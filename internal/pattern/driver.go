package pattern

import (
	"github.com/pkg/errors"
	"github.com/tliron/commonlog"

	"irx/internal/ir"
)

var log = commonlog.GetLogger("irx.pattern")

// DefaultMaxIterations bounds the number of passes of ApplyGreedily.
const DefaultMaxIterations = 10

// Config controls the greedy driver.
type Config struct {
	MaxIterations int // Passes with rewrites before giving up; 0 means DefaultMaxIterations
}

// Report summarizes a driver run.
type Report struct {
	Iterations int            // Passes run, including the final one without changes
	Rewrites   int            // Successful pattern applications
	Applied    map[string]int // Applications per pattern name
	Converged  bool           // Whether a fixpoint was reached
}

// ApplyGreedily applies the set to m until a fixpoint. Each pass visits a
// pre-order snapshot of the operations; for each operation still alive,
// the first candidate pattern that matches is applied. Operations created
// during a pass are visited by the next one. The run stops after a pass
// without rewrites. MaxIterations bounds the passes that rewrite; once
// they are used up, a final pass only checks whether some pattern would
// still apply, leaving m unchanged. If one would, the partially rewritten
// module is kept and *MaxIterationsExceededError is returned together with
// the report.
func ApplyGreedily(m *ir.Module, set *Set, cfg Config) (*Report, error) {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	report := &Report{Applied: make(map[string]int)}

	for report.Iterations < maxIterations {
		report.Iterations++
		changed, err := applyPass(m, set, report)
		if err != nil {
			return report, err
		}
		if !changed {
			return converged(report), nil
		}
	}
	if !pending(m, set) {
		report.Iterations++
		return converged(report), nil
	}
	log.Warningf("no fixpoint after %d iterations", report.Iterations)
	return report, &MaxIterationsExceededError{Iterations: report.Iterations, Rewrites: report.Rewrites}
}

func converged(report *Report) *Report {
	report.Converged = true
	log.Debugf("fixpoint after %d iterations, %d rewrites", report.Iterations, report.Rewrites)
	return report
}

// pending reports whether some pattern would rewrite an operation of m.
// Every attempt is rolled back. A pattern failing with an error counts as
// pending.
func pending(m *ir.Module, set *Set) bool {
	for _, id := range m.PreOrder() {
		op := m.Op(id)
		if op == nil {
			continue
		}
		for _, p := range set.Candidates(op.Name) {
			rw := newRewriter(m, op, p.Name())
			ok, err := p.MatchAndRewrite(rw, op)
			would := err != nil || ok && rw.changed() && rw.check() == nil
			rw.rollback()
			if would {
				return true
			}
		}
	}
	return false
}

func applyPass(m *ir.Module, set *Set, report *Report) (bool, error) {
	changed := false
	for _, id := range m.PreOrder() {
		op := m.Op(id)
		if op == nil {
			continue
		}
		applied, err := applyFirst(m, set, op)
		if err != nil {
			return changed, err
		}
		if applied != "" {
			changed = true
			report.Rewrites++
			report.Applied[applied]++
		}
	}
	return changed, nil
}

// applyFirst tries the candidates of op in order and returns the name of
// the pattern that rewrote it, if any.
func applyFirst(m *ir.Module, set *Set, op *ir.Operation) (string, error) {
	for _, p := range set.Candidates(op.Name) {
		rw := newRewriter(m, op, p.Name())
		ok, err := p.MatchAndRewrite(rw, op)
		if err != nil {
			rw.rollback()
			return "", errors.Wrapf(err, "pattern %s on %s", p.Name(), op.Name)
		}
		if !ok || !rw.changed() {
			rw.rollback()
			continue
		}
		if err := rw.commit(); err != nil {
			rw.rollback()
			return "", err
		}
		log.Debugf("applied %s to %s (op %d)", p.Name(), op.Name, op.ID)
		return p.Name(), nil
	}
	return "", nil
}

// ApplyOnce runs a single pass and reports whether anything changed.
func ApplyOnce(m *ir.Module, set *Set) (bool, error) {
	report := &Report{Applied: make(map[string]int)}
	return applyPass(m, set, report)
}
