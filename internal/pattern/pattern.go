// Package pattern implements rewrite patterns and the greedy driver that
// applies them to a module until nothing matches.
package pattern

import (
	"cmp"
	"slices"

	"irx/internal/ir"
)

// RewritePattern matches an operation and rewrites it through the
// Rewriter. MatchAndRewrite returns false, without having rewritten
// anything, when the operation does not match.
type RewritePattern interface {
	Name() string
	Benefit() int
	// RootName restricts the pattern to operations with this name; the
	// empty string accepts every operation.
	RootName() string
	MatchAndRewrite(rw *Rewriter, op *ir.Operation) (bool, error)
}

// Set is an ordered collection of patterns. Candidates for an operation
// are tried by decreasing benefit; patterns of equal benefit keep their
// registration order.
type Set struct {
	patterns []RewritePattern
	byRoot   map[string][]RewritePattern
	anyRoot  []RewritePattern
}

// NewSet creates a set from patterns in registration order.
func NewSet(patterns ...RewritePattern) *Set {
	s := &Set{}
	s.Add(patterns...)
	return s
}

// Add appends patterns after the already registered ones.
func (s *Set) Add(patterns ...RewritePattern) {
	s.patterns = append(s.patterns, patterns...)
	slices.SortStableFunc(s.patterns, func(a, b RewritePattern) int {
		return cmp.Compare(b.Benefit(), a.Benefit())
	})

	s.byRoot = make(map[string][]RewritePattern)
	s.anyRoot = nil
	for _, p := range s.patterns {
		if p.RootName() == "" {
			s.anyRoot = append(s.anyRoot, p)
		} else {
			s.byRoot[p.RootName()] = nil
		}
	}
	for root := range s.byRoot {
		for _, p := range s.patterns {
			if r := p.RootName(); r == "" || r == root {
				s.byRoot[root] = append(s.byRoot[root], p)
			}
		}
	}
}

// Patterns returns the patterns in the order they are tried.
func (s *Set) Patterns() []RewritePattern { return slices.Clone(s.patterns) }

func (s *Set) Len() int { return len(s.patterns) }

// Candidates returns the patterns that may apply to an operation named
// name, in the order they are tried. A set is not modified by matching and
// may be shared by drivers running on different modules.
func (s *Set) Candidates(name string) []RewritePattern {
	if c, ok := s.byRoot[name]; ok {
		return c
	}
	return s.anyRoot
}

// Func adapts a function into a RewritePattern.
func Func(name string, benefit int, root string, fn func(rw *Rewriter, op *ir.Operation) (bool, error)) RewritePattern {
	return &funcPattern{name: name, benefit: benefit, root: root, fn: fn}
}

type funcPattern struct {
	name    string
	benefit int
	root    string
	fn      func(rw *Rewriter, op *ir.Operation) (bool, error)
}

func (p *funcPattern) Name() string     { return p.name }
func (p *funcPattern) Benefit() int     { return p.benefit }
func (p *funcPattern) RootName() string { return p.root }

func (p *funcPattern) MatchAndRewrite(rw *Rewriter, op *ir.Operation) (bool, error) {
	return p.fn(rw, op)
}
