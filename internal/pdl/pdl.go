// Package pdl compiles textual rewrite patterns into declarative patterns
// of the pattern engine.
//
// A pattern has a match section, declaring handles for types, operands,
// attributes, results and operations, and a rewrite section rooted at one
// of the matched operations:
//
//	pdl.pattern @add_to_addi : benefit(1) {
//	  %t = pdl.type
//	  %a = pdl.operand
//	  %b = pdl.operand
//	  %root = pdl.operation "felt.add"(%a, %b) -> (%t)
//	  pdl.rewrite %root {
//	    %new = pdl.operation "arith.addi"(%a, %b) -> (%t)
//	    pdl.replace %root with %new
//	  }
//	}
//
// The match section becomes a matcher tree rooted at the rewrite root;
// every handle becomes a binding slot. Operation matchers without a name
// match any operation; an empty operand or result list leaves the arity
// unconstrained.
package pdl

import (
	"fmt"

	"github.com/tliron/commonlog"

	"irx/grammar"
	"irx/internal/pattern"
)

var log = commonlog.GetLogger("irx.pdl")

// Parse parses and compiles pattern text.
func Parse(filename, src string) ([]*pattern.Pattern, error) {
	f, err := grammar.ParsePDL(filename, src)
	if err != nil {
		return nil, err
	}
	return Compile(f)
}

// ParseFile reads and compiles a pattern file.
func ParseFile(path string) ([]*pattern.Pattern, error) {
	src, err := grammar.ReadSource(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, src)
}

// Load compiles pattern text and adds the patterns to set.
func Load(set *pattern.Set, filename, src string) ([]*pattern.Pattern, error) {
	patterns, err := Parse(filename, src)
	if err != nil {
		return nil, err
	}
	for _, p := range patterns {
		set.Add(p)
	}
	return patterns, nil
}

// Compile turns parsed patterns into declarative patterns, in file order.
// Unnamed patterns are called pattern0, pattern1 and so on.
func Compile(f *grammar.PDLFile) ([]*pattern.Pattern, error) {
	patterns := make([]*pattern.Pattern, 0, len(f.Patterns))
	names := make(map[string]bool)
	for i, gp := range f.Patterns {
		p, err := compilePattern(gp, i)
		if err != nil {
			return nil, err
		}
		if names[p.PatternName] {
			return nil, grammar.Errorf(gp.Pos, "pattern @%s is defined twice", p.PatternName)
		}
		names[p.PatternName] = true
		log.Debugf("compiled pattern %s (benefit %d, root %q, %d slots)", p.PatternName, p.PatternBenefit, p.Root.Name, p.NumSlots)
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func compilePattern(g *grammar.PDLPattern, index int) (*pattern.Pattern, error) {
	name := trimSymbol(g.Name)
	if name == "" {
		name = fmt.Sprintf("pattern%d", index)
	}
	if g.Benefit < 0 {
		return nil, grammar.Errorf(g.Pos, "pattern @%s: benefit must not be negative", name)
	}

	c := newCompiler(name)
	for _, st := range g.Match {
		if err := c.declare(st); err != nil {
			return nil, err
		}
	}

	rootHandle, err := c.rootHandle(g)
	if err != nil {
		return nil, err
	}
	root, err := c.opPattern(rootHandle)
	if err != nil {
		return nil, err
	}
	if err := c.checkReachable(); err != nil {
		return nil, err
	}

	steps, err := c.rewrite(g.Rewrite)
	if err != nil {
		return nil, err
	}
	p := pattern.NewPattern(name, g.Benefit, root, steps...)
	return p, nil
}

func trimSymbol(name string) string {
	if len(name) > 0 && name[0] == '@' {
		return name[1:]
	}
	return name
}
