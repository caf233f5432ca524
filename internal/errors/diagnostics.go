package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"irx/grammar"
	"irx/internal/dialect"
	"irx/internal/ir"
	"irx/internal/pattern"
)

// DiagnosticBuilder provides a fluent interface for creating diagnostics
type DiagnosticBuilder struct {
	d Diagnostic
}

// NewError creates a new error diagnostic builder
func NewError(code, message string, pos grammar.Position) *DiagnosticBuilder {
	return &DiagnosticBuilder{d: Diagnostic{Level: Error, Code: code, Message: message, Position: pos, Length: 1}}
}

// NewWarning creates a new warning diagnostic builder
func NewWarning(code, message string, pos grammar.Position) *DiagnosticBuilder {
	return &DiagnosticBuilder{d: Diagnostic{Level: Warning, Code: code, Message: message, Position: pos, Length: 1}}
}

// WithLength sets the length of the marked span
func (b *DiagnosticBuilder) WithLength(length int) *DiagnosticBuilder {
	b.d.Length = length
	return b
}

// WithSuggestion adds a suggestion
func (b *DiagnosticBuilder) WithSuggestion(message string) *DiagnosticBuilder {
	b.d.Suggestions = append(b.d.Suggestions, message)
	return b
}

// WithNote adds a note
func (b *DiagnosticBuilder) WithNote(note string) *DiagnosticBuilder {
	b.d.Notes = append(b.d.Notes, note)
	return b
}

// WithHelp sets the help text
func (b *DiagnosticBuilder) WithHelp(help string) *DiagnosticBuilder {
	b.d.HelpText = help
	return b
}

// Build returns the completed diagnostic
func (b *DiagnosticBuilder) Build() Diagnostic {
	return b.d
}

// PositionOf converts an operation location.
func PositionOf(loc ir.Location) grammar.Position {
	return grammar.Position{Filename: loc.File, Line: loc.Line, Column: loc.Column}
}

// Diagnose classifies err and gives it a code and a position. known lists
// registered operation names for suggestions; it may be nil.
func Diagnose(err error, known []string) Diagnostic {
	var (
		parseErr     *grammar.ParseError
		violation    *dialect.ConstraintViolation
		notFound     *dialect.NotFoundError
		missing      *dialect.MissingRequirementError
		duplicate    *dialect.DuplicateDialectError
		malformed    *ir.MalformedOperationError
		invalid      *pattern.InvalidRewriteError
		maxIteration *pattern.MaxIterationsExceededError
	)
	switch {
	case pkgerrors.As(err, &parseErr):
		return ParseFailure(parseErr)
	case pkgerrors.As(err, &violation):
		return Violation(violation)
	case pkgerrors.As(err, &missing):
		return NewError(ErrorMissingRequirement, missing.Error(), grammar.Position{}).
			WithSuggestion(fmt.Sprintf("register %s before %q", missing.Requirement, missing.Dialect)).
			Build()
	case pkgerrors.As(err, &notFound):
		return UnknownOperation(notFound, grammar.Position{}, known)
	case pkgerrors.As(err, &duplicate):
		return NewError(ErrorDuplicateDialect, duplicate.Error(), grammar.Position{}).Build()
	case pkgerrors.Is(err, dialect.ErrFrozen):
		return NewError(ErrorFrozenRegistry, err.Error(), grammar.Position{}).
			WithHelp("register dialects before freezing the registry").
			Build()
	case pkgerrors.As(err, &malformed):
		return NewError(ErrorMalformedOperation, malformed.Error(), PositionOf(malformed.Loc)).Build()
	case pkgerrors.As(err, &invalid):
		return NewError(ErrorInvalidRewrite, invalid.Error(), grammar.Position{}).
			WithNote("the operations created by the pattern were removed again").
			Build()
	case pkgerrors.As(err, &maxIteration):
		return NewWarning(WarningMaxIterations, maxIteration.Error(), grammar.Position{}).
			WithHelp("raise --max-iterations or look for patterns that undo each other").
			Build()
	case strings.HasPrefix(err.Error(), "pattern "):
		return NewError(ErrorPatternFailure, err.Error(), grammar.Position{}).Build()
	}
	return NewError(ErrorGeneric, err.Error(), grammar.Position{}).Build()
}

// ParseFailure describes a syntax or conversion error of a textual form.
func ParseFailure(pe *grammar.ParseError) Diagnostic {
	code := ErrorSyntax
	switch {
	case pkgerrors.Is(pe, ir.ErrMalformedOperation):
		code = ErrorMalformedOperation
	case strings.Contains(pe.Msg, "undefined"):
		code = ErrorUndefinedValue
	}
	msg := pe.Msg
	if pe.Cause != nil {
		msg += ": " + pe.Cause.Error()
	}
	return NewError(code, msg, pe.Pos).Build()
}

// Violation describes a verification failure at the offending operation.
func Violation(v *dialect.ConstraintViolation) Diagnostic {
	code := ErrorConstraintViolation
	if v.Scoping {
		code = ErrorScoping
	}
	b := NewError(code, v.Error(), PositionOf(v.Loc)).WithLength(len(v.Op) + 2)
	if v.Scoping {
		b = b.WithHelp("operands must be defined earlier in the same block or in an enclosing region")
	}
	return b.Build()
}

// UnknownOperation describes a missing definition, suggesting registered
// operations with a similar name.
func UnknownOperation(e *dialect.NotFoundError, pos grammar.Position, known []string) Diagnostic {
	b := NewError(ErrorUnknownOperation, e.Error(), pos)
	if e.Op != "" {
		similar := findSimilarNames(e.Op, known)
		switch len(similar) {
		case 0:
		case 1:
			b = b.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similar[0]))
		default:
			b = b.WithSuggestion(fmt.Sprintf("did you mean one of: '%s'?", strings.Join(similar, "', '")))
		}
	}
	if e.Op == "" && e.Type == "" {
		b = b.WithHelp(fmt.Sprintf("load a definition of dialect %q with --dialects", e.Dialect))
	}
	return b.Build()
}

// findSimilarNames finds names within a small edit distance of target
func findSimilarNames(target string, candidates []string) []string {
	var similar []string
	for _, candidate := range candidates {
		if candidate != target && levenshteinDistance(target, candidate) <= 2 {
			similar = append(similar, candidate)
		}
	}
	return similar
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
