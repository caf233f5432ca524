package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/multierr"

	"irx/grammar"
)

// ErrorLevel represents the severity of a diagnostic
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// Diagnostic is a structured error with a stable code, a source position
// and optional suggestions.
type Diagnostic struct {
	Level       ErrorLevel
	Code        string           // Error code like E0001
	Message     string           // Primary message
	Position    grammar.Position // Location in source; Line 0 when unknown
	Length      int              // Length of the problematic region
	Suggestions []string         // Suggested fixes
	Notes       []string         // Additional context notes
	HelpText    string           // Help text for the diagnostic
}

func (d Diagnostic) Error() string {
	if d.Position.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s[%s]: %s", d.Position.Filename, d.Position.Line, d.Position.Column, d.Level, d.Code, d.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Level, d.Code, d.Message)
}

// ErrorReporter renders diagnostics against the source they refer to.
type ErrorReporter struct {
	filename string
	lines    []string
	known    []string
}

// NewErrorReporter creates a reporter for one source file.
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// WithKnownOperations sets the operation names used for "did you mean"
// suggestions on unknown operations.
func (er *ErrorReporter) WithKnownOperations(names []string) *ErrorReporter {
	er.known = names
	return er
}

// Report renders err, which may combine several errors, as diagnostics.
func (er *ErrorReporter) Report(err error) string {
	var sb strings.Builder
	for _, e := range multierr.Errors(err) {
		sb.WriteString(er.FormatError(Diagnose(e, er.known)))
	}
	return sb.String()
}

// FormatError formats a diagnostic with a code header, a source excerpt
// and a caret marker.
func (er *ErrorReporter) FormatError(d Diagnostic) string {
	var result strings.Builder

	levelColor := levelColor(d.Level)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	// Header: error[E0001]: message
	if d.Code != "" {
		result.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor(string(d.Level)), d.Code, d.Message))
	} else {
		result.WriteString(fmt.Sprintf("%s: %s\n", levelColor(string(d.Level)), d.Message))
	}

	line := d.Position.Line
	width := lineNumberWidth(line)
	indent := strings.Repeat(" ", width)

	if line > 0 {
		filename := d.Position.Filename
		if filename == "" {
			filename = er.filename
		}
		result.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n", indent, dim("-->"), filename, line, d.Position.Column))
		result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))

		if line > 1 && line-1 <= len(er.lines) {
			result.WriteString(fmt.Sprintf("%s %s %s\n", dim(fmt.Sprintf("%*d", width, line-1)), dim("│"), er.lines[line-2]))
		}
		if line <= len(er.lines) {
			result.WriteString(fmt.Sprintf("%s %s %s\n", bold(fmt.Sprintf("%*d", width, line)), dim("│"), er.lines[line-1]))
			result.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("│"), marker(d.Position.Column, d.Length, d.Level)))
		}
	}

	for i, suggestion := range d.Suggestions {
		cyan := color.New(color.FgCyan).SprintFunc()
		if i == 0 {
			result.WriteString(fmt.Sprintf("%s %s: %s\n", indent, cyan("help"), suggestion))
		} else {
			result.WriteString(fmt.Sprintf("%s       %s\n", indent, suggestion))
		}
	}
	for _, note := range d.Notes {
		result.WriteString(fmt.Sprintf("%s %s %s %s\n", indent, dim("│"), color.New(color.FgBlue).Sprint("note:"), note))
	}
	if d.HelpText != "" {
		result.WriteString(fmt.Sprintf("%s %s %s %s\n", indent, dim("│"), color.New(color.FgGreen).Sprint("help:"), d.HelpText))
	}

	result.WriteString("\n")
	return result.String()
}

func levelColor(level ErrorLevel) func(...interface{}) string {
	switch level {
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

func marker(column, length int, level ErrorLevel) string {
	if length <= 0 {
		length = 1
	}
	return strings.Repeat(" ", max(0, column-1)) + levelColor(level)(strings.Repeat("^", length))
}

func lineNumberWidth(line int) int {
	return max(len(fmt.Sprintf("%d", line)), 3)
}
