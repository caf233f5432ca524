package grammar

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var (
	moduleParser    = build[Module]()
	irdlParser      = build[IRDLFile]()
	pdlParser       = build[PDLFile]()
	typeParser      = build[Type]()
	attributeParser = build[Attribute]()
)

func build[G any]() *participle.Parser[G] {
	return participle.MustBuild[G](
		participle.Lexer(IRLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.Unquote("String"),
		participle.UseLookahead(3),
	)
}

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("parse error")

// ParseError is a syntax error, or an error found while converting parsed
// text, with its source position.
type ParseError struct {
	Pos   lexer.Position
	Msg   string
	Cause error
}

// Errorf returns a *ParseError at pos.
func Errorf(pos lexer.Position, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func (e *ParseError) Message() string          { return e.Msg }
func (e *ParseError) Position() lexer.Position { return e.Pos }
func (e *ParseError) Is(target error) bool     { return target == ErrParse }

func wrapParseError(err error) error {
	var pe participle.Error
	if errors.As(err, &pe) {
		return &ParseError{Pos: pe.Position(), Msg: pe.Message()}
	}
	return err
}

// ParseModule parses a module in generic form.
func ParseModule(filename, src string) (*Module, error) {
	m, err := moduleParser.ParseString(filename, src)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return m, nil
}

// ParseIRDL parses IRDL dialect definitions.
func ParseIRDL(filename, src string) (*IRDLFile, error) {
	f, err := irdlParser.ParseString(filename, src)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return f, nil
}

// ParsePDL parses PDL patterns.
func ParsePDL(filename, src string) (*PDLFile, error) {
	f, err := pdlParser.ParseString(filename, src)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return f, nil
}

// ParseType parses a single type such as "i32" or "(i32) -> i32".
func ParseType(src string) (*Type, error) {
	t, err := typeParser.ParseString("", src)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return t, nil
}

// ParseAttribute parses a single attribute value such as "13 : i32".
func ParseAttribute(src string) (*Attribute, error) {
	a, err := attributeParser.ParseString("", src)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return a, nil
}

// ReadSource reads a source file.
func ReadSource(path string) (string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to read file")
	}
	return string(source), nil
}

// ReportParseError prints a friendly caret-style parse error message.
func ReportParseError(src string, err error) {
	var pe participle.Error
	if !errors.As(err, &pe) {
		color.Red("Unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("Syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(pos.Column-1, 0)) + "^"

	color.Red("❌ Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("→ %s\n", pe.Message())
}
