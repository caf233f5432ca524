// Package repl is an interactive session that grows a module one operation
// at a time and runs the passes on it.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"irx/internal/asm"
	"irx/internal/dialect"
	irxerrors "irx/internal/errors"
	"irx/internal/ir"
	"irx/internal/irdl"
	"irx/internal/pattern"
	"irx/internal/pdl"
	"irx/internal/transform"
)

const PROMPT = ">> "

// ErrQuit is returned by Eval for :quit.
var ErrQuit = errors.New("quit")

const help = `Enter operations in generic form, e.g.
  %0 = "arith.constant"() {value = 1 : i32} : () -> i32
Commands:
  :print              print the module
  :verify             verify the module
  :canonicalize       canonicalize the module
  :load <file>        load dialects (.irdl), patterns (.pdl) or a module (.ir)
  :apply              apply the loaded patterns
  :patterns           list the loaded patterns
  :dialects           list the registered dialects
  :reset              start over with an empty module
  :quit               leave the session
`

// Session holds the module being built, the registry it is checked
// against and the loaded patterns.
type Session struct {
	Registry *dialect.Registry
	Patterns *pattern.Set
	Config   pattern.Config

	out    io.Writer
	lines  []string
	source string // Last parsed text, for error excerpts
	module *ir.Module
}

// NewSession creates a session with an empty module.
func NewSession(reg *dialect.Registry, out io.Writer) *Session {
	return &Session{
		Registry: reg,
		Patterns: pattern.NewSet(),
		out:      out,
		module:   ir.NewModule(""),
	}
}

// Module returns the current module.
func (s *Session) Module() *ir.Module { return s.module }

// Start reads lines from in until it is exhausted or :quit is entered.
func Start(in io.Reader, s *Session) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(s.out, PROMPT)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return
		}

		err := s.Eval(scanner.Text())
		if errors.Is(err, ErrQuit) {
			return
		}
		if err != nil {
			s.report(err)
		}
	}
}

func (s *Session) report(err error) {
	reporter := irxerrors.NewErrorReporter("<repl>", s.source).WithKnownOperations(s.Registry.OperationNames())
	fmt.Fprint(s.out, reporter.Report(err))
}

// Eval runs a command or appends an operation to the module.
func (s *Session) Eval(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, ":") {
		return s.appendOperation(line)
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case ":help":
		fmt.Fprint(s.out, help)
	case ":quit", ":q":
		return ErrQuit
	case ":print":
		fmt.Fprint(s.out, ir.Print(s.module))
	case ":verify":
		if err := transform.Verify(s.module, s.Registry).Err(); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(s.out, "module is valid")
	case ":canonicalize":
		report, err := transform.Canonicalize(s.module, s.Registry, s.Config)
		if err != nil {
			return err
		}
		s.resync()
		fmt.Fprintf(s.out, "%d rewrites\n", report.Rewrites)
	case ":apply":
		report, err := pattern.ApplyGreedily(s.module, s.Patterns, s.Config)
		if err != nil {
			return err
		}
		s.resync()
		fmt.Fprintf(s.out, "%d rewrites in %d iterations\n", report.Rewrites, report.Iterations)
	case ":load":
		if len(fields) != 2 {
			return errors.New(":load takes one file")
		}
		return s.load(fields[1])
	case ":patterns":
		for _, p := range s.Patterns.Patterns() {
			root := p.RootName()
			if root == "" {
				root = "*"
			}
			fmt.Fprintf(s.out, "%s (benefit %d, root %s)\n", p.Name(), p.Benefit(), root)
		}
	case ":dialects":
		for _, d := range s.Registry.Dialects() {
			fmt.Fprintf(s.out, "%s: %s\n", d.Name, strings.Join(d.OperationNames(), ", "))
		}
	case ":reset":
		s.lines, s.source = nil, ""
		s.module = ir.NewModule("")
	default:
		return errors.Errorf("unknown command %s, try :help", fields[0])
	}
	return nil
}

// appendOperation reparses the module with the new line and keeps it only
// when the result parses.
func (s *Session) appendOperation(line string) error {
	before := printedLines(s.module)
	lines := append(append([]string(nil), s.lines...), line)
	m, err := s.parse(lines)
	if err != nil {
		return err
	}
	s.lines, s.module = lines, m

	// Appending never renumbers earlier values, so the new operation is
	// printed between the old body and the closing brace.
	after := printedLines(m)
	for _, l := range after[len(before)-1 : len(after)-1] {
		fmt.Fprintln(s.out, strings.TrimSpace(l))
	}
	return nil
}

func (s *Session) parse(lines []string) (*ir.Module, error) {
	s.source = "module {\n" + strings.Join(lines, "\n") + "\n}"
	return asm.ParseModule("<repl>", s.source)
}

func printedLines(m *ir.Module) []string {
	return strings.Split(strings.TrimRight(ir.Print(m), "\n"), "\n")
}

// resync replaces the typed lines with the printed module after a rewrite
// so that later operations can refer to the renumbered values.
func (s *Session) resync() {
	printed := printedLines(s.module)
	s.lines = append([]string(nil), printed[1:len(printed)-1]...)
	if m, err := s.parse(s.lines); err == nil {
		s.module = m
	}
}

func (s *Session) load(path string) error {
	switch filepath.Ext(path) {
	case ".irdl":
		dialects, err := irdl.ParseFile(path)
		if err != nil {
			return err
		}
		for _, d := range dialects {
			if err := s.Registry.RegisterDialect(d); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "registered %s\n", d.Name)
		}
	case ".pdl":
		patterns, err := pdl.ParseFile(path)
		if err != nil {
			return err
		}
		for _, p := range patterns {
			s.Patterns.Add(p)
		}
		fmt.Fprintf(s.out, "loaded %d patterns\n", len(patterns))
	default:
		m, _, err := asm.ParseFile(path)
		if err != nil {
			return err
		}
		s.module = m
		s.resync()
		fmt.Fprintf(s.out, "loaded %d operations\n", m.NumOps())
	}
	return nil
}
