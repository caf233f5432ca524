// Package demo walks through the whole pipeline on a small example: define
// the felt dialect, build a module using it, lower it with a PDL pattern
// and run the result.
package demo

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"irx/internal/dialect"
	"irx/internal/interp"
	"irx/internal/ir"
	"irx/internal/irdl"
	"irx/internal/pattern"
	"irx/internal/pdl"
	"irx/internal/transform"
)

var (
	//go:embed dialects.irdl
	dialectSource string

	//go:embed patterns.pdl
	patternSource string
)

// Prime is the modulus of the felt dialect.
const Prime = 13

// Stage is one printed step of the walkthrough.
type Stage struct {
	Title string
	Text  string
}

// Result is the outcome of a run.
type Result struct {
	Stages []Stage
	Value  uint64
	Report *pattern.Report
}

// Config holds the inputs of the entrypoint and the rewrite limits.
type Config struct {
	A, B    int64
	Pattern pattern.Config
}

// DefaultConfig computes 10 + 7 mod 13.
func DefaultConfig() Config {
	return Config{A: 10, B: 7}
}

// BuildCoreModule builds func.func @entrypoint(i32, i32) -> i32 returning
// felt.add of its arguments.
func BuildCoreModule() (*ir.Module, error) {
	i32 := ir.Integer(32)
	m := ir.NewModule("")
	b := ir.NewBuilder(m)
	_, err := b.Create("func.func", nil, nil, map[string]ir.Attribute{
		"sym_name":              &ir.StringAttr{Value: "entrypoint"},
		"function_type":         &ir.TypeAttr{Type: ir.Function([]ir.Type{i32, i32}, []ir.Type{i32})},
		"llvm.emit_c_interface": &ir.UnitAttr{},
	}, func(rb *ir.Builder, r *ir.Region) error {
		entry := rb.AppendBlock(r, i32, i32)
		rb.SetInsertionPointToEnd(entry)
		sum, err := rb.CreateValue("felt.add", entry.Arguments(), i32, nil)
		if err != nil {
			return err
		}
		_, err = rb.Create("func.return", []ir.Value{sum}, nil, nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "build core module")
	}
	return m, nil
}

// Run executes every stage and returns their printed forms.
func Run(cfg Config) (*Result, error) {
	res := &Result{}
	stage := func(title, text string) {
		res.Stages = append(res.Stages, Stage{Title: title, Text: text})
	}

	reg := dialect.NewBuiltinRegistry()
	dialects, err := irdl.Load(reg, "dialects.irdl", dialectSource)
	if err != nil {
		return nil, err
	}
	reg.Freeze()
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(dialectSource) + "\n\n")
	for _, d := range dialects {
		fmt.Fprintf(&sb, "registered %s: %s\n", d.Name, strings.Join(d.OperationNames(), ", "))
	}
	stage("Dialect module", sb.String())

	m, err := BuildCoreModule()
	if err != nil {
		return nil, err
	}
	if err := transform.Verify(m, reg, transform.Strict()).Err(); err != nil {
		return nil, errors.Wrap(err, "core module")
	}
	if _, err := transform.Canonicalize(m, reg, cfg.Pattern); err != nil {
		return nil, err
	}
	stage("Core module", ir.Print(m))

	set := pattern.NewSet()
	if _, err := pdl.Load(set, "patterns.pdl", patternSource); err != nil {
		return nil, err
	}
	stage("Pattern module", strings.TrimSpace(patternSource)+"\n")

	res.Report, err = pattern.ApplyGreedily(m, set, cfg.Pattern)
	if err != nil {
		return nil, err
	}
	if err := transform.Verify(m, reg, transform.Strict()).Err(); err != nil {
		return nil, errors.Wrap(err, "rewritten module")
	}
	stage("Rewritten module", ir.Print(m))

	itp, err := interp.New(m)
	if err != nil {
		return nil, err
	}
	i32 := ir.Integer(32)
	out, err := itp.Call("entrypoint", ir.NewIntegerAttr(cfg.A, i32), ir.NewIntegerAttr(cfg.B, i32))
	if err != nil {
		return nil, err
	}
	value, ok := out[0].(*ir.IntegerAttr)
	if len(out) != 1 || !ok {
		return nil, errors.Errorf("entrypoint returned %v", out)
	}
	res.Value = value.Value
	stage("Result", fmt.Sprintf("%d + %d = %d mod %d\n", cfg.A, cfg.B, res.Value, Prime))
	return res, nil
}

// Print writes the stages of r with colored titles.
func (r *Result) Print(w io.Writer) {
	title := color.New(color.FgCyan, color.Bold).SprintFunc()
	for i, s := range r.Stages {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n%s", title("== "+s.Title+" =="), s.Text)
	}
}
