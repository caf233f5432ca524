// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"irx/grammar"
	"irx/internal/asm"
	"irx/internal/demo"
	"irx/internal/dialect"
	"irx/internal/interp"
	"irx/internal/ir"
	"irx/internal/pattern"
	"irx/internal/repl"
	"irx/internal/transform"
)

// input is a parsed module with its source and the registry it is checked
// against.
type input struct {
	path   string
	source string
	module *ir.Module
	reg    *dialect.Registry
}

func (o *options) load(path string, errOut io.Writer) (*input, error) {
	reg, err := o.registry()
	if err != nil {
		return nil, err
	}
	source, err := grammar.ReadSource(path)
	if err != nil {
		return nil, err
	}
	m, err := asm.ParseModule(path, source)
	if err != nil {
		return nil, report(errOut, path, source, err, reg)
	}
	reg.Freeze()
	return &input{path: path, source: source, module: m, reg: reg}, nil
}

func (o *options) verifyOptions() []transform.VerifyOption {
	var opts []transform.VerifyOption
	if o.strict {
		opts = append(opts, transform.Strict())
	}
	if o.failFast {
		opts = append(opts, transform.FailFast())
	}
	return opts
}

func (in *input) verify(o *options, errOut io.Writer) error {
	if err := transform.Verify(in.module, in.reg, o.verifyOptions()...).Err(); err != nil {
		return report(errOut, in.path, in.source, err, in.reg)
	}
	return nil
}

// rewriteErr prints the soft iteration cap as a warning and fails on
// everything else.
func (in *input) rewriteErr(err error, errOut io.Writer) error {
	if err == nil {
		return nil
	}
	report(errOut, in.path, in.source, err, in.reg)
	if errors.Is(err, pattern.ErrMaxIterationsExceeded) {
		return nil
	}
	return errReported
}

func newPrintCmd(o *options, out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "print <file.ir>",
		Short: "Parse a module and print it in generic form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := o.load(args[0], errOut)
			if err != nil {
				return err
			}
			fmt.Fprint(out, ir.Print(in.module))
			return nil
		},
	}
}

func newVerifyCmd(o *options, out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file.ir>",
		Short: "Check a module against the registered dialects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			startTime := time.Now()
			in, err := o.load(args[0], errOut)
			if err != nil {
				return err
			}
			if err := in.verify(o, errOut); err != nil {
				color.New(color.FgRed).Fprintf(errOut, "Verification failed after %s\n", formatDuration(time.Since(startTime)))
				return err
			}
			color.New(color.FgGreen).Fprintf(out, "Successfully verified %s in %s\n", in.path, formatDuration(time.Since(startTime)))
			return nil
		},
	}
}

func newCanonicalizeCmd(o *options, out, errOut io.Writer) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "canonicalize <file.ir>",
		Short: "Verify, canonicalize and verify again, then print the module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := o.load(args[0], errOut)
			if err != nil {
				return err
			}
			var progress io.Writer = errOut
			if quiet {
				progress = nil
			}
			p := transform.NewPipeline(progress).
				AddPass(&transform.VerifyPass{Registry: in.reg, Options: o.verifyOptions()}).
				AddPass(&transform.CanonicalizePass{Registry: in.reg, Config: o.config()}).
				AddPass(&transform.VerifyPass{Registry: in.reg, Options: o.verifyOptions()})
			if err := in.rewriteErr(p.Run(in.module), errOut); err != nil {
				return err
			}
			fmt.Fprint(out, ir.Print(in.module))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print pass progress")
	return cmd
}

func newApplyCmd(o *options, out, errOut io.Writer) *cobra.Command {
	var canonicalize bool
	cmd := &cobra.Command{
		Use:   "apply <file.ir> --patterns <file.pdl>...",
		Short: "Apply PDL patterns greedily and print the module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(o.patterns) == 0 {
				return errors.New("apply needs at least one --patterns file")
			}
			in, err := o.load(args[0], errOut)
			if err != nil {
				return err
			}
			set, err := o.patternSet()
			if err != nil {
				return report(errOut, "", "", err, in.reg)
			}
			if err := in.verify(o, errOut); err != nil {
				return err
			}
			res, err := pattern.ApplyGreedily(in.module, set, o.config())
			if err := in.rewriteErr(err, errOut); err != nil {
				return err
			}
			fmt.Fprintf(errOut, "%d rewrites in %d iterations\n", res.Rewrites, res.Iterations)
			for _, name := range sortedApplied(res) {
				fmt.Fprintf(errOut, "  %s: %d\n", name, res.Applied[name])
			}
			if canonicalize {
				_, err := transform.Canonicalize(in.module, in.reg, o.config())
				if err := in.rewriteErr(err, errOut); err != nil {
					return err
				}
			}
			if err := in.verify(o, errOut); err != nil {
				return err
			}
			fmt.Fprint(out, ir.Print(in.module))
			return nil
		},
	}
	cmd.Flags().BoolVar(&canonicalize, "canonicalize", false, "canonicalize after applying the patterns")
	return cmd
}

func sortedApplied(r *pattern.Report) []string {
	return slices.Sorted(maps.Keys(r.Applied))
}

func newRunCmd(o *options, out, errOut io.Writer) *cobra.Command {
	var function string
	cmd := &cobra.Command{
		Use:   "run <file.ir> [args...]",
		Short: "Apply the patterns, then evaluate a function",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := o.load(args[0], errOut)
			if err != nil {
				return err
			}
			if len(o.patterns) > 0 {
				set, err := o.patternSet()
				if err != nil {
					return report(errOut, "", "", err, in.reg)
				}
				_, err = pattern.ApplyGreedily(in.module, set, o.config())
				if err := in.rewriteErr(err, errOut); err != nil {
					return err
				}
			}
			if err := in.verify(o, errOut); err != nil {
				return err
			}
			itp, err := interp.New(in.module)
			if err != nil {
				return err
			}
			fnArgs, err := itp.ParseArguments(function, args[1:])
			if err != nil {
				return err
			}
			results, err := itp.Call(function, fnArgs...)
			if err != nil {
				return err
			}
			values := make([]string, len(results))
			for i, r := range results {
				values[i] = r.String()
			}
			fmt.Fprintln(out, strings.Join(values, ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&function, "function", "f", "entrypoint", "function to evaluate")
	return cmd
}

func newDialectsCmd(o *options, out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the registered dialects and their operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := o.registry()
			if err != nil {
				return err
			}
			bold := color.New(color.Bold).SprintFunc()
			for _, d := range reg.Dialects() {
				header := d.Name
				if d.Version != "" {
					header += " " + d.Version
				}
				fmt.Fprintln(out, bold(header))
				for _, name := range d.OperationNames() {
					oc, _ := reg.Lookup(name)
					fmt.Fprintf(out, "  %-16s %s\n", name, oc.Summary)
				}
			}
			return nil
		},
	}
}

func newDemoCmd(o *options, out io.Writer) *cobra.Command {
	cfg := demo.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Define the felt dialect, lower it with a pattern and run it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Pattern = o.config()
			res, err := demo.Run(cfg)
			if err != nil {
				return err
			}
			res.Print(out)
			return nil
		},
	}
	cmd.Flags().Int64Var(&cfg.A, "a", cfg.A, "first argument of the entrypoint")
	cmd.Flags().Int64Var(&cfg.B, "b", cfg.B, "second argument of the entrypoint")
	return cmd
}

func newReplCmd(o *options, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Build and rewrite a module interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := o.registry()
			if err != nil {
				return err
			}
			s := repl.NewSession(reg, out)
			s.Config = o.config()
			if s.Patterns, err = o.patternSet(); err != nil {
				return err
			}
			fmt.Fprintln(out, "irx repl, :help lists the commands")
			repl.Start(cmd.InOrStdin(), s)
			return nil
		},
	}
}
