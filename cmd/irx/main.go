// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"irx/internal/dialect"
	irxerrors "irx/internal/errors"
	"irx/internal/irdl"
	"irx/internal/pattern"
	"irx/internal/pdl"
)

var version = "0.1.0"

// errReported marks failures whose diagnostics were already printed.
var errReported = errors.New("errors reported")

// options holds the flags shared by the subcommands.
type options struct {
	dialects      []string
	patterns      []string
	maxIterations int
	strict        bool
	failFast      bool
	verbose       int
	noColor       bool
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		}
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "irx",
		Short: "irx defines dialects, rewrites modules with patterns and runs them",
		Long: `irx works on modules in generic operation form. Dialects are
registered from IRDL or YAML files, rewrite patterns are written in PDL
and applied greedily until nothing changes.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
			commonlog.Configure(opts.verbose, nil)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringSliceVar(&opts.dialects, "dialects", nil, "dialect definitions to register (.irdl, .yaml)")
	flags.StringSliceVar(&opts.patterns, "patterns", nil, "PDL pattern files")
	flags.IntVar(&opts.maxIterations, "max-iterations", pattern.DefaultMaxIterations, "greedy rewriting iteration cap")
	flags.BoolVar(&opts.strict, "strict", false, "report operations without a registered definition")
	flags.BoolVar(&opts.failFast, "fail-fast", false, "stop verification at the first violation")
	flags.CountVarP(&opts.verbose, "verbose", "v", "log verbosity (repeat for more)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newPrintCmd(opts, out, errOut),
		newVerifyCmd(opts, out, errOut),
		newCanonicalizeCmd(opts, out, errOut),
		newApplyCmd(opts, out, errOut),
		newRunCmd(opts, out, errOut),
		newDialectsCmd(opts, out, errOut),
		newDemoCmd(opts, out),
		newReplCmd(opts, out),
	)
	return rootCmd
}

// registry builds the builtin registry plus the --dialects files.
func (o *options) registry() (*dialect.Registry, error) {
	reg := dialect.NewBuiltinRegistry()
	for _, path := range o.dialects {
		var dialects []*dialect.Dialect
		var err error
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			dialects, err = dialect.LoadYAMLFile(path)
		default:
			dialects, err = irdl.ParseFile(path)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "load %s", path)
		}
		for _, d := range dialects {
			if err := reg.RegisterDialect(d); err != nil {
				return nil, errors.Wrapf(err, "load %s", path)
			}
		}
	}
	return reg, nil
}

// patternSet compiles the --patterns files in order.
func (o *options) patternSet() (*pattern.Set, error) {
	set := pattern.NewSet()
	for _, path := range o.patterns {
		patterns, err := pdl.ParseFile(path)
		if err != nil {
			return nil, err
		}
		for _, p := range patterns {
			set.Add(p)
		}
	}
	return set, nil
}

func (o *options) config() pattern.Config {
	return pattern.Config{MaxIterations: o.maxIterations}
}

// report prints err as diagnostics against source and marks it reported.
func report(errOut io.Writer, filename, source string, err error, reg *dialect.Registry) error {
	reporter := irxerrors.NewErrorReporter(filename, source)
	if reg != nil {
		reporter = reporter.WithKnownOperations(reg.OperationNames())
	}
	fmt.Fprint(errOut, reporter.Report(err))
	return errReported
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
