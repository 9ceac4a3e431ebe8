package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wbrown/janus-olap/olap/annotations"
	"github.com/wbrown/janus-olap/olap/compiler"
	"github.com/wbrown/janus-olap/olap/schema"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	config    string
	events    bool
	noColor   bool
	report    string
	modelCmd  string
	modelArgs []string
}

func execute(args []string) int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "logiclm",
		Short: "Compile OLAP requests into logic programs",
		Long: `logiclm reads an OLAP configuration (fact tables, measures, dimensions
and filters) and compiles requests against it into logic programs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "OLAP configuration file (.json, .yaml)")
	pf.BoolVar(&flags.events, "events", false, "print compilation events to stderr")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored event output")
	pf.StringVar(&flags.report, "report", "", "name of the report predicate (default: Report)")
	pf.StringVar(&flags.modelCmd, "model-command", "", "external command answering prompts on stdin")
	pf.StringArrayVar(&flags.modelArgs, "model-arg", nil, "argument passed to the model command (repeatable)")

	rootCmd.AddCommand(
		newProgramCmd(flags),
		newFullProgramCmd(flags),
		newExplainCmd(flags),
		newShowPromptCmd(flags),
		newUnderstandCmd(flags),
		newServeCmd(flags),
	)
	return rootCmd
}

func (f *globalFlags) loadSchema() (*schema.Schema, error) {
	if f.config == "" {
		return nil, fmt.Errorf("--config is required")
	}
	return schema.Load(f.config)
}

func (f *globalFlags) compilerOptions(stderr io.Writer) compiler.Options {
	opts := compiler.DefaultOptions()
	if f.report != "" {
		opts.ReportPredicate = f.report
	}
	if f.events {
		formatter := annotations.NewOutputFormatter(stderr)
		if f.noColor {
			formatter.SetColor(false)
		}
		opts.Handler = formatter.Handle
	}
	return opts
}
