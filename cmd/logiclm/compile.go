package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wbrown/janus-olap/olap/compiler"
	"github.com/wbrown/janus-olap/olap/schema"
	"github.com/wbrown/janus-olap/olap/understand"
)

// readRequest loads a request from path, or from stdin when path is "-"
func readRequest(cmd *cobra.Command, path string) (schema.Request, error) {
	var (
		req schema.Request
		err error
	)
	if path == "-" {
		data, rerr := io.ReadAll(cmd.InOrStdin())
		if rerr != nil {
			return req, rerr
		}
		req, err = schema.ParseRequest(data)
	} else {
		req, err = schema.LoadRequest(path)
	}
	if err != nil {
		return req, err
	}
	return req, req.Validate()
}

func (f *globalFlags) newCompiler(cmd *cobra.Command, path string) (*compiler.Compiler, error) {
	s, err := f.loadSchema()
	if err != nil {
		return nil, err
	}
	req, err := readRequest(cmd, path)
	if err != nil {
		return nil, err
	}
	return compiler.New(s, req, f.compilerOptions(cmd.ErrOrStderr()))
}

func newProgramCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "program <request.json|->",
		Short: "Print the logic program computing a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newCompiler(cmd, args[0])
			if err != nil {
				return err
			}
			program, err := c.Program()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), program.String())
			return nil
		},
	}
}

func newFullProgramCmd(flags *globalFlags) *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "full-program <request.json|->",
		Short: "Print the configured logic program followed by the request program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newCompiler(cmd, args[0])
			if err != nil {
				return err
			}
			path := base
			if path == "" {
				path = c.Schema().Config().LogicaProgram
			}
			var text string
			if path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read logic program: %w", err)
				}
				text = string(data)
			}
			full, err := c.FullProgram(text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), full)
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "logic program to prepend (default: the config's logica_program)")
	return cmd
}

func newExplainCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <request.json|->",
		Short: "Show the fact tables a request touches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newCompiler(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Explain())
			return nil
		},
	}
}

func newShowPromptCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show-prompt",
		Short: "Print the language model prompt template for the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.loadSchema()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), understand.PromptTemplate(s.Config()))
			return nil
		},
	}
}

func newUnderstandCmd(flags *globalFlags) *cobra.Command {
	var compile bool
	cmd := &cobra.Command{
		Use:   "understand <text...>",
		Short: "Turn a natural language question into a request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.loadSchema()
			if err != nil {
				return err
			}
			model := flags.model()
			if model == nil {
				return fmt.Errorf("no language model configured, set --model-command")
			}

			u := understand.NewUnderstander(s.Config(), model)
			req, err := u.Understand(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !compile {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(req)
			}
			if err := req.Validate(); err != nil {
				return err
			}
			program, err := compiler.Compile(s, req, flags.compilerOptions(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, program.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&compile, "compile", false, "compile the understood request and print its program")
	return cmd
}
