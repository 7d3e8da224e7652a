package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stl-lang/stlconform/internal/ast"
	"github.com/stl-lang/stlconform/internal/errors"
	"github.com/stl-lang/stlconform/internal/linker"
	"github.com/stl-lang/stlconform/internal/parser"
	"github.com/stl-lang/stlconform/internal/semantic"
)

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Parse, link, and type-check one or more STL files",
	Long: `Parse every given STL file, link them into a single Program, and
run the type checker over it, reporting lexical and syntax errors with their
source position and link or type errors with the declaration they concern.
Exits non-zero on any static error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	noColor, _ := cmd.Flags().GetBool("no-color")

	var modules []*ast.Module
	var hadErrors bool

	for _, filename := range args {
		data, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading %s: %v\n", filename, err)
			hadErrors = true
			continue
		}
		src := string(data)

		p := parser.New(src, filename)
		m := p.ParseModule()
		if len(p.Errors()) > 0 {
			hadErrors = true
			var ces []*errors.CompilerError
			for _, pe := range p.Errors() {
				ces = append(ces, errors.NewCompilerError(pe.Pos, pe.Message, src, filename))
			}
			fmt.Fprintln(os.Stderr, errors.FormatErrors(ces, !noColor))
			continue
		}
		modules = append(modules, m)
	}

	if hadErrors {
		return fmt.Errorf("parsing failed")
	}

	prog, linkErrs := linker.Link(modules)
	if len(linkErrs) > 0 {
		for _, le := range linkErrs {
			fmt.Fprintln(os.Stderr, le.Error())
		}
		return fmt.Errorf("linking failed with %d error(s)", len(linkErrs))
	}

	for _, w := range prog.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	checker := semantic.NewChecker(prog, nil)
	typeErrs := checker.Check()
	if len(typeErrs) > 0 {
		for _, te := range typeErrs {
			fmt.Fprintln(os.Stderr, te.Error())
		}
		return fmt.Errorf("type checking failed with %d error(s)", len(typeErrs))
	}

	fmt.Printf("ok: %d module(s), %d transition(s)\n", len(prog.Modules), len(prog.Transitions))
	return nil
}
