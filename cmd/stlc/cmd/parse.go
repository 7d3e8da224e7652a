package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stl-lang/stlconform/internal/errors"
	"github.com/stl-lang/stlconform/internal/parser"
	"github.com/stl-lang/stlconform/internal/printer"
)

var (
	parseDumpAST bool
	parseIndent  int
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse an STL module and print its syntax tree",
	Long: `Parse STL source and print the resulting module, either as
pretty-printed source (round-tripped through internal/printer) or as a raw
AST dump with --dump-ast.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().BoolVar(&parseDumpAST, "dump-ast", false, "dump the raw AST instead of pretty-printing")
	parseCmd.Flags().IntVar(&parseIndent, "indent", 2, "indent width used by the pretty-printer")
}

func runParse(cmd *cobra.Command, args []string) error {
	input, filename, err := readSource(args)
	if err != nil {
		return err
	}

	noColor, _ := cmd.Flags().GetBool("no-color")

	p := parser.New(input, filename)
	m := p.ParseModule()
	if len(p.Errors()) > 0 {
		var ces []*errors.CompilerError
		for _, pe := range p.Errors() {
			ces = append(ces, errors.NewCompilerError(pe.Pos, pe.Message, input, filename))
		}
		fmt.Fprintln(os.Stderr, errors.FormatErrors(ces, !noColor))
		return fmt.Errorf("parsing failed with %d error(s)", len(p.Errors()))
	}

	if parseDumpAST {
		fmt.Println(m.String())
		return nil
	}

	pr := printer.New(printer.Options{IndentWidth: parseIndent})
	fmt.Println(pr.Print(m))
	return nil
}
