package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stl-lang/stlconform/internal/parser"
	"github.com/stl-lang/stlconform/internal/printer"
)

var (
	fmtWrite  bool
	fmtList   bool
	fmtIndent int
)

var fmtCmd = &cobra.Command{
	Use:   "fmt [files...]",
	Short: "Pretty-print STL source files",
	Long: `Format STL source files using the AST-driven printer.

By default fmt prints the formatted result to standard output. -w
overwrites each file in place, -l lists only the files whose formatting
would change. Formatting is idempotent for well-formed programs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFmt,
}

func init() {
	rootCmd.AddCommand(fmtCmd)

	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "write result to (source) file instead of stdout")
	fmtCmd.Flags().BoolVarP(&fmtList, "list", "l", false, "list only files whose formatting differs")
	fmtCmd.Flags().IntVar(&fmtIndent, "indent", 2, "number of spaces per indentation level")
}

func runFmt(cmd *cobra.Command, args []string) error {
	if fmtWrite && fmtList {
		return fmt.Errorf("cannot use -w and -l together")
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	hadErrors := false
	for _, filename := range args {
		if err := formatFile(filename, verbose); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
			hadErrors = true
		}
	}
	if hadErrors {
		return fmt.Errorf("formatting failed for one or more files")
	}
	return nil
}

func formatFile(filename string, verbose bool) error {
	src, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	original := string(src)

	p := parser.New(original, filename)
	m := p.ParseModule()
	if len(p.Errors()) > 0 {
		var sb strings.Builder
		sb.WriteString("parse errors:\n")
		for _, pe := range p.Errors() {
			sb.WriteString("  " + pe.Error() + "\n")
		}
		return fmt.Errorf("%s", sb.String())
	}

	pr := printer.New(printer.Options{IndentWidth: fmtIndent})
	formatted := pr.Print(m) + "\n"
	changed := formatted != original

	switch {
	case fmtList:
		if changed {
			fmt.Println(filename)
		}
	case fmtWrite:
		if changed {
			if err := os.WriteFile(filename, []byte(formatted), 0o644); err != nil {
				return fmt.Errorf("writing file: %w", err)
			}
			if verbose {
				fmt.Printf("formatted %s\n", filename)
			}
		}
	default:
		fmt.Print(formatted)
	}
	return nil
}
