package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stl-lang/stlconform/internal/lexer"
	"github.com/stl-lang/stlconform/internal/token"
)

var (
	lexShowPos  bool
	lexShowType bool
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize an STL file and print the resulting tokens",
	Long: `Tokenize (lex) an STL program and print the resulting tokens.

Useful for debugging the lexer and understanding how STL source is
tokenized. Reads from stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().BoolVar(&lexShowPos, "show-pos", false, "show token positions (line:column)")
	lexCmd.Flags().BoolVar(&lexShowType, "show-type", false, "show token type names")
}

func runLex(_ *cobra.Command, args []string) error {
	input, filename, err := readSource(args)
	if err != nil {
		return err
	}

	toks, errs := lexer.Tokenize(input, filename)
	for _, tok := range toks {
		printToken(tok)
	}

	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return fmt.Errorf("lexing failed with %d error(s)", len(errs))
	}
	return nil
}

func printToken(tok token.Token) {
	out := ""
	if lexShowType {
		out += fmt.Sprintf("[%-12v] ", tok.Type)
	}
	if tok.Literal == "" {
		out += tok.Type.String()
	} else {
		out += fmt.Sprintf("%q", tok.Literal)
	}
	if lexShowPos {
		out += fmt.Sprintf(" @%d:%d", tok.Pos.Line, tok.Pos.Column)
	}
	fmt.Println(out)
}

// readSource reads the positional file argument, or stdin when none is
// given, shared by lex/parse/check.
func readSource(args []string) (input, filename string, err error) {
	if len(args) == 1 {
		filename = args[0]
		data, rerr := os.ReadFile(filename)
		if rerr != nil {
			return "", "", fmt.Errorf("reading %s: %w", filename, rerr)
		}
		return string(data), filename, nil
	}
	filename = "<stdin>"
	data, rerr := io.ReadAll(os.Stdin)
	if rerr != nil {
		return "", "", fmt.Errorf("reading stdin: %w", rerr)
	}
	return string(data), filename, nil
}
