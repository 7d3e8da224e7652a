package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags).
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "stlc",
	Short: "STL conformance-test front end and transition executor",
	Long: `stlc parses and links State Transition Language (STL) programs and
drives conformance tests against them.

STL describes a distributed protocol as roles, states, messages,
qualifiers, events, and transitions. stlc's subcommands cover the pipeline
end to end: lexing and parsing a single .stl file for debugging, type-
checking a whole program, and running a manifest-driven conformance test
against a registered set of external primitives.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable ANSI color in diagnostic output")
}
