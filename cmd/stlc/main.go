// Command stlc is the CLI wrapper around the STL conformance framework.
// This file and its cmd/ subcommands contain no STL-specific logic of
// their own, only orchestration of pkg/stl and
// internal/{lexer,parser,printer}.
package main

import (
	"fmt"
	"os"

	"github.com/stl-lang/stlconform/cmd/stlc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
