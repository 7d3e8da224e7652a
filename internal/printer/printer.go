// Package printer pretty-prints STL modules. Every ast.Node already
// renders itself via String() (internal/ast's grammar-mirroring
// rendering), so this package's job is narrow: reindenting that canonical
// two-space output to the caller's preferred indent width, and giving a
// stable multi-module ordering for a whole-program dump.
package printer

import (
	"sort"
	"strings"

	"github.com/stl-lang/stlconform/internal/ast"
)

// Options configures Print's output.
type Options struct {
	// IndentWidth is the number of spaces per indentation level. Zero
	// means "use ast.Node.String()'s own two-space default unchanged".
	IndentWidth int
}

// Printer renders modules according to Options.
type Printer struct {
	opts Options
}

// New builds a Printer with the given Options.
func New(opts Options) *Printer { return &Printer{opts: opts} }

// Print renders a single module.
func (p *Printer) Print(m *ast.Module) string {
	return p.reindent(m.String())
}

// PrintAll renders every module, sorted by name, separated by a blank
// line: the stable ordering a multi-file `stlc fmt` or `--dump-ast` pass
// needs so output doesn't depend on file-load order.
func (p *Printer) PrintAll(modules []*ast.Module) string {
	sorted := make([]*ast.Module, len(modules))
	copy(sorted, modules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name.Name < sorted[j].Name.Name })

	var sb strings.Builder
	for i, m := range sorted {
		sb.WriteString(p.Print(m))
		if i != len(sorted)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// reindent rewrites ast.Node.String()'s fixed two-space indentation to the
// configured width, by replacing each leading two-space unit with the
// target width's worth of spaces. Lines are re-indented independently so
// the routine stays correct regardless of nesting depth.
func (p *Printer) reindent(s string) string {
	if p.opts.IndentWidth <= 0 || p.opts.IndentWidth == 2 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		leadingSpaces := len(line) - len(trimmed)
		levels := leadingSpaces / 2
		lines[i] = strings.Repeat(" ", levels*p.opts.IndentWidth) + trimmed
	}
	return strings.Join(lines, "\n")
}
