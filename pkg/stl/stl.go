// Package stl is the public embedding facade for the STL conformance
// framework: given a manifest path and its substitution arguments, it loads
// the named STL files, links and type-checks them, validates the
// manifest's role instances against the linked program, and hands back an
// executor.Executor ready to drive the roles named in the manifest's `test`
// list.
package stl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/stl-lang/stlconform/internal/ast"
	"github.com/stl-lang/stlconform/internal/errors"
	"github.com/stl-lang/stlconform/internal/executor"
	"github.com/stl-lang/stlconform/internal/linker"
	"github.com/stl-lang/stlconform/internal/manifest"
	"github.com/stl-lang/stlconform/internal/parser"
	"github.com/stl-lang/stlconform/internal/registry"
	"github.com/stl-lang/stlconform/internal/semantic"
	"github.com/stl-lang/stlconform/internal/token"
)

// Diagnostic is one static error surfaced during Load, tagged with the
// pipeline stage that produced it. Pos and Source are populated for parse
// diagnostics (lexical errors included), which carry a precise source
// location; a "lex" diagnostic reports an STL file that could not be read;
// link/type/manifest diagnostics name their offending declaration in
// Message instead.
type Diagnostic struct {
	Stage   string // "lex" | "parse" | "link" | "type" | "manifest"
	File    string
	Message string
	Pos     *token.Position
	Source  string
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("[%s] %s", d.Stage, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Stage, d.File, d.Message)
}

// Format renders the diagnostic the way internal/errors formats a static
// compiler error (with a source line and caret) when position information
// is available, falling back to the plain [stage] message otherwise.
func (d Diagnostic) Format(color bool) string {
	if d.Pos == nil {
		return d.String()
	}
	ce := errors.NewCompilerError(*d.Pos, fmt.Sprintf("[%s] %s", d.Stage, d.Message), d.Source, d.File)
	return ce.Format(color)
}

// LoadError wraps every Diagnostic accumulated while loading a Program; the
// pipeline stops at the first stage that produces any.
type LoadError struct {
	Diagnostics []Diagnostic
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("stl: %d error(s) loading program", len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		msg += "\n  " + d.String()
	}
	return msg
}

// Format renders every diagnostic with Diagnostic.Format, joined by blank
// lines, the way cmd/stlc prints a failed Load to stderr.
func (e *LoadError) Format(color bool) string {
	var out string
	for i, d := range e.Diagnostics {
		if i > 0 {
			out += "\n\n"
		}
		out += d.Format(color)
	}
	return out
}

// Program is a fully linked, type-checked STL program plus its resolved
// manifest: everything needed to construct an Executor and know which
// roles to drive.
type Program struct {
	Linked   *linker.Program
	Manifest *manifest.Document
	modules  []*ast.Module
}

// SchemaProvider re-exports semantic.SchemaProvider so callers of Load
// don't need to import internal/semantic directly.
type SchemaProvider = semantic.SchemaProvider

// Load reads the manifest at manifestPath, applies the `$key` substitution
// pass with args, decodes it, reads and parses every listed STL file
// (resolved relative to the manifest's directory), links
// and type-checks the result, and validates every manifest role instance
// against its linked RoleDecl. schema may be nil when no message declares
// `external` field schemas.
func Load(manifestPath string, args map[string]string, schema SchemaProvider) (*Program, error) {
	manifestBytes, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("stl: reading manifest %s: %w", manifestPath, err)
	}

	doc, err := manifest.Load(string(manifestBytes), args)
	if err != nil {
		return nil, &LoadError{Diagnostics: []Diagnostic{{Stage: "manifest", Message: err.Error()}}}
	}

	dir := filepath.Dir(manifestPath)

	var diags []Diagnostic
	var modules []*ast.Module
	for _, rel := range doc.STLFiles {
		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, rel)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			diags = append(diags, Diagnostic{Stage: "lex", File: path, Message: err.Error()})
			continue
		}
		p := parser.New(string(src), path)
		m := p.ParseModule()
		for _, pe := range p.Errors() {
			pos := pe.Pos
			diags = append(diags, Diagnostic{Stage: "parse", File: path, Message: pe.Message, Pos: &pos, Source: string(src)})
		}
		if len(p.Errors()) == 0 {
			modules = append(modules, m)
		}
	}
	if len(diags) > 0 {
		return nil, &LoadError{Diagnostics: diags}
	}

	linked, linkErrs := linker.Link(modules)
	for _, le := range linkErrs {
		diags = append(diags, Diagnostic{Stage: "link", Message: le.Error()})
	}
	if len(diags) > 0 {
		return nil, &LoadError{Diagnostics: diags}
	}

	checker := semantic.NewChecker(linked, schema)
	for _, te := range checker.Check() {
		diags = append(diags, Diagnostic{Stage: "type", Message: te.Error()})
	}
	for _, re := range checker.CheckRoleInstances(doc.Roles) {
		diags = append(diags, Diagnostic{Stage: "manifest", Message: re.Error()})
	}
	if len(diags) > 0 {
		return nil, &LoadError{Diagnostics: diags}
	}

	return &Program{Linked: linked, Manifest: doc, modules: modules}, nil
}

// ModuleNames returns the module name of every successfully parsed STL
// file, in manifest declaration order.
func (p *Program) ModuleNames() []string {
	names := make([]string, 0, len(p.modules))
	for _, m := range p.modules {
		names = append(names, m.Name.Name)
	}
	return names
}

// DrivenRoles returns the fully-qualified role names the manifest's `test`
// list names.
func (p *Program) DrivenRoles() []string { return p.Manifest.Test }

// RoleInstance looks up a manifest role instance by its fully-qualified
// name.
func (p *Program) RoleInstance(fqName string) (manifest.RoleInstance, bool) {
	for _, r := range p.Manifest.Roles {
		if r.Role == fqName {
			return r, true
		}
	}
	return manifest.RoleInstance{}, false
}

// NewExecutor constructs an executor.Executor over the loaded program,
// dispatching primitives through reg.
func (p *Program) NewExecutor(reg *registry.Registry, opts ...executor.Option) *executor.Executor {
	return executor.New(p.Linked, reg, opts...)
}

// NewLogger is a convenience wrapping hclog.New for callers that just want
// the executor's default named logger without pulling in go-hclog
// themselves.
func NewLogger(name string, level hclog.Level) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{Name: name, Level: level})
}
