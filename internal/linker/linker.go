// Package linker resolves the parsed per-file ASTs into a single, immutable
// Program: every declaration interned under its fully-qualified
// "module::name". Linking is a flat two-phase pass: register every top-level
// name, then check constant and composite-event cycles. References inside
// bodies are resolved later by internal/semantic.
package linker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stl-lang/stlconform/internal/ast"
)

// Error is a link-time error: a duplicate module or declaration name, or a
// cyclic constant definition. Undefined references and arity mismatches are
// reported by internal/semantic.
type Error struct {
	Where   string
	Message string
}

func (e *Error) Error() string {
	if e.Where == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Where, e.Message)
}

// Program is the linked union of every supplied Module, indexed by kind and
// fully-qualified name.
type Program struct {
	Modules     map[string]*ast.Module
	Consts      map[string]*ast.ConstDecl
	States      map[string]*ast.StateDecl
	Roles       map[string]*ast.RoleDecl
	Messages    map[string]*ast.MessageDecl
	Qualifiers  map[string]*ast.QualifierDecl
	Events      map[string]*ast.EventDecl
	Transitions map[string]*ast.TransitionDecl

	// Warnings collects non-fatal link-time findings. A cycle through
	// composite event definitions is legal (the executor bounds expansion
	// depth) but flagged here.
	Warnings []string

	// TransitionOrder holds every transition's fully-qualified name in
	// declaration order (module order, then in-module order), since
	// Transitions is a map and would otherwise lose it. executor.Step uses
	// this to enumerate candidates in the order policy.FirstPolicy's doc
	// comment promises, rather than alphabetically.
	TransitionOrder []string

	// moduleOf maps every interned name back to the module that declared it,
	// used to resolve bare (non-qualified) references found while walking
	// that module's own bodies.
	moduleOf map[string]string
}

func newProgram() *Program {
	return &Program{
		Modules:     map[string]*ast.Module{},
		Consts:      map[string]*ast.ConstDecl{},
		States:      map[string]*ast.StateDecl{},
		Roles:       map[string]*ast.RoleDecl{},
		Messages:    map[string]*ast.MessageDecl{},
		Qualifiers:  map[string]*ast.QualifierDecl{},
		Events:      map[string]*ast.EventDecl{},
		Transitions: map[string]*ast.TransitionDecl{},
		moduleOf:    map[string]string{},
	}
}

func fq(module, name string) string { return module + "::" + name }

// Link interns every declaration across modules, rejecting duplicate names
// and cyclic constants, and records composite-event cycles as warnings.
// Name references inside event/transition bodies are resolved lazily by
// internal/semantic, which needs type information to disambiguate
// overloaded-looking call sites. The fields of `external` messages are
// filled in by internal/semantic from its SchemaProvider, not here.
func Link(modules []*ast.Module) (*Program, []*Error) {
	prog := newProgram()
	var errs []*Error

	for _, m := range modules {
		if _, dup := prog.Modules[m.Name.Name]; dup {
			errs = append(errs, &Error{Where: m.Name.Name, Message: "duplicate module name"})
			continue
		}
		prog.Modules[m.Name.Name] = m
	}

	// Phase 1: register every top-level name.
	for _, m := range modules {
		registerDecls(prog, m.Name.Name, m.Decls, &errs)
	}

	// Phase 2: detect cyclic constant definitions and flag composite-event
	// cycles. (Binding `external` names to callables is deferred to the
	// primitive registry at execution time.)
	detectConstCycles(prog, &errs)
	flagEventCycles(prog)

	return prog, errs
}

func registerDecls(prog *Program, module string, decls []ast.Decl, errs *[]*Error) {
	for _, d := range decls {
		switch d := d.(type) {
		case *ast.ConstDecl:
			name := fq(module, d.Name.Name)
			if _, dup := prog.Consts[name]; dup {
				*errs = append(*errs, &Error{Where: name, Message: "duplicate const declaration"})
				continue
			}
			prog.Consts[name] = d
			prog.moduleOf[name] = module
		case *ast.StateDecl:
			name := fq(module, d.Name.Name)
			if _, dup := prog.States[name]; dup {
				*errs = append(*errs, &Error{Where: name, Message: "duplicate state declaration"})
				continue
			}
			prog.States[name] = d
			prog.moduleOf[name] = module
		case *ast.RoleDecl:
			name := fq(module, d.Name.Name)
			if _, dup := prog.Roles[name]; dup {
				*errs = append(*errs, &Error{Where: name, Message: "duplicate role declaration"})
				continue
			}
			prog.Roles[name] = d
			prog.moduleOf[name] = module
		case *ast.MessageDecl:
			registerMessage(prog, module, d, errs)
		case *ast.QualifierDecl:
			name := fq(module, d.Name.Name)
			if _, dup := prog.Qualifiers[name]; dup {
				*errs = append(*errs, &Error{Where: name, Message: "duplicate qualifier declaration"})
				continue
			}
			prog.Qualifiers[name] = d
			prog.moduleOf[name] = module
		case *ast.EventDecl:
			name := fq(module, d.Name.Name)
			if _, dup := prog.Events[name]; dup {
				*errs = append(*errs, &Error{Where: name, Message: "duplicate event declaration"})
				continue
			}
			prog.Events[name] = d
			prog.moduleOf[name] = module
		case *ast.TransitionDecl:
			name := fq(module, d.Name.Name)
			if _, dup := prog.Transitions[name]; dup {
				*errs = append(*errs, &Error{Where: name, Message: "duplicate transition declaration"})
				continue
			}
			prog.Transitions[name] = d
			prog.TransitionOrder = append(prog.TransitionOrder, name)
			prog.moduleOf[name] = module
		}
	}
}

func registerMessage(prog *Program, module string, d *ast.MessageDecl, errs *[]*Error) {
	name := fq(module, d.Name.Name)
	if _, dup := prog.Messages[name]; dup {
		*errs = append(*errs, &Error{Where: name, Message: "duplicate message declaration"})
		return
	}
	prog.Messages[name] = d
	prog.moduleOf[name] = module
	for _, nested := range d.Nested {
		registerMessage(prog, module, nested, errs)
	}
}

// ResolveState looks up name, first as a local (module-relative) name,
// falling back to treating name as already fully qualified. A name absent
// in both forms is an undefined reference.
func (p *Program) ResolveState(module, name string) (*ast.StateDecl, bool) {
	if d, ok := p.States[fq(module, name)]; ok {
		return d, true
	}
	d, ok := p.States[name]
	return d, ok
}

func (p *Program) ResolveRole(module, name string) (*ast.RoleDecl, bool) {
	if d, ok := p.Roles[fq(module, name)]; ok {
		return d, true
	}
	d, ok := p.Roles[name]
	return d, ok
}

func (p *Program) ResolveMessage(module, name string) (*ast.MessageDecl, bool) {
	if d, ok := p.Messages[fq(module, name)]; ok {
		return d, true
	}
	d, ok := p.Messages[name]
	return d, ok
}

func (p *Program) ResolveQualifier(module, name string) (*ast.QualifierDecl, bool) {
	if d, ok := p.Qualifiers[fq(module, name)]; ok {
		return d, true
	}
	d, ok := p.Qualifiers[name]
	return d, ok
}

func (p *Program) ResolveEvent(module, name string) (*ast.EventDecl, bool) {
	if d, ok := p.Events[fq(module, name)]; ok {
		return d, true
	}
	d, ok := p.Events[name]
	return d, ok
}

func (p *Program) ResolveConst(module, name string) (*ast.ConstDecl, bool) {
	if d, ok := p.Consts[fq(module, name)]; ok {
		return d, true
	}
	d, ok := p.Consts[name]
	return d, ok
}

// flagEventCycles walks the composite-event call graph and records a
// warning for every cycle found. Each composite event has exactly one
// callee, so following the callee chain from each event suffices; a cycle
// is reported once, from its lexically-first member, to keep the warning
// list stable across runs.
func flagEventCycles(prog *Program) {
	names := make([]string, 0, len(prog.Events))
	for name := range prog.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	reported := map[string]bool{}
	for _, name := range names {
		if prog.Events[name].BodyKind != ast.EventBodyComposite || reported[name] {
			continue
		}
		path := []string{name}
		seen := map[string]bool{name: true}
		cur := name
		for {
			d := prog.Events[cur]
			if d.BodyKind != ast.EventBodyComposite {
				break
			}
			nextName := fq(prog.moduleOf[cur], d.Callee.Name)
			if _, local := prog.Events[nextName]; !local {
				if _, global := prog.Events[d.Callee.Name]; !global {
					break
				}
				nextName = d.Callee.Name
			}
			if seen[nextName] {
				if nextName == name {
					prog.Warnings = append(prog.Warnings,
						fmt.Sprintf("cyclic event definition: %s -> %s", strings.Join(path, " -> "), nextName))
					for _, member := range path {
						reported[member] = true
					}
				}
				break
			}
			seen[nextName] = true
			path = append(path, nextName)
			cur = nextName
		}
	}
}

// detectConstCycles walks the reference graph among const declarations.
// Const values in STL are always literals, so no cycle can actually occur
// through Value alone; this pass exists to reject the one legitimate
// source of a cycle, a future const-referencing-const extension, the
// moment such a reference appears rather than silently accepting it.
func detectConstCycles(prog *Program, errs *[]*Error) {
	names := make([]string, 0, len(prog.Consts))
	for name := range prog.Consts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		decl := prog.Consts[name]
		if ref, ok := decl.Value.(*ast.Ident); ok {
			if ref.Name == decl.Name.Name {
				*errs = append(*errs, &Error{Where: name, Message: "cyclic constant definition"})
			}
		}
	}
}
