// Package semantic implements the STL type checker: arity and type
// validation of every reference to a state, event, message, qualifier, or
// transition, plus message-field assignment and reference-parameter
// validation.
package semantic

import (
	"fmt"

	"github.com/stl-lang/stlconform/internal/ast"
	"github.com/stl-lang/stlconform/internal/linker"
	"github.com/stl-lang/stlconform/internal/types"
)

// Error is a type error carrying where it occurred and, when meaningful,
// the expected and actual types.
type Error struct {
	Where    string
	Expected string
	Got      string
	Message  string
}

func (e *Error) Error() string {
	if e.Expected == "" && e.Got == "" {
		return fmt.Sprintf("%s: %s", e.Where, e.Message)
	}
	return fmt.Sprintf("%s: %s (expected %s, got %s)", e.Where, e.Message, e.Expected, e.Got)
}

// SchemaProvider supplies the field list for a message whose declaration is
// `external "..."`. The core does not load schemas itself; schema
// knowledge lives with the registered codec, and a nil provider skips
// field validation for such messages.
type SchemaProvider interface {
	ExternalMessageFields(qualifiedRef string) ([]*ast.FieldDecl, bool)
}

// Checker type-checks a linked Program.
type Checker struct {
	prog    *linker.Program
	schema  SchemaProvider
	errs    []*Error
}

// NewChecker creates a Checker over prog. schema may be nil.
func NewChecker(prog *linker.Program, schema SchemaProvider) *Checker {
	return &Checker{prog: prog, schema: schema}
}

// Check type-checks every message, event, and transition in the program and
// returns the accumulated errors (nil if sound).
func (c *Checker) Check() []*Error {
	for _, m := range c.prog.Modules {
		moduleName := m.Name.Name
		for _, d := range m.Decls {
			switch d := d.(type) {
			case *ast.MessageDecl:
				c.checkMessageDecl(moduleName, d)
			case *ast.EventDecl:
				c.checkEventDecl(moduleName, d)
			case *ast.TransitionDecl:
				c.checkTransitionDecl(moduleName, d)
			}
		}
	}
	return c.errs
}

func (c *Checker) errorf(where, expected, got, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.errs = append(c.errs, &Error{Where: where, Expected: expected, Got: got, Message: msg})
}

func (c *Checker) checkMessageDecl(module string, d *ast.MessageDecl) {
	if d.External != nil && c.schema != nil {
		if fields, ok := c.schema.ExternalMessageFields(d.External.Value); ok {
			d.Fields = fields
		}
	}
	for _, nested := range d.Nested {
		c.checkMessageDecl(module, nested)
	}
}

func (c *Checker) checkEventDecl(module string, d *ast.EventDecl) {
	if d.BodyKind != ast.EventBodyComposite {
		return
	}
	where := fqWhere(module, "event", d.Name.Name)
	callee, ok := c.prog.ResolveEvent(module, d.Callee.Name)
	if !ok {
		c.errorf(where, "", "", "undefined event %q", d.Callee.Name)
		return
	}
	locals := map[string]*types.Type{}
	for _, p := range d.Params {
		locals[p.Name.Name] = c.resolveParamType(module, p.Type)
	}
	c.checkCallArgs(module, where, callee.Params, d.Args, locals)
}

func (c *Checker) checkTransitionDecl(module string, d *ast.TransitionDecl) {
	where := fqWhere(module, "transition", d.Name.Name)
	locals := map[string]*types.Type{}
	for _, p := range d.Params {
		locals[p.Name.Name] = c.resolveParamType(module, p.Type)
	}
	for _, l := range d.Locals {
		locals[l.Name.Name] = c.resolveParamType(module, l.Type)
	}

	for _, set := range d.PreStates {
		c.checkStateSet(module, where, set, locals)
	}
	if d.PostStates != nil {
		c.checkStateSet(module, where, d.PostStates, locals)
	}
	if d.ErrorStates != nil {
		c.checkStateSet(module, where, d.ErrorStates, locals)
	}

	for _, ev := range d.Events {
		c.checkEventCall(module, where, ev, locals)
	}
}

func (c *Checker) checkStateSet(module, where string, set *ast.StateSet, locals map[string]*types.Type) {
	for _, ref := range set.Refs {
		decl, ok := c.prog.ResolveState(module, ref.State.Name)
		if !ok {
			c.errorf(where, "", "", "undefined state %q", ref.State.Name)
			continue
		}
		if len(ref.Args) != len(decl.ParamTypes) {
			c.errorf(where, fmt.Sprintf("%d args", len(decl.ParamTypes)), fmt.Sprintf("%d args", len(ref.Args)),
				"state %q called with wrong arity", ref.State.Name)
		} else {
			for i, arg := range ref.Args {
				want := c.resolveParamType(module, decl.ParamTypes[i])
				c.checkExprType(module, where, arg, want, locals)
			}
		}
		if !containsIdent(decl.Values, ref.Value.Name) {
			c.errorf(where, "declared value of "+ref.State.Name, ref.Value.Name,
				"%q is not a declared value of state %q", ref.Value.Name, ref.State.Name)
		}
	}
}

func containsIdent(idents []*ast.Ident, name string) bool {
	for _, id := range idents {
		if id.Name == name {
			return true
		}
	}
	return false
}

func (c *Checker) checkEventCall(module, where string, ev *ast.EventCall, locals map[string]*types.Type) {
	if _, ok := c.prog.ResolveRole(module, ev.Source.Name); !ok {
		c.errorf(where, "declared role", ev.Source.Name, "event source %q is not a declared role", ev.Source.Name)
	}
	if _, ok := c.prog.ResolveRole(module, ev.Target.Name); !ok {
		c.errorf(where, "declared role", ev.Target.Name, "event target %q is not a declared role", ev.Target.Name)
	}
	decl, ok := c.prog.ResolveEvent(module, ev.Event.Name)
	if !ok {
		c.errorf(where, "", "", "undefined event %q", ev.Event.Name)
		return
	}
	c.checkCallArgs(module, where, decl.Params, ev.Args, locals)
}

// checkCallArgs validates arity and per-argument type against params,
// enforcing that a by-reference parameter is only ever bound to a
// transition-local variable of identical type.
func (c *Checker) checkCallArgs(module, where string, params []*ast.EventParam, args []ast.Expr, locals map[string]*types.Type) {
	if len(params) != len(args) {
		c.errorf(where, fmt.Sprintf("%d args", len(params)), fmt.Sprintf("%d args", len(args)), "wrong call arity")
		return
	}
	for i, param := range params {
		want := c.resolveParamType(module, param.Type)
		arg := args[i]
		if param.ByRef {
			ident, ok := arg.(*ast.Ident)
			if !ok {
				c.errorf(where, "local variable", describeExpr(arg), "reference parameter %q requires a local variable argument", param.Name.Name)
				continue
			}
			if locals == nil {
				c.errorf(where, "local variable", ident.Name, "reference parameter %q used outside a transition", param.Name.Name)
				continue
			}
			got, ok := locals[ident.Name]
			if !ok {
				c.errorf(where, "declared local", ident.Name, "undefined local variable %q", ident.Name)
				continue
			}
			if !got.Equal(want) {
				c.errorf(where, want.String(), got.String(), "reference parameter %q type mismatch", param.Name.Name)
			}
			continue
		}
		c.checkExprType(module, where, arg, want, locals)
	}
}

// checkExprType computes the static type of expr and compares it to want,
// recursing into message/array literals to validate field assignments.
func (c *Checker) checkExprType(module, where string, expr ast.Expr, want *types.Type, locals map[string]*types.Type) {
	got := c.typeOf(module, where, expr, locals)
	if got == nil {
		return // already reported by typeOf
	}
	if want != nil && !got.Equal(want) {
		c.errorf(where, want.String(), got.String(), "type mismatch")
	}
}

func (c *Checker) typeOf(module, where string, expr ast.Expr, locals map[string]*types.Type) *types.Type {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return types.Int
	case *ast.StringLiteral:
		return types.String
	case *ast.BoolLiteral:
		return types.Bool
	case *ast.Ident:
		if locals != nil {
			if t, ok := locals[e.Name]; ok {
				return t
			}
		}
		if cd, ok := c.prog.ResolveConst(module, e.Name); ok {
			return c.typeOf(module, where, cd.Value, nil)
		}
		c.errorf(where, "", "", "undefined reference %q", e.Name)
		return nil
	case *ast.QualifierCall:
		decl, ok := c.prog.ResolveQualifier(module, e.Name.Name)
		if !ok {
			c.errorf(where, "", "", "undefined qualifier %q", e.Name.Name)
			return nil
		}
		if len(decl.ParamTypes) != len(e.Args) {
			c.errorf(where, fmt.Sprintf("%d args", len(decl.ParamTypes)), fmt.Sprintf("%d args", len(e.Args)),
				"qualifier %q called with wrong arity", e.Name.Name)
		} else {
			for i, arg := range e.Args {
				want := c.resolveParamType(module, decl.ParamTypes[i])
				c.checkExprType(module, where, arg, want, locals)
			}
		}
		return c.resolveParamType(module, decl.ReturnType)
	case *ast.ObjectLiteral:
		return c.checkObjectLiteral(module, where, e, locals)
	case *ast.ArrayLiteral:
		decl, ok := c.prog.ResolveMessage(module, e.Type.Name)
		if !ok {
			c.errorf(where, "", "", "undefined message %q", e.Type.Name)
			return nil
		}
		for _, el := range e.Elements {
			c.checkObjectLiteral(module, where, el, locals)
		}
		return types.Array(types.Message(module + "::" + decl.Name.Name))
	default:
		c.errorf(where, "", "", "unsupported expression")
		return nil
	}
}

// checkObjectLiteral validates a message literal against its declaration:
// every assigned field must exist and type-check, repeated fields accept
// array literals, nested messages accept only literals of the declared
// message type, and every required field must be present.
func (c *Checker) checkObjectLiteral(module, where string, lit *ast.ObjectLiteral, locals map[string]*types.Type) *types.Type {
	decl, ok := c.prog.ResolveMessage(module, lit.Type.Name)
	if !ok {
		c.errorf(where, "", "", "undefined message %q", lit.Type.Name)
		return nil
	}
	if decl.External != nil && len(decl.Fields) == 0 {
		// No schema supplied this external message's fields, so its field
		// assignments go unchecked.
		return types.Message(module + "::" + decl.Name.Name)
	}
	byName := map[string]*ast.FieldDecl{}
	for _, f := range decl.Fields {
		byName[f.Name.Name] = f
	}
	seen := map[string]bool{}
	for _, fa := range lit.Fields {
		field, ok := byName[fa.Name.Name]
		if !ok {
			c.errorf(where, "", "", "message %q has no field %q", decl.Name.Name, fa.Name.Name)
			continue
		}
		seen[fa.Name.Name] = true
		want := c.resolveFieldType(module, field)
		if field.Mult == ast.MultRepeated {
			if arr, ok := fa.Value.(*ast.ArrayLiteral); ok {
				for _, el := range arr.Elements {
					got := c.checkObjectLiteral(module, where, el, locals)
					if got != nil && want != nil && !got.Equal(want) {
						c.errorf(where, want.String(), got.String(), "repeated field %q: element type mismatch", fa.Name.Name)
					}
				}
				continue
			}
			c.errorf(where, "array literal", describeExpr(fa.Value), "repeated field %q requires an array literal", fa.Name.Name)
			continue
		}
		c.checkExprType(module, where, fa.Value, want, locals)
		if fa.WriteVar != nil {
			qc, ok := fa.Value.(*ast.QualifierCall)
			if !ok {
				c.errorf(where, "qualifier call", describeExpr(fa.Value), "'-> var' write form requires a qualifier call value")
			} else {
				_ = qc
				if locals == nil {
					c.errorf(where, "local variable", fa.WriteVar.Name, "'-> var' used outside a transition")
				} else if got, ok := locals[fa.WriteVar.Name]; !ok {
					c.errorf(where, "declared local", fa.WriteVar.Name, "undefined local variable %q", fa.WriteVar.Name)
				} else if !got.Equal(want) {
					c.errorf(where, want.String(), got.String(), "qualifier write target %q type mismatch", fa.WriteVar.Name)
				}
			}
		}
	}
	for _, f := range decl.Fields {
		if f.Mult == ast.MultRequired && !seen[f.Name.Name] {
			c.errorf(where, "required field "+f.Name.Name, "absent", "required field %q missing from %q literal", f.Name.Name, decl.Name.Name)
		}
	}
	return types.Message(module + "::" + decl.Name.Name)
}

func (c *Checker) resolveFieldType(module string, f *ast.FieldDecl) *types.Type {
	return c.resolveParamType(module, f.Type)
}

func (c *Checker) resolveParamType(module string, pt *ast.ParamType) *types.Type {
	var base *types.Type
	switch pt.Name {
	case "int":
		base = types.Int
	case "string":
		base = types.String
	case "bool":
		base = types.Bool
	default:
		if _, ok := c.prog.ResolveMessage(module, pt.Name); ok {
			base = types.Message(qualify(c.prog, module, pt.Name))
		} else if _, ok := c.prog.ResolveState(module, pt.Name); ok {
			base = types.State(qualify(c.prog, module, pt.Name))
		} else {
			base = types.Message(module + "::" + pt.Name)
		}
	}
	if pt.IsArray {
		return types.Array(base)
	}
	return base
}

func qualify(prog *linker.Program, module, name string) string {
	if _, ok := prog.Messages[module+"::"+name]; ok {
		return module + "::" + name
	}
	if _, ok := prog.States[module+"::"+name]; ok {
		return module + "::" + name
	}
	return name
}

func fqWhere(module, kind, name string) string {
	return fmt.Sprintf("%s %s::%s", kind, module, name)
}

func describeExpr(e ast.Expr) string {
	switch e.(type) {
	case *ast.IntLiteral:
		return "int literal"
	case *ast.StringLiteral:
		return "string literal"
	case *ast.BoolLiteral:
		return "bool literal"
	case *ast.Ident:
		return "identifier"
	case *ast.QualifierCall:
		return "qualifier call"
	case *ast.ObjectLiteral:
		return "object literal"
	case *ast.ArrayLiteral:
		return "array literal"
	default:
		return "expression"
	}
}
