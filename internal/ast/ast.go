// Package ast defines the syntax tree produced by the STL parser.
//
// Every node can render itself back to source via String(), which the
// pretty-printer (internal/printer) and the parser round-trip tests both
// build on.
package ast

import (
	"bytes"
	"strings"

	"github.com/stl-lang/stlconform/internal/token"
)

// Node is the base interface implemented by every syntax tree element.
type Node interface {
	Pos() token.Position
	String() string
}

// Expr is any node that evaluates to a value: a literal, identifier,
// qualifier call, or message literal.
type Expr interface {
	Node
	exprNode()
}

// Decl is any top-level declaration inside a Module.
type Decl interface {
	Node
	declNode()
}

// Ident is a bare identifier reference, used for role/state/event/message
// names, local-variable names, and field names.
type Ident struct {
	Token token.Token
	Name  string
}

func (i *Ident) Pos() token.Position { return i.Token.Pos }
func (i *Ident) String() string      { return i.Name }
func (i *Ident) exprNode()           {}

// QualifiedIdent is a dotted external reference, e.g. "pkg.mod.symbol",
// recorded verbatim and resolved against the primitive registry only at
// execution time.
type QualifiedIdent struct {
	Token token.Token
	Value string // without quotes
}

func (q *QualifiedIdent) Pos() token.Position { return q.Token.Pos }
func (q *QualifiedIdent) String() string      { return `"` + q.Value + `"` }

// IntLiteral is a non-negative integer literal; a leading '-' is reserved
// syntax.
type IntLiteral struct {
	Token token.Token
	Value int64
}

func (l *IntLiteral) Pos() token.Position { return l.Token.Pos }
func (l *IntLiteral) String() string      { return l.Token.Literal }
func (l *IntLiteral) exprNode()           {}

// StringLiteral is a double-quoted string literal.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (l *StringLiteral) Pos() token.Position { return l.Token.Pos }
func (l *StringLiteral) String() string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range l.Value {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}
func (l *StringLiteral) exprNode() {}

// BoolLiteral is the `true` or `false` keyword literal.
type BoolLiteral struct {
	Token token.Token
	Value bool
}

func (l *BoolLiteral) Pos() token.Position { return l.Token.Pos }
func (l *BoolLiteral) String() string      { return l.Token.Literal }
func (l *BoolLiteral) exprNode()           {}

// Module is the root of a single parsed STL file: `module <name>;` followed
// by any ordering of declarations.
type Module struct {
	Token token.Token // 'module' keyword
	Name  *Ident
	Decls []Decl
}

func (m *Module) Pos() token.Position { return m.Token.Pos }
func (m *Module) String() string {
	var buf bytes.Buffer
	buf.WriteString("module ")
	buf.WriteString(m.Name.String())
	buf.WriteString(";\n\n")
	for i, d := range m.Decls {
		buf.WriteString(d.String())
		buf.WriteString("\n")
		if i != len(m.Decls)-1 {
			buf.WriteString("\n")
		}
	}
	return buf.String()
}

// ConstDecl is `const <name> = <literal>;`.
type ConstDecl struct {
	Token token.Token
	Name  *Ident
	Value Expr
}

func (c *ConstDecl) Pos() token.Position { return c.Token.Pos }
func (c *ConstDecl) declNode()           {}
func (c *ConstDecl) String() string {
	return "const " + c.Name.String() + " = " + c.Value.String() + ";"
}

// ParamType names a scalar parameter/field type: int, string, bool, or a
// reference to a declared message.
type ParamType struct {
	Token   token.Token
	Name    string // "int" | "string" | "bool" | message name
	IsArray bool
}

func (p *ParamType) Pos() token.Position { return p.Token.Pos }
func (p *ParamType) String() string {
	if p.IsArray {
		return p.Name + "[]"
	}
	return p.Name
}

// StateDecl declares a parameterized state slot and its symbolic values.
//
//	state sTlsState(int) { kConnected kNotConnected }
type StateDecl struct {
	Token      token.Token
	Name       *Ident
	ParamTypes []*ParamType
	Values     []*Ident
}

func (s *StateDecl) Pos() token.Position { return s.Token.Pos }
func (s *StateDecl) declNode()           {}
func (s *StateDecl) String() string {
	var buf bytes.Buffer
	buf.WriteString("state ")
	buf.WriteString(s.Name.String())
	buf.WriteByte('(')
	for i, p := range s.ParamTypes {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p.String())
	}
	buf.WriteString(") {")
	for _, v := range s.Values {
		buf.WriteByte(' ')
		buf.WriteString(v.String())
	}
	buf.WriteString(" }")
	return buf.String()
}

// RoleField is a single typed field in a Role declaration.
type RoleField struct {
	Token token.Token
	Name  *Ident
	Type  *ParamType
}

func (f *RoleField) Pos() token.Position { return f.Token.Pos }
func (f *RoleField) String() string      { return f.Name.String() + ": " + f.Type.String() }

// RoleDecl declares a named actor and its manifest-populated fields.
type RoleDecl struct {
	Token  token.Token
	Name   *Ident
	Fields []*RoleField
}

func (r *RoleDecl) Pos() token.Position { return r.Token.Pos }
func (r *RoleDecl) declNode()           {}
func (r *RoleDecl) String() string {
	var buf bytes.Buffer
	buf.WriteString("role ")
	buf.WriteString(r.Name.String())
	buf.WriteString(" {\n")
	for _, f := range r.Fields {
		buf.WriteString("  " + f.String() + ";\n")
	}
	buf.WriteString("}")
	return buf.String()
}

// Multiplicity is a field's cardinality within a message.
type Multiplicity int

const (
	MultRequired Multiplicity = iota
	MultOptional
	MultRepeated
)

func (m Multiplicity) String() string {
	switch m {
	case MultOptional:
		return "optional"
	case MultRepeated:
		return "repeated"
	default:
		return "required"
	}
}

// FieldDecl is a single field in a MessageDecl's explicit field list.
type FieldDecl struct {
	Token token.Token
	Name  *Ident
	Type  *ParamType
	Mult  Multiplicity
}

func (f *FieldDecl) Pos() token.Position { return f.Token.Pos }
func (f *FieldDecl) String() string {
	return f.Mult.String() + " " + f.Type.String() + " " + f.Name.String() + ";"
}

// Encoding is a message's wire encoding.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingBytestream
	EncodingProtobuf
)

func (e Encoding) String() string {
	switch e {
	case EncodingBytestream:
		return "bytestream"
	case EncodingProtobuf:
		return "protobuf"
	default:
		return "json"
	}
}

// ParseEncoding maps a source spelling to an Encoding, or false if unknown.
func ParseEncoding(s string) (Encoding, bool) {
	switch s {
	case "json":
		return EncodingJSON, true
	case "bytestream":
		return EncodingBytestream, true
	case "protobuf":
		return EncodingProtobuf, true
	default:
		return 0, false
	}
}

// MessageDecl declares a payload type: either an explicit field list, or an
// `external` reference whose fields the type checker fills in from its
// SchemaProvider.
type MessageDecl struct {
	Token    token.Token
	Name     *Ident
	Encoding Encoding
	External *QualifiedIdent // nil unless `external "...";` is present
	Fields   []*FieldDecl    // empty when External != nil, until type-checked with a schema
	IsArray  bool
	Nested   []*MessageDecl // messages declared inside this one
}

func (m *MessageDecl) Pos() token.Position { return m.Token.Pos }
func (m *MessageDecl) declNode()           {}
func (m *MessageDecl) String() string {
	var buf bytes.Buffer
	buf.WriteString("message ")
	buf.WriteString(m.Name.String())
	if m.IsArray {
		buf.WriteString("[]")
	}
	buf.WriteString(" {\n")
	buf.WriteString("  encode \"" + m.Encoding.String() + "\";\n")
	if m.External != nil {
		buf.WriteString("  external " + m.External.String() + ";\n")
	}
	for _, f := range m.Fields {
		buf.WriteString("  " + f.String() + "\n")
	}
	for _, n := range m.Nested {
		buf.WriteString(indent(n.String()))
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return buf.String()
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

// QualifierDecl declares an externally-implemented value generator or
// validator.
type QualifierDecl struct {
	Token      token.Token
	Name       *Ident
	ReturnType *ParamType
	ParamTypes []*ParamType
	External   *QualifiedIdent
}

func (q *QualifierDecl) Pos() token.Position { return q.Token.Pos }
func (q *QualifierDecl) declNode()           {}
func (q *QualifierDecl) String() string {
	var buf bytes.Buffer
	buf.WriteString("qualifier ")
	buf.WriteString(q.Name.String())
	buf.WriteByte('(')
	for i, p := range q.ParamTypes {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p.String())
	}
	buf.WriteString(") ")
	buf.WriteString(q.ReturnType.String())
	buf.WriteString(" {\n  external " + q.External.String() + ";\n}")
	return buf.String()
}

// EventParam is a single parameter of an EventDecl, marked by-reference
// when preceded by '&'.
type EventParam struct {
	Token token.Token
	Name  *Ident
	Type  *ParamType
	ByRef bool
}

func (p *EventParam) Pos() token.Position { return p.Token.Pos }
func (p *EventParam) String() string {
	prefix := ""
	if p.ByRef {
		prefix = "&"
	}
	return prefix + p.Type.String() + " " + p.Name.String()
}

// EventBodyKind distinguishes the three shapes an event body can take:
// an external reference, a composite call, or a no-op.
type EventBodyKind int

const (
	EventBodyNoOp EventBodyKind = iota
	EventBodyExternal
	EventBodyComposite
)

// EventDecl declares an interaction: terminal (external), composite (calls
// another event with message-literal arguments), or a no-op.
type EventDecl struct {
	Token    token.Token
	Name     *Ident
	Params   []*EventParam
	BodyKind EventBodyKind
	External *QualifiedIdent // set iff BodyKind == EventBodyExternal
	Callee   *Ident          // set iff BodyKind == EventBodyComposite
	Args     []Expr          // set iff BodyKind == EventBodyComposite
}

func (e *EventDecl) Pos() token.Position { return e.Token.Pos }
func (e *EventDecl) declNode()           {}
func (e *EventDecl) String() string {
	var buf bytes.Buffer
	buf.WriteString("event ")
	buf.WriteString(e.Name.String())
	buf.WriteByte('(')
	for i, p := range e.Params {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p.String())
	}
	buf.WriteByte(')')
	switch e.BodyKind {
	case EventBodyExternal:
		buf.WriteString(" = external " + e.External.String() + ";")
	case EventBodyComposite:
		buf.WriteString(" = " + e.Callee.String() + "(")
		for i, a := range e.Args {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(a.String())
		}
		buf.WriteString(");")
	default:
		buf.WriteString(";")
	}
	return buf.String()
}

// ObjectLiteral is `mName { field = expr; ... }`.
type ObjectLiteral struct {
	Token  token.Token
	Type   *Ident
	Fields []*FieldAssign
}

func (o *ObjectLiteral) Pos() token.Position { return o.Token.Pos }
func (o *ObjectLiteral) exprNode()           {}
func (o *ObjectLiteral) String() string {
	var buf bytes.Buffer
	buf.WriteString(o.Type.String())
	buf.WriteString(" { ")
	for _, f := range o.Fields {
		buf.WriteString(f.String())
		buf.WriteString(" ")
	}
	buf.WriteString("}")
	return buf.String()
}

// ArrayLiteral is `mName [ { ... }, { ... } ]`.
type ArrayLiteral struct {
	Token    token.Token
	Type     *Ident
	Elements []*ObjectLiteral
}

func (a *ArrayLiteral) Pos() token.Position { return a.Token.Pos }
func (a *ArrayLiteral) exprNode()           {}
func (a *ArrayLiteral) String() string {
	var buf bytes.Buffer
	buf.WriteString(a.Type.String())
	buf.WriteString(" [")
	for i, e := range a.Elements {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(e.String())
	}
	buf.WriteString("]")
	return buf.String()
}

// QualifierCall is `Qualifier(args...)`, optionally bound to a local via
// the `-> var` write form inside a FieldAssign.
type QualifierCall struct {
	Token token.Token
	Name  *Ident
	Args  []Expr
}

func (q *QualifierCall) Pos() token.Position { return q.Token.Pos }
func (q *QualifierCall) exprNode()           {}
func (q *QualifierCall) String() string {
	var buf bytes.Buffer
	buf.WriteString(q.Name.String())
	buf.WriteByte('(')
	for i, a := range q.Args {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

// FieldAssign is one `field = expr;` or `field = Qualifier(args) -> var;`
// line inside an ObjectLiteral.
type FieldAssign struct {
	Token    token.Token
	Name     *Ident
	Value    Expr
	WriteVar *Ident // non-nil for the `-> var` qualifier-write form
}

func (f *FieldAssign) Pos() token.Position { return f.Token.Pos }
func (f *FieldAssign) String() string {
	s := f.Name.String() + " = " + f.Value.String()
	if f.WriteVar != nil {
		s += " -> " + f.WriteVar.String()
	}
	return s + ";"
}

// LocalDecl is a transition-local variable declaration.
type LocalDecl struct {
	Token token.Token
	Name  *Ident
	Type  *ParamType
}

func (l *LocalDecl) Pos() token.Position { return l.Token.Pos }
func (l *LocalDecl) String() string      { return l.Type.String() + " " + l.Name.String() + ";" }

// StateRef is one `StateName(args) -> value` entry inside a pre/post/error
// states OR-set, or a single `-> value` target in post/error sets.
type StateRef struct {
	Token token.Token
	State *Ident
	Args  []Expr
	Value *Ident
}

func (s *StateRef) Pos() token.Position { return s.Token.Pos }
func (s *StateRef) String() string {
	var buf bytes.Buffer
	buf.WriteString(s.State.String())
	buf.WriteByte('(')
	for i, a := range s.Args {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a.String())
	}
	buf.WriteString(") -> ")
	buf.WriteString(s.Value.String())
	return buf.String()
}

// StateSet is an AND-set of StateRefs joined by '&' within pre_states (the
// sets of one transition are alternatives), or the (singular, per-instance)
// assignment list within post_states/error_states.
type StateSet struct {
	Refs []*StateRef
}

func (s *StateSet) String() string {
	parts := make([]string, len(s.Refs))
	for i, r := range s.Refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, " & ")
}

// EventCall is a single `source -> EventName(args) -> target` line inside a
// transition's events list.
type EventCall struct {
	Token  token.Token
	Source *Ident
	Event  *Ident
	Args   []Expr
	Target *Ident
}

func (e *EventCall) Pos() token.Position { return e.Token.Pos }
func (e *EventCall) String() string {
	var buf bytes.Buffer
	buf.WriteString(e.Source.String())
	buf.WriteString(" -> ")
	buf.WriteString(e.Event.String())
	buf.WriteByte('(')
	for i, a := range e.Args {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a.String())
	}
	buf.WriteString(") -> ")
	buf.WriteString(e.Target.String())
	return buf.String()
}

// TransitionDecl is the triple (pre-states, ordered events, post-states)
// plus optional error-states: the atomic unit of state change.
type TransitionDecl struct {
	Token       token.Token
	Name        *Ident
	Params      []*EventParam
	Locals      []*LocalDecl
	PreStates   []*StateSet // OR of AND-sets; empty means unconditionally firable
	Events      []*EventCall
	PostStates  *StateSet
	ErrorStates *StateSet // nil when undeclared
}

func (t *TransitionDecl) Pos() token.Position { return t.Token.Pos }
func (t *TransitionDecl) declNode()           {}
func (t *TransitionDecl) String() string {
	var buf bytes.Buffer
	buf.WriteString("transition ")
	buf.WriteString(t.Name.String())
	buf.WriteByte('(')
	for i, p := range t.Params {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p.String())
	}
	buf.WriteString(") {\n")
	for _, l := range t.Locals {
		buf.WriteString("  " + l.String() + "\n")
	}
	if len(t.PreStates) > 0 {
		buf.WriteString("  pre_states {\n")
		for _, s := range t.PreStates {
			buf.WriteString("    " + s.String() + "\n")
		}
		buf.WriteString("  }\n")
	}
	buf.WriteString("  events {\n")
	for _, e := range t.Events {
		buf.WriteString("    " + e.String() + ";\n")
	}
	buf.WriteString("  }\n")
	if t.PostStates != nil {
		buf.WriteString("  post_states { " + t.PostStates.String() + " }\n")
	}
	if t.ErrorStates != nil {
		buf.WriteString("  error_states { " + t.ErrorStates.String() + " }\n")
	}
	buf.WriteString("}")
	return buf.String()
}
