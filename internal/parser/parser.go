// Package parser implements a recursive-descent, one-token-lookahead parser
// for the State Transition Language, producing the internal/ast tree.
package parser

import (
	"fmt"

	"github.com/stl-lang/stlconform/internal/ast"
	"github.com/stl-lang/stlconform/internal/lexer"
	"github.com/stl-lang/stlconform/internal/token"
)

// Error is a syntax error with a source position.
type Error struct {
	Pos     token.Position
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Message) }

// Parser walks a pre-lexed token stream. It buffers the whole stream (files
// are small) rather than pulling from the lexer one token at a time, which
// keeps its one-token lookahead (peek) simple.
type Parser struct {
	toks []token.Token
	pos  int
	file string
	errs []*Error
}

// New creates a Parser over src, tagging errors with file.
func New(src, file string) *Parser {
	toks, lexErrs := lexer.Tokenize(src, file)
	p := &Parser{toks: toks, file: file}
	for _, e := range lexErrs {
		p.errs = append(p.errs, &Error{Pos: e.Pos, Message: e.Message})
	}
	return p
}

// Errors returns accumulated parse errors (lexical errors included).
func (p *Parser) Errors() []*Error { return p.errs }

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(t token.Type) bool { return p.cur().Type == t }

func (p *Parser) errorf(pos token.Position, format string, args ...any) {
	p.errs = append(p.errs, &Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// expect consumes the current token if it has type t, else records an error
// and returns the zero Token without advancing past EOF.
func (p *Parser) expect(t token.Type) token.Token {
	if p.cur().Type != t {
		p.errorf(p.cur().Pos, "expected %s, got %s %q", t, p.cur().Type, p.cur().Literal)
		return p.cur()
	}
	return p.advance()
}

// ParseModule parses one STL source file into a Module. Parsing continues
// past individual declaration errors so a single file reports every syntax
// problem it contains in one pass.
func (p *Parser) ParseModule() *ast.Module {
	modTok := p.expect(token.MODULE)
	name := p.parseIdent()
	p.expect(token.SEMICOLON)

	m := &ast.Module{Token: modTok, Name: name}
	for !p.at(token.EOF) {
		start := p.pos
		if d := p.parseDecl(); d != nil {
			m.Decls = append(m.Decls, d)
		}
		if p.pos == start {
			// Parser made no progress; skip the offending token to avoid
			// looping forever on unrecoverable input.
			p.advance()
		}
	}
	return m
}

func (p *Parser) parseIdent() *ast.Ident {
	tok := p.expect(token.IDENT)
	return &ast.Ident{Token: tok, Name: tok.Literal}
}

func (p *Parser) parseQualifiedIdent() *ast.QualifiedIdent {
	tok := p.expect(token.STRING)
	return &ast.QualifiedIdent{Token: tok, Value: tok.Literal}
}

func (p *Parser) parseDecl() ast.Decl {
	switch p.cur().Type {
	case token.CONST:
		return p.parseConstDecl()
	case token.STATE:
		return p.parseStateDecl()
	case token.ROLE:
		return p.parseRoleDecl()
	case token.MESSAGE:
		return p.parseMessageDecl()
	case token.QUALIFIER:
		return p.parseQualifierDecl()
	case token.EVENT:
		return p.parseEventDecl()
	case token.TRANSITION:
		return p.parseTransitionDecl()
	default:
		p.errorf(p.cur().Pos, "unexpected token %s %q at top level", p.cur().Type, p.cur().Literal)
		return nil
	}
}

func (p *Parser) parseConstDecl() *ast.ConstDecl {
	tok := p.expect(token.CONST)
	name := p.parseIdent()
	p.expect(token.ASSIGN)
	val := p.parseLiteral()
	p.expect(token.SEMICOLON)
	return &ast.ConstDecl{Token: tok, Name: name, Value: val}
}

func (p *Parser) parseLiteral() ast.Expr {
	tok := p.cur()
	switch tok.Type {
	case token.INT:
		p.advance()
		var v int64
		fmt.Sscanf(tok.Literal, "%d", &v)
		return &ast.IntLiteral{Token: tok, Value: v}
	case token.STRING:
		p.advance()
		return &ast.StringLiteral{Token: tok, Value: tok.Literal}
	case token.TRUE, token.FALSE:
		p.advance()
		return &ast.BoolLiteral{Token: tok, Value: tok.Type == token.TRUE}
	default:
		p.errorf(tok.Pos, "expected literal, got %s %q", tok.Type, tok.Literal)
		p.advance()
		return &ast.BoolLiteral{Token: tok, Value: false}
	}
}

// parseType parses a scalar/message type name with an optional trailing
// `[]` marking an array type.
func (p *Parser) parseType() *ast.ParamType {
	var name string
	tok := p.cur()
	switch tok.Type {
	case token.INTTYPE:
		name = "int"
		p.advance()
	case token.STRINGTYPE:
		name = "string"
		p.advance()
	case token.BOOL:
		name = "bool"
		p.advance()
	case token.IDENT:
		name = tok.Literal
		p.advance()
	default:
		p.errorf(tok.Pos, "expected type, got %s %q", tok.Type, tok.Literal)
		p.advance()
	}
	pt := &ast.ParamType{Token: tok, Name: name}
	if p.at(token.LBRACK) {
		p.advance()
		p.expect(token.RBRACK)
		pt.IsArray = true
	}
	return pt
}

func (p *Parser) parseStateDecl() *ast.StateDecl {
	tok := p.expect(token.STATE)
	name := p.parseIdent()
	p.expect(token.LPAREN)
	var types []*ast.ParamType
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		types = append(types, p.parseType())
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)
	var values []*ast.Ident
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		values = append(values, p.parseIdent())
	}
	p.expect(token.RBRACE)
	return &ast.StateDecl{Token: tok, Name: name, ParamTypes: types, Values: values}
}

func (p *Parser) parseRoleDecl() *ast.RoleDecl {
	tok := p.expect(token.ROLE)
	name := p.parseIdent()
	p.expect(token.LBRACE)
	var fields []*ast.RoleField
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		ftok := p.cur()
		fname := p.parseIdent()
		p.expect(token.COLON)
		ftype := p.parseType()
		p.expect(token.SEMICOLON)
		fields = append(fields, &ast.RoleField{Token: ftok, Name: fname, Type: ftype})
	}
	p.expect(token.RBRACE)
	return &ast.RoleDecl{Token: tok, Name: name, Fields: fields}
}

func (p *Parser) parseMultiplicity() (ast.Multiplicity, bool) {
	switch p.cur().Type {
	case token.REQUIRED:
		p.advance()
		return ast.MultRequired, true
	case token.OPTIONAL:
		p.advance()
		return ast.MultOptional, true
	case token.REPEATED:
		p.advance()
		return ast.MultRepeated, true
	default:
		return ast.MultRequired, false
	}
}

func (p *Parser) parseMessageDecl() *ast.MessageDecl {
	tok := p.expect(token.MESSAGE)
	name := p.parseIdent()
	isArray := false
	if p.at(token.LBRACK) {
		p.advance()
		p.expect(token.RBRACK)
		isArray = true
	}
	p.expect(token.LBRACE)

	md := &ast.MessageDecl{Token: tok, Name: name, IsArray: isArray, Encoding: ast.EncodingJSON}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		switch p.cur().Type {
		case token.ENCODE:
			p.advance()
			enc := p.expect(token.STRING)
			if e, ok := ast.ParseEncoding(enc.Literal); ok {
				md.Encoding = e
			} else {
				p.errorf(enc.Pos, "unknown encoding %q", enc.Literal)
			}
			p.expect(token.SEMICOLON)
		case token.EXTERNAL:
			p.advance()
			md.External = p.parseQualifiedIdent()
			p.expect(token.SEMICOLON)
		case token.MESSAGE:
			md.Nested = append(md.Nested, p.parseMessageDecl())
		default:
			ftok := p.cur()
			mult, ok := p.parseMultiplicity()
			if !ok {
				p.errorf(ftok.Pos, "expected field multiplicity, got %s %q", ftok.Type, ftok.Literal)
				p.advance()
				continue
			}
			ftype := p.parseType()
			fname := p.parseIdent()
			p.expect(token.SEMICOLON)
			md.Fields = append(md.Fields, &ast.FieldDecl{Token: ftok, Name: fname, Type: ftype, Mult: mult})
		}
	}
	p.expect(token.RBRACE)
	return md
}

func (p *Parser) parseQualifierDecl() *ast.QualifierDecl {
	tok := p.expect(token.QUALIFIER)
	name := p.parseIdent()
	p.expect(token.LPAREN)
	var params []*ast.ParamType
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		params = append(params, p.parseType())
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	ret := p.parseType()
	p.expect(token.LBRACE)
	p.expect(token.EXTERNAL)
	ext := p.parseQualifiedIdent()
	p.expect(token.SEMICOLON)
	p.expect(token.RBRACE)
	return &ast.QualifierDecl{Token: tok, Name: name, ReturnType: ret, ParamTypes: params, External: ext}
}

func (p *Parser) parseEventParams() []*ast.EventParam {
	p.expect(token.LPAREN)
	var params []*ast.EventParam
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		ptok := p.cur()
		byRef := false
		if p.at(token.AMP) {
			p.advance()
			byRef = true
		}
		ptype := p.parseType()
		pname := p.parseIdent()
		params = append(params, &ast.EventParam{Token: ptok, Name: pname, Type: ptype, ByRef: byRef})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	return params
}

func (p *Parser) parseEventDecl() *ast.EventDecl {
	tok := p.expect(token.EVENT)
	name := p.parseIdent()
	params := p.parseEventParams()
	ed := &ast.EventDecl{Token: tok, Name: name, Params: params, BodyKind: ast.EventBodyNoOp}
	if p.at(token.ASSIGN) {
		p.advance()
		if p.at(token.EXTERNAL) {
			p.advance()
			ed.BodyKind = ast.EventBodyExternal
			ed.External = p.parseQualifiedIdent()
		} else {
			ed.BodyKind = ast.EventBodyComposite
			ed.Callee = p.parseIdent()
			p.expect(token.LPAREN)
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				ed.Args = append(ed.Args, p.parseExpr())
				if p.at(token.COMMA) {
					p.advance()
				}
			}
			p.expect(token.RPAREN)
		}
	}
	p.expect(token.SEMICOLON)
	return ed
}

// parseExpr parses any value expression: a scalar literal, an identifier
// (local-variable reference or by-reference argument), a qualifier call, or
// a message literal (object or array form).
func (p *Parser) parseExpr() ast.Expr {
	tok := p.cur()
	switch tok.Type {
	case token.INT, token.STRING, token.TRUE, token.FALSE:
		return p.parseLiteral()
	case token.IDENT:
		switch p.peek().Type {
		case token.LPAREN:
			return p.parseQualifierCall()
		case token.LBRACE:
			return p.parseObjectLiteral()
		case token.LBRACK:
			return p.parseArrayLiteral()
		default:
			return p.parseIdent()
		}
	default:
		p.errorf(tok.Pos, "unexpected token %s %q in expression", tok.Type, tok.Literal)
		p.advance()
		return &ast.Ident{Token: tok, Name: tok.Literal}
	}
}

func (p *Parser) parseQualifierCall() *ast.QualifierCall {
	tok := p.cur()
	name := p.parseIdent()
	p.expect(token.LPAREN)
	var args []ast.Expr
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		args = append(args, p.parseExpr())
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	return &ast.QualifierCall{Token: tok, Name: name, Args: args}
}

func (p *Parser) parseObjectLiteral() *ast.ObjectLiteral {
	tok := p.cur()
	typ := p.parseIdent()
	p.expect(token.LBRACE)
	var fields []*ast.FieldAssign
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		fields = append(fields, p.parseFieldAssign())
	}
	p.expect(token.RBRACE)
	return &ast.ObjectLiteral{Token: tok, Type: typ, Fields: fields}
}

func (p *Parser) parseFieldAssign() *ast.FieldAssign {
	ftok := p.cur()
	name := p.parseIdent()
	p.expect(token.ASSIGN)
	val := p.parseExpr()
	fa := &ast.FieldAssign{Token: ftok, Name: name, Value: val}
	if p.at(token.ARROW) {
		p.advance()
		fa.WriteVar = p.parseIdent()
	}
	p.expect(token.SEMICOLON)
	return fa
}

func (p *Parser) parseArrayLiteral() *ast.ArrayLiteral {
	tok := p.cur()
	typ := p.parseIdent()
	p.expect(token.LBRACK)
	var elems []*ast.ObjectLiteral
	for !p.at(token.RBRACK) && !p.at(token.EOF) {
		elems = append(elems, p.parseObjectLiteral())
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RBRACK)
	return &ast.ArrayLiteral{Token: tok, Type: typ, Elements: elems}
}

func (p *Parser) parseTransitionDecl() *ast.TransitionDecl {
	tok := p.expect(token.TRANSITION)
	name := p.parseIdent()
	td := &ast.TransitionDecl{Token: tok, Name: name}
	if p.at(token.LPAREN) {
		td.Params = p.parseEventParams()
	}
	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		switch p.cur().Type {
		case token.PRE_STATES:
			p.advance()
			p.expect(token.LBRACE)
			for !p.at(token.RBRACE) && !p.at(token.EOF) {
				td.PreStates = append(td.PreStates, p.parseStateSet())
			}
			p.expect(token.RBRACE)
		case token.POST_STATES:
			p.advance()
			p.expect(token.LBRACE)
			td.PostStates = p.parseStateSet()
			p.expect(token.RBRACE)
		case token.ERROR_STATES:
			p.advance()
			p.expect(token.LBRACE)
			td.ErrorStates = p.parseStateSet()
			p.expect(token.RBRACE)
		case token.EVENTS:
			p.advance()
			p.expect(token.LBRACE)
			for !p.at(token.RBRACE) && !p.at(token.EOF) {
				td.Events = append(td.Events, p.parseEventCall())
			}
			p.expect(token.RBRACE)
		case token.IDENT, token.INTTYPE, token.STRINGTYPE, token.BOOL:
			// local declaration: <type> <name>;
			ltok := p.cur()
			ltype := p.parseType()
			lname := p.parseIdent()
			p.expect(token.SEMICOLON)
			td.Locals = append(td.Locals, &ast.LocalDecl{Token: ltok, Name: lname, Type: ltype})
		default:
			p.errorf(p.cur().Pos, "unexpected token %s %q in transition body", p.cur().Type, p.cur().Literal)
			p.advance()
		}
	}
	p.expect(token.RBRACE)
	return td
}

// parseStateSet parses one AND-joined ('&') group of StateRefs, e.g.
//
//	sTlsState(1) -> kConnected & sOtherState(2) -> kReady
func (p *Parser) parseStateSet() *ast.StateSet {
	set := &ast.StateSet{}
	set.Refs = append(set.Refs, p.parseStateRef())
	for p.at(token.AMP) {
		p.advance()
		set.Refs = append(set.Refs, p.parseStateRef())
	}
	return set
}

func (p *Parser) parseStateRef() *ast.StateRef {
	tok := p.cur()
	name := p.parseIdent()
	var args []ast.Expr
	if p.at(token.LPAREN) {
		p.advance()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			args = append(args, p.parseExpr())
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN)
	}
	p.expect(token.ARROW)
	val := p.parseIdent()
	return &ast.StateRef{Token: tok, State: name, Args: args, Value: val}
}

func (p *Parser) parseEventCall() *ast.EventCall {
	tok := p.cur()
	source := p.parseIdent()
	p.expect(token.ARROW)
	event := p.parseIdent()
	p.expect(token.LPAREN)
	var args []ast.Expr
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		args = append(args, p.parseExpr())
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	p.expect(token.ARROW)
	target := p.parseIdent()
	p.expect(token.SEMICOLON)
	return &ast.EventCall{Token: tok, Source: source, Event: event, Args: args, Target: target}
}
