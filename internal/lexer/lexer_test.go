package lexer

import (
	"testing"

	"github.com/stl-lang/stlconform/internal/token"
)

func TestNextTokenPunctuationAndKeywords(t *testing.T) {
	input := `module tls;
state sTlsState(int) { kConnected kNotConnected }
transition t1 {
  pre_states { sTlsState(1) -> kConnected & sTlsState(2) -> kConnected }
}
`
	expected := []token.Type{
		token.MODULE, token.IDENT, token.SEMICOLON,
		token.STATE, token.IDENT, token.LPAREN, token.INTTYPE, token.RPAREN,
		token.LBRACE, token.IDENT, token.IDENT, token.RBRACE,
		token.TRANSITION, token.IDENT, token.LBRACE,
		token.PRE_STATES, token.LBRACE,
		token.IDENT, token.LPAREN, token.INT, token.RPAREN, token.ARROW, token.IDENT,
		token.AMP,
		token.IDENT, token.LPAREN, token.INT, token.RPAREN, token.ARROW, token.IDENT,
		token.RBRACE,
		token.RBRACE,
		token.EOF,
	}

	l := New(input, "<test>")
	for i, want := range expected {
		got := l.NextToken()
		if got.Type != want {
			t.Fatalf("token %d: got %s (%q), want %s", i, got.Type, got.Literal, want)
		}
	}
}

func TestStringLiteralEscaping(t *testing.T) {
	l := New(`"0.0.0.0\"escaped\""`, "<test>")
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("got %s, want STRING", tok.Type)
	}
	if tok.Literal != `0.0.0.0"escaped"` {
		t.Fatalf("got %q", tok.Literal)
	}
}

func TestUnterminatedStringIsLexError(t *testing.T) {
	l := New(`"unterminated`, "<test>")
	l.NextToken()
	if len(l.Errors()) != 1 {
		t.Fatalf("expected one lex error, got %d", len(l.Errors()))
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	l := New("module m; // trailing comment\nconst", "<test>")
	var types []token.Type
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == token.EOF {
			break
		}
	}
	want := []token.Type{token.MODULE, token.IDENT, token.SEMICOLON, token.CONST, token.EOF}
	if len(types) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(types), len(want))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s", i, types[i], want[i])
		}
	}
}

func TestColumnCountsUnicodeAsOneRune(t *testing.T) {
	l := New(`"🚀" module`, "<test>")
	l.NextToken() // the string literal, three runes wide
	tok := l.NextToken()
	if tok.Pos.Line != 1 || tok.Pos.Column != 5 {
		t.Fatalf("got %v, want line 1 column 5", tok.Pos)
	}
}

func TestIllegalCharacterRecorded(t *testing.T) {
	l := New("module @bad", "<test>")
	l.NextToken() // module
	l.NextToken() // @ -> illegal
	if len(l.Errors()) != 1 {
		t.Fatalf("expected one lex error, got %d", len(l.Errors()))
	}
}
