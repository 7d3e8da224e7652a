// Package lexer tokenizes State Transition Language source files.
//
// # Unicode and column positions
//
// Column positions are reported as rune counts, not byte offsets:
// multi-byte UTF-8 sequences each count as a single column.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/stl-lang/stlconform/internal/token"
)

// Error is a lexical error with a source position.
type Error struct {
	Pos     token.Position
	Message string
}

func (e *Error) Error() string { return e.Message }

// Lexer is a rune-at-a-time scanner over STL source text.
type Lexer struct {
	input        []rune
	file         string
	errors       []*Error
	position     int
	readPosition int
	line         int
	column       int
	ch           rune
}

// New creates a Lexer over input, tagging reported positions with file.
func New(input, file string) *Lexer {
	l := &Lexer{
		input: []rune(input),
		file:  file,
		line:  1,
		column: 0,
	}
	l.readChar()
	return l
}

// Errors returns every lexical error accumulated so far.
func (l *Lexer) Errors() []*Error { return l.errors }

func (l *Lexer) addError(msg string, pos token.Position) {
	l.errors = append(l.errors, &Error{Pos: pos, Message: msg})
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
		l.column++
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) pos() token.Position {
	return token.Position{Line: l.line, Column: l.column, File: l.file}
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return string(l.input[start:l.position])
}

func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return string(l.input[start:l.position])
}

// readString consumes a double-quoted string literal. '\' escapes the next
// character verbatim.
func (l *Lexer) readString(start token.Position) (string, error) {
	var sb strings.Builder
	l.readChar() // consume opening quote
	for {
		if l.ch == 0 {
			return "", &Error{Pos: start, Message: "unterminated string literal"}
		}
		if l.ch == '"' {
			l.readChar()
			break
		}
		if l.ch == '\\' {
			l.readChar()
			if l.ch == 0 {
				return "", &Error{Pos: start, Message: "stray escape at end of input"}
			}
			sb.WriteRune(l.ch)
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	// NFC-normalize so two source files spelling the same string with
	// different Unicode decompositions still encode identically.
	return norm.NFC.String(sb.String()), nil
}

// NextToken scans and returns the next token, skipping whitespace and
// comments. It returns token.EOF forever once the input is exhausted.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()
	pos := l.pos()

	switch {
	case l.ch == 0:
		return token.New(token.EOF, "", pos)
	case l.ch == '"':
		lit, err := l.readString(pos)
		if err != nil {
			l.errors = append(l.errors, err.(*Error))
			return token.New(token.ILLEGAL, "", pos)
		}
		return token.New(token.STRING, lit, pos)
	case isDigit(l.ch):
		lit := l.readNumber()
		return token.New(token.INT, lit, pos)
	case isLetter(l.ch):
		lit := l.readIdentifier()
		return token.New(token.LookupIdent(lit), lit, pos)
	case l.ch == '-' && l.peekChar() == '>':
		l.readChar()
		l.readChar()
		return token.New(token.ARROW, "->", pos)
	}

	single, ok := singleCharTokens[l.ch]
	if !ok {
		ch := l.ch
		if ch == utf8.RuneError {
			l.addError("invalid UTF-8 sequence", pos)
		} else {
			l.addError("unexpected character "+string(ch), pos)
		}
		l.readChar()
		return token.New(token.ILLEGAL, string(ch), pos)
	}
	l.readChar()
	return token.New(single, names1[single], pos)
}

var singleCharTokens = map[rune]token.Type{
	'{': token.LBRACE,
	'}': token.RBRACE,
	'[': token.LBRACK,
	']': token.RBRACK,
	'(': token.LPAREN,
	')': token.RPAREN,
	',': token.COMMA,
	';': token.SEMICOLON,
	'.': token.DOT,
	':': token.COLON,
	'=': token.ASSIGN,
	'&': token.AMP,
	'*': token.ASTERISK,
}

var names1 = func() map[token.Type]string {
	m := make(map[token.Type]string, len(singleCharTokens))
	for ch, t := range singleCharTokens {
		m[t] = string(ch)
	}
	return m
}()

// Tokenize drains the Lexer into a slice, ending with a single EOF token.
// The parser uses this to hold the whole stream in memory and look one token
// ahead by index instead of pulling tokens from the lexer.
func Tokenize(input, file string) ([]token.Token, []*Error) {
	l := New(input, file)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks, l.errors
}
