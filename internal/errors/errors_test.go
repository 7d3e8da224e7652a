package errors

import (
	"strings"
	"testing"

	"github.com/stl-lang/stlconform/internal/token"
)

func TestCompilerErrorFormatIncludesCaret(t *testing.T) {
	src := "module m;\nstate s(int) { }\n"
	err := NewCompilerError(token.Position{Line: 2, Column: 7}, "expected identifier", src, "m.stl")
	out := err.Format(false)
	if !strings.Contains(out, "m.stl:2:7") {
		t.Fatalf("missing file:line:col header: %s", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("missing caret: %s", out)
	}
	if !strings.Contains(out, "expected identifier") {
		t.Fatalf("missing message: %s", out)
	}
}

func TestCompilerErrorFormatWithoutFile(t *testing.T) {
	err := NewCompilerError(token.Position{Line: 1, Column: 1}, "boom", "", "")
	out := err.Format(false)
	if !strings.HasPrefix(out, "Error at line 1:1") {
		t.Fatalf("unexpected header: %s", out)
	}
}

func TestFormatErrorsSingleVsMultiple(t *testing.T) {
	one := []*CompilerError{NewCompilerError(token.Position{Line: 1, Column: 1}, "a", "", "f.stl")}
	if FormatErrors(one, false) != one[0].Format(false) {
		t.Fatalf("single-error formatting should delegate directly")
	}

	many := []*CompilerError{
		NewCompilerError(token.Position{Line: 1, Column: 1}, "a", "", "f.stl"),
		NewCompilerError(token.Position{Line: 2, Column: 1}, "b", "", "f.stl"),
	}
	out := FormatErrors(many, false)
	if !strings.Contains(out, "2 error(s)") {
		t.Fatalf("expected error count header: %s", out)
	}
}

func TestStackTraceOrdering(t *testing.T) {
	st := NewStackTrace()
	st = append(st, NewStackFrame("Connect", nil))
	st = append(st, NewStackFrame("SendRequest", &token.Position{Line: 10, Column: 2}))

	if len(st) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(st))
	}

	out := st.String()
	if strings.Index(out, "SendRequest") > strings.Index(out, "Connect") {
		t.Fatalf("expected newest frame (SendRequest) first: %s", out)
	}
	if !strings.Contains(out, "line: 10, column: 2") {
		t.Fatalf("missing position on SendRequest frame: %s", out)
	}
}
