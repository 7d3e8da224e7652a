package printer

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/stl-lang/stlconform/internal/ast"
	"github.com/stl-lang/stlconform/internal/parser"
)

const tlsSource = `module tls;

state sTlsState(int) { kConnected kNotConnected }

role rSender {
  ipAddress: string;
}

message mConnectParams {
  encode "json";
  required string ipAddress;
}

event ConnectTls(int id) = external "registry.ConnectTls";

transition tConnectTlsActual(int id) {
  pre_states {
    sTlsState(id) -> kNotConnected
  }
  events {
    rSender -> ConnectTls(id) -> rReceiver;
  }
  post_states { sTlsState(id) -> kConnected }
}
`

func parseModule(t *testing.T, src string) *parser.Parser {
	t.Helper()
	return parser.New(src, "tls.stl")
}

func TestPrintDefaultWidthMatchesNodeString(t *testing.T) {
	p := parseModule(t, tlsSource)
	m := p.ParseModule()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}

	got := New(Options{}).Print(m)
	if got != m.String() {
		t.Fatalf("default-width Print diverged from ast.Module.String()")
	}
}

func TestPrintReindentsToFourSpaces(t *testing.T) {
	p := parseModule(t, tlsSource)
	m := p.ParseModule()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}

	got := New(Options{IndentWidth: 4}).Print(m)
	snaps.MatchSnapshot(t, "tls_four_space_indent", got)
}

func TestPrintAllOrdersModulesByName(t *testing.T) {
	mb := parser.New("module zzz;\n", "zzz.stl").ParseModule()
	ma := parser.New("module aaa;\n", "aaa.stl").ParseModule()

	out := New(Options{}).PrintAll([]*ast.Module{mb, ma})
	if strings.Index(out, "module aaa") > strings.Index(out, "module zzz") {
		t.Fatalf("expected aaa before zzz in output:\n%s", out)
	}
}
