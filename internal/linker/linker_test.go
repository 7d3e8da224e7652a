package linker

import (
	"testing"

	"github.com/stl-lang/stlconform/internal/ast"
	"github.com/stl-lang/stlconform/internal/parser"
)

func parseModule(t *testing.T, src, file string) *ast.Module {
	t.Helper()
	p := parser.New(src, file)
	m := p.ParseModule()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors in %s: %v", file, p.Errors())
	}
	return m
}

const validSource = `module tls;

state sTlsState(int) { kConnected kNotConnected }

role rSender {
  ipAddress: string;
}

role rReceiver {
}

message mConnectParams {
  encode "json";
  required string ipAddress;
}

qualifier UniqueInt() int {
  external "registry.UniqueInt";
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

func TestLinkNoErrors(t *testing.T) {
	m := parseModule(t, validSource, "tls.stl")
	prog, errs := Link([]*ast.Module{m})
	if len(errs) != 0 {
		t.Fatalf("unexpected link errors: %v", errs)
	}
	if _, ok := prog.ResolveState("tls", "sTlsState"); !ok {
		t.Fatalf("expected sTlsState to resolve")
	}
	if _, ok := prog.ResolveEvent("tls", "ConnectTls"); !ok {
		t.Fatalf("expected ConnectTls to resolve")
	}
	if _, ok := prog.ResolveMessage("tls", "mConnectParams"); !ok {
		t.Fatalf("expected mConnectParams to resolve")
	}
}

func TestLinkDuplicateModuleName(t *testing.T) {
	m1 := parseModule(t, "module dup;\nconst c = 1;\n", "a.stl")
	m2 := parseModule(t, "module dup;\nconst d = 2;\n", "b.stl")
	_, errs := Link([]*ast.Module{m1, m2})
	if len(errs) != 1 || errs[0].Message != "duplicate module name" {
		t.Fatalf("expected a single duplicate-module error, got %v", errs)
	}
}

func TestLinkDuplicateDeclaration(t *testing.T) {
	src := `module m;
const c = 1;
const c = 2;
`
	m := parseModule(t, src, "m.stl")
	_, errs := Link([]*ast.Module{m})
	if len(errs) != 1 || errs[0].Message != "duplicate const declaration" {
		t.Fatalf("expected a single duplicate-const error, got %v", errs)
	}
}

func TestLinkResolvesNestedMessages(t *testing.T) {
	src := `module m;
message mOuter {
  encode "json";
  required int id;
  message mInner {
    encode "json";
    required string name;
  }
}
`
	m := parseModule(t, src, "m.stl")
	prog, errs := Link([]*ast.Module{m})
	if len(errs) != 0 {
		t.Fatalf("unexpected link errors: %v", errs)
	}
	if _, ok := prog.ResolveMessage("m", "mInner"); !ok {
		t.Fatalf("expected nested message mInner to be registered")
	}
}

func TestLinkFlagsCyclicEventDefinitions(t *testing.T) {
	src := `module m;
event Ping() = Pong();
event Pong() = Ping();
`
	m := parseModule(t, src, "m.stl")
	prog, errs := Link([]*ast.Module{m})
	if len(errs) != 0 {
		t.Fatalf("event cycles are legal, got errors: %v", errs)
	}
	if len(prog.Warnings) != 1 {
		t.Fatalf("expected exactly one cycle warning, got %v", prog.Warnings)
	}
}

// The grammar only ever assigns literals to const declarations, so a
// self-referencing const cannot arise from parsed source; detectConstCycles
// exists purely as a guard against a future const-referencing-const
// extension, and is exercised here by building the AST node directly.
func TestLinkCyclicConstDetected(t *testing.T) {
	name := &ast.Ident{Name: "c"}
	m := &ast.Module{
		Name: &ast.Ident{Name: "m"},
		Decls: []ast.Decl{
			&ast.ConstDecl{Name: name, Value: &ast.Ident{Name: "c"}},
		},
	}
	_, errs := Link([]*ast.Module{m})
	if len(errs) != 1 || errs[0].Message != "cyclic constant definition" {
		t.Fatalf("expected a cyclic-constant error, got %v", errs)
	}
}
