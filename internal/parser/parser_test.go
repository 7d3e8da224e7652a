package parser

import (
	"strings"
	"testing"
)

const tlsSource = `module tls;

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

event SendRequest(int id) = external "registry.SendRequest";

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

func TestParseModuleNoErrors(t *testing.T) {
	p := New(tlsSource, "tls.stl")
	m := p.ParseModule()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	if m.Name.Name != "tls" {
		t.Fatalf("got module name %q", m.Name.Name)
	}
	if len(m.Decls) != 8 {
		t.Fatalf("got %d decls, want 8", len(m.Decls))
	}
}

func TestParseRoundTripStable(t *testing.T) {
	m1 := New(tlsSource, "tls.stl").ParseModule()
	printed := m1.String()

	p2 := New(printed, "tls.stl")
	m2 := p2.ParseModule()
	if len(p2.Errors()) != 0 {
		t.Fatalf("re-parsing printed output produced errors: %v", p2.Errors())
	}
	if m2.String() != printed {
		t.Fatalf("printing is not idempotent:\n--- first ---\n%s\n--- second ---\n%s", printed, m2.String())
	}
}

func TestParseErrorReportsPosition(t *testing.T) {
	p := New("module m;\nstate s(int) kConnected }", "bad.stl")
	p.ParseModule()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected a parse error")
	}
	if !strings.Contains(p.Errors()[0].Error(), "bad.stl:2:") {
		t.Fatalf("error missing position: %v", p.Errors()[0])
	}
}

func TestParseQualifierWriteForm(t *testing.T) {
	src := `module m;
message mReq {
  encode "json";
  required int id;
}
event SendRequest(int id) = external "registry.SendRequest";
qualifier UniqueInt() int {
  external "registry.UniqueInt";
}
transition t1() {
  int requestId;
  events {
    rA -> SendRequest(mReq { id = UniqueInt() -> requestId; }) -> rB;
  }
}
`
	p := New(src, "m.stl")
	p.ParseModule()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", p.Errors())
	}
}
