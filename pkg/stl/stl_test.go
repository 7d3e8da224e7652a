package stl_test

import (
	"context"
	"testing"

	"github.com/stl-lang/stlconform/internal/ast"
	"github.com/stl-lang/stlconform/internal/executor"
	"github.com/stl-lang/stlconform/internal/registry"
	"github.com/stl-lang/stlconform/internal/value"
	"github.com/stl-lang/stlconform/pkg/stl"
)

func loadTLS(t *testing.T, args map[string]string) *stl.Program {
	t.Helper()
	prog, err := stl.Load("testdata/manifest.yaml", args, nil)
	if err != nil {
		if le, ok := err.(*stl.LoadError); ok {
			t.Fatalf("load: %s", le.Format(false))
		}
		t.Fatalf("load: %v", err)
	}
	return prog
}

func TestLoadResolvesManifestAndSubstitution(t *testing.T) {
	prog := loadTLS(t, map[string]string{"sender_id": "peer-a"})

	if got := prog.ModuleNames(); len(got) != 1 || got[0] != "tls" {
		t.Fatalf("unexpected module names: %v", got)
	}
	if got := prog.DrivenRoles(); len(got) != 1 || got[0] != "tls::rSender" {
		t.Fatalf("unexpected driven roles: %v", got)
	}

	inst, ok := prog.RoleInstance("tls::rSender")
	if !ok {
		t.Fatalf("expected a tls::rSender role instance")
	}
	if inst.Fields["id"] != "peer-a" {
		t.Fatalf("manifest $sender_id substitution failed: %v", inst.Fields)
	}
}

func TestLoadRejectsUndeclaredRoleField(t *testing.T) {
	_, err := stl.Load("testdata/bad_manifest.yaml", nil, nil)
	if err == nil {
		t.Fatalf("expected a LoadError for a role instance with an undeclared field")
	}
	le, ok := err.(*stl.LoadError)
	if !ok {
		t.Fatalf("expected *stl.LoadError, got %T: %v", err, err)
	}
	found := false
	for _, d := range le.Diagnostics {
		if d.Stage == "manifest" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a manifest-stage diagnostic, got %v", le.Diagnostics)
	}
}

func TestExecutorDrivesConnectAndDisconnect(t *testing.T) {
	prog := loadTLS(t, map[string]string{"sender_id": "peer-a"})

	reg := registry.New()
	for _, name := range []string{"registry.ConnectTls", "registry.DisconnectTls", "registry.LogConnect"} {
		reg.RegisterEvent(name, func(ctx context.Context, source, target string, payload *value.Value) registry.EventResult {
			return registry.OK()
		})
	}

	exec := prog.NewExecutor(reg)
	if err := exec.SetState("tls", &ast.StateRef{
		State: &ast.Ident{Name: "sTlsState"},
		Value: &ast.Ident{Name: "kNotConnected"},
	}); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	ctx := context.Background()

	res, err := exec.Step(ctx, "tls", "rSender", []*value.Value{value.NewInt(1)})
	if err != nil {
		t.Fatalf("connect step: %v", err)
	}
	if res.Transition != "tConnectTlsActual" {
		t.Fatalf("unexpected transition fired: %s", res.Transition)
	}
	if v, ok := exec.StateValue("tls", "sTlsState", nil); !ok || v != "kConnected" {
		t.Fatalf("expected sTlsState to be kConnected after connect, got %q (ok=%v)", v, ok)
	}

	res, err = exec.Step(ctx, "tls", "rSender", nil)
	if err != nil {
		t.Fatalf("disconnect step: %v", err)
	}
	if res.Transition != "tDisconnectTlsActual" {
		t.Fatalf("unexpected transition fired: %s", res.Transition)
	}

	if _, err := exec.Step(ctx, "tls", "rSender", nil); err == nil {
		t.Fatalf("expected no firable transition after disconnect")
	} else if _, ok := err.(*executor.StuckError); !ok {
		t.Fatalf("expected *executor.StuckError, got %T: %v", err, err)
	}
}

func TestExecutorRollsBackOnRecoverableFailure(t *testing.T) {
	prog := loadTLS(t, map[string]string{"sender_id": "peer-a"})

	reg := registry.New()
	reg.RegisterEvent("registry.ConnectTls", func(ctx context.Context, source, target string, payload *value.Value) registry.EventResult {
		return registry.RecoverableFail("peer refused")
	})
	reg.RegisterEvent("registry.LogConnect", func(ctx context.Context, source, target string, payload *value.Value) registry.EventResult {
		return registry.OK()
	})

	exec := prog.NewExecutor(reg)
	if err := exec.SetState("tls", &ast.StateRef{
		State: &ast.Ident{Name: "sTlsState"},
		Value: &ast.Ident{Name: "kNotConnected"},
	}); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	ctx := context.Background()
	_, err := exec.Step(ctx, "tls", "rSender", []*value.Value{value.NewInt(1)})
	if err == nil {
		t.Fatalf("expected an EventFailureError from the recoverable failure")
	}
	if _, ok := err.(*executor.EventFailureError); !ok {
		t.Fatalf("expected *executor.EventFailureError, got %T: %v", err, err)
	}
	if v, ok := exec.StateValue("tls", "sTlsState", nil); !ok || v != "kNotConnected" {
		t.Fatalf("expected G to roll back to kNotConnected, got %q (ok=%v)", v, ok)
	}
}
