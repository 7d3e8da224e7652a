package registry

import (
	"context"
	"testing"

	"github.com/stl-lang/stlconform/internal/value"
)

func TestRegisterAndLookupEvent(t *testing.T) {
	r := New()
	r.RegisterEvent("registry.ConnectTls", func(ctx context.Context, source, target string, payload *value.Value) EventResult {
		return OK()
	})
	h, ok := r.Event("registry.ConnectTls")
	if !ok {
		t.Fatalf("expected handler to be registered")
	}
	res := h(context.Background(), "rSender", "rReceiver", nil)
	if res.Outcome != OutcomeOK {
		t.Fatalf("unexpected outcome: %v", res)
	}
}

func TestMissingEventIsError(t *testing.T) {
	r := New()
	if _, err := r.RequireEvent("registry.Missing"); err == nil {
		t.Fatalf("expected an error for an unregistered event")
	}
}

func TestRegisterAndInvokeQualifier(t *testing.T) {
	r := New()
	counter := int64(0)
	r.RegisterQualifier("registry.UniqueInt", func(ctx context.Context, args []*value.Value) (*value.Value, error) {
		counter++
		return value.NewInt(counter), nil
	})
	q, err := r.RequireQualifier("registry.UniqueInt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := q(context.Background(), nil)
	second, _ := q(context.Background(), nil)
	if first.Equal(second) {
		t.Fatalf("expected distinct values from successive qualifier calls")
	}
}

func TestRequireEventFallsBackToDefault(t *testing.T) {
	r := New()
	r.RegisterDefaultEvent(func(ctx context.Context, source, target string, payload *value.Value) EventResult {
		return OK()
	})
	h, err := r.RequireEvent("anything.Unregistered")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res := h(context.Background(), "a", "b", nil); res.Outcome != OutcomeOK {
		t.Fatalf("unexpected outcome: %v", res)
	}
}

func TestBytestreamCodecLookup(t *testing.T) {
	r := New()
	r.RegisterBytestreamCodec("registry.CustomCodec", value.DefaultCodec{})
	if _, ok := r.BytestreamCodec("registry.CustomCodec"); !ok {
		t.Fatalf("expected codec to be registered")
	}
	if _, ok := r.BytestreamCodec("registry.Missing"); ok {
		t.Fatalf("expected missing codec lookup to fail")
	}
}
