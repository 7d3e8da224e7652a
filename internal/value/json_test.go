package value

import (
	"testing"

	"github.com/stl-lang/stlconform/internal/ast"
)

func messageDecl(name string, fields ...*ast.FieldDecl) *ast.MessageDecl {
	return &ast.MessageDecl{Name: &ast.Ident{Name: name}, Fields: fields}
}

func field(name, typeName string, mult ast.Multiplicity) *ast.FieldDecl {
	return &ast.FieldDecl{Name: &ast.Ident{Name: name}, Type: &ast.ParamType{Name: typeName}, Mult: mult}
}

func TestEncodeJSONFieldOrder(t *testing.T) {
	m := NewMessage("m::mConnectParams")
	m.SetField("port", NewInt(443))
	m.SetField("ipAddress", NewString("10.0.0.1"))

	raw, err := EncodeJSON(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const want = `{"port":443,"ipAddress":"10.0.0.1"}`
	if raw != want {
		t.Fatalf("got %s, want %s", raw, want)
	}
}

func TestEncodeJSONDeterministic(t *testing.T) {
	m := NewMessage("m::mReq")
	m.SetField("id", NewInt(1))
	m.SetField("name", NewString(`quote " and backslash \`))

	a, err := CanonicalJSON(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := CanonicalJSON(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("encoding is not deterministic: %s vs %s", a, b)
	}
}

func TestDecodeJSONRoundTrip(t *testing.T) {
	decl := messageDecl("mConnectParams",
		field("ipAddress", "string", ast.MultRequired),
		field("port", "int", ast.MultOptional),
	)
	resolve := func(string) (*ast.MessageDecl, bool) { return nil, false }

	raw := `{"ipAddress":"10.0.0.1","port":443}`
	v, err := DecodeJSON(raw, decl, resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Field("ipAddress").StringValue() != "10.0.0.1" {
		t.Fatalf("unexpected ipAddress: %v", v.Field("ipAddress"))
	}
	if v.Field("port").IntValue() != 443 {
		t.Fatalf("unexpected port: %v", v.Field("port"))
	}

	reencoded, err := EncodeJSON(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := DecodeJSON(reencoded, decl, resolve)
	if err != nil {
		t.Fatalf("unexpected error re-decoding: %v", err)
	}
	if !v.Equal(v2) {
		t.Fatalf("round-trip produced a different value")
	}
}

func TestDecodeJSONMissingRequiredField(t *testing.T) {
	decl := messageDecl("mReq", field("id", "int", ast.MultRequired))
	resolve := func(string) (*ast.MessageDecl, bool) { return nil, false }
	_, err := DecodeJSON(`{}`, decl, resolve)
	if err == nil {
		t.Fatalf("expected an error for missing required field")
	}
}

func TestDecodeJSONRepeatedField(t *testing.T) {
	decl := messageDecl("mList", field("ids", "int", ast.MultRepeated))
	resolve := func(string) (*ast.MessageDecl, bool) { return nil, false }
	v, err := DecodeJSON(`{"ids":[1,2,3]}`, decl, resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elems := v.Field("ids").Elements()
	if len(elems) != 3 || elems[2].IntValue() != 3 {
		t.Fatalf("unexpected elements: %v", elems)
	}
}

func TestDecodeJSONNestedMessage(t *testing.T) {
	inner := messageDecl("mInner", field("name", "string", ast.MultRequired))
	outer := messageDecl("mOuter", field("inner", "mInner", ast.MultRequired))
	resolve := func(name string) (*ast.MessageDecl, bool) {
		if name == "mInner" {
			return inner, true
		}
		return nil, false
	}
	v, err := DecodeJSON(`{"inner":{"name":"hi"}}`, outer, resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Field("inner").Field("name").StringValue() != "hi" {
		t.Fatalf("unexpected nested value: %v", v.Field("inner"))
	}
}
