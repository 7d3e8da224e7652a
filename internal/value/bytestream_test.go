package value

import (
	"testing"

	"github.com/stl-lang/stlconform/internal/ast"
)

func TestDefaultCodecRoundTripScalars(t *testing.T) {
	decl := messageDecl("mConnectParams",
		field("id", "int", ast.MultRequired),
		field("ok", "bool", ast.MultRequired),
		field("ipAddress", "string", ast.MultRequired),
	)
	m := NewMessage("mConnectParams")
	m.SetField("id", NewInt(7))
	m.SetField("ok", NewBool(true))
	m.SetField("ipAddress", NewString("10.0.0.1"))

	noCodecs := func(string) (Codec, bool) { return nil, false }
	noResolve := func(string) (*ast.MessageDecl, bool) { return nil, false }

	encoded, err := EncodeBytestream(m, decl, noCodecs, noResolve)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	decoded, err := DecodeBytestream(encoded, decl, noCodecs, noResolve)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !m.Equal(decoded) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, m)
	}
}

func TestDefaultCodecUnicodeString(t *testing.T) {
	decl := messageDecl("mGreeting", field("text", "string", ast.MultRequired))
	m := NewMessage("mGreeting")
	m.SetField("text", NewString("héllo 🚀"))

	noCodecs := func(string) (Codec, bool) { return nil, false }
	noResolve := func(string) (*ast.MessageDecl, bool) { return nil, false }

	encoded, err := EncodeBytestream(m, decl, noCodecs, noResolve)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	decoded, err := DecodeBytestream(encoded, decl, noCodecs, noResolve)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if decoded.Field("text").StringValue() != "héllo 🚀" {
		t.Fatalf("unexpected decoded text: %q", decoded.Field("text").StringValue())
	}
}

type stubCodec struct{}

func (stubCodec) EncodeField(v *Value) ([]byte, error) {
	return []byte{0xFF, byte(v.IntValue())}, nil
}

func (stubCodec) DecodeField(data []byte) (*Value, int, error) {
	return NewInt(int64(data[1])), 2, nil
}

func TestRegisteredCodecOverridesDefault(t *testing.T) {
	decl := &ast.MessageDecl{
		Name:     &ast.Ident{Name: "mCustom"},
		External: &ast.QualifiedIdent{Value: "registry.CustomCodec"},
		Fields:   []*ast.FieldDecl{field("id", "int", ast.MultRequired)},
	}
	m := NewMessage("mCustom")
	m.SetField("id", NewInt(9))

	codecs := func(ref string) (Codec, bool) {
		if ref == "registry.CustomCodec" {
			return stubCodec{}, true
		}
		return nil, false
	}
	noResolve := func(string) (*ast.MessageDecl, bool) { return nil, false }

	encoded, err := EncodeBytestream(m, decl, codecs, noResolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(encoded) != 2 || encoded[0] != 0xFF || encoded[1] != 9 {
		t.Fatalf("expected custom codec framing, got %v", encoded)
	}
}
