package value

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/stl-lang/stlconform/internal/ast"
)

// Codec implements the field-level wire format for a `bytestream`-encoded
// message whose `external` reference names a registered codec.
// internal/registry supplies the concrete bindings; this package only
// defines the shape and a fallback.
type Codec interface {
	EncodeField(v *Value) ([]byte, error)
	DecodeField(data []byte) (val *Value, consumed int, err error)
}

// CodecResolver looks up the codec registered for a message's `external`
// reference.
type CodecResolver func(externalRef string) (Codec, bool)

// DefaultCodec is used for scalar fields of a `bytestream` message that has
// no registered codec: a big-endian fixed-width layout for int/bool, and a
// length-prefixed UTF-16BE encoding for string. Layout beyond this default
// is deliberately undefined; any message needing a different wire shape
// must register its own Codec.
type DefaultCodec struct{}

func (DefaultCodec) EncodeField(v *Value) ([]byte, error) {
	switch v.Kind() {
	case KindInt:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v.IntValue()))
		return buf, nil
	case KindBool:
		if v.BoolValue() {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case KindString:
		encoded, err := encodeUTF16BE(v.StringValue())
		if err != nil {
			return nil, err
		}
		prefix := make([]byte, 4)
		binary.BigEndian.PutUint32(prefix, uint32(len(encoded)))
		return append(prefix, encoded...), nil
	default:
		return nil, fmt.Errorf("default bytestream codec cannot encode a %s field", v.Kind())
	}
}

func (DefaultCodec) DecodeField(data []byte) (*Value, int, error) {
	return nil, 0, fmt.Errorf("default bytestream codec requires a type hint; use DecodeFieldTyped")
}

// DecodeFieldTyped decodes one scalar field of the given type name from the
// front of data, returning the value and the number of bytes consumed.
func (DefaultCodec) DecodeFieldTyped(data []byte, typeName string) (*Value, int, error) {
	switch typeName {
	case "int":
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("truncated int field")
		}
		return NewInt(int64(binary.BigEndian.Uint64(data[:8]))), 8, nil
	case "bool":
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("truncated bool field")
		}
		return NewBool(data[0] != 0), 1, nil
	case "string":
		if len(data) < 4 {
			return nil, 0, fmt.Errorf("truncated string length prefix")
		}
		n := int(binary.BigEndian.Uint32(data[:4]))
		if len(data) < 4+n {
			return nil, 0, fmt.Errorf("truncated string field")
		}
		s, err := decodeUTF16BE(data[4 : 4+n])
		if err != nil {
			return nil, 0, err
		}
		return NewString(s), 4 + n, nil
	default:
		return nil, 0, fmt.Errorf("default bytestream codec cannot decode type %q", typeName)
	}
}

func encodeUTF16BE(s string) ([]byte, error) {
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	out, _, err := transform.Bytes(enc, []byte(s))
	return out, err
}

func decodeUTF16BE(b []byte) (string, error) {
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, b)
	return string(out), err
}

// EncodeBytestream concatenates decl's fields in declaration order. A
// field whose owning message declares an `external` reference with a
// registered Codec uses that codec; otherwise DefaultCodec
// is used for scalar fields, and nested/repeated message fields recurse.
func EncodeBytestream(v *Value, decl *ast.MessageDecl, codecs CodecResolver, resolve MessageResolver) ([]byte, error) {
	codec := fieldCodec(decl, codecs)
	var out []byte
	for _, f := range decl.Fields {
		fv := v.Field(f.Name.Name)
		if fv == nil {
			continue
		}
		if f.Mult == ast.MultRepeated {
			for _, el := range fv.Elements() {
				enc, err := encodeBytestreamValue(el, f.Type.Name, codec, codecs, resolve)
				if err != nil {
					return nil, err
				}
				out = append(out, enc...)
			}
			continue
		}
		enc, err := encodeBytestreamValue(fv, f.Type.Name, codec, codecs, resolve)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func encodeBytestreamValue(v *Value, typeName string, codec Codec, codecs CodecResolver, resolve MessageResolver) ([]byte, error) {
	switch typeName {
	case "int", "bool", "string":
		return codec.EncodeField(v)
	default:
		nested, ok := resolve(typeName)
		if !ok {
			return nil, fmt.Errorf("unknown message type %q", typeName)
		}
		return EncodeBytestream(v, nested, codecs, resolve)
	}
}

// DecodeBytestream is the inverse of EncodeBytestream, consuming decl's
// fields in declaration order from the front of data.
func DecodeBytestream(data []byte, decl *ast.MessageDecl, codecs CodecResolver, resolve MessageResolver) (*Value, error) {
	msg := NewMessage(decl.Name.Name)
	codec := fieldCodec(decl, codecs)
	rest := data
	for _, f := range decl.Fields {
		if f.Mult == ast.MultRepeated {
			// Repeated bytestream fields have no documented length prefix,
			// so their element count cannot be recovered; decoding any
			// message with a repeated field fails.
			return nil, fmt.Errorf("decoding a repeated bytestream field requires a registered codec")
		}
		v, consumed, err := decodeBytestreamValue(rest, f.Type.Name, codec, codecs, resolve)
		if err != nil {
			return nil, err
		}
		msg.SetField(f.Name.Name, v)
		rest = rest[consumed:]
	}
	return msg, nil
}

func decodeBytestreamValue(data []byte, typeName string, codec Codec, codecs CodecResolver, resolve MessageResolver) (*Value, int, error) {
	switch typeName {
	case "int", "bool", "string":
		if dc, ok := codec.(DefaultCodec); ok {
			return dc.DecodeFieldTyped(data, typeName)
		}
		return codec.DecodeField(data)
	default:
		nested, ok := resolve(typeName)
		if !ok {
			return nil, 0, fmt.Errorf("unknown message type %q", typeName)
		}
		v, err := DecodeBytestream(data, nested, codecs, resolve)
		if err != nil {
			return nil, 0, err
		}
		enc, err := EncodeBytestream(v, nested, codecs, resolve)
		if err != nil {
			return nil, 0, err
		}
		return v, len(enc), nil
	}
}

func fieldCodec(decl *ast.MessageDecl, codecs CodecResolver) Codec {
	if decl.External != nil && codecs != nil {
		if c, ok := codecs(decl.External.Value); ok {
			return c
		}
	}
	return DefaultCodec{}
}
