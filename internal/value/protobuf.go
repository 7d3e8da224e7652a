package value

import (
	"fmt"

	"github.com/stl-lang/stlconform/internal/ast"
)

// ProtobufCodec is the registered schema binding for a `protobuf`-encoded
// message: serialization is delegated entirely to the schema named by the
// message's `external` reference. The core carries no protobuf library of
// its own; internal/registry supplies concrete implementations keyed by
// external reference.
type ProtobufCodec interface {
	Marshal(v *Value) ([]byte, error)
	Unmarshal(data []byte) (*Value, error)
}

// ProtobufResolver looks up the ProtobufCodec registered for a message's
// `external` reference.
type ProtobufResolver func(externalRef string) (ProtobufCodec, bool)

// EncodeProtobuf delegates entirely to the codec registered for decl's
// `external` reference; a message with no registered schema is a registry
// error at execution time, represented here as a plain error since this
// package has no error-taxonomy dependency.
func EncodeProtobuf(v *Value, decl *ast.MessageDecl, codecs ProtobufResolver) ([]byte, error) {
	if decl.External == nil {
		return nil, fmt.Errorf("message %q has no external protobuf schema reference", decl.Name.Name)
	}
	codec, ok := codecs(decl.External.Value)
	if !ok {
		return nil, fmt.Errorf("no protobuf schema registered for %q", decl.External.Value)
	}
	return codec.Marshal(v)
}

// DecodeProtobuf is the inverse of EncodeProtobuf.
func DecodeProtobuf(data []byte, decl *ast.MessageDecl, codecs ProtobufResolver) (*Value, error) {
	if decl.External == nil {
		return nil, fmt.Errorf("message %q has no external protobuf schema reference", decl.Name.Name)
	}
	codec, ok := codecs(decl.External.Value)
	if !ok {
		return nil, fmt.Errorf("no protobuf schema registered for %q", decl.External.Value)
	}
	return codec.Unmarshal(data)
}
