package value

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/stl-lang/stlconform/internal/ast"
)

// EncodeJSON renders v as canonical JSON: object keys emitted in FieldNames
// order (declaration order for messages built by the executor or by
// DecodeJSON), numbers as decimal, strings with standard JSON
// escaping. Building the document incrementally with sjson.SetRaw, rather
// than encoding/json.Marshal on a map (which alphabetizes keys), is what
// keeps field order stable, which both encoding determinism and the
// `json` encoding's field-order mandate depend on.
func EncodeJSON(v *Value) (string, error) {
	switch v.Kind() {
	case KindNull:
		return "null", nil
	case KindBool:
		if v.BoolValue() {
			return "true", nil
		}
		return "false", nil
	case KindInt:
		return strconv.FormatInt(v.IntValue(), 10), nil
	case KindString:
		return jsonQuote(v.StringValue()), nil
	case KindMessage:
		doc := "{}"
		for _, name := range v.FieldNames() {
			raw, err := EncodeJSON(v.Field(name))
			if err != nil {
				return "", err
			}
			var serr error
			doc, serr = sjson.SetRaw(doc, name, raw)
			if serr != nil {
				return "", serr
			}
		}
		return doc, nil
	case KindArray:
		doc := "[]"
		for i, el := range v.Elements() {
			raw, err := EncodeJSON(el)
			if err != nil {
				return "", err
			}
			var serr error
			doc, serr = sjson.SetRaw(doc, strconv.Itoa(i), raw)
			if serr != nil {
				return "", serr
			}
		}
		return doc, nil
	default:
		return "", fmt.Errorf("value of kind %s is not json-encodable", v.Kind())
	}
}

// CanonicalJSON renders v as compact, whitespace-free JSON suitable for
// byte-identical comparison across runs.
func CanonicalJSON(v *Value) (string, error) {
	raw, err := EncodeJSON(v)
	if err != nil {
		return "", err
	}
	return string(pretty.Ugly([]byte(raw))), nil
}

func jsonQuote(s string) string {
	doc, _ := sjson.Set(`{}`, "v", s)
	return gjson.Get(doc, "v").Raw
}

// MessageResolver looks up a message declaration by (module-relative or
// fully-qualified) name, mirroring linker.Program.ResolveMessage without
// importing the linker package (which would create an import cycle since
// the type checker, which depends on linker, also needs this package).
type MessageResolver func(name string) (*ast.MessageDecl, bool)

// DecodeJSON parses raw against decl's declared field list: every required
// field must be present, repeated fields decode into array elements, and
// nested-message fields recurse through resolve.
func DecodeJSON(raw string, decl *ast.MessageDecl, resolve MessageResolver) (*Value, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("invalid json")
	}
	return decodeMessageJSON(gjson.Parse(raw), decl, resolve)
}

func decodeMessageJSON(root gjson.Result, decl *ast.MessageDecl, resolve MessageResolver) (*Value, error) {
	msg := NewMessage(decl.Name.Name)
	for _, f := range decl.Fields {
		fr := root.Get(f.Name.Name)
		if !fr.Exists() {
			if f.Mult == ast.MultRequired {
				return nil, fmt.Errorf("missing required field %q", f.Name.Name)
			}
			continue
		}
		if f.Mult == ast.MultRepeated {
			arr := NewArray(f.Type.Name)
			var decodeErr error
			fr.ForEach(func(_, el gjson.Result) bool {
				ev, err := decodeScalarOrMessageJSON(el, f.Type.Name, resolve)
				if err != nil {
					decodeErr = err
					return false
				}
				arr.Append(ev)
				return true
			})
			if decodeErr != nil {
				return nil, decodeErr
			}
			msg.SetField(f.Name.Name, arr)
			continue
		}
		fv, err := decodeScalarOrMessageJSON(fr, f.Type.Name, resolve)
		if err != nil {
			return nil, err
		}
		msg.SetField(f.Name.Name, fv)
	}
	return msg, nil
}

func decodeScalarOrMessageJSON(r gjson.Result, typeName string, resolve MessageResolver) (*Value, error) {
	switch typeName {
	case "int":
		return NewInt(r.Int()), nil
	case "bool":
		return NewBool(r.Bool()), nil
	case "string":
		return NewString(r.String()), nil
	default:
		nested, ok := resolve(typeName)
		if !ok {
			return nil, fmt.Errorf("unknown message type %q", typeName)
		}
		return decodeMessageJSON(r, nested, resolve)
	}
}
