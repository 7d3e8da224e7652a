// Package value implements the STL runtime value model: a tagged variant
// over {int, bool, string, message-instance, message-array, state-instance,
// null}, plus the json/bytestream/protobuf encodings.
//
// Value keeps its fields private and ordered behind accessor methods:
// object-shaped values preserve field-insertion order explicitly rather
// than relying on a Go map's (unordered) iteration.
package value

// Kind classifies the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindBool
	KindString
	KindMessage
	KindArray
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindMessage:
		return "message"
	case KindArray:
		return "array"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Value is a single STL runtime value. The zero Value is not meaningful;
// use one of the New* constructors.
type Value struct {
	kind Kind

	i int64
	b bool
	s string

	messageType string
	fieldNames  []string
	fieldValues map[string]*Value

	elemType string
	elems    []*Value

	stateType  string
	stateValue string
}

// Kind returns v's kind, or KindNull for a nil receiver.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// NewNull returns the absent/optional-unset value.
func NewNull() *Value { return &Value{kind: KindNull} }

// NewInt returns an int scalar.
func NewInt(i int64) *Value { return &Value{kind: KindInt, i: i} }

// NewBool returns a bool scalar.
func NewBool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// NewString returns a string scalar.
func NewString(s string) *Value { return &Value{kind: KindString, s: s} }

// NewState returns a StateInstance value: a reference to a StateDecl
// (stored by its fully-qualified decl name, see StateType) and one of its
// declared symbolic values.
func NewState(declName, symbolicValue string) *Value {
	return &Value{kind: KindState, stateType: declName, stateValue: symbolicValue}
}

// NewMessage returns an empty message-instance of the named (fully
// qualified) MessageDecl. Fields are populated with SetField in
// declaration order.
func NewMessage(declName string) *Value {
	return &Value{kind: KindMessage, messageType: declName, fieldValues: map[string]*Value{}}
}

// NewArray returns an empty message-array value of the named element type.
func NewArray(elemType string) *Value {
	return &Value{kind: KindArray, elemType: elemType}
}

// IntValue returns the payload of an int Value, or 0 otherwise.
func (v *Value) IntValue() int64 {
	if v.Kind() != KindInt {
		return 0
	}
	return v.i
}

// BoolValue returns the payload of a bool Value, or false otherwise.
func (v *Value) BoolValue() bool {
	if v.Kind() != KindBool {
		return false
	}
	return v.b
}

// StringValue returns the payload of a string Value, or "" otherwise.
func (v *Value) StringValue() string {
	if v.Kind() != KindString {
		return ""
	}
	return v.s
}

// MessageType returns the fully-qualified MessageDecl name for a
// message-instance, or "" otherwise.
func (v *Value) MessageType() string {
	if v.Kind() != KindMessage {
		return ""
	}
	return v.messageType
}

// StateType returns the fully-qualified StateDecl name for a state
// instance, or "" otherwise.
func (v *Value) StateType() string {
	if v.Kind() != KindState {
		return ""
	}
	return v.stateType
}

// StateValue returns the symbolic value of a state instance, or "" otherwise.
func (v *Value) StateValue() string {
	if v.Kind() != KindState {
		return ""
	}
	return v.stateValue
}

// ElemType returns the declared element type name of an array value.
func (v *Value) ElemType() string {
	if v.Kind() != KindArray {
		return ""
	}
	return v.elemType
}

// SetField assigns name to val inside a message-instance, appending name to
// the field order the first time it is seen. Calling SetField on a
// non-message Value is a no-op.
func (v *Value) SetField(name string, val *Value) {
	if v.Kind() != KindMessage {
		return
	}
	if _, exists := v.fieldValues[name]; !exists {
		v.fieldNames = append(v.fieldNames, name)
	}
	v.fieldValues[name] = val
}

// Field returns the value assigned to name, or nil if absent.
func (v *Value) Field(name string) *Value {
	if v.Kind() != KindMessage {
		return nil
	}
	return v.fieldValues[name]
}

// FieldNames returns every assigned field name in the order each was first
// set with SetField.
func (v *Value) FieldNames() []string {
	if v.Kind() != KindMessage {
		return nil
	}
	out := make([]string, len(v.fieldNames))
	copy(out, v.fieldNames)
	return out
}

// Append appends elem to an array value. A no-op on a non-array Value.
func (v *Value) Append(elem *Value) {
	if v.Kind() != KindArray {
		return
	}
	v.elems = append(v.elems, elem)
}

// Elements returns a shallow copy of the array's elements.
func (v *Value) Elements() []*Value {
	if v.Kind() != KindArray {
		return nil
	}
	out := make([]*Value, len(v.elems))
	copy(out, v.elems)
	return out
}

// Equal reports structural equality. Message field order is significant
// only for encoding, so message equality compares the field sets, not
// their order; state-instance equality is over (decl, symbolic value).
func (v *Value) Equal(other *Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindInt:
		return v.IntValue() == other.IntValue()
	case KindBool:
		return v.BoolValue() == other.BoolValue()
	case KindString:
		return v.StringValue() == other.StringValue()
	case KindState:
		return v.StateType() == other.StateType() && v.StateValue() == other.StateValue()
	case KindMessage:
		if v.MessageType() != other.MessageType() {
			return false
		}
		an, bn := v.FieldNames(), other.FieldNames()
		if len(an) != len(bn) {
			return false
		}
		for _, name := range an {
			ov := other.Field(name)
			if ov == nil || !v.Field(name).Equal(ov) {
				return false
			}
		}
		return true
	case KindArray:
		if v.ElemType() != other.ElemType() {
			return false
		}
		ae, be := v.Elements(), other.Elements()
		if len(ae) != len(be) {
			return false
		}
		for i := range ae {
			if !ae[i].Equal(be[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
