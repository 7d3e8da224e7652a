package value

import "testing"

func TestMessageFieldOrderPreserved(t *testing.T) {
	m := NewMessage("m::mReq")
	m.SetField("b", NewInt(2))
	m.SetField("a", NewInt(1))
	names := m.FieldNames()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("expected insertion order [b a], got %v", names)
	}
}

func TestSetFieldOverwriteKeepsPosition(t *testing.T) {
	m := NewMessage("m::mReq")
	m.SetField("a", NewInt(1))
	m.SetField("b", NewInt(2))
	m.SetField("a", NewInt(99))
	names := m.FieldNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(names))
	}
	if m.Field("a").IntValue() != 99 {
		t.Fatalf("expected overwritten value 99, got %d", m.Field("a").IntValue())
	}
}

func TestEqualIgnoresFieldOrder(t *testing.T) {
	a := NewMessage("m::mReq")
	a.SetField("x", NewInt(1))
	a.SetField("y", NewString("hi"))

	b := NewMessage("m::mReq")
	b.SetField("y", NewString("hi"))
	b.SetField("x", NewInt(1))

	if !a.Equal(b) {
		t.Fatalf("expected field-order-insensitive equality")
	}
}

func TestEqualDetectsDifference(t *testing.T) {
	a := NewMessage("m::mReq")
	a.SetField("x", NewInt(1))
	b := NewMessage("m::mReq")
	b.SetField("x", NewInt(2))
	if a.Equal(b) {
		t.Fatalf("expected inequality")
	}
}

func TestArrayEquality(t *testing.T) {
	a := NewArray("m::mReq")
	a.Append(NewInt(1))
	a.Append(NewInt(2))
	b := NewArray("m::mReq")
	b.Append(NewInt(1))
	b.Append(NewInt(2))
	if !a.Equal(b) {
		t.Fatalf("expected array equality")
	}
	b.Append(NewInt(3))
	if a.Equal(b) {
		t.Fatalf("expected array inequality after length change")
	}
}

func TestStateInstanceEquality(t *testing.T) {
	a := NewState("tls::sTlsState", "kConnected")
	b := NewState("tls::sTlsState", "kConnected")
	c := NewState("tls::sTlsState", "kNotConnected")
	if !a.Equal(b) {
		t.Fatalf("expected equal state instances")
	}
	if a.Equal(c) {
		t.Fatalf("expected unequal state instances")
	}
}

func TestNilValueIsNull(t *testing.T) {
	var v *Value
	if v.Kind() != KindNull {
		t.Fatalf("expected nil Value to report KindNull, got %s", v.Kind())
	}
}
