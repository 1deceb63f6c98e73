package vm

import (
	"math"
	"testing"

	"github.com/zraight/numium/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Representation
// ---------------------------------------------------------------------------

func TestZeroValueIsNull(t *testing.T) {
	var v Value
	if !v.IsNull() || v.Kind() != KindNull {
		t.Errorf("zero Value kind = %s, want null", v.Kind())
	}
}

func TestAccessorsMatchKind(t *testing.T) {
	if i, ok := Int(7).AsInt(); !ok || i != 7 {
		t.Errorf("Int(7).AsInt() = %d, %v", i, ok)
	}
	if _, ok := Int(7).AsFloat(); ok {
		t.Error("Int(7).AsFloat() should fail")
	}
	if f, ok := Float(2.5).AsFloat(); !ok || f != 2.5 {
		t.Errorf("Float(2.5).AsFloat() = %v, %v", f, ok)
	}
	if s, ok := Str("x").AsString(); !ok || s != "x" {
		t.Errorf("Str(x).AsString() = %q, %v", s, ok)
	}
	if _, ok := Str("1").AsInt(); ok {
		t.Error("Str(1).AsInt() should fail")
	}
	if b, ok := Bool(true).AsBool(); !ok || !b {
		t.Errorf("Bool(true).AsBool() = %v, %v", b, ok)
	}
	if _, ok := NewList().AsList(); !ok {
		t.Error("NewList().AsList() failed")
	}
	if _, ok := NewDict().AsDict(); !ok {
		t.Error("NewDict().AsDict() failed")
	}
}

func TestFromConstant(t *testing.T) {
	tests := []struct {
		c    bytecode.Constant
		kind Kind
		want string
	}{
		{bytecode.StringConst("hi"), KindString, "hi"},
		{bytecode.IntConst(-3), KindInt, "-3"},
		{bytecode.FloatConst(0.5), KindFloat, "0.500000"},
		{bytecode.BoolConst(false), KindBool, "false"},
		{bytecode.NullConst(), KindNull, "null"},
	}
	for _, tt := range tests {
		v := FromConstant(tt.c)
		if v.Kind() != tt.kind || v.String() != tt.want {
			t.Errorf("FromConstant(%v) = %s %q, want %s %q", tt.c, v.Kind(), v.String(), tt.kind, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

func TestValueString(t *testing.T) {
	d := NewDict()
	dict, _ := d.AsDict()
	dict.Set("b", Int(1))
	dict.Set("a", Str("x"))

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"int", Int(42), "42"},
		{"negative int", Int(-1), "-1"},
		{"float", Float(3.5), "3.500000"},
		{"float six decimals", Float(1.0 / 3.0), "0.333333"},
		{"string verbatim", Str("a \"b\"\n"), "a \"b\"\n"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"null", Null(), "null"},
		{"empty list", NewList(), "[]"},
		{"list", NewList(Int(1), Str("two"), Null()), `[1, "two", null]`},
		{"nested list", NewList(NewList(Int(1))), "[[1]]"},
		{"dict keeps insertion order", d, `{b: 1, a: "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Collections
// ---------------------------------------------------------------------------

func TestListOperations(t *testing.T) {
	v := NewList(Int(1), Int(2))
	l, _ := v.AsList()

	if got, ok := l.Get(1); !ok || !Equal(got, Int(2)) {
		t.Errorf("Get(1) = %v, %v", got, ok)
	}
	if got, ok := l.Get(2); ok || !got.IsNull() {
		t.Errorf("Get(2) = %v, %v; want null, false", got, ok)
	}
	if _, ok := l.Get(-1); ok {
		t.Error("Get(-1) should fail")
	}
	if l.Set(5, Int(0)) {
		t.Error("Set(5) should fail")
	}
	if !l.Set(0, Str("z")) {
		t.Error("Set(0) failed")
	}
	l.Append(Bool(true))
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
	if v.String() != `["z", 2, true]` {
		t.Errorf("list = %s", v)
	}
}

func TestDictOverwriteKeepsOrder(t *testing.T) {
	v := NewDict()
	d, _ := v.AsDict()
	d.Set("x", Int(1))
	d.Set("y", Int(2))
	d.Set("x", Int(3))

	keys := d.Keys()
	if len(keys) != 2 || keys[0] != "x" || keys[1] != "y" {
		t.Errorf("Keys() = %v, want [x y]", keys)
	}
	if got, _ := d.Get("x"); !Equal(got, Int(3)) {
		t.Errorf("Get(x) = %v, want 3", got)
	}
	if _, ok := d.Get("missing"); ok {
		t.Error("Get(missing) should fail")
	}
}

func TestCopyingValueSharesCollection(t *testing.T) {
	a := NewList()
	b := a
	l, _ := b.AsList()
	l.Append(Int(1))

	la, _ := a.AsList()
	if la.Len() != 1 {
		t.Error("copy of a list value should share the list")
	}
}

func TestCloneIsDeep(t *testing.T) {
	inner := NewList(Int(1))
	outer := NewList(inner)
	d := NewDict()
	dict, _ := d.AsDict()
	dict.Set("k", outer)

	c := d.Clone()

	il, _ := inner.AsList()
	il.Append(Int(2))
	dict.Set("new", Null())

	if got := c.String(); got != "{k: [[1]]}" {
		t.Errorf("clone = %s, want {k: [[1]]}", got)
	}
}

func TestInterface(t *testing.T) {
	v := NewList(Int(1), Float(2), Str("s"), Bool(true), Null())
	got, ok := v.Interface().([]any)
	if !ok || len(got) != 5 {
		t.Fatalf("Interface() = %#v", v.Interface())
	}
	if got[0] != int64(1) || got[1] != 2.0 || got[2] != "s" || got[3] != true || got[4] != nil {
		t.Errorf("Interface() = %#v", got)
	}
}

func TestFloatRenderingSpecials(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
		{math.Copysign(0, -1), "-0.000000"},
	}
	for _, tt := range tests {
		if got := Float(tt.f).String(); got != tt.want {
			t.Errorf("Float(%v).String() = %q, want %q", tt.f, got, tt.want)
		}
	}
}
