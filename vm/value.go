package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zraight/numium/pkg/bytecode"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindList
	KindDict
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a dynamically typed Numium value.
//
// The zero Value is Null. Only the field selected by kind is meaningful;
// fields are unexported so the representation always matches the tag.
// Lists and Dicts are held by handle: copying a Value shares the
// collection.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	list *List
	dict *Dict
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Null returns the Null value.
func Null() Value { return Value{} }

// Int returns an Integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a Float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Str returns a String value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Bool returns a Bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// NewList returns a List value holding a fresh list of the given items.
func NewList(items ...Value) Value {
	l := &List{items: make([]Value, len(items))}
	copy(l.items, items)
	return Value{kind: KindList, list: l}
}

// NewDict returns a Dict value holding a fresh, empty dict.
func NewDict() Value {
	return Value{kind: KindDict, dict: &Dict{index: make(map[string]int)}}
}

// FromConstant converts a constant pool entry to a Value.
func FromConstant(c bytecode.Constant) Value {
	switch c.Kind {
	case bytecode.ConstString:
		return Str(c.Str)
	case bytecode.ConstInt:
		return Int(c.Int)
	case bytecode.ConstFloat:
		return Float(c.Float)
	case bytecode.ConstBool:
		return Bool(c.Bool)
	default:
		return Null()
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumber reports whether v is an Integer or a Float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// AsInt returns the Integer payload.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the Float payload.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString returns the String payload.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBool returns the Bool payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsList returns the List handle.
func (v Value) AsList() (*List, bool) { return v.list, v.kind == KindList }

// AsDict returns the Dict handle.
func (v Value) AsDict() (*Dict, bool) { return v.dict, v.kind == KindDict }

// toFloat widens a numeric value. Callers check IsNumber first.
func (v Value) toFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Clone returns a deep copy. Scalars are returned as is; collections are
// copied recursively so the result shares nothing with v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		out := &List{items: make([]Value, len(v.list.items))}
		for i, item := range v.list.items {
			out.items[i] = item.Clone()
		}
		return Value{kind: KindList, list: out}
	case KindDict:
		out := &Dict{
			keys:   make([]string, len(v.dict.keys)),
			values: make([]Value, len(v.dict.values)),
			index:  make(map[string]int, len(v.dict.keys)),
		}
		copy(out.keys, v.dict.keys)
		for i, item := range v.dict.values {
			out.values[i] = item.Clone()
		}
		for k, i := range v.dict.index {
			out.index[k] = i
		}
		return Value{kind: KindDict, dict: out}
	default:
		return v
	}
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// String renders v the way OUTPUT prints it.
func (v Value) String() string {
	var sb strings.Builder
	v.render(&sb, false)
	return sb.String()
}

// formatFloat prints six decimals, with inf, -inf and nan spelled as the
// C printf family does.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func (v Value) render(sb *strings.Builder, nested bool) {
	switch v.kind {
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(formatFloat(v.f))
	case KindString:
		if nested {
			sb.WriteString(strconv.Quote(v.s))
		} else {
			sb.WriteString(v.s)
		}
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.list.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.render(sb, true)
		}
		sb.WriteByte(']')
	case KindDict:
		sb.WriteByte('{')
		for i, k := range v.dict.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			v.dict.values[i].render(sb, true)
		}
		sb.WriteByte('}')
	default:
		sb.WriteString("null")
	}
}

// Interface converts v to plain Go data: int64, float64, string, bool,
// []any, map[string]any or nil. Used for state snapshots.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list.items))
		for i, item := range v.list.items {
			out[i] = item.Interface()
		}
		return out
	case KindDict:
		out := make(map[string]any, len(v.dict.keys))
		for i, k := range v.dict.keys {
			out[k] = v.dict.values[i].Interface()
		}
		return out
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

// List is a growable ordered sequence of Values.
type List struct {
	items []Value
}

// Len returns the number of elements.
func (l *List) Len() int { return len(l.items) }

// Get returns the element at index i.
func (l *List) Get(i int64) (Value, bool) {
	if i < 0 || i >= int64(len(l.items)) {
		return Null(), false
	}
	return l.items[i], true
}

// Set replaces the element at index i. It reports false, changing nothing,
// when i is out of range.
func (l *List) Set(i int64, v Value) bool {
	if i < 0 || i >= int64(len(l.items)) {
		return false
	}
	l.items[i] = v
	return true
}

// Append adds v to the end of the list.
func (l *List) Append(v Value) { l.items = append(l.items, v) }

// Items returns a copy of the elements.
func (l *List) Items() []Value {
	out := make([]Value, len(l.items))
	copy(out, l.items)
	return out
}

// ---------------------------------------------------------------------------
// Dict
// ---------------------------------------------------------------------------

// Dict maps unique string keys to Values, iterating in first-insertion
// order.
type Dict struct {
	keys   []string
	values []Value
	index  map[string]int
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Get returns the value stored under key.
func (d *Dict) Get(key string) (Value, bool) {
	i, ok := d.index[key]
	if !ok {
		return Null(), false
	}
	return d.values[i], true
}

// Set inserts or overwrites key. Overwriting keeps the key's position.
func (d *Dict) Set(key string, v Value) {
	if i, ok := d.index[key]; ok {
		d.values[i] = v
		return
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.values = append(d.values, v)
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}
