package entities

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind identifies which variant a Value holds.
type ValueKind uint8

const (
	// KindNone is the absence of a value.
	KindNone ValueKind = iota
	// KindBool is a boolean.
	KindBool
	// KindInt is a signed 64-bit integer.
	KindInt
	// KindFloat is a 64-bit float.
	KindFloat
	// KindString is a UTF-8 string.
	KindString
	// KindList is an ordered sequence of values.
	KindList
	// KindMap is a string-keyed mapping of values.
	KindMap
	// KindHandle is an opaque reference to a host object.
	KindHandle
)

var kindNames = [...]string{
	KindNone:   "none",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindList:   "list",
	KindMap:    "map",
	KindHandle: "handle",
}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Handle is an opaque reference to an object owned by the host model.
// Handles are passed by reference; the object itself never crosses the boundary.
type Handle struct {
	Kind string `json:"kind" yaml:"kind"`
	ID   int64  `json:"id" yaml:"id"`
}

func (h Handle) String() string {
	return fmt.Sprintf("<%s #%d>", h.Kind, h.ID)
}

// Value is the closed set of values that may cross between the host and a
// scripting runtime. The zero Value is None.
type Value struct {
	m    map[string]Value
	s    string
	h    Handle
	l    []Value
	f    float64
	i    int64
	b    bool
	kind ValueKind
}

// NoneValue returns the None value.
func NoneValue() Value { return Value{} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue wraps an int64.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps a float64.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// ListValue wraps a sequence. The slice is not copied.
func ListValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, l: items}
}

// MapValue wraps a string-keyed mapping. The map is not copied.
func MapValue(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// HandleValue wraps a host object handle.
func HandleValue(h Handle) Value { return Value{kind: KindHandle, h: h} }

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNone reports whether v is None.
func (v Value) IsNone() bool { return v.kind == KindNone }

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Int returns the integer held by v.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float held by v. Integers widen to float.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Str returns the string held by v.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// List returns the sequence held by v.
func (v Value) List() ([]Value, bool) { return v.l, v.kind == KindList }

// Map returns the mapping held by v.
func (v Value) Map() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Handle returns the host handle held by v.
func (v Value) Handle() (Handle, bool) { return v.h, v.kind == KindHandle }

// Equal reports deep equality. Int and Float never compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindHandle:
		return v.h == o.h
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v in a Python-like literal form with map keys sorted.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.kind {
	case KindNone:
		sb.WriteString("None")
	case KindBool:
		if v.b {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindHandle:
		sb.WriteString(v.h.String())
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.l {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			v.m[k].write(sb)
		}
		sb.WriteByte('}')
	}
}

// CountHandles returns the number of handles reachable from v.
func (v Value) CountHandles() int {
	switch v.kind {
	case KindHandle:
		return 1
	case KindList:
		n := 0
		for _, item := range v.l {
			n += item.CountHandles()
		}
		return n
	case KindMap:
		n := 0
		for _, item := range v.m {
			n += item.CountHandles()
		}
		return n
	}
	return 0
}
