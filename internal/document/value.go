// Package document provides parsing, caching, key-path resolution and value
// evaluation for the structured documents (property lists, JSON, YAML) that
// installwatch inspects to decide item completion.
package document

import (
	"strconv"
	"time"
)

// Kind identifies the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindMap
)

// Value is a typed recursive representation of a parsed document node.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	m    map[string]Value
}

func Null() Value             { return Value{} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int(i int64) Value       { return Value{kind: KindInt, i: i} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// Map builds a map value from an existing map. The map is referenced, not
// copied; callers must not mutate it afterwards.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload. The second result is false for
// non-boolean values.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsString returns the string payload for string values only.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsFloat returns a numeric view of int and float values.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// AsArray returns the element slice for array values.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Lookup returns the child under key for map values. Missing keys and
// non-map values report false.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	child, ok := v.m[key]
	return child, ok
}

// Index returns the element at i for array values, false when out of range.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Len returns the element or key count for arrays and maps, zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.m)
	}
	return 0
}

// Stringify renders a scalar value the way expected-value comparison wants:
// booleans as "true"/"false", integers in base 10, floats via the shortest
// round-trip formatting, strings verbatim. Arrays, maps and null render as
// empty strings.
func (v Value) Stringify() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	}
	return ""
}

// FromAny converts the dynamic output of a decoder (yaml.v3, encoding/json,
// howett.net/plist) into a typed Value. Unrepresentable leaves become
// strings where possible and null otherwise.
func FromAny(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Int(int64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return Int(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return String(x)
	case []byte:
		return String(string(x))
	case time.Time:
		return String(x.UTC().Format(time.RFC3339))
	case []any:
		arr := make([]Value, len(x))
		for i, el := range x {
			arr[i] = FromAny(el)
		}
		return Array(arr...)
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, el := range x {
			m[k] = FromAny(el)
		}
		return Map(m)
	case map[any]any:
		// yaml.v2-style decoders produce interface-keyed maps.
		m := make(map[string]Value, len(x))
		for k, el := range x {
			if ks, ok := k.(string); ok {
				m[ks] = FromAny(el)
			}
		}
		return Map(m)
	}
	return Null()
}
