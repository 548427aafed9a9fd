package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Value is a sealed variant over the JSON-compatible data a harvester may
// record: null, bool, number, string, ordered sequence, or mapping. Keeping
// the variant closed gives the merge engine exact equality semantics and a
// lossless JSON round-trip; numbers retain their literal form instead of
// collapsing to float64.
type Value interface {
	value()
}

// Null is the JSON null value.
type Null struct{}

func (Null) value() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) value() {}

// Number holds the untouched JSON number literal.
type Number string

func (Number) value() {}

// Int64 parses the literal as an integer.
func (n Number) Int64() (int64, error) {
	return json.Number(n).Int64()
}

// Float64 parses the literal as a float.
func (n Number) Float64() (float64, error) {
	return json.Number(n).Float64()
}

// String is a JSON string.
type String string

func (String) value() {}

// List is an ordered sequence of values.
type List []Value

func (List) value() {}

// Map is a string-keyed mapping. Serialization iterates keys in sorted order
// so cache artifacts are stable across runs.
type Map map[string]Value

func (Map) value() {}

// SortedKeys returns the mapping keys in lexical order.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep equality of two values. Numbers compare by literal, so
// "1.0" and "1" are distinct; harvesters that disagree on formatting are
// treated as disagreeing on the value.
func Equal(a, b Value) bool {
	switch left := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		right, ok := b.(Bool)
		return ok && left == right
	case Number:
		right, ok := b.(Number)
		return ok && left == right
	case String:
		right, ok := b.(String)
		return ok && left == right
	case List:
		right, ok := b.(List)
		if !ok || len(left) != len(right) {
			return false
		}
		for i := range left {
			if !Equal(left[i], right[i]) {
				return false
			}
		}
		return true
	case Map:
		right, ok := b.(Map)
		if !ok || len(left) != len(right) {
			return false
		}
		for key, value := range left {
			other, present := right[key]
			if !present || !Equal(value, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy. Scalars are immutable and shared.
func Clone(v Value) Value {
	switch val := v.(type) {
	case List:
		out := make(List, len(val))
		for i, item := range val {
			out[i] = Clone(item)
		}
		return out
	case Map:
		out := make(Map, len(val))
		for key, item := range val {
			out[key] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// Render returns a compact JSON rendering for log and error messages.
func Render(v Value) string {
	data, err := MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("<unrenderable: %v>", err)
	}
	return string(data)
}

// MarshalValue encodes a value as JSON. Map keys are emitted sorted.
func MarshalValue(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		if val == "" {
			buf.WriteString("0")
			return nil
		}
		buf.WriteString(string(val))
	case String:
		data, err := json.Marshal(string(val))
		if err != nil {
			return err
		}
		buf.Write(data)
	case List:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Map:
		buf.WriteByte('{')
		for i, key := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyData, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(keyData)
			buf.WriteByte(':')
			if err := encodeValue(buf, val[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// marshalIndented pretty-prints a value with two-space indentation, keeping
// the sorted key order of MarshalValue.
func marshalIndented(v Value) ([]byte, error) {
	compact, err := MarshalValue(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// UnmarshalValue decodes JSON into a Value, preserving number literals.
func UnmarshalValue(data []byte) (Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}
	return FromGo(raw)
}

// FromGo converts a decoded JSON value (or plain Go data of the equivalent
// shapes) into the variant representation.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return Number(val), nil
	case int:
		return Number(fmt.Sprintf("%d", val)), nil
	case int64:
		return Number(fmt.Sprintf("%d", val)), nil
	case uint64:
		return Number(fmt.Sprintf("%d", val)), nil
	case float64:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return Number(data), nil
	case []any:
		out := make(List, len(val))
		for i, item := range val {
			converted, err := FromGo(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = converted
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(val))
		for key, item := range val {
			converted, err := FromGo(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = converted
		}
		return out, nil
	case Value:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ToGo converts a Value back into plain Go data for encoders that do not
// understand the variant types (TOML, YAML).
func ToGo(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case String:
		return string(val)
	case List:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ToGo(item)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for key, item := range val {
			out[key] = ToGo(item)
		}
		return out
	default:
		return nil
	}
}
