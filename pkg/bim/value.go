package bim

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueType represents the type of a property value
type ValueType uint8

const (
	TypeNull ValueType = iota
	TypeString
	TypeNumber
	TypeBool
	TypeList
	TypeMap
)

func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is an open-schema property value: a string, number, bool, list or map.
// The zero Value is null. Numbers keep their literal text when they have one,
// so integers beyond float64 precision re-encode unchanged.
type Value struct {
	Type ValueType

	str  string
	num  float64
	lit  string // number literal, empty for values built from a float
	b    bool
	list []Value
	m    map[string]Value
}

// Helper functions to create typed values
func NullValue() Value {
	return Value{Type: TypeNull}
}

func StringValue(s string) Value {
	return Value{Type: TypeString, str: s}
}

func NumberValue(f float64) Value {
	return Value{Type: TypeNumber, num: f}
}

func IntValue(i int64) Value {
	return Value{Type: TypeNumber, num: float64(i), lit: strconv.FormatInt(i, 10)}
}

func BoolValue(b bool) Value {
	return Value{Type: TypeBool, b: b}
}

func ListValue(items ...Value) Value {
	list := make([]Value, len(items))
	copy(list, items)
	return Value{Type: TypeList, list: list}
}

func MapValue(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{Type: TypeMap, m: cp}
}

// Decode methods
func (v Value) AsString() (string, error) {
	if v.Type != TypeString {
		return "", fmt.Errorf("value is not a string (got %s)", v.Type)
	}
	return v.str, nil
}

func (v Value) AsNumber() (float64, error) {
	if v.Type != TypeNumber {
		return 0, fmt.Errorf("value is not a number (got %s)", v.Type)
	}
	return v.num, nil
}

// AsInt returns an integral number exactly. It fails for non-integral
// numbers and integers outside the int64 range.
func (v Value) AsInt() (int64, error) {
	if v.Type != TypeNumber {
		return 0, fmt.Errorf("value is not a number (got %s)", v.Type)
	}
	if _, ok := integerLiteral(v.lit); ok {
		i, err := strconv.ParseInt(v.lit, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("number %s is not an int64", v.lit)
		}
		return i, nil
	}
	if v.num != math.Trunc(v.num) || v.num < math.MinInt64 || v.num >= math.MaxInt64 {
		return 0, fmt.Errorf("number %v is not an int64", v.num)
	}
	return int64(v.num), nil
}

func (v Value) AsBool() (bool, error) {
	if v.Type != TypeBool {
		return false, fmt.Errorf("value is not a bool (got %s)", v.Type)
	}
	return v.b, nil
}

func (v Value) AsList() ([]Value, error) {
	if v.Type != TypeList {
		return nil, fmt.Errorf("value is not a list (got %s)", v.Type)
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out, nil
}

func (v Value) AsMap() (map[string]Value, error) {
	if v.Type != TypeMap {
		return nil, fmt.Errorf("value is not a map (got %s)", v.Type)
	}
	out := make(map[string]Value, len(v.m))
	for k, val := range v.m {
		out[k] = val
	}
	return out, nil
}

// IsNull reports whether v holds no value
func (v Value) IsNull() bool {
	return v.Type == TypeNull
}

// Equal compares two values structurally
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeNull:
		return true
	case TypeString:
		return v.str == o.str
	case TypeNumber:
		// Integers compare exactly, everything else by float value
		a, aok := integerLiteral(v.lit)
		b, bok := integerLiteral(o.lit)
		if aok && bok {
			return a == b
		}
		return v.num == o.num
	case TypeBool:
		return v.b == o.b
	case TypeList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case TypeMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, val := range v.m {
			other, ok := o.m[k]
			if !ok || !val.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// integerLiteral reports whether s is a JSON integer, normalising negative zero
func integerLiteral(s string) (string, bool) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return "", false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	if s == "-0" {
		return "0", true
	}
	return s, true
}

// Interface converts the value back to plain Go types
// (string, float64, json.Number, bool, []any, map[string]any or nil).
// Numbers with a literal come back as json.Number.
func (v Value) Interface() any {
	switch v.Type {
	case TypeString:
		return v.str
	case TypeNumber:
		if v.lit != "" {
			return json.Number(v.lit)
		}
		return v.num
	case TypeBool:
		return v.b
	case TypeList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case TypeMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeString:
		return v.str
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("<%s>", v.Type)
		}
		return string(data)
	}
}

// ValueOf converts a decoded JSON value (or any plain Go scalar, slice or map)
// to a Value.
func ValueOf(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return x, nil
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case float64:
		return NumberValue(x), nil
	case float32:
		return NumberValue(float64(x)), nil
	case int:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case int32:
		return IntValue(int64(x)), nil
	case json.Number:
		return numberLiteral(x.String())
	case []any:
		list := make([]Value, len(x))
		for i, item := range x {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = v
		}
		return Value{Type: TypeList, list: list}, nil
	case []string:
		list := make([]Value, len(x))
		for i, item := range x {
			list[i] = StringValue(item)
		}
		return Value{Type: TypeList, list: list}, nil
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, item := range x {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = v
		}
		return Value{Type: TypeMap, m: m}, nil
	default:
		return Value{}, fmt.Errorf("unsupported property value of type %T", raw)
	}
}

// numberLiteral keeps the literal text of a JSON number. Magnitudes past the
// float64 range keep their text and read back as an infinity.
func numberLiteral(lit string) (Value, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, fmt.Errorf("invalid number %q: %w", lit, err)
	}
	return Value{Type: TypeNumber, num: f, lit: lit}, nil
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeNull:
		return []byte("null"), nil
	case TypeString:
		return json.Marshal(v.str)
	case TypeNumber:
		if v.lit != "" {
			return []byte(v.lit), nil
		}
		return json.Marshal(v.num)
	case TypeBool:
		return json.Marshal(v.b)
	case TypeList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case TypeMap:
		// Sorted keys keep exports byte-stable.
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := v.m[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("cannot marshal value of type %d", v.Type)
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) clone() Value {
	switch v.Type {
	case TypeList:
		list := make([]Value, len(v.list))
		for i, item := range v.list {
			list[i] = item.clone()
		}
		return Value{Type: TypeList, list: list}
	case TypeMap:
		m := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			m[k] = item.clone()
		}
		return Value{Type: TypeMap, m: m}
	default:
		return v
	}
}

// Properties is the open property bag carried by elements and relationships.
type Properties map[string]Value

// Clone creates a deep copy of the properties. A nil map stays nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v.clone()
	}
	return out
}

// GetNumber returns a numeric property, or def when it is missing or not a number.
func (p Properties) GetNumber(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	n, err := v.AsNumber()
	if err != nil {
		return def
	}
	return n
}

// GetString returns a string property, or def when it is missing or not a string.
func (p Properties) GetString(key, def string) string {
	v, ok := p[key]
	if !ok {
		return def
	}
	s, err := v.AsString()
	if err != nil {
		return def
	}
	return s
}

// Equal compares two property bags
func (p Properties) Equal(o Properties) bool {
	if len(p) != len(o) {
		return false
	}
	for k, v := range p {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
