package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FromJSON parses JSON bytes into a Value, preserving integers instead of
// widening every number to float64 the way a plain json.Unmarshal into
// interface{} would.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Null(), fmt.Errorf("parse document json: %w", err)
	}
	return FromAny(raw)
}

// FromAny converts a generic Go value (as produced by json.Decoder with
// UseNumber, or hand-built map[string]any/[]any/scalar trees) into a Value.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Null(), fmt.Errorf("parse number %q: %w", t.String(), err)
		}
		return Float(f), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []any:
		vs := make([]Value, len(t))
		for i, elem := range t {
			v, err := FromAny(elem)
			if err != nil {
				return Null(), err
			}
			vs[i] = v
		}
		return List(vs), nil
	case []Value:
		return List(t), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, elem := range t {
			v, err := FromAny(elem)
			if err != nil {
				return Null(), err
			}
			m[k] = v
		}
		return Map(m), nil
	case map[string]Value:
		return Map(t), nil
	case Value:
		return t, nil
	default:
		return Null(), fmt.Errorf("unsupported document value type %T", raw)
	}
}

// ToAny converts a Value back into a generic Go value tree, suitable for
// handing to libraries that expect interface{} (e.g. a JSON-Schema
// validator). Integers round-trip as int64, not float64.
func ToAny(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		b, _ := v.AsBool()
		return b
	case KindInt:
		i, _ := v.AsInt()
		return i
	case KindFloat:
		f, _ := v.AsFloat()
		return f
	case KindString:
		s, _ := v.AsString()
		return s
	case KindList:
		list, _ := v.AsList()
		out := make([]any, len(list))
		for i, elem := range list {
			out[i] = ToAny(elem)
		}
		return out
	case KindMap:
		m, _ := v.AsMap()
		out := make(map[string]any, len(m))
		for k, elem := range m {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}
