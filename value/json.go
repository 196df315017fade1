package value

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Wire markers for values JSON cannot carry natively.
const (
	FunctionKey = "$fn"
	BufferKey   = "$buffer"
)

// ErrNotEncodable is returned when a value has no wire form.
var ErrNotEncodable = errors.New("value not encodable")

// Resolver turns a wire callback id into a callable Function.
type Resolver func(id string) Function

// FromJSON converts a decoded JSON document (as produced by encoding/json
// into an any) into a Value. Objects of the form {"$fn": id} become function
// values via resolve; {"$buffer": base64} become buffers.
func FromJSON(raw any, resolve Resolver) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case string:
		return String(x), nil
	case []any:
		items := make([]Value, 0, len(x))
		for i, e := range x {
			v, err := FromJSON(e, resolve)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, v)
		}
		return Value{kind: KindArray, arr: items}, nil
	case map[string]any:
		if v, ok, err := fromMarker(x, resolve); ok || err != nil {
			return v, err
		}
		obj := make(map[string]Value, len(x))
		for k, e := range x {
			v, err := FromJSON(e, resolve)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			obj[k] = v
		}
		return Value{kind: KindObject, obj: obj}, nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON type %T", raw)
	}
}

func fromMarker(m map[string]any, resolve Resolver) (Value, bool, error) {
	if len(m) != 1 {
		return Value{}, false, nil
	}
	if id, ok := m[FunctionKey].(string); ok {
		if resolve == nil {
			return Value{}, true, errors.New("function values not accepted here")
		}
		return Func(resolve(id)), true, nil
	}
	if enc, ok := m[BufferKey].(string); ok {
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return Value{}, true, fmt.Errorf("decode buffer: %w", err)
		}
		return Value{kind: KindBuffer, buf: data}, true, nil
	}
	return Value{}, false, nil
}

// ToJSON converts v into a document encoding/json can marshal. Undefined
// maps to nil, like null. Function values cannot leave the host.
func ToJSON(v Value) (any, error) {
	switch v.kind {
	case KindUndefined, KindNull:
		return nil, nil
	case KindBool:
		return v.b, nil
	case KindNumber:
		return v.n, nil
	case KindString:
		return v.s, nil
	case KindBuffer:
		return map[string]any{BufferKey: base64.StdEncoding.EncodeToString(v.buf)}, nil
	case KindArray:
		out := make([]any, 0, len(v.arr))
		for i, e := range v.arr {
			j, err := ToJSON(e)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, j)
		}
		return out, nil
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			j, err := ToJSON(e)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = j
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotEncodable, v.kind)
	}
}
