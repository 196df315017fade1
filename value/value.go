// Package value models the dynamic values that cross the boundary between
// script code and the host.
//
// A [Value] is a tagged union: its [Kind] says which accessor is meaningful.
// Host functions inspect kinds once, at the boundary, and convert into typed
// Go values from there on.
package value

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/caffeineduck/hostasync/loop"
)

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindBuffer
	KindArray
	KindObject
	KindFunction
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBool:      "boolean",
	KindNumber:    "number",
	KindString:    "string",
	KindBuffer:    "buffer",
	KindArray:     "array",
	KindObject:    "object",
	KindFunction:  "function",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Function is a script-callable value. It must only be invoked on the loop
// goroutine, which is why it takes the loop environment explicitly.
type Function func(env *loop.Env, args ...Value)

// Value is a dynamic script value. The zero Value is undefined.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	buf  []byte
	arr  []Value
	obj  map[string]Value
	fn   Function
}

func Undefined() Value { return Value{} }

func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// Buffer returns a buffer value holding a copy of data.
func Buffer(data []byte) Value {
	return Value{kind: KindBuffer, buf: slices.Clone(data)}
}

// Array returns an array value holding a copy of items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: slices.Clone(items)}
}

// Object returns an object value. The map is copied.
func Object(fields map[string]Value) Value {
	obj := make(map[string]Value, len(fields))
	maps.Copy(obj, fields)
	return Value{kind: KindObject, obj: obj}
}

// Func wraps fn as a function value. A nil fn yields undefined.
func Func(fn Function) Value {
	if fn == nil {
		return Value{}
	}
	return Value{kind: KindFunction, fn: fn}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsBoolean() bool   { return v.kind == KindBool }
func (v Value) IsString() bool    { return v.kind == KindString }
func (v Value) IsBuffer() bool    { return v.kind == KindBuffer }
func (v Value) IsArray() bool     { return v.kind == KindArray }
func (v Value) IsObject() bool    { return v.kind == KindObject }
func (v Value) IsFunction() bool  { return v.kind == KindFunction }

// IsObjectLike reports whether v is a non-primitive value. Arrays, buffers
// and functions qualify but carry no named fields.
func (v Value) IsObjectLike() bool {
	switch v.kind {
	case KindObject, KindArray, KindBuffer, KindFunction:
		return true
	}
	return false
}

// Bool returns the boolean payload; false for any other kind.
func (v Value) Bool() bool { return v.b }

// Str returns the string payload; "" for any other kind.
func (v Value) Str() string { return v.s }

// Bytes returns the buffer payload. Callers must not modify it.
func (v Value) Bytes() []byte { return v.buf }

// Len returns the number of elements of an array value.
func (v Value) Len() int { return len(v.arr) }

// Index returns element i of an array value, or undefined when out of range.
func (v Value) Index(i int) Value {
	if i < 0 || i >= len(v.arr) {
		return Value{}
	}
	return v.arr[i]
}

// Function returns the callable payload, or nil.
func (v Value) Function() Function { return v.fn }

// Has reports whether an object value carries key.
func (v Value) Has(key string) bool {
	_, ok := v.obj[key]
	return ok
}

// Get returns the field key of an object value.
func (v Value) Get(key string) (Value, bool) {
	f, ok := v.obj[key]
	return f, ok
}

// Keys returns the sorted field names of an object value.
func (v Value) Keys() []string {
	return slices.Sorted(maps.Keys(v.obj))
}

// Call invokes a function value. Calling a non-function is a no-op.
func (v Value) Call(env *loop.Env, args ...Value) {
	if v.fn != nil {
		v.fn(env, args...)
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBuffer:
		return fmt.Sprintf("<buffer %d bytes>", len(v.buf))
	case KindArray:
		return fmt.Sprintf("<array %d items>", len(v.arr))
	case KindObject:
		return fmt.Sprintf("<object %v>", v.Keys())
	default:
		return v.kind.String()
	}
}
