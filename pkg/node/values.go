package node

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"unicode/utf8"
)

// Value is a value bound in an element's local context or produced by a
// script evaluation. The set of implementations is closed.
type Value interface {
	String() string
	Truth() bool
	value()
}

// NoneValue represents the absence of a value.
type NoneValue struct{}

func (NoneValue) String() string { return "" }
func (NoneValue) Truth() bool    { return false }
func (NoneValue) value()         {}

// BoolValue wraps a boolean.
type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b BoolValue) Truth() bool { return bool(b) }
func (BoolValue) value()        {}

// IntValue wraps a 64-bit integer.
type IntValue int64

func (i IntValue) String() string { return fmt.Sprintf("%d", int64(i)) }
func (i IntValue) Truth() bool    { return int64(i) != 0 }
func (IntValue) value()           {}

// FloatValue wraps a 64-bit float.
type FloatValue float64

func (f FloatValue) String() string { return fmt.Sprintf("%v", float64(f)) }
func (f FloatValue) Truth() bool    { return float64(f) != 0 }
func (FloatValue) value()           {}

// StringValue wraps a string.
type StringValue string

func (s StringValue) String() string { return string(s) }
func (s StringValue) Truth() bool    { return len(string(s)) > 0 }
func (StringValue) value()           {}

// ListValue wraps a list of values.
type ListValue []Value

func (l ListValue) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}
func (l ListValue) Truth() bool { return len(l) > 0 }
func (ListValue) value()        {}

// DictValue wraps a string-keyed dictionary of values.
type DictValue map[string]Value

func (d DictValue) String() string {
	parts := make([]string, 0, len(d))
	for _, k := range slices.Sorted(maps.Keys(d)) {
		parts = append(parts, k+"="+d[k].String())
	}
	return strings.Join(parts, " ")
}
func (d DictValue) Truth() bool { return len(d) > 0 }
func (DictValue) value()        {}

// NodesValue is a list of tree nodes, used to hand markup to components.
type NodesValue []Node

func (n NodesValue) String() string { return fmt.Sprintf("<%d nodes>", len(n)) }
func (n NodesValue) Truth() bool    { return len(n) > 0 }
func (NodesValue) value()           {}

// HostValue carries a value native to a script evaluator, such as a
// function, through context bags without conversion.
type HostValue struct{ V any }

func (h HostValue) String() string { return fmt.Sprint(h.V) }
func (h HostValue) Truth() bool    { return h.V != nil }
func (HostValue) value()           {}

// Context is a local binding bag.
type Context map[string]Value

// Clone returns a shallow copy. A nil context clones to nil.
func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	return maps.Clone(c)
}

// Merge returns a new context holding c overridden by each of others.
func (c Context) Merge(others ...Context) Context {
	out := make(Context, len(c))
	maps.Copy(out, c)
	for _, o := range others {
		maps.Copy(out, o)
	}
	return out
}

// NewContextFromAny converts a map[string]any into a Context.
func NewContextFromAny(m map[string]any) Context {
	ctx := Context{}
	for k, v := range m {
		ctx[k] = FromGo(v)
	}
	return ctx
}

// ScopeOf merges the context bags on the path from the root down to n.
// Bindings closer to n shadow outer ones. A literal sees its parent's scope.
func ScopeOf(n Node) Context {
	var chain []Context
	for cur := n; cur != nil; {
		if e, ok := cur.(*Element); ok && len(e.Context) > 0 {
			chain = append(chain, e.Context)
		}
		p := cur.Parent()
		if p == nil {
			break
		}
		cur = p
	}
	out := Context{}
	for i := len(chain) - 1; i >= 0; i-- {
		maps.Copy(out, chain[i])
	}
	return out
}

// FromGo converts a Go value to a Value.
func FromGo(v any) Value {
	if v == nil {
		return NoneValue{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case Node:
		return NodesValue{t}
	case []Node:
		return NodesValue(t)
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case uint:
		return IntValue(int64(t))
	case float32:
		return FloatValue(float64(t))
	case float64:
		return FloatValue(t)
	case []byte:
		return StringValue(string(t))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make(ListValue, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := DictValue{}
			it := rv.MapRange()
			for it.Next() {
				out[it.Key().String()] = FromGo(it.Value().Interface())
			}
			return out
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NoneValue{}
		}
		return FromGo(rv.Elem().Interface())
	}
	return StringValue(fmt.Sprintf("%v", v))
}

// ToGo converts a Value back to plain Go values, preserving types.
func ToGo(v Value) any {
	switch t := v.(type) {
	case StringValue:
		return string(t)
	case IntValue:
		return int64(t)
	case FloatValue:
		return float64(t)
	case BoolValue:
		return bool(t)
	case ListValue:
		out := make([]any, 0, len(t))
		for _, it := range t {
			out = append(out, ToGo(it))
		}
		return out
	case DictValue:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = ToGo(vv)
		}
		return out
	case NodesValue:
		return []Node(t)
	case HostValue:
		return t.V
	case NoneValue, nil:
		return nil
	default:
		return v.String()
	}
}

// Iterate converts a Value into the sequence a loop walks over: list items
// in order, dictionary keys sorted, string runes. None iterates zero times.
func Iterate(v Value) ([]Value, error) {
	switch t := v.(type) {
	case NoneValue, nil:
		return nil, nil
	case StringValue:
		s := string(t)
		var out []Value
		for len(s) > 0 {
			r, size := utf8.DecodeRuneInString(s)
			s = s[size:]
			out = append(out, StringValue(string(r)))
		}
		return out, nil
	case ListValue:
		return slices.Clone([]Value(t)), nil
	case DictValue:
		out := make([]Value, 0, len(t))
		for _, k := range slices.Sorted(maps.Keys(t)) {
			out = append(out, StringValue(k))
		}
		return out, nil
	case NodesValue:
		out := make([]Value, 0, len(t))
		for _, n := range t {
			out = append(out, NodesValue{n})
		}
		return out, nil
	}
	return nil, fmt.Errorf("not iterable: %T", v)
}
