package node

import (
	"fmt"
	"slices"
)

// Attr is a single attribute. Value holds either a string or a bool.
type Attr struct {
	Key   string
	Value any
}

// IsBool reports whether the attribute carries a boolean value.
func (a Attr) IsBool() bool {
	_, ok := a.Value.(bool)
	return ok
}

// Attributes is an ordered attribute list with map-like accessors. Keys are
// unique.
type Attributes []Attr

// NewAttributes builds attributes from alternating key/value pairs.
func NewAttributes(kv ...any) Attributes {
	var attrs Attributes
	for i := 0; i+1 < len(kv); i += 2 {
		attrs.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return attrs
}

func (a Attributes) index(key string) int {
	return slices.IndexFunc(a, func(at Attr) bool { return at.Key == key })
}

// Has reports whether key is present.
func (a Attributes) Has(key string) bool { return a.index(key) >= 0 }

// Get returns the raw value of key.
func (a Attributes) Get(key string) (any, bool) {
	if i := a.index(key); i >= 0 {
		return a[i].Value, true
	}
	return nil, false
}

// String returns the value of key as a string. Boolean values are rendered
// as "true" or "false".
func (a Attributes) String(key string) (string, bool) {
	v, ok := a.Get(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	}
	return fmt.Sprint(v), true
}

// Set adds or updates key, keeping its original position. Values other than
// string and bool are formatted as strings.
func (a *Attributes) Set(key string, v any) {
	switch v.(type) {
	case string, bool:
	default:
		v = fmt.Sprint(v)
	}
	if i := a.index(key); i >= 0 {
		(*a)[i].Value = v
		return
	}
	*a = append(*a, Attr{Key: key, Value: v})
}

// Delete removes key and reports whether it was present.
func (a *Attributes) Delete(key string) bool {
	i := a.index(key)
	if i < 0 {
		return false
	}
	*a = slices.Delete(*a, i, i+1)
	return true
}

// Rename changes the key of an attribute in place. An existing attribute
// named to is dropped.
func (a *Attributes) Rename(from, to string) {
	i := a.index(from)
	if i < 0 || from == to {
		return
	}
	if j := a.index(to); j >= 0 {
		*a = slices.Delete(*a, j, j+1)
		if j < i {
			i--
		}
	}
	(*a)[i].Key = to
}

// Keys returns the attribute keys in order.
func (a Attributes) Keys() []string {
	keys := make([]string, len(a))
	for i, at := range a {
		keys[i] = at.Key
	}
	return keys
}

// Clone returns a copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	return slices.Clone(a)
}
