package script

import (
	"fmt"
	"maps"
	"slices"

	"github.com/neurodesk/hypermark/pkg/node"
	"go.starlark.net/starlark"
)

// ToStarlark converts a context value to a Starlark value.
func ToStarlark(val node.Value) starlark.Value {
	if val == nil {
		return starlark.None
	}

	switch v := val.(type) {
	case node.StringValue:
		return starlark.String(string(v))
	case node.IntValue:
		return starlark.MakeInt64(int64(v))
	case node.FloatValue:
		return starlark.Float(float64(v))
	case node.BoolValue:
		return starlark.Bool(bool(v))
	case node.ListValue:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ToStarlark(item)
		}
		return starlark.NewList(items)
	case node.DictValue:
		dict := starlark.NewDict(len(v))
		for _, key := range slices.Sorted(maps.Keys(v)) {
			_ = dict.SetKey(starlark.String(key), ToStarlark(v[key]))
		}
		return dict
	case node.NodesValue:
		return Nodes(v)
	case node.HostValue:
		if sv, ok := v.V.(starlark.Value); ok {
			return sv
		}
		return starlark.String(v.String())
	case node.NoneValue:
		return starlark.None
	default:
		return starlark.String(val.String())
	}
}

// FromStarlark converts a Starlark value to a context value. Callables and
// other values without a structural counterpart are carried as HostValue.
func FromStarlark(val starlark.Value) node.Value {
	if val == nil || val == starlark.None {
		return node.NoneValue{}
	}

	switch v := val.(type) {
	case starlark.String:
		return node.StringValue(string(v))
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return node.IntValue(i)
		}
		// Very large integers keep their decimal form.
		return node.StringValue(v.String())
	case starlark.Float:
		return node.FloatValue(float64(v))
	case starlark.Bool:
		return node.BoolValue(bool(v))
	case *starlark.List:
		items := make(node.ListValue, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = FromStarlark(v.Index(i))
		}
		return items
	case starlark.Tuple:
		items := make(node.ListValue, len(v))
		for i, it := range v {
			items[i] = FromStarlark(it)
		}
		return items
	case *starlark.Dict:
		dict := make(node.DictValue, v.Len())
		for _, item := range v.Items() {
			if key, ok := item[0].(starlark.String); ok {
				dict[string(key)] = FromStarlark(item[1])
			} else {
				dict[item[0].String()] = FromStarlark(item[1])
			}
		}
		return dict
	case Nodes:
		return node.NodesValue(v)
	default:
		return node.HostValue{V: val}
	}
}

func toStringDict(ctx node.Context) starlark.StringDict {
	out := make(starlark.StringDict, len(ctx))
	for k, v := range ctx {
		out[k] = ToStarlark(v)
	}
	return out
}

// Nodes exposes a list of markup nodes to scripts. It supports len(),
// indexing, iteration and truth tests; every element is itself a Nodes of
// length one.
type Nodes []node.Node

var (
	_ starlark.Indexable = Nodes(nil)
	_ starlark.Iterable  = Nodes(nil)
)

func (n Nodes) String() string        { return fmt.Sprintf("<nodes %d>", len(n)) }
func (n Nodes) Type() string          { return "nodes" }
func (n Nodes) Freeze()               {}
func (n Nodes) Truth() starlark.Bool  { return len(n) > 0 }
func (n Nodes) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: nodes") }
func (n Nodes) Len() int              { return len(n) }
func (n Nodes) Index(i int) starlark.Value {
	return Nodes{n[i]}
}

func (n Nodes) Iterate() starlark.Iterator { return &nodesIterator{nodes: n} }

type nodesIterator struct {
	nodes Nodes
	i     int
}

func (it *nodesIterator) Next(p *starlark.Value) bool {
	if it.i >= len(it.nodes) {
		return false
	}
	*p = Nodes{it.nodes[it.i]}
	it.i++
	return true
}

func (it *nodesIterator) Done() {}
