package script

import (
	"html"
	"strings"

	"go.starlark.net/starlark"
)

// Builtins returns the functions available to every evaluation in
// addition to the Starlark universe. print is provided by the universe and
// routed to the evaluator's logger.
func Builtins() starlark.StringDict {
	return starlark.StringDict{
		"escape": starlark.NewBuiltin("escape", escape),
		"join":   starlark.NewBuiltin("join", join),
	}
}

// escape(x) returns str(x) with HTML special characters escaped.
func escape(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	return starlark.String(html.EscapeString(str(x))), nil
}

// join(items, sep="") joins the string form of every item.
func join(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var items starlark.Iterable
	sep := ""
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "items", &items, "sep?", &sep); err != nil {
		return nil, err
	}
	var parts []string
	it := items.Iterate()
	defer it.Done()
	var x starlark.Value
	for it.Next(&x) {
		parts = append(parts, str(x))
	}
	return starlark.String(strings.Join(parts, sep)), nil
}

// str is Starlark's str(): strings are returned without quotes.
func str(x starlark.Value) string {
	if s, ok := starlark.AsString(x); ok {
		return s
	}
	return x.String()
}
