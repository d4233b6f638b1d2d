// Package script is the boundary between the compiler and embedded code.
//
// The compiler only depends on the Evaluator interface. Starlark is the
// implementation used by default.
package script

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/node"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Evaluator evaluates code fragments against a set of bindings. Both
// methods also return the sorted names of the bindings the code refers to.
// Errors are *diag.Error values of kind diag.KindScript.
type Evaluator interface {
	// Eval evaluates a single expression.
	Eval(code, label string, bindings node.Context) (node.Value, []string, error)
	// Exec runs a block of statements and returns the globals it defines.
	// Names starting with an underscore are not exported.
	Exec(code, label string, bindings node.Context) (node.Context, []string, error)
}

// Starlark evaluates code as Starlark. It keeps no state between calls, so
// a single instance can be shared.
type Starlark struct {
	builtins starlark.StringDict
	opts     *syntax.FileOptions
	logger   *slog.Logger
}

var _ Evaluator = (*Starlark)(nil)

// Option configures a Starlark evaluator.
type Option func(*Starlark)

// WithLogger routes print() output to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Starlark) { s.logger = logger }
}

// WithBuiltin makes value available to every evaluation under name.
func WithBuiltin(name string, value starlark.Value) Option {
	return func(s *Starlark) { s.builtins[name] = value }
}

// NewStarlark creates a Starlark evaluator. Top-level control flow, while
// loops, sets and global reassignment are enabled.
func NewStarlark(opts ...Option) *Starlark {
	s := &Starlark{
		builtins: Builtins(),
		opts: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Starlark) thread(label string) *starlark.Thread {
	return &starlark.Thread{
		Name: label,
		Print: func(_ *starlark.Thread, msg string) {
			s.logger.Info(msg, "source", label)
		},
	}
}

func (s *Starlark) predeclared(bindings node.Context) starlark.StringDict {
	out := make(starlark.StringDict, len(s.builtins)+len(bindings))
	maps.Copy(out, s.builtins)
	maps.Copy(out, toStringDict(bindings))
	return out
}

// Eval evaluates an expression.
func (s *Starlark) Eval(code, label string, bindings node.Context) (node.Value, []string, error) {
	code = strings.TrimSpace(code)
	expr, err := s.opts.ParseExpr(label, code, 0)
	if err != nil {
		return nil, nil, scriptError(err, label, code)
	}
	names := referenced(expr, bindings)

	val, err := starlark.EvalExprOptions(s.opts, s.thread(label), expr, s.predeclared(bindings))
	if err != nil {
		return nil, names, scriptError(err, label, code)
	}
	return FromStarlark(val), names, nil
}

// Exec executes a block of statements.
func (s *Starlark) Exec(code, label string, bindings node.Context) (node.Context, []string, error) {
	f, err := s.opts.Parse(label, code, 0)
	if err != nil {
		return nil, nil, scriptError(err, label, code)
	}
	names := referenced(f, bindings)

	predeclared := s.predeclared(bindings)
	prog, err := starlark.FileProgram(f, predeclared.Has)
	if err != nil {
		return nil, names, scriptError(err, label, code)
	}
	globals, err := prog.Init(s.thread(label), predeclared)
	if err != nil {
		return nil, names, scriptError(err, label, code)
	}

	out := make(node.Context, len(globals))
	for k, v := range globals {
		if strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = FromStarlark(v)
	}
	return out, names, nil
}

// referenced collects the identifiers in n that name a binding.
func referenced(n syntax.Node, bindings node.Context) []string {
	seen := map[string]bool{}
	syntax.Walk(n, func(n syntax.Node) bool {
		if id, ok := n.(*syntax.Ident); ok {
			if _, bound := bindings[id.Name]; bound {
				seen[id.Name] = true
			}
		}
		return true
	})
	return slices.Sorted(maps.Keys(seen))
}

func scriptError(err error, label, code string) error {
	line, col := errorPos(err, label)
	return diag.Script(err, label, code, line, col)
}

// errorPos finds the position inside the evaluated code that err refers
// to. Zero means unknown.
func errorPos(err error, label string) (int, int) {
	var se syntax.Error
	if errors.As(err, &se) {
		return int(se.Pos.Line), int(se.Pos.Col)
	}
	var rl resolve.ErrorList
	if errors.As(err, &rl) && len(rl) > 0 {
		return int(rl[0].Pos.Line), int(rl[0].Pos.Col)
	}
	var ee *starlark.EvalError
	if errors.As(err, &ee) {
		for i := range ee.CallStack {
			fr := ee.CallStack.At(i)
			if fr.Pos.Filename() == label {
				return int(fr.Pos.Line), int(fr.Pos.Col)
			}
		}
	}
	return 0, 0
}
