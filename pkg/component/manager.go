// Package component registers reusable markup components and substitutes
// them into documents.
//
// A component is a piece of hypermark source. Its top-level <style>,
// <script> and <starlark> elements are split off at registration; the
// remaining top-level nodes form the body that replaces every use of the
// component's tag. Manager is safe for concurrent use, but registering
// while a compile that uses the manager is running gives undefined
// results.
package component

import (
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/script"
)

// Extension is the file extension of component sources.
const Extension = ".hml"

// ChildrenName is the binding holding a copy of the caller's children.
const ChildrenName = "children"

// Manager is the component registry. It also owns the fragment cache.
type Manager struct {
	logger *slog.Logger
	eval   script.Evaluator
	defs   map[string]*Definition
	cache  *Cache
	mu     sync.RWMutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEvaluator sets the evaluator used for definition script regions and
// for interpolating slot content.
func WithEvaluator(ev script.Evaluator) ManagerOption {
	return func(m *Manager) { m.eval = ev }
}

func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager returns an empty registry using a Starlark evaluator unless
// another one is given.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		logger: slog.Default(),
		defs:   map[string]*Definition{},
		cache:  NewCache(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.eval == nil {
		m.eval = script.NewStarlark(script.WithLogger(m.logger))
	}
	return m
}

// Evaluator returns the manager's evaluator.
func (m *Manager) Evaluator() script.Evaluator { return m.eval }

// Register parses src and registers it under name, replacing any
// previous definition of that name.
func (m *Manager) Register(name, src string) error {
	return m.register(name, "", src)
}

// RegisterFile registers the component at path under the name derived
// from its location below root.
func (m *Manager) RegisterFile(path, root string) error {
	name, err := NameFromPath(path, root)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return diag.WithFile(diag.Resource(err, "reading component"), path)
	}
	return m.register(name, path, string(b))
}

// RegisterDir registers every component file below root. It returns the
// registered names.
func (m *Manager) RegisterDir(root string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), Extension) {
			return nil
		}
		if err := m.RegisterFile(path, root); err != nil {
			return err
		}
		name, _ := NameFromPath(path, root)
		names = append(names, name)
		return nil
	})
	if err != nil {
		return names, fmt.Errorf("registering components in %s: %w", root, err)
	}
	return names, nil
}

func (m *Manager) register(name, path, src string) error {
	def, err := parseDefinition(name, path, src, m.eval)
	if err != nil {
		return err
	}
	m.mu.Lock()
	_, replaced := m.defs[name]
	m.defs[name] = def
	m.mu.Unlock()
	m.logger.Debug("registered component", "name", name, "scope", def.Scope, "replaced", replaced)
	return nil
}

// Unregister removes a component. The fragment cache is left alone.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defs[name]; !ok {
		return fmt.Errorf("component %s: %w", name, diag.ErrNotFound)
	}
	delete(m.defs, name)
	return nil
}

func (m *Manager) Get(name string) (*Definition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.defs[name]
	return d, ok
}

func (m *Manager) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Names returns the registered names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.defs))
}

// Cache returns the fragment cache.
func (m *Manager) Cache() *Cache { return m.cache }

// ResetCache empties the fragment cache.
func (m *Manager) ResetCache() { m.cache.Reset() }

// Substitute replaces el, in place, by an instance of def and returns the
// instance's wrapper element.
//
// attrs holds the evaluated attribute values of el, keyed without any ':'
// prefix. Values whose key is a declared prop override the prop default;
// plain attributes that are not props are copied onto the wrapper.
//
// caller is every name visible at el, compile-wide bindings included. The
// children of el keep seeing it inside the component. A nil caller means
// node.ScopeOf(el).
func (m *Manager) Substitute(el *node.Element, def *Definition, attrs, caller node.Context) (*node.Element, error) {
	parent := el.Parent()
	if parent == nil {
		return nil, diag.Internal("component %s has no parent", def.Name)
	}
	if caller == nil {
		caller = node.ScopeOf(el)
	}

	props := def.Props.Clone()
	for k := range def.Props {
		if v, ok := attrs[k]; ok {
			props[k] = v
		}
	}

	var children []node.Node
	if !el.IsVoid() {
		children, _ = el.Children()
	}
	// Caller content keeps the caller's bindings inside the component,
	// both in slots and in the children value.
	for _, c := range children {
		if err := m.pinScope(c, caller); err != nil {
			return nil, err
		}
	}
	copies := make(node.NodesValue, len(children))
	for i, c := range children {
		copies[i] = c.Clone()
	}

	wrapper := node.NewElement("div", node.NewAttributes(ScopeAttr, def.Scope))
	wrapper.Position = el.Position
	for _, a := range el.Attrs {
		if _, isProp := def.Props[a.Key]; isProp || strings.HasPrefix(a.Key, ":") || strings.HasPrefix(a.Key, "@") {
			continue
		}
		if a.Key == ScopeAttr || a.Key == SlotAttr {
			continue
		}
		wrapper.Attrs.Set(a.Key, a.Value)
	}
	// Props and the definition context are bound on the wrapper so every
	// cloned node sees them.
	wrapper.Context = def.Context.Merge(props, node.Context{ChildrenName: copies})
	for _, n := range def.Body {
		if err := wrapper.Append(n.Clone()); err != nil {
			return nil, err
		}
	}

	slots, err := findSlots(wrapper, def.Name)
	if err != nil {
		return nil, diag.WithFile(err, def.Path)
	}
	unused, err := bindSlots(slots, partition(children))
	if err != nil {
		return nil, err
	}
	if len(unused) > 0 {
		m.logger.Debug("caller content without a slot dropped", "component", def.Name, "slots", unused)
	}

	if err := parent.Replace(el, wrapper); err != nil {
		return nil, err
	}
	if m.cache.Add(def.Name, def.Fragments()) {
		m.logger.Debug("cached component fragments", "component", def.Name)
	}
	return wrapper, nil
}

// pinScope binds scope on a caller element and resolves interpolations in
// caller text, which has no element of its own to carry bindings.
func (m *Manager) pinScope(n node.Node, scope node.Context) error {
	switch t := n.(type) {
	case *node.Element:
		t.Context = scope.Merge(t.Context)
	case *node.Literal:
		if t.Kind != node.Text || t.Interpolated || !script.HasInterpolation(t.Content) {
			return nil
		}
		out, err := script.Interpolate(m.eval, t.Content, "text", scope)
		if err != nil {
			return diag.At(err, t.Position.Start.Line, t.Position.Start.Column)
		}
		t.Content = out
		t.Interpolated = true
	}
	return nil
}
