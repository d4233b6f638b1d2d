package compiler

import (
	"strings"

	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/script"
)

const (
	// ScriptTag holds document code run once before any other step.
	ScriptTag = "starlark"
	// WrapperTag groups nodes without producing an element.
	WrapperTag = "Wrapper"
)

// scriptRegions runs every script region of the document in order. The
// globals each one exports are visible to later regions and to every
// expression in the document.
func scriptRegions(c *Compilation, scope node.Parent) error {
	regions := node.FindAll(scope, func(e *node.Element) bool {
		return strings.EqualFold(e.Tag, ScriptTag)
	})
	for _, el := range regions {
		if loop := enclosing(el, LoopTag); loop != nil {
			return c.structural(el, "<%s> inside <%s> at %s is not supported; move it to the top level",
				ScriptTag, LoopTag, loop.Position.Start)
		}
		globals, _, err := c.Evaluator.Exec(rawText(el), "<"+ScriptTag+">", c.Scope(el))
		if err != nil {
			return c.locate(err, el)
		}
		c.Bindings = c.Bindings.Merge(globals)
		c.Logger.Debug("ran script region", "at", el.Position.Start.String(), "exported", len(globals))
		if err := el.Parent().Remove(el); err != nil {
			return err
		}
	}
	return nil
}

// enclosing returns the nearest ancestor of n with the given tag.
func enclosing(n node.Node, tag string) *node.Element {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if el, ok := p.(*node.Element); ok && el.Tag == tag {
			return el
		}
	}
	return nil
}

func rawText(el *node.Element) string {
	var sb strings.Builder
	for _, k := range children(el) {
		if l, ok := k.(*node.Literal); ok && l.Kind == node.Text {
			sb.WriteString(l.Content)
		}
	}
	return sb.String()
}

// unwrapWrappers replaces unconditional wrappers among the children of
// scope by their content. Wrappers carrying a condition are left for the
// conditionals step and unwrapped after their content is compiled.
func unwrapWrappers(c *Compilation, scope node.Parent) error {
	for _, k := range children(scope) {
		el, ok := k.(*node.Element)
		if !ok || el.Tag != WrapperTag || hasCondition(el) {
			continue
		}
		if err := c.unwrap(scope, el); err != nil {
			return err
		}
	}
	return nil
}

// unwrap splices the children of a wrapper into scope. Bindings on the
// wrapper move onto its element children, and its text is resolved now
// since text cannot carry bindings of its own.
func (c *Compilation) unwrap(scope node.Parent, el *node.Element) error {
	var kids []node.Node
	if !el.IsVoid() {
		kids, _ = el.Children()
	}
	if len(el.Context) > 0 {
		for _, k := range kids {
			switch t := k.(type) {
			case *node.Element:
				t.Context = el.Context.Merge(t.Context)
			case *node.Literal:
				if err := c.resolveText(t, el, nil); err != nil {
					return err
				}
			}
		}
	}
	return scope.Replace(el, kids...)
}

// resolveText interpolates a text literal in the scope of at. Text that
// was interpolated before is output already and stays as it is.
func (c *Compilation) resolveText(l *node.Literal, at node.Node, extra node.Context) error {
	if l.Kind != node.Text || l.Interpolated || !script.HasInterpolation(l.Content) {
		return nil
	}
	out, err := c.Interpolate(l.Content, "text", at, extra)
	if err != nil {
		return err
	}
	l.Content = out
	l.Interpolated = true
	return nil
}
