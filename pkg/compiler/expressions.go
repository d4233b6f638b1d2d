package compiler

import (
	"html"
	"strings"

	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/parser"
	"github.com/neurodesk/hypermark/pkg/script"
)

// evaluateExpressions resolves the expression attributes and {{ }} spans
// of the children of scope. Attributes of component tags that start with
// ':' are left for the components step, which passes their values on
// as they are.
func evaluateExpressions(c *Compilation, scope node.Parent) error {
	if el, ok := scope.(*node.Element); ok && parser.IsRawText(el.Tag) {
		return nil
	}
	for _, k := range children(scope) {
		switch t := k.(type) {
		case *node.Element:
			if err := c.evaluateAttrs(t); err != nil {
				return err
			}
		case *node.Literal:
			if err := c.evaluateText(scope, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Compilation) evaluateAttrs(el *node.Element) error {
	isComponent := c.Components != nil && c.Components.Has(el.Tag)
	out := make(node.Attributes, 0, len(el.Attrs))
	for _, a := range el.Attrs {
		s, isString := a.Value.(string)
		switch {
		case strings.HasPrefix(a.Key, ":") && !isComponent:
			v, err := c.Eval(s, a.Key+" of "+describe(el), el)
			if err != nil {
				return err
			}
			name := a.Key[1:]
			switch t := v.(type) {
			case node.NoneValue:
				continue
			case node.BoolValue:
				out.Set(name, bool(t))
			default:
				out.Set(name, html.EscapeString(script.Stringify(v)))
			}
		case strings.HasPrefix(a.Key, "@") || !isString || !script.HasInterpolation(s):
			out.Set(a.Key, a.Value)
		default:
			v, err := c.Interpolate(s, a.Key+" of "+describe(el), el, nil)
			if err != nil {
				return err
			}
			out.Set(a.Key, v)
		}
	}
	el.Attrs = out
	return nil
}

// evaluateText interpolates a text child of scope. Text that is a single
// expression yielding nodes is replaced by copies of those nodes.
func (c *Compilation) evaluateText(scope node.Parent, l *node.Literal) error {
	if l.Kind != node.Text || l.Interpolated || !script.HasInterpolation(l.Content) {
		return nil
	}
	if code, ok := script.SoleExpression(l.Content); ok {
		v, err := c.Eval(code, "text", l)
		if err != nil {
			return err
		}
		if nodes, ok := v.(node.NodesValue); ok {
			clones := make([]node.Node, len(nodes))
			for i, n := range nodes {
				clones[i] = n.Clone()
			}
			return scope.Replace(l, clones...)
		}
		l.Content = html.EscapeString(script.Stringify(v))
		l.Interpolated = true
		return nil
	}
	return c.resolveText(l, l, nil)
}
