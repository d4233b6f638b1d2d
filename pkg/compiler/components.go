package compiler

import (
	"strings"

	"github.com/neurodesk/hypermark/pkg/node"
)

// substituteComponents replaces every registered component tag among the
// children of scope by an instance of the component.
func substituteComponents(c *Compilation, scope node.Parent) error {
	if c.Components == nil {
		return nil
	}
	for _, k := range children(scope) {
		el, ok := k.(*node.Element)
		if !ok {
			continue
		}
		def, ok := c.Components.Get(el.Tag)
		if !ok {
			continue
		}
		attrs, err := c.componentAttrs(el)
		if err != nil {
			return err
		}
		if _, err := c.Components.Substitute(el, def, attrs, c.Scope(el)); err != nil {
			return c.locate(err, el)
		}
		c.MarkUsed(def.Name)
	}
	return nil
}

// componentAttrs evaluates the attributes of a component tag. Expression
// attributes keep the type of their value.
func (c *Compilation) componentAttrs(el *node.Element) (node.Context, error) {
	attrs := node.Context{}
	for _, a := range el.Attrs {
		switch {
		case strings.HasPrefix(a.Key, ":"):
			code, _ := a.Value.(string)
			v, err := c.Eval(code, a.Key+" of "+describe(el), el)
			if err != nil {
				return nil, err
			}
			attrs[a.Key[1:]] = v
		case strings.HasPrefix(a.Key, "@"):
		default:
			attrs[a.Key] = node.FromGo(a.Value)
		}
	}
	return attrs, nil
}
