package compiler

import (
	"github.com/neurodesk/hypermark/pkg/node"
)

// Condition attributes.
const (
	IfAttr   = "@if"
	ElifAttr = "@elif"
	ElseAttr = "@else"
)

var conditionAttrs = []string{IfAttr, ElifAttr, ElseAttr}

func hasCondition(el *node.Element) bool {
	for _, a := range conditionAttrs {
		if el.Attrs.Has(a) {
			return true
		}
	}
	return false
}

// conditionOf returns the single condition attribute of el, or "".
func (c *Compilation) conditionOf(el *node.Element) (string, error) {
	found := ""
	for _, a := range conditionAttrs {
		if !el.Attrs.Has(a) {
			continue
		}
		if found != "" {
			return "", c.structural(el, "%s has both %s and %s", describe(el), found, a)
		}
		found = a
	}
	return found, nil
}

// resolveConditionals resolves every @if/@elif/@else chain among the
// children of scope. The first true branch stays, without its condition
// attribute, and the rest of the chain is removed.
func resolveConditionals(c *Compilation, scope node.Parent) error {
	kids := children(scope)
	for i := 0; i < len(kids); {
		el, ok := kids[i].(*node.Element)
		if !ok {
			i++
			continue
		}
		cond, err := c.conditionOf(el)
		if err != nil {
			return err
		}
		switch cond {
		case "":
			i++
			continue
		case ElifAttr, ElseAttr:
			return c.structural(el, "%s on %s does not follow an %s", cond, describe(el), IfAttr)
		}

		chain, next, err := c.chainFrom(kids, i)
		if err != nil {
			return err
		}
		if err := c.resolveChain(scope, chain); err != nil {
			return err
		}
		i = next
	}
	return nil
}

// chainFrom collects the chain headed by kids[start] and returns the index
// following it. Comments between branches are skipped.
func (c *Compilation) chainFrom(kids []node.Node, start int) ([]*node.Element, int, error) {
	chain := []*node.Element{kids[start].(*node.Element)}
	i := start + 1
	for ; i < len(kids); i++ {
		if l, ok := kids[i].(*node.Literal); ok && l.Kind == node.Comment {
			continue
		}
		el, ok := kids[i].(*node.Element)
		if !ok {
			break
		}
		cond, err := c.conditionOf(el)
		if err != nil {
			return nil, 0, err
		}
		if cond == ElifAttr {
			chain = append(chain, el)
			continue
		}
		if cond == ElseAttr {
			chain = append(chain, el)
			i++
		}
		break
	}
	return chain, i, nil
}

func (c *Compilation) resolveChain(scope node.Parent, chain []*node.Element) error {
	var chosen *node.Element
	for _, el := range chain {
		if el.Attrs.Has(ElseAttr) {
			chosen = el
			break
		}
		ok, err := c.test(el)
		if err != nil {
			return err
		}
		if ok {
			chosen = el
			break
		}
	}
	for _, el := range chain {
		if el != chosen {
			if err := scope.Remove(el); err != nil {
				return err
			}
			continue
		}
		for _, a := range conditionAttrs {
			el.Attrs.Delete(a)
		}
	}
	return nil
}

// test evaluates the condition of one @if or @elif branch. Boolean
// attribute values are taken as they are.
func (c *Compilation) test(el *node.Element) (bool, error) {
	key := IfAttr
	if !el.Attrs.Has(key) {
		key = ElifAttr
	}
	raw, _ := el.Attrs.Get(key)
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	code, _ := raw.(string)
	v, err := c.Eval(code, key+" of "+describe(el), el)
	if err != nil {
		return false, err
	}
	b, ok := v.(node.BoolValue)
	if !ok {
		return false, c.structural(el, "%s=%q on %s gave %T, not a bool", key, code, describe(el), v)
	}
	return bool(b), nil
}
