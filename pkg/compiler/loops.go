package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/validator"
)

const (
	// LoopTag repeats its children once per item of a sequence.
	LoopTag = "For"
	// EachAttr holds "captures in source".
	EachAttr = "each"
	// LoopErrorName is bound on the fallback branches of a loop that did
	// not run: the error message, or None for an empty sequence.
	LoopErrorName = "_loop_error"
)

var eachPattern = regexp.MustCompile(`(?s)^\s*(.+?)\s+in\s+(.+?)\s*$`)

// parseEach splits a loop header into capture names and source code.
func parseEach(each string) ([]string, string, error) {
	m := eachPattern.FindStringSubmatch(each)
	if m == nil {
		return nil, "", fmt.Errorf("%s=%q is not of the form \"names in expression\"", EachAttr, each)
	}
	list := strings.TrimSpace(m[1])
	if strings.HasPrefix(list, "(") && strings.HasSuffix(list, ")") {
		list = list[1 : len(list)-1]
	}
	var names []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := validator.Identifier(name, "loop capture"); err != nil {
			return nil, "", err
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, "", fmt.Errorf("%s=%q captures nothing", EachAttr, each)
	}
	if err := validator.NoDuplicates(names, "loop captures"); err != nil {
		return nil, "", err
	}
	return names, m[2], nil
}

// bindCaptures binds one loop item to the capture names. Several names
// unpack a list of the same length.
func bindCaptures(names []string, item node.Value) (node.Context, error) {
	if len(names) == 1 {
		return node.Context{names[0]: item}, nil
	}
	list, ok := item.(node.ListValue)
	if !ok {
		return nil, fmt.Errorf("cannot unpack %T into %d names", item, len(names))
	}
	if len(list) != len(names) {
		return nil, fmt.Errorf("cannot unpack %d values into %d names", len(list), len(names))
	}
	ctx := make(node.Context, len(names))
	for i, name := range names {
		ctx[name] = list[i]
	}
	return ctx, nil
}

// expandLoops replaces every loop among the children of scope by one
// copy of its children per item. A loop that fails or has nothing to
// iterate hands over to the @elif/@else siblings following it.
func expandLoops(c *Compilation, scope node.Parent) error {
	// Expanded copies are examined again so nested loops unroll in the
	// same pass.
	for i := 0; i < scope.Len(); {
		el, ok := children(scope)[i].(*node.Element)
		if !ok || el.Tag != LoopTag || isFallbackMarker(el) {
			i++
			continue
		}
		if err := c.expandLoop(scope, el); err != nil {
			return err
		}
	}
	return nil
}

func isFallbackMarker(el *node.Element) bool {
	v, ok := el.Attrs.Get(IfAttr)
	return ok && v == false && !el.Attrs.Has(EachAttr)
}

func (c *Compilation) expandLoop(scope node.Parent, el *node.Element) error {
	if hasCondition(el) {
		return c.structural(el, "<%s> cannot carry a condition; wrap it in <%s %s=...>", LoopTag, WrapperTag, IfAttr)
	}
	each, ok := el.Attrs.String(EachAttr)
	if !ok {
		return c.structural(el, "<%s> needs an %s attribute", LoopTag, EachAttr)
	}
	names, source, err := parseEach(each)
	if err != nil {
		return c.structural(el, "<%s>: %w", LoopTag, err)
	}

	items, err := c.loopItems(el, names, source)
	if err != nil || len(items) == 0 {
		return c.loopFallback(scope, el, err)
	}

	at := scope.Index(el)
	body := children(el)
	var out []node.Node
	for _, binds := range items {
		binds = el.Context.Merge(binds)
		for _, n := range body {
			clone := n.Clone()
			switch t := clone.(type) {
			case *node.Element:
				t.Context = binds.Merge(t.Context)
				if t.Tag == WrapperTag && !hasCondition(t) {
					kids, err := c.spliceClone(t, el)
					if err != nil {
						return err
					}
					out = append(out, kids...)
					continue
				}
			case *node.Literal:
				if err := c.resolveText(t, el, binds); err != nil {
					return err
				}
			}
			out = append(out, clone)
		}
	}
	if err := scope.Replace(el, out...); err != nil {
		return err
	}
	for _, sib := range fallbackChain(scope, at+len(out)) {
		if err := scope.Remove(sib); err != nil {
			return err
		}
	}
	return nil
}

// loopItems evaluates the loop source and binds every item.
func (c *Compilation) loopItems(el *node.Element, names []string, source string) ([]node.Context, error) {
	v, err := c.Eval(source, "<"+LoopTag+"> source", el)
	if err != nil {
		return nil, err
	}
	seq, err := node.Iterate(v)
	if err != nil {
		return nil, c.structural(el, "<%s>: %w", LoopTag, err)
	}
	out := make([]node.Context, 0, len(seq))
	for _, item := range seq {
		binds, err := bindCaptures(names, item)
		if err != nil {
			return nil, c.structural(el, "<%s>: %w", LoopTag, err)
		}
		out = append(out, binds)
	}
	return out, nil
}

// spliceClone flattens a wrapper produced by a loop iteration. Its element
// children inherit its bindings and its text is resolved immediately.
func (c *Compilation) spliceClone(w *node.Element, loop *node.Element) ([]node.Node, error) {
	kids := children(w)
	for _, k := range kids {
		switch t := k.(type) {
		case *node.Element:
			t.Context = w.Context.Merge(t.Context)
		case *node.Literal:
			if err := c.resolveText(t, loop, w.Context); err != nil {
				return nil, err
			}
		}
	}
	for _, k := range kids {
		if err := w.Remove(k); err != nil {
			return nil, err
		}
	}
	return kids, nil
}

// loopFallback turns a loop that produced nothing into a false chain head
// so the following @elif/@else branches resolve as usual.
func (c *Compilation) loopFallback(scope node.Parent, el *node.Element, cause error) error {
	var reason node.Value = node.NoneValue{}
	if cause != nil {
		reason = node.StringValue(cause.Error())
		c.Logger.Warn("loop failed, using fallback", "file", c.File, "at", el.Position.Start.String(), "error", cause)
	}
	marker := node.NewElement(LoopTag, node.NewAttributes(IfAttr, false))
	marker.Position = el.Position
	if err := scope.Replace(el, marker); err != nil {
		return err
	}
	for _, sib := range fallbackChain(scope, scope.Index(marker)+1) {
		sib.Bind(LoopErrorName, reason)
	}
	return nil
}

// fallbackChain returns the @elif/@else elements among the children of
// scope from index start on, skipping comments.
func fallbackChain(scope node.Parent, start int) []*node.Element {
	kids := children(scope)
	if start < 0 || start > len(kids) {
		return nil
	}
	var chain []*node.Element
	for _, k := range kids[start:] {
		if l, ok := k.(*node.Literal); ok && l.Kind == node.Comment {
			continue
		}
		el, ok := k.(*node.Element)
		if !ok {
			break
		}
		if el.Attrs.Has(ElifAttr) {
			chain = append(chain, el)
			continue
		}
		if el.Attrs.Has(ElseAttr) {
			chain = append(chain, el)
		}
		break
	}
	return chain
}
