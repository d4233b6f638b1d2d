package node

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
)

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	p, ok := n.(Parent)
	if !ok || p.IsVoid() {
		return
	}
	for _, c := range *p.list() {
		Walk(c, fn)
	}
}

// FindAll returns every element under root (root included) for which match
// returns true, in document order.
func FindAll(root Node, match func(*Element) bool) []*Element {
	var out []*Element
	Walk(root, func(n Node) bool {
		if e, ok := n.(*Element); ok && match(e) {
			out = append(out, e)
		}
		return true
	})
	return out
}

// Find returns the first element under root with the given tag.
func Find(root Node, tag string) *Element {
	var found *Element
	Walk(root, func(n Node) bool {
		if found != nil {
			return false
		}
		if e, ok := n.(*Element); ok && e.Tag == tag {
			found = e
			return false
		}
		return true
	})
	return found
}

// Equal reports whether a and b are structurally equal: same node types,
// tags, attributes, literal contents, positions and children, recursively.
// Parent references and context bags are ignored.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Document:
		y, ok := b.(*Document)
		return ok && x.Position == y.Position && equalChildren(x.children, y.children)
	case *Element:
		y, ok := b.(*Element)
		if !ok || x.Tag != y.Tag || x.Position != y.Position || x.void != y.void {
			return false
		}
		if len(x.Attrs) != len(y.Attrs) || (len(x.Attrs) > 0 && !reflect.DeepEqual(x.Attrs, y.Attrs)) {
			return false
		}
		return equalChildren(x.children, y.children)
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.Kind == y.Kind && x.Content == y.Content && x.Position == y.Position
	}
	return a == nil && b == nil
}

func equalChildren(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Pretty returns a line-oriented dump of the tree, for debugging and test
// failure messages.
func Pretty(n Node) string {
	var buf bytes.Buffer
	ppNode(&buf, 0, n)
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	buf.WriteString(strings.Repeat(" ", indent))
	switch t := n.(type) {
	case *Document:
		buf.WriteString("Document\n")
		for _, c := range t.children {
			ppNode(buf, indent+2, c)
		}
	case *Element:
		fmt.Fprintf(buf, "Element(%s", t.Tag)
		for _, a := range t.Attrs {
			fmt.Fprintf(buf, " %s=%#v", a.Key, a.Value)
		}
		if t.void {
			buf.WriteString(" void")
		}
		fmt.Fprintf(buf, ") %s\n", t.Position)
		for _, c := range t.children {
			ppNode(buf, indent+2, c)
		}
	case *Literal:
		label := "Text"
		if t.Kind == Comment {
			label = "Comment"
		}
		fmt.Fprintf(buf, "%s(%q) %s\n", label, t.Content, t.Position)
	default:
		fmt.Fprintf(buf, "%T\n", n)
	}
}
