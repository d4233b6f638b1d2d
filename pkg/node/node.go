// Package node is the in-memory tree produced by the parser, transformed by
// the compiler and consumed by the renderer.
//
// A parent owns its children through its child list. The back-reference
// returned by Parent is a lookup-only relation kept in sync by every
// structural operation (Append, Insert, Remove, Replace). Void elements have
// no child list at all and every structural operation on them fails with
// diag.ErrVoidElement.
package node

import (
	"slices"

	"github.com/neurodesk/hypermark/pkg/diag"
)

// Node is any node in a document tree.
type Node interface {
	// Parent returns the owning parent, or nil for a detached node or a
	// Document.
	Parent() Parent
	// Pos returns the source span of the node.
	Pos() Position
	// Clone returns a detached deep copy.
	Clone() Node

	setParent(p Parent)
}

// Parent is a node that owns an ordered child list: a Document or an
// Element.
type Parent interface {
	Node

	IsVoid() bool
	Len() int
	Children() ([]Node, error)
	Index(n Node) int
	Append(nodes ...Node) error
	Insert(i int, nodes ...Node) error
	Remove(n Node) error
	RemoveAt(i int) (Node, error)
	Replace(old Node, with ...Node) error

	list() *[]Node
}

// Document is the root container. It never has a parent.
type Document struct {
	Position Position
	children []Node
}

// NewDocument returns a document owning children.
func NewDocument(children ...Node) *Document {
	d := &Document{}
	_ = d.Append(children...)
	return d
}

func (d *Document) Parent() Parent    { return nil }
func (d *Document) Pos() Position     { return d.Position }
func (d *Document) setParent(Parent)  {}
func (d *Document) IsVoid() bool      { return false }
func (d *Document) Len() int          { return len(d.children) }
func (d *Document) list() *[]Node     { return &d.children }
func (d *Document) Index(n Node) int  { return index(d.children, n) }
func (d *Document) Append(nodes ...Node) error {
	return insert(d, len(d.children), nodes)
}

func (d *Document) Children() ([]Node, error) { return slices.Clone(d.children), nil }

func (d *Document) Insert(i int, nodes ...Node) error { return insert(d, i, nodes) }
func (d *Document) Remove(n Node) error               { return remove(d, n) }
func (d *Document) RemoveAt(i int) (Node, error)      { return removeAt(d, i) }
func (d *Document) Replace(old Node, with ...Node) error {
	return replace(d, old, with)
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() Node {
	c := &Document{Position: d.Position}
	for _, ch := range d.children {
		cc := ch.Clone()
		cc.setParent(c)
		c.children = append(c.children, cc)
	}
	return c
}

// Element is a tag with attributes, children and a local context bag.
type Element struct {
	Tag      string
	Attrs    Attributes
	Context  Context
	Position Position

	parent   Parent
	children []Node
	void     bool
}

// NewElement returns an element owning children.
func NewElement(tag string, attrs Attributes, children ...Node) *Element {
	e := &Element{Tag: tag, Attrs: attrs, children: []Node{}}
	_ = e.Append(children...)
	return e
}

// NewVoidElement returns an element whose child list is permanently absent.
func NewVoidElement(tag string, attrs Attributes) *Element {
	return &Element{Tag: tag, Attrs: attrs, void: true}
}

func (e *Element) Parent() Parent     { return e.parent }
func (e *Element) Pos() Position      { return e.Position }
func (e *Element) setParent(p Parent) { e.parent = p }
func (e *Element) IsVoid() bool       { return e.void }
func (e *Element) list() *[]Node      { return &e.children }

func (e *Element) Len() int { return len(e.children) }

func (e *Element) Index(n Node) int {
	if e.void {
		return -1
	}
	return index(e.children, n)
}

func (e *Element) Children() ([]Node, error) {
	if e.void {
		return nil, e.voidErr("iterate")
	}
	return slices.Clone(e.children), nil
}

func (e *Element) Append(nodes ...Node) error {
	if e.void {
		return e.voidErr("append to")
	}
	return insert(e, len(e.children), nodes)
}

func (e *Element) Insert(i int, nodes ...Node) error {
	if e.void {
		return e.voidErr("insert into")
	}
	return insert(e, i, nodes)
}

func (e *Element) Remove(n Node) error {
	if e.void {
		return e.voidErr("remove from")
	}
	return remove(e, n)
}

func (e *Element) RemoveAt(i int) (Node, error) {
	if e.void {
		return nil, e.voidErr("remove from")
	}
	return removeAt(e, i)
}

func (e *Element) Replace(old Node, with ...Node) error {
	if e.void {
		return e.voidErr("replace in")
	}
	return replace(e, old, with)
}

func (e *Element) voidErr(op string) error {
	return diag.Structural(e.Position.Start.Line, e.Position.Start.Column,
		"cannot %s <%s>: %w", op, e.Tag, diag.ErrVoidElement)
}

// Clone returns a detached deep copy, context bag included.
func (e *Element) Clone() Node {
	c := &Element{
		Tag:      e.Tag,
		Attrs:    e.Attrs.Clone(),
		Context:  e.Context.Clone(),
		Position: e.Position,
		void:     e.void,
	}
	if !e.void {
		c.children = make([]Node, 0, len(e.children))
		for _, ch := range e.children {
			cc := ch.Clone()
			cc.setParent(c)
			c.children = append(c.children, cc)
		}
	}
	return c
}

// Bind stores a value in the element's local context.
func (e *Element) Bind(name string, v Value) {
	if e.Context == nil {
		e.Context = Context{}
	}
	e.Context[name] = v
}

// LiteralKind distinguishes text from comments.
type LiteralKind int

const (
	Text LiteralKind = iota
	Comment
)

func (k LiteralKind) String() string {
	if k == Comment {
		return "comment"
	}
	return "text"
}

// Literal is a text run or a comment.
type Literal struct {
	Kind     LiteralKind
	Content  string
	Position Position
	// Interpolated is set once the {{ }} spans of Content have been
	// evaluated. Content is then output and is never evaluated again.
	Interpolated bool

	parent Parent
}

// NewText returns a detached text literal.
func NewText(content string) *Literal { return &Literal{Kind: Text, Content: content} }

// NewComment returns a detached comment literal.
func NewComment(content string) *Literal { return &Literal{Kind: Comment, Content: content} }

func (l *Literal) Parent() Parent     { return l.parent }
func (l *Literal) Pos() Position      { return l.Position }
func (l *Literal) setParent(p Parent) { l.parent = p }

func (l *Literal) Clone() Node {
	return &Literal{Kind: l.Kind, Content: l.Content, Position: l.Position, Interpolated: l.Interpolated}
}

func index(children []Node, n Node) int {
	for i, c := range children {
		if c == n {
			return i
		}
	}
	return -1
}

func insert(p Parent, i int, nodes []Node) error {
	lst := p.list()
	if i < 0 || i > len(*lst) {
		return diag.Internal("insert index %d out of range [0,%d]", i, len(*lst))
	}
	for _, n := range nodes {
		if _, ok := n.(*Document); ok {
			return diag.Structural(0, 0, "a document cannot be a child")
		}
		for anc := Node(p); anc != nil; anc = anc.Parent() {
			if anc == n {
				return diag.Structural(0, 0, "a node cannot contain itself or one of its ancestors")
			}
		}
	}
	// Detach from previous owners first; this may shift i when the node is
	// already one of p's children.
	for _, n := range nodes {
		if old := n.Parent(); old != nil {
			if old == p {
				if j := index(*lst, n); j >= 0 && j < i {
					i--
				}
			}
			if err := remove(old, n); err != nil {
				return err
			}
		}
	}
	*lst = slices.Insert(*lst, i, nodes...)
	for _, n := range nodes {
		n.setParent(p)
	}
	return nil
}

func remove(p Parent, n Node) error {
	lst := p.list()
	i := index(*lst, n)
	if i < 0 {
		return diag.Structural(0, 0, "node is not a child of this parent: %w", diag.ErrNotFound)
	}
	_, err := removeAt(p, i)
	return err
}

func removeAt(p Parent, i int) (Node, error) {
	lst := p.list()
	if i < 0 || i >= len(*lst) {
		return nil, diag.Internal("remove index %d out of range [0,%d)", i, len(*lst))
	}
	n := (*lst)[i]
	*lst = slices.Delete(*lst, i, i+1)
	n.setParent(nil)
	return n, nil
}

func replace(p Parent, old Node, with []Node) error {
	i := index(*p.list(), old)
	if i < 0 {
		return diag.Structural(0, 0, "replaced node is not a child of this parent: %w", diag.ErrNotFound)
	}
	if _, err := removeAt(p, i); err != nil {
		return err
	}
	return insert(p, i, with)
}
