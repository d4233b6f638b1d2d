package node

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neurodesk/hypermark/pkg/diag"
)

func TestAppendSetsParent(t *testing.T) {
	doc := NewDocument()
	div := NewElement("div", nil)
	if err := doc.Append(div); err != nil {
		t.Fatalf("append: %v", err)
	}
	if div.Parent() != Parent(doc) {
		t.Fatalf("parent not set")
	}
	txt := NewText("hi")
	if err := div.Append(txt); err != nil {
		t.Fatalf("append: %v", err)
	}
	if txt.Parent() != Parent(div) {
		t.Fatalf("text parent not set")
	}
	if doc.Parent() != nil {
		t.Fatalf("document must not have a parent")
	}
}

func TestInsertRemoveReplace(t *testing.T) {
	a, b, c := NewText("a"), NewText("b"), NewText("c")
	p := NewElement("p", nil, a, c)
	if err := p.Insert(1, b); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := contents(t, p); !cmp.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("after insert: %v", got)
	}

	if err := p.Remove(b); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if b.Parent() != nil {
		t.Fatalf("removed node still has a parent")
	}

	x, y := NewText("x"), NewText("y")
	if err := p.Replace(a, x, y); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if diff := cmp.Diff([]string{"x", "y", "c"}, contents(t, p)); diff != "" {
		t.Fatalf("after replace (-want +got):\n%s", diff)
	}
	if a.Parent() != nil || x.Parent() != Parent(p) {
		t.Fatalf("replace did not update parent references")
	}

	if err := p.Remove(a); !errors.Is(err, diag.ErrNotFound) {
		t.Fatalf("removing a non-child: got %v", err)
	}
}

func TestMoveBetweenParents(t *testing.T) {
	txt := NewText("moved")
	from := NewElement("div", nil, txt)
	to := NewElement("span", nil)
	if err := to.Append(txt); err != nil {
		t.Fatalf("append: %v", err)
	}
	if from.Len() != 0 || to.Len() != 1 || txt.Parent() != Parent(to) {
		t.Fatalf("node was not moved: from=%d to=%d", from.Len(), to.Len())
	}
}

func TestAppendRejectsAncestor(t *testing.T) {
	leaf := NewElement("b", nil)
	inner := NewElement("span", nil, leaf)
	outer := NewElement("div", nil, inner)
	doc := NewDocument(outer)

	for name, err := range map[string]error{
		"parent":      inner.Append(outer),
		"grandparent": leaf.Insert(0, outer),
		"self":        outer.Append(outer),
	} {
		if !diag.IsKind(err, diag.KindStructural) {
			t.Errorf("%s: expected structural error, got %v", name, err)
		}
	}
	if doc.Len() != 1 || outer.Parent() != Parent(doc) || inner.Parent() != Parent(outer) {
		t.Fatalf("tree changed by a rejected append: doc=%d", doc.Len())
	}
	if inner.Len() != 1 || leaf.Len() != 0 {
		t.Fatalf("rejected append moved nodes: inner=%d leaf=%d", inner.Len(), leaf.Len())
	}
}

func TestVoidElementRejectsMutation(t *testing.T) {
	br := NewVoidElement("br", nil)
	checks := map[string]error{
		"append": br.Append(NewText("x")),
		"insert": br.Insert(0, NewText("x")),
		"remove": br.Remove(NewText("x")),
	}
	_, checks["iterate"] = br.Children()
	_, checks["remove-at"] = br.RemoveAt(0)
	for op, err := range checks {
		if !errors.Is(err, diag.ErrVoidElement) {
			t.Errorf("%s: expected ErrVoidElement, got %v", op, err)
		}
		if !diag.IsKind(err, diag.KindStructural) {
			t.Errorf("%s: expected structural error, got %v", op, err)
		}
	}
}

func TestCloneIsDeepAndDetached(t *testing.T) {
	inner := NewElement("b", NewAttributes("class", "x"), NewText("bold"))
	orig := NewElement("p", nil, inner)
	orig.Bind("item", StringValue("v"))

	c := orig.Clone().(*Element)
	if !Equal(orig, c) {
		t.Fatalf("clone not structurally equal:\n%s\n%s", Pretty(orig), Pretty(c))
	}
	if c.Parent() != nil {
		t.Fatalf("clone must be detached")
	}
	kids, _ := c.Children()
	if kids[0] == Node(inner) || kids[0].Parent() != Parent(c) {
		t.Fatalf("children were not deep-copied")
	}
	kids[0].(*Element).Attrs.Set("class", "y")
	if v, _ := inner.Attrs.String("class"); v != "x" {
		t.Fatalf("mutating the clone leaked into the original")
	}
	if c.Context["item"] != StringValue("v") {
		t.Fatalf("context not copied")
	}
}

func TestEqualComparesPositions(t *testing.T) {
	a := NewText("x")
	b := NewText("x")
	if !Equal(a, b) {
		t.Fatalf("equal literals reported different")
	}
	b.Position = Position{Start: Point{1, 1, 0}, End: Point{1, 2, 1}}
	if Equal(a, b) {
		t.Fatalf("position difference ignored")
	}
	if Equal(NewElement("br", nil), NewVoidElement("br", nil)) {
		t.Fatalf("void flag ignored")
	}
}

func TestNewPointValidation(t *testing.T) {
	if _, err := NewPoint(0, 1, 0); err == nil {
		t.Fatalf("line 0 accepted")
	}
	if _, err := NewPoint(1, 1, -1); err == nil {
		t.Fatalf("negative offset accepted")
	}
	p, err := NewPoint(2, 3, 10)
	if err != nil || p.String() != "2:3" {
		t.Fatalf("got %v, %v", p, err)
	}
	if _, err := NewPosition(Point{2, 1, 5}, Point{1, 1, 0}); err == nil {
		t.Fatalf("inverted span accepted")
	}
}

func TestScopeOfShadowing(t *testing.T) {
	leaf := NewText("t")
	inner := NewElement("span", nil, leaf)
	inner.Bind("x", IntValue(2))
	outer := NewElement("div", nil, inner)
	outer.Bind("x", IntValue(1))
	outer.Bind("y", StringValue("outer"))
	NewDocument(outer)

	want := Context{"x": IntValue(2), "y": StringValue("outer")}
	if diff := cmp.Diff(want, ScopeOf(leaf)); diff != "" {
		t.Fatalf("scope mismatch (-want +got):\n%s", diff)
	}
}

func TestAttributes(t *testing.T) {
	attrs := NewAttributes("id", "main", "hidden", true)
	attrs.Set("id", "other")
	attrs.Rename("hidden", "data-hidden")
	if diff := cmp.Diff([]string{"id", "data-hidden"}, attrs.Keys()); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
	if v, _ := attrs.String("data-hidden"); v != "true" {
		t.Fatalf("got %q", v)
	}
	if !attrs.Delete("id") || attrs.Has("id") {
		t.Fatalf("delete failed")
	}
}

func TestIterate(t *testing.T) {
	got, err := Iterate(DictValue{"b": IntValue(1), "a": IntValue(2)})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Value{StringValue("a"), StringValue("b")}, got); diff != "" {
		t.Fatalf("dict keys (-want +got):\n%s", diff)
	}
	if _, err := Iterate(IntValue(3)); err == nil {
		t.Fatalf("int should not be iterable")
	}
	empty, err := Iterate(NoneValue{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("none: %v %v", empty, err)
	}
}

func TestFromGo(t *testing.T) {
	v := FromGo(map[string]any{"items": []int{1, 2}, "ok": true, "name": "n"})
	want := DictValue{
		"items": ListValue{IntValue(1), IntValue(2)},
		"ok":    BoolValue(true),
		"name":  StringValue("n"),
	}
	if diff := cmp.Diff(Value(want), v); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func contents(t *testing.T, p Parent) []string {
	t.Helper()
	kids, err := p.Children()
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(kids))
	for i, k := range kids {
		out[i] = k.(*Literal).Content
	}
	return out
}
