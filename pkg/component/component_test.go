package component

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/parser"
	"github.com/neurodesk/hypermark/pkg/render"
	"github.com/stretchr/testify/require"
)

const cardSource = `
<style scoped>
  h2, p > b { color: red; }
</style>
<script>console.log("card")</script>
<starlark>
  Props = {"title": "Untitled", "level": 2}
  kind = "card"
</starlark>
<section class="card">
  <h2>{{ title }}</h2>
  <header><Slot name="head" /></header>
  <Slot />
</section>
`

func TestScopeStyle(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"grouped selectors", ".a, .b { color: red; }", "X .a, X .b { color: red; }"},
		{"parenthesised commas", ":is(.a, .b) p{x:y}", "X :is(.a, .b) p{x:y}"},
		{"attribute commas", `a[title="a,b"], i {}`, `X a[title="a,b"], X i {}`},
		{"media recursion", "@media (max-width: 1px) { .a { b: c } }", "@media (max-width: 1px) { X .a { b: c } }"},
		{"keyframes untouched", "@keyframes k { from { x: y } }", "@keyframes k { from { x: y } }"},
		{"statement at-rule", "@import url(a.css);\n.a{}", "@import url(a.css);\nX .a{}"},
		{"comments kept", "/* c */ .a {}", "/* c */ X .a {}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ScopeStyle(tt.in, "X"))
		})
	}
}

func TestNameFromPath(t *testing.T) {
	root := filepath.Join("site", "components")
	tests := []struct {
		path, want string
	}{
		{"card.hml", "Card"},
		{"nav/side-bar.hml", "Nav.SideBar"},
		{"nav/sideBar.hml", "Nav.SideBar"},
		{"my_widgets/HTMLView.hml", "MyWidgets.HtmlView"},
	}
	for _, tt := range tests {
		got, err := NameFromPath(filepath.Join(root, filepath.FromSlash(tt.path)), root)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, tt.path)
	}

	_, err := NameFromPath(filepath.Join("elsewhere", "x.hml"), root)
	require.Error(t, err)
}

func TestRegisterSplitsDefinition(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("Card", cardSource))

	def, ok := m.Get("Card")
	require.True(t, ok)
	require.Equal(t, ScopeID("Card", cardSource), def.Scope)
	require.Regexp(t, `^Card~[0-9a-f]{8}$`, def.Scope)
	require.Equal(t, node.Context{"title": node.StringValue("Untitled"), "level": node.IntValue(2)}, def.Props)
	require.Equal(t, node.Context{"kind": node.StringValue("card")}, def.Context)
	require.Equal(t, []string{def.Selector() + ` h2, ` + def.Selector() + ` p > b { color: red; }`}, def.Styles)
	require.Equal(t, []string{`console.log("card")`}, def.Scripts)
	require.Len(t, def.Body, 1)
	require.Nil(t, def.Body[0].Parent())
}

func TestRegisterErrors(t *testing.T) {
	m := NewManager()

	err := m.Register("Empty", "<!-- only a comment --><style>.a{}</style>")
	require.True(t, errors.Is(err, diag.ErrEmptyComponent), "got %v", err)
	require.True(t, diag.IsKind(err, diag.KindStructural))

	err = m.Register("Broken", "<div>")
	require.True(t, diag.IsKind(err, diag.KindParse), "got %v", err)

	err = m.Register("BadProps", "<starlark>Props = 3</starlark><p></p>")
	require.True(t, diag.IsKind(err, diag.KindStructural), "got %v", err)

	err = m.Register("Script", "<starlark>x = </starlark><p></p>")
	require.True(t, diag.IsKind(err, diag.KindScript), "got %v", err)

	require.Error(t, m.Register("2nd", "<p></p>"))
	require.False(t, m.Has("Empty"))
	require.True(t, errors.Is(m.Unregister("Empty"), diag.ErrNotFound))
}

func TestSubstitutePropsAndSlots(t *testing.T) {
	// --- Arrange ---
	m := NewManager()
	require.NoError(t, m.Register("Card", cardSource))
	def, _ := m.Get("Card")
	doc := parser.MustParse(`<main><Card title="Custom" class="wide"><b slot="head">Head</b><p>Body</p>tail</Card></main>`)
	card := node.Find(doc, "Card")
	card.Bind("who", node.StringValue("caller"))

	// --- Act ---
	wrapper, err := m.Substitute(card, def, node.Context{"title": node.StringValue("Custom"), "class": node.StringValue("wide")}, nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Nil(t, node.Find(doc, "Card"))
	require.Equal(t, node.Parent(node.Find(doc, "main")), wrapper.Parent())

	scope, _ := wrapper.Attrs.String(ScopeAttr)
	require.Equal(t, def.Scope, scope)
	class, _ := wrapper.Attrs.String("class")
	require.Equal(t, "wide", class)
	require.False(t, wrapper.Attrs.Has("title"))

	require.Equal(t, node.StringValue("Custom"), wrapper.Context["title"])
	require.Equal(t, node.IntValue(2), wrapper.Context["level"])
	require.Equal(t, node.StringValue("card"), wrapper.Context["kind"])
	require.Len(t, wrapper.Context[ChildrenName], 3)

	out, err := render.String(doc, render.Compressed)
	require.NoError(t, err)
	require.Equal(t,
		`<main><div data-scope="`+def.Scope+`" class="wide"><section class="card"><h2>{{ title }}</h2>`+
			`<header><b>Head</b></header><p>Body</p>tail</section></div></main>`,
		out)

	// Caller elements keep the caller's bindings, shadowing the props.
	b := node.Find(doc, "b")
	require.Equal(t, node.StringValue("caller"), node.ScopeOf(b)["who"])
}

func TestSubstituteSlotFallbacks(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("Box", `<div><Slot name="x">default x</Slot><Slot>default body</Slot><Slot name="y" /></div>`))
	def, _ := m.Get("Box")

	doc := parser.MustParse(`<Box />`)
	_, err := m.Substitute(node.Find(doc, "Box"), def, nil, nil)
	require.NoError(t, err)

	out, err := render.String(doc, render.Compressed)
	require.NoError(t, err)
	require.Equal(t, `<div data-scope="`+def.Scope+`"><div>default body</div></div>`, out)

	// Filled slots never show their own content.
	doc = parser.MustParse(`<Box><i slot="x">x</i><b>body</b></Box>`)
	_, err = m.Substitute(node.Find(doc, "Box"), def, nil, nil)
	require.NoError(t, err)
	out, err = render.String(doc, render.Compressed)
	require.NoError(t, err)
	require.Equal(t, `<div data-scope="`+def.Scope+`"><div><i>x</i><b>body</b></div></div>`, out)
}

func TestSubstituteUsesCallerScope(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("Button", `<starlark>Props = {"name": "prop"}</starlark><button><Slot /></button>`))
	def, _ := m.Get("Button")

	doc := parser.MustParse(`<Button>Hi {{ name }}<em>x</em></Button>`)
	caller := node.Context{"name": node.StringValue("Ann")}
	_, err := m.Substitute(node.Find(doc, "Button"), def, nil, caller)
	require.NoError(t, err)

	out, err := render.String(doc, render.Compressed)
	require.NoError(t, err)
	require.Equal(t, `<div data-scope="`+def.Scope+`"><button>Hi Ann<em>x</em></button></div>`, out)
	require.Equal(t, node.StringValue("Ann"), node.ScopeOf(node.Find(doc, "em"))["name"])

	// The children value carries the same pinned content.
	kids := node.Find(doc, "div").Context[ChildrenName].(node.NodesValue)
	require.Equal(t, "Hi Ann", kids[0].(*node.Literal).Content)
	require.True(t, kids[0].(*node.Literal).Interpolated)
}

func TestSubstituteDuplicateSlots(t *testing.T) {
	m := NewManager()
	for name, src := range map[string]string{
		"TwoDefault": "<div><Slot /><Slot /></div>",
		"TwoNamed":   `<div><Slot name="a" /><p><Slot name="a" /></p></div>`,
	} {
		require.NoError(t, m.Register(name, src))
		def, _ := m.Get(name)
		doc := parser.MustParse("<" + name + " />")
		_, err := m.Substitute(node.Find(doc, name), def, nil, nil)
		require.True(t, errors.Is(err, diag.ErrDuplicateSlot), "%s: got %v", name, err)
		require.True(t, diag.IsKind(err, diag.KindStructural))
	}
}

func TestCacheFirstWriteWins(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("Card", cardSource))
	def, _ := m.Get("Card")

	doc := parser.MustParse(`<div><Card /><Card /></div>`)
	for _, el := range node.FindAll(doc, func(e *node.Element) bool { return e.Tag == "Card" }) {
		_, err := m.Substitute(el, def, nil, nil)
		require.NoError(t, err)
	}
	require.Equal(t, []string{"Card"}, m.Cache().Names())

	require.False(t, m.Cache().Add("Card", Fragments{Styles: []string{"later"}}))
	f, _ := m.Cache().Get("Card")
	require.Equal(t, def.Styles, f.Styles)

	all := m.Cache().Collect([]string{"Card", "Missing", "Card"})
	require.Len(t, all.Styles, 1)
	require.Len(t, all.Scripts, 1)

	m.ResetCache()
	require.Zero(t, m.Cache().Len())
}

func TestRegisterFileRejectsUnsafeNames(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, `say"hi.hml`)
	require.NoError(t, os.WriteFile(path, []byte("<p></p>"), 0o644))

	m := NewManager()
	require.Error(t, m.RegisterFile(path, root))
	require.Empty(t, m.Names())
}

func TestRegisterDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nav"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "nav", "side-bar.hml"), []byte("<nav></nav>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "button.hml"), []byte("<button></button>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0o644))

	m := NewManager()
	names, err := m.RegisterDir(root)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Button", "Nav.SideBar"}, names)
	require.Equal(t, []string{"Button", "Nav.SideBar"}, m.Names())

	def, _ := m.Get("Nav.SideBar")
	require.Equal(t, filepath.Join(root, "nav", "side-bar.hml"), def.Path)
}
