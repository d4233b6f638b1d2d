package script

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/node"
	"go.starlark.net/starlark"
)

func TestEval(t *testing.T) {
	ev := NewStarlark()
	bindings := node.Context{
		"items": node.ListValue{node.IntValue(1), node.IntValue(2)},
		"name":  node.StringValue("<b>"),
		"other": node.BoolValue(true),
	}

	tests := []struct {
		name  string
		code  string
		want  node.Value
		names []string
	}{
		{"arithmetic", "1 + 2", node.IntValue(3), nil},
		{"binding", "len(items) * 10", node.IntValue(20), []string{"items"}},
		{"escape builtin", "escape(name)", node.StringValue("&lt;b&gt;"), []string{"name"}},
		{"join builtin", `join(items, sep=", ")`, node.StringValue("1, 2"), []string{"items"}},
		{"surrounding space", "\n  name + '!'  \n", node.StringValue("<b>!"), []string{"name"}},
		{"dict", `{"a": other}`, node.DictValue{"a": node.BoolValue(true)}, []string{"other"}},
		{"none", "None", node.NoneValue{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, names, err := ev.Eval(tt.code, "test", bindings)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("value (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.names, names); diff != "" {
				t.Errorf("names (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecExportsGlobals(t *testing.T) {
	ev := NewStarlark()
	code := strings.Join([]string{
		"title = prefix + 'page'",
		"_hidden = 1",
		"def shout(s):",
		"    return s.upper()",
		"for i in range(2):",
		"    title += '!'",
	}, "\n")
	got, names, err := ev.Exec(code, "page.hml", node.Context{"prefix": node.StringValue("my ")})
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if got["title"] != node.StringValue("my page!!") {
		t.Errorf("title = %v", got["title"])
	}
	if _, ok := got["_hidden"]; ok {
		t.Errorf("underscore names must not be exported")
	}
	if _, ok := got["prefix"]; ok {
		t.Errorf("bindings must not be re-exported")
	}
	if diff := cmp.Diff([]string{"prefix"}, names); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}

	// Functions survive the round trip through a context bag.
	fn, ok := got["shout"].(node.HostValue)
	if !ok {
		t.Fatalf("shout = %T", got["shout"])
	}
	v, _, err := ev.Eval("shout('hi')", "call", node.Context{"shout": fn})
	if err != nil || v != node.StringValue("HI") {
		t.Fatalf("calling exported function: %v %v", v, err)
	}
}

func TestEvalErrors(t *testing.T) {
	ev := NewStarlark()
	tests := []struct {
		name string
		code string
		line int
	}{
		{"syntax", "1 +", 1},
		{"undefined", "missing + 1", 1},
		{"runtime", "1 // 0", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ev.Eval(tt.code, "expr", nil)
			var de *diag.Error
			if !errors.As(err, &de) {
				t.Fatalf("want *diag.Error, got %T %v", err, err)
			}
			if de.Kind != diag.KindScript {
				t.Errorf("kind = %v", de.Kind)
			}
			if de.Line != tt.line {
				t.Errorf("line = %d, want %d", de.Line, tt.line)
			}
			if !strings.Contains(de.Error(), "evaluating expr") {
				t.Errorf("message %q lacks label", de.Error())
			}
		})
	}
}

func TestExecErrorPosition(t *testing.T) {
	ev := NewStarlark()
	code := "a = 1\nb = 2\nc = a + None\n"
	_, _, err := ev.Exec(code, "block", nil)
	var de *diag.Error
	if !errors.As(err, &de) {
		t.Fatalf("want *diag.Error, got %v", err)
	}
	if de.Line != 3 {
		t.Fatalf("line = %d, want 3", de.Line)
	}
	if !strings.Contains(de.Snippet, "> 3 | c = a + None") {
		t.Fatalf("snippet does not point at the failing line:\n%s", de.Snippet)
	}
	var ee *starlark.EvalError
	if !errors.As(err, &ee) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestPrintGoesToLogger(t *testing.T) {
	var buf bytes.Buffer
	ev := NewStarlark(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	if _, _, err := ev.Exec(`print("hello", 1)`, "printer", nil); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.Contains(out, "hello 1") || !strings.Contains(out, "source=printer") {
		t.Fatalf("log output %q", out)
	}
}

func TestNodesValue(t *testing.T) {
	kids := node.NodesValue{node.NewText("a"), node.NewText("b")}
	ev := NewStarlark()
	v, _, err := ev.Eval("[len(c) for c in children] + [len(children)]", "nodes", node.Context{"children": kids})
	if err != nil {
		t.Fatal(err)
	}
	want := node.ListValue{node.IntValue(1), node.IntValue(1), node.IntValue(2)}
	if diff := cmp.Diff(node.Value(want), v); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	back, _, err := ev.Eval("children", "nodes", node.Context{"children": kids})
	if err != nil {
		t.Fatal(err)
	}
	if nv, ok := back.(node.NodesValue); !ok || len(nv) != 2 {
		t.Fatalf("got %#v", back)
	}
}
