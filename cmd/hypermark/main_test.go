package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSet(t *testing.T) {
	got, err := parseSet([]string{"title=Home", "count=3", "ratio=0.5", "draft=true", "expr=a=b"})
	if err != nil {
		t.Fatalf("parseSet: %v", err)
	}
	want := map[string]any{
		"title": "Home",
		"count": int64(3),
		"ratio": 0.5,
		"draft": true,
		"expr":  "a=b",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseSet mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseSet([]string{bad}); err == nil {
			t.Errorf("parseSet(%q): expected an error", bad)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	logger.Warn("careful", "n", 1)
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"msg":"careful"`) {
		t.Errorf("unexpected json output %q", buf.String())
	}

	if !newLogger("bogus", "text", io.Discard).Enabled(context.Background(), slog.LevelInfo) {
		t.Error("unknown level should default to info")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRenderAndFmtCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "hypermark.yaml")
	page := filepath.Join(dir, "page.hml")
	out := filepath.Join(dir, "out", "page.html")
	writeFile(t, cfg, "components: [components]\ncompressed: true\nbindings:\n  site: Example\n")
	writeFile(t, filepath.Join(dir, "components", "nav", "link.hml"),
		"<starlark>Props = {\"label\": \"\"}</starlark>\n<a>{{ label }} @ {{ site }}</a>\n")
	writeFile(t, page, "<html>\n  <body>\n    <Nav.Link label=\"{{ who }}\" />\n  </body>\n</html>\n")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"--config", cfg, "render", page, "-o", out, "--set", "who=Ann"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	html := string(b)
	if !strings.HasPrefix(html, "<!DOCTYPE html><html><body><div data-scope=\"Nav.Link~") {
		t.Errorf("unexpected output %q", html)
	}
	if !strings.Contains(html, "<a>Ann @ Example</a>") {
		t.Errorf("output lacks the component body: %q", html)
	}

	stdout.Reset()
	rootCmd.SetArgs([]string{"fmt", page})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("fmt: %v", err)
	}
	want := "<html>\n  <body>\n    <Nav.Link label=\"{{ who }}\" />\n  </body>\n</html>\n"
	if diff := cmp.Diff(want, stdout.String()); diff != "" {
		t.Errorf("fmt mismatch (-want +got):\n%s", diff)
	}
}
