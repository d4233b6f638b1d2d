package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "components"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, dir, FileName, `
components: [components]
base_dir: content
compressed: true
cache_dir: /tmp/hm-cache
bindings:
  site: Example
  year: 2025
log:
  level: DEBUG
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &Config{
		Components: []string{filepath.Join(dir, "components")},
		BaseDir:    filepath.Join(dir, "content"),
		Compressed: true,
		CacheDir:   "/tmp/hm-cache",
		Bindings:   map[string]any{"site": "Example", "year": 2025},
		Log:        Log{Level: "debug", Format: "text"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "other.yaml")); err == nil {
		t.Error("expected an error for a missing explicit file")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "colour: red\n"},
		{"missing component dir", "components: [nowhere]\n"},
		{"bad binding name", "bindings:\n  2x: 1\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"not yaml", "components: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), FileName, tt.content)
			if _, err := Load(path); err == nil {
				t.Errorf("expected an error for %q", tt.content)
			}
		})
	}
}
