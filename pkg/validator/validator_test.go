package validator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCombinators(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"all ok", All(nil, nil), ""},
		{"all first error", All(nil, errors.New("a"), errors.New("b")), "a"},
		{"duplicates", NoDuplicates([]string{"a", "b", "a"}, "slots"), "slots contains duplicate value: a"},
		{"allowed", MatchesAllowed("xml", []string{"text", "json"}, "log.format"), "log.format must be one of"},
		{"identifier ok", Identifier("item_2", "capture"), ""},
		{"identifier digit", Identifier("2x", "capture"), `capture "2x" is not a valid identifier`},
		{"identifier dash", Identifier("a-b", "capture"), "not a valid identifier"},
		{"interpolation", NoInterpolation("{{ x }}", "slot name"), "slot name must not contain interpolation"},
		{"dir ok", DirExists(dir, "components"), ""},
		{"dir is file", DirExists(file, "components"), "is not a directory"},
		{"map", Map([]string{"a", ""}, NotEmpty, "dirs"), "dirs[1] must not be empty"},
		{"map dict", MapDict(map[string]int{"b": 1, "a-": 2}, func(k string, _ int) error {
			return Identifier(k, "binding")
		}, "bindings"), `bindings: binding "a-" is not a valid identifier`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.want == "" {
				if tt.err != nil {
					t.Fatalf("unexpected error: %v", tt.err)
				}
				return
			}
			if tt.err == nil || !strings.Contains(tt.err.Error(), tt.want) {
				t.Fatalf("got %v, want %q", tt.err, tt.want)
			}
		})
	}
}
