package component

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NameFromPath derives a component name from path relative to root.
// Directories become dot-separated segments and every segment is
// tokenized and title-cased: nav/side-bar.hml under root is Nav.SideBar.
func NameFromPath(path, root string) (string, error) {
	rel := path
	if root != "" {
		r, err := filepath.Rel(root, path)
		if err != nil {
			return "", fmt.Errorf("component path %s: %w", path, err)
		}
		rel = r
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	if rel == "" || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("component path %s is not below %s", path, root)
	}

	caser := cases.Title(language.English)
	var segments []string
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		var sb strings.Builder
		for _, tok := range tokenize(seg) {
			sb.WriteString(caser.String(tok))
		}
		if sb.Len() == 0 {
			return "", fmt.Errorf("component path %s has an empty segment", path)
		}
		segments = append(segments, sb.String())
	}
	return strings.Join(segments, "."), nil
}

// tokenize splits s on separators and case boundaries: "side-bar" gives
// [side bar] and "HTMLView" gives [HTML View].
func tokenize(s string) []string {
	var out []string
	rs := []rune(s)
	start := 0
	flush := func(end int) {
		if end > start {
			out = append(out, string(rs[start:end]))
		}
	}
	for i, r := range rs {
		switch {
		case r == '-' || r == '_' || r == '.' || unicode.IsSpace(r):
			flush(i)
			start = i + 1
		case i > start && unicode.IsUpper(r):
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush(i)
				start = i
			}
		}
	}
	flush(len(rs))
	return out
}
