package component

import "strings"

// recursedAtRules hold nested rule lists whose selectors are scoped too.
var recursedAtRules = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@container": true,
	"@layer":     true,
}

// ScopeStyle prefixes every top-level selector of every rule in css with
// scope. Rules nested in @media, @supports, @container and @layer blocks
// are rewritten too; other at-rules are copied unchanged. Only braces,
// parentheses, brackets, strings and commas are interpreted.
func ScopeStyle(css, scope string) string {
	var out strings.Builder
	i := 0
	for i < len(css) {
		// Whitespace and comments between rules are kept as they are.
		j := skipGap(css, i)
		out.WriteString(css[i:j])
		i = j
		if i >= len(css) {
			break
		}

		end, delim := scanPrelude(css, i)
		prelude := css[i:end]
		if delim != '{' {
			// Statement at-rule (@import ...;) or trailing garbage.
			if end < len(css) {
				end++
			}
			out.WriteString(css[i:end])
			i = end
			continue
		}

		stop := matchBrace(css, end)
		body := css[end+1 : stop]
		trimmed := strings.TrimSpace(prelude)
		switch {
		case strings.HasPrefix(trimmed, "@"):
			out.WriteString(prelude)
			out.WriteByte('{')
			if recursedAtRules[atKeyword(trimmed)] {
				out.WriteString(ScopeStyle(body, scope))
			} else {
				out.WriteString(body)
			}
		default:
			sels := splitSelectors(trimmed)
			for k, s := range sels {
				sels[k] = scope + " " + s
			}
			out.WriteString(strings.Join(sels, ", "))
			out.WriteString(prelude[len(strings.TrimRight(prelude, " \t\r\n")):])
			out.WriteByte('{')
			out.WriteString(body)
		}
		if stop < len(css) {
			out.WriteByte('}')
		}
		i = stop + 1
	}
	return out.String()
}

func skipGap(css string, i int) int {
	for i < len(css) {
		switch {
		case css[i] == ' ' || css[i] == '\t' || css[i] == '\n' || css[i] == '\r' || css[i] == '\f':
			i++
		case strings.HasPrefix(css[i:], "/*"):
			k := strings.Index(css[i+2:], "*/")
			if k < 0 {
				return len(css)
			}
			i += k + 4
		default:
			return i
		}
	}
	return i
}

// scanPrelude returns the index of the '{' or ';' ending the prelude that
// starts at i, outside strings and parentheses.
func scanPrelude(css string, i int) (int, byte) {
	depth := 0
	for i < len(css) {
		switch c := css[i]; c {
		case '"', '\'':
			i = skipString(css, i)
			continue
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '{', ';':
			if depth <= 0 {
				return i, c
			}
		}
		i++
	}
	return len(css), 0
}

// matchBrace returns the index of the '}' closing the '{' at open, or
// len(css) when the block is unterminated.
func matchBrace(css string, open int) int {
	depth := 0
	for i := open; i < len(css); i++ {
		switch css[i] {
		case '"', '\'':
			i = skipString(css, i) - 1
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(css)
}

// skipString returns the index just past the string literal at i.
func skipString(css string, i int) int {
	q := css[i]
	for i++; i < len(css); i++ {
		switch css[i] {
		case '\\':
			i++
		case q:
			return i + 1
		}
	}
	return len(css)
}

// splitSelectors splits a selector list on top-level commas.
func splitSelectors(prelude string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(prelude); i++ {
		switch prelude[i] {
		case '"', '\'':
			i = skipString(prelude, i) - 1
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(prelude[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(prelude[start:]))
}

func atKeyword(prelude string) string {
	end := strings.IndexFunc(prelude, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '(' || r == '{'
	})
	if end < 0 {
		end = len(prelude)
	}
	return strings.ToLower(prelude[:end])
}
