package diag

import (
	"fmt"
	"strings"
)

// snippetContext is the number of lines shown on either side of the
// offending line.
const snippetContext = 2

// Snippet formats the lines of code around line with a gutter of line
// numbers and a caret under col. It returns the whole code, numbered, when
// line is unknown.
func Snippet(code string, line, col int) string {
	if code == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	from, to := 1, len(lines)
	if line > 0 && line <= len(lines) {
		from = max(1, line-snippetContext)
		to = min(len(lines), line+snippetContext)
	}
	width := len(fmt.Sprint(to))

	var sb strings.Builder
	for i := from; i <= to; i++ {
		marker := "  "
		if i == line {
			marker = "> "
		}
		fmt.Fprintf(&sb, "%s%*d | %s\n", marker, width, i, lines[i-1])
		if i == line && col > 0 {
			fmt.Fprintf(&sb, "  %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", col-1))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
