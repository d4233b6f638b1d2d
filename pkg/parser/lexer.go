package parser

import (
	"sort"
	"strings"

	"github.com/neurodesk/hypermark/pkg/node"
)

// The scanner walks the source byte by byte and converts byte offsets to
// line/column points on demand.

type scanner struct {
	src        string
	i          int
	n          int
	lineStarts []int
}

func newScanner(src string) *scanner {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &scanner{src: src, n: len(src), lineStarts: starts}
}

func (s *scanner) eof() bool { return s.i >= s.n }

func (s *scanner) peek() byte {
	if s.i >= s.n {
		return 0
	}
	return s.src[s.i]
}

func (s *scanner) peekAt(k int) byte {
	if s.i+k >= s.n {
		return 0
	}
	return s.src[s.i+k]
}

func (s *scanner) hasPrefix(p string) bool {
	return strings.HasPrefix(s.src[s.i:], p)
}

// match consumes p when the input continues with it.
func (s *scanner) match(p string) bool {
	if s.hasPrefix(p) {
		s.i += len(p)
		return true
	}
	return false
}

func (s *scanner) skipSpace() {
	for s.i < s.n && isSpace(s.src[s.i]) {
		s.i++
	}
}

// scanUntil returns the text before the next occurrence of delim and moves
// past delim. ok is false when delim does not occur; the cursor is then left
// untouched.
func (s *scanner) scanUntil(delim string) (string, bool) {
	j := strings.Index(s.src[s.i:], delim)
	if j < 0 {
		return "", false
	}
	text := s.src[s.i : s.i+j]
	s.i += j + len(delim)
	return text, true
}

func (s *scanner) point(off int) node.Point {
	line := sort.Search(len(s.lineStarts), func(k int) bool { return s.lineStarts[k] > off }) - 1
	return node.Point{Line: line + 1, Column: off - s.lineStarts[line] + 1, Offset: off}
}

func (s *scanner) span(start, end int) node.Position {
	return node.Position{Start: s.point(start), End: s.point(end)}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func isNameStart(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func isNameByte(b byte) bool {
	return isNameStart(b) || b >= '0' && b <= '9' || b == '-' || b == '_' || b == '.' || b == ':'
}

// indentOf returns the leading run of spaces and tabs of line.
func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// commonIndent returns the longest indentation shared by every non-blank
// line.
func commonIndent(lines []string) string {
	var common string
	first := true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		ind := indentOf(l)
		if first {
			common, first = ind, false
			continue
		}
		k := 0
		for k < len(common) && k < len(ind) && common[k] == ind[k] {
			k++
		}
		common = common[:k]
	}
	return common
}

// Dedent removes surrounding blank lines and the indentation shared by all
// remaining lines. Blank lines inside the block become empty.
func Dedent(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	ind := commonIndent(lines)
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimRight(strings.TrimPrefix(l, ind), " \t")
	}
	return strings.Join(lines, "\n")
}

// normalizeText trims a text run found outside preformatted regions and
// dedents its continuation lines so that re-indentation by the renderer is
// stable under re-parsing.
func normalizeText(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if !strings.Contains(text, "\n") {
		return text
	}
	lines := strings.Split(text, "\n")
	ind := commonIndent(lines[1:])
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(lines[i], ind)
	}
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}
