// Package render serializes a node tree back to markup text.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/parser"
)

// Mode selects the output layout.
type Mode int

const (
	// Expanded puts every node on its own line, indented by two spaces per
	// level.
	Expanded Mode = iota
	// Compressed inserts no whitespace at all.
	Compressed
)

const indentUnit = "  "

// String renders n in the given mode.
func String(n node.Node, mode Mode) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, n, mode); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write renders n to w.
func Write(w io.Writer, n node.Node, mode Mode) error {
	r := &renderer{mode: mode}
	if err := r.node(n, 0); err != nil {
		return err
	}
	_, err := w.Write(r.buf.Bytes())
	return err
}

type renderer struct {
	buf  bytes.Buffer
	mode Mode
	// lines is false until the first expanded line was written.
	lines bool
}

// newline starts a new output line at depth. It is a no-op in compressed
// mode.
func (r *renderer) newline(depth int) {
	if r.mode == Compressed {
		return
	}
	if r.lines {
		r.buf.WriteByte('\n')
	}
	r.lines = true
	r.buf.WriteString(strings.Repeat(indentUnit, depth))
}

func (r *renderer) node(n node.Node, depth int) error {
	switch t := n.(type) {
	case *node.Document:
		kids, _ := t.Children()
		for _, c := range kids {
			if err := r.node(c, depth); err != nil {
				return err
			}
		}
	case *node.Element:
		return r.element(t, depth)
	case *node.Literal:
		r.literal(t, depth)
	default:
		return diag.Internal("cannot render %T: %w", n, diag.ErrUnknownNode)
	}
	return nil
}

func (r *renderer) literal(l *node.Literal, depth int) {
	if l.Kind == node.Comment {
		r.newline(depth)
		r.buf.WriteString("<!--")
		r.buf.WriteString(l.Content)
		r.buf.WriteString("-->")
		return
	}
	if r.mode == Compressed {
		r.buf.WriteString(l.Content)
		return
	}
	r.indentedLines(l.Content, depth)
}

// indentedLines writes each line of text on its own output line at depth.
// Blank lines stay empty.
func (r *renderer) indentedLines(text string, depth int) {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			r.buf.WriteByte('\n')
			continue
		}
		r.newline(depth)
		r.buf.WriteString(line)
	}
}

func (r *renderer) element(e *node.Element, depth int) error {
	r.newline(depth)

	if e.Tag == parser.DoctypeTag {
		r.buf.WriteString("<!DOCTYPE html>")
		return nil
	}

	r.openTag(e)
	if e.IsVoid() {
		if parser.IsVoid(e.Tag) {
			r.buf.WriteString(">")
		} else {
			r.buf.WriteString(" />")
		}
		return nil
	}
	r.buf.WriteString(">")

	kids, err := e.Children()
	if err != nil {
		return err
	}

	switch {
	case strings.EqualFold(e.Tag, parser.PreformattedTag):
		if err := r.verbatim(kids); err != nil {
			return err
		}
	case parser.IsRawText(e.Tag):
		r.rawText(kids, depth)
	case len(kids) == 0:
	case isInlineText(kids):
		r.buf.WriteString(kids[0].(*node.Literal).Content)
	default:
		for _, c := range kids {
			if err := r.node(c, depth+1); err != nil {
				return err
			}
		}
		r.newline(depth)
	}

	r.buf.WriteString("</")
	r.buf.WriteString(e.Tag)
	r.buf.WriteString(">")
	return nil
}

// verbatim writes a preformatted subtree without inserting any whitespace.
func (r *renderer) verbatim(kids []node.Node) error {
	sub := &renderer{mode: Compressed}
	for _, c := range kids {
		if err := sub.node(c, 0); err != nil {
			return err
		}
	}
	r.buf.Write(sub.buf.Bytes())
	return nil
}

func (r *renderer) rawText(kids []node.Node, depth int) {
	var text strings.Builder
	for _, c := range kids {
		if l, ok := c.(*node.Literal); ok {
			text.WriteString(l.Content)
		}
	}
	content := text.String()
	if r.mode == Compressed || !strings.Contains(content, "\n") {
		r.buf.WriteString(content)
		return
	}
	r.indentedLines(content, depth+1)
	r.newline(depth)
}

func isInlineText(kids []node.Node) bool {
	if len(kids) != 1 {
		return false
	}
	l, ok := kids[0].(*node.Literal)
	return ok && l.Kind == node.Text && !strings.Contains(l.Content, "\n")
}

func (r *renderer) openTag(e *node.Element) {
	r.buf.WriteByte('<')
	r.buf.WriteString(e.Tag)
	for _, a := range e.Attrs {
		r.buf.WriteByte(' ')
		r.buf.WriteString(Attr(a))
	}
}

// Attr renders a single attribute: true as the bare name, false as
// name="false" and strings quoted.
func Attr(a node.Attr) string {
	switch v := a.Value.(type) {
	case bool:
		if v {
			return a.Key
		}
		return a.Key + `="false"`
	case string:
		return a.Key + "=" + quote(v)
	default:
		return a.Key + "=" + quote(fmt.Sprint(v))
	}
}

func quote(v string) string {
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	return `"` + strings.ReplaceAll(v, `"`, "&quot;") + `"`
}
