// Package parser turns hypermark source into a node.Document.
//
// The parser is a single left-to-right scan. Every '<' that starts a tag is
// classified as a comment, a declaration, a closing tag or an opening tag.
// Open elements are kept on a stack that validates closers; void and
// self-closed elements are never pushed. Text is trimmed and dedented
// except inside preformatted and raw-text elements.
package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/node"
)

// VoidTags are implicitly self-closing.
var VoidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// RawTextTags hold unparsed text up to their closing tag. Their content is
// dedented but otherwise preserved.
var RawTextTags = map[string]bool{
	"script":   true,
	"style":    true,
	"starlark": true,
}

// PreformattedTag marks a region whose text is kept byte-for-byte.
const PreformattedTag = "pre"

// DoctypeTag is the element name produced for <!DOCTYPE ...>.
const DoctypeTag = "doctype"

// IsVoid reports whether tag is implicitly self-closing.
func IsVoid(tag string) bool { return VoidTags[strings.ToLower(tag)] }

// IsRawText reports whether tag holds unparsed text.
func IsRawText(tag string) bool { return RawTextTags[strings.ToLower(tag)] }

// Parse parses src into a document tree.
func Parse(src string) (*node.Document, error) {
	p := &parser{s: newScanner(src), doc: node.NewDocument()}
	if err := p.run(); err != nil {
		return nil, err
	}
	p.doc.Position = p.s.span(0, p.s.n)
	return p.doc, nil
}

// ParseFile reads and parses the file at path. Errors carry the path.
func ParseFile(path string) (*node.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.WithFile(diag.Resource(err, "reading source"), path)
	}
	doc, err := Parse(string(b))
	if err != nil {
		return nil, diag.WithFile(err, path)
	}
	return doc, nil
}

type parser struct {
	s     *scanner
	doc   *node.Document
	stack []*node.Element
	// starts holds the start offset of each element on the stack.
	starts []int
	pre    int
}

func (p *parser) current() node.Parent {
	if len(p.stack) == 0 {
		return p.doc
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) errAt(off int, format string, args ...any) error {
	pt := p.s.point(off)
	return diag.Parse(pt.Line, pt.Column, format, args...)
}

func (p *parser) run() error {
	s := p.s
	for !s.eof() {
		start := s.i
		switch {
		case s.hasPrefix("<!--"):
			if err := p.parseComment(); err != nil {
				return err
			}
		case s.hasPrefix("</"):
			if err := p.parseClosing(); err != nil {
				return err
			}
		case s.hasPrefix("<!"):
			if err := p.parseDeclaration(); err != nil {
				return err
			}
		case s.peek() == '<' && isNameStart(s.peekAt(1)):
			if err := p.parseOpening(); err != nil {
				return err
			}
		default:
			p.parseText()
		}
		if s.i == start {
			return p.errAt(start, "parser made no progress")
		}
	}
	if n := len(p.stack); n > 0 {
		top := p.stack[n-1]
		return p.errAt(p.starts[n-1], "unclosed tag <%s>", top.Tag)
	}
	return nil
}

func (p *parser) appendNode(n node.Node) error {
	return p.current().Append(n)
}

func (p *parser) parseComment() error {
	s := p.s
	start := s.i
	s.i += len("<!--")
	body, ok := s.scanUntil("-->")
	if !ok {
		return p.errAt(start, "unterminated comment")
	}
	c := node.NewComment(body)
	c.Position = s.span(start, s.i)
	return p.appendNode(c)
}

func (p *parser) parseDeclaration() error {
	s := p.s
	start := s.i
	s.i += len("<!")
	body, ok := s.scanUntil(">")
	if !ok {
		return p.errAt(start, "unterminated declaration")
	}
	fields := strings.Fields(body)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "doctype") {
		return p.errAt(start, "unsupported declaration <!%s>", strings.TrimSpace(body))
	}
	var attrs node.Attributes
	for _, f := range fields[1:] {
		attrs.Set(strings.ToLower(f), true)
	}
	el := node.NewVoidElement(DoctypeTag, attrs)
	el.Position = s.span(start, s.i)
	return p.appendNode(el)
}

func (p *parser) parseClosing() error {
	s := p.s
	start := s.i
	s.i += len("</")
	body, ok := s.scanUntil(">")
	if !ok {
		return p.errAt(start, "unterminated closing tag")
	}
	name := strings.TrimSpace(body)
	n := len(p.stack)
	if n == 0 {
		return p.errAt(start, "unexpected closing tag </%s>", name)
	}
	top := p.stack[n-1]
	if !strings.EqualFold(top.Tag, name) {
		return p.errAt(start, "mismatched closing tag </%s>, expected </%s>", name, top.Tag)
	}
	top.Position = s.span(p.starts[n-1], s.i)
	p.stack, p.starts = p.stack[:n-1], p.starts[:n-1]
	if strings.EqualFold(top.Tag, PreformattedTag) {
		p.pre--
	}
	return nil
}

func (p *parser) parseOpening() error {
	s := p.s
	start := s.i
	s.i++ // '<'
	nameStart := s.i
	for !s.eof() && isNameByte(s.peek()) {
		s.i++
	}
	tag := s.src[nameStart:s.i]

	attrs, selfClosed, err := p.parseAttributes(start)
	if err != nil {
		return err
	}

	if selfClosed || IsVoid(tag) {
		el := node.NewVoidElement(tag, attrs)
		el.Position = s.span(start, s.i)
		return p.appendNode(el)
	}

	el := node.NewElement(tag, attrs)
	if err := p.appendNode(el); err != nil {
		return err
	}
	if IsRawText(tag) {
		return p.parseRawText(el, start)
	}
	p.stack = append(p.stack, el)
	p.starts = append(p.starts, start)
	if strings.EqualFold(tag, PreformattedTag) {
		p.pre++
	}
	return nil
}

// parseRawText consumes everything up to the closing tag of el as a single
// dedented text literal.
func (p *parser) parseRawText(el *node.Element, start int) error {
	s := p.s
	bodyStart := s.i
	lower := strings.ToLower(s.src[s.i:])
	closer := "</" + strings.ToLower(el.Tag)
	from := 0
	for {
		j := strings.Index(lower[from:], closer)
		if j < 0 {
			return p.errAt(start, "unclosed tag <%s>", el.Tag)
		}
		k := from + j + len(closer)
		for k < len(lower) && isSpace(lower[k]) {
			k++
		}
		if k < len(lower) && lower[k] == '>' {
			body := s.src[bodyStart : bodyStart+from+j]
			if text := Dedent(body); text != "" {
				lit := node.NewText(text)
				lit.Position = s.span(bodyStart, bodyStart+from+j)
				if err := el.Append(lit); err != nil {
					return err
				}
			}
			s.i = bodyStart + k + 1
			el.Position = s.span(start, s.i)
			return nil
		}
		from += j + len(closer)
	}
}

func (p *parser) parseText() {
	s := p.s
	start := s.i
	for !s.eof() {
		if s.hasPrefix("{{") {
			// An interpolation may contain '<'; skip it whole when closed.
			if j := strings.Index(s.src[s.i+2:], "}}"); j >= 0 {
				s.i += j + 4
				continue
			}
		}
		if s.peek() == '<' && (isNameStart(s.peekAt(1)) || s.peekAt(1) == '/' || s.peekAt(1) == '!') {
			p.emitText(start, s.i)
			return
		}
		s.i++
	}
	p.emitText(start, s.i)
}

func (p *parser) emitText(start, end int) {
	if end <= start {
		return
	}
	raw := p.s.src[start:end]
	text := raw
	if p.pre == 0 {
		text = normalizeText(raw)
	}
	if text == "" {
		return
	}
	lit := node.NewText(text)
	lit.Position = p.s.span(start, end)
	// Appending a detached literal to an open element cannot fail.
	_ = p.appendNode(lit)
}

// parseAttributes reads attributes up to and including the tag's closing
// '>' or '/>'.
func (p *parser) parseAttributes(tagStart int) (node.Attributes, bool, error) {
	s := p.s
	var attrs node.Attributes
	for {
		s.skipSpace()
		switch {
		case s.eof():
			return nil, false, p.errAt(tagStart, "unterminated tag")
		case s.match("/>"):
			return attrs, true, nil
		case s.match(">"):
			return attrs, false, nil
		}

		keyStart := s.i
		for !s.eof() && !isSpace(s.peek()) && s.peek() != '=' && s.peek() != '>' && !s.hasPrefix("/>") {
			s.i++
		}
		key := s.src[keyStart:s.i]
		if key == "" {
			return nil, false, p.errAt(s.i, "invalid attribute")
		}

		s.skipSpace()
		if !s.match("=") {
			attrs.Set(key, true)
			continue
		}
		s.skipSpace()

		valStart := s.i
		switch q := s.peek(); q {
		case '"', '\'':
			s.i++
			v, ok := s.scanUntil(string(q))
			if !ok {
				return nil, false, p.errAt(valStart, "unterminated attribute value for %q", key)
			}
			attrs.Set(key, v)
		case '{':
			v, err := p.scanBraces(valStart, key)
			if err != nil {
				return nil, false, err
			}
			if !strings.HasPrefix(key, ":") && !strings.HasPrefix(key, "@") {
				key = ":" + key
			}
			attrs.Set(key, strings.TrimSpace(v))
		case 0:
			return nil, false, p.errAt(tagStart, "unterminated tag")
		default:
			for !s.eof() && !isSpace(s.peek()) && s.peek() != '>' && !s.hasPrefix("/>") {
				s.i++
			}
			attrs.Set(key, coerceBare(s.src[valStart:s.i]))
		}
	}
}

// scanBraces reads a brace-delimited value, honouring nested braces and
// quoted strings, and returns its inner text.
func (p *parser) scanBraces(start int, key string) (string, error) {
	s := p.s
	depth := 0
	var quote byte
	for !s.eof() {
		c := s.peek()
		s.i++
		switch {
		case quote != 0:
			if c == '\\' {
				s.i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s.src[start+1 : s.i-1], nil
			}
		}
	}
	return "", p.errAt(start, "unterminated attribute value for %q", key)
}

// coerceBare maps the bare words yes/true and no/false to booleans.
func coerceBare(v string) any {
	switch strings.ToLower(v) {
	case "", "yes", "true":
		return true
	case "no", "false":
		return false
	}
	return v
}

// MustParse is Parse for tests and static sources; it panics on error.
func MustParse(src string) *node.Document {
	doc, err := Parse(src)
	if err != nil {
		panic(fmt.Sprintf("parser: %v", err))
	}
	return doc
}
