// Package markdown renders markdown documents to HTML for the compiler's
// <Markdown> tag.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/netcache"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

// Renderer converts markdown to HTML.
type Renderer interface {
	// Render reads and converts the markdown document at path.
	Render(path string) (string, error)
	// RenderSource converts markdown source.
	RenderSource(src []byte) (string, error)
}

// Page is a rendered document together with its frontmatter.
type Page struct {
	HTML string
	Meta map[string]any
}

// PageRenderer is implemented by renderers that also expose frontmatter.
type PageRenderer interface {
	Renderer
	Page(path string) (Page, error)
	PageSource(src []byte) (Page, error)
}

// Goldmark is the default Renderer. Paths starting with http:// or
// https:// are downloaded through a netcache.Cache; relative paths are
// resolved against BaseDir.
type Goldmark struct {
	BaseDir string
	Remote  *netcache.Cache
	md      goldmark.Markdown
}

var _ PageRenderer = (*Goldmark)(nil)

// Option configures a Goldmark renderer.
type Option func(*Goldmark)

// WithBaseDir sets the directory relative paths are resolved against.
func WithBaseDir(dir string) Option {
	return func(g *Goldmark) { g.BaseDir = dir }
}

// WithCache enables remote sources using cache.
func WithCache(cache *netcache.Cache) Option {
	return func(g *Goldmark) { g.Remote = cache }
}

// New returns a goldmark renderer with GitHub flavoured markdown, heading
// ids and raw HTML passthrough.
func New(opts ...Option) *Goldmark {
	g := &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Render implements Renderer.
func (g *Goldmark) Render(path string) (string, error) {
	p, err := g.Page(path)
	return p.HTML, err
}

// RenderSource implements Renderer.
func (g *Goldmark) RenderSource(src []byte) (string, error) {
	p, err := g.PageSource(src)
	return p.HTML, err
}

// Page reads, splits and converts the document at path.
func (g *Goldmark) Page(path string) (Page, error) {
	src, err := g.read(path)
	if err != nil {
		return Page{}, err
	}
	p, err := g.PageSource(src)
	if err != nil {
		return Page{}, diag.WithFile(err, path)
	}
	return p, nil
}

// PageSource splits off frontmatter and converts the remaining markdown.
func (g *Goldmark) PageSource(src []byte) (Page, error) {
	meta, body, err := SplitFrontmatter(string(src))
	if err != nil {
		return Page{}, err
	}
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("converting markdown: %w", err)
	}
	return Page{HTML: buf.String(), Meta: meta}, nil
}

func (g *Goldmark) read(path string) ([]byte, error) {
	if isRemote(path) {
		if g.Remote == nil {
			return nil, diag.Resource(nil, "remote markdown %s: no cache configured", path)
		}
		b, err := g.Remote.Fetch(context.Background(), path)
		if err != nil {
			return nil, diag.Resource(err, "fetching markdown %s", path)
		}
		return b, nil
	}
	if !filepath.IsAbs(path) && g.BaseDir != "" {
		path = filepath.Join(g.BaseDir, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.WithFile(diag.Resource(err, "reading markdown"), path)
	}
	return b, nil
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// SplitFrontmatter separates a leading YAML block delimited by --- lines
// from the markdown body. Content without a complete block is returned
// unchanged with nil metadata.
func SplitFrontmatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return nil, content, nil
	}
	lines := strings.Split(content, "\n")
	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closing = i
			break
		}
	}
	if closing < 0 {
		return nil, content, nil
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:closing], "\n")), &meta); err != nil {
		return nil, "", fmt.Errorf("parsing frontmatter: %w", err)
	}
	return meta, strings.Join(lines[closing+1:], "\n"), nil
}
