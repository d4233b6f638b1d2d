package compiler

import (
	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/markdown"
	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/parser"
	"github.com/neurodesk/hypermark/pkg/render"
)

const (
	// MarkdownTag is replaced by its rendered markdown.
	MarkdownTag = "Markdown"
	// SourceAttr names the markdown file of a MarkdownTag.
	SourceAttr = "src"
	// ArticleTag wraps rendered markdown.
	ArticleTag = "article"
)

// compileMarkdown replaces every markdown element among the children of
// scope by an article holding the rendered HTML. The content comes from
// the file named by src, or from the element's own children.
func compileMarkdown(c *Compilation, scope node.Parent) error {
	for _, k := range children(scope) {
		el, ok := k.(*node.Element)
		if !ok || el.Tag != MarkdownTag {
			continue
		}
		if c.Markdown == nil {
			return c.structural(el, "%s used but no markdown renderer is configured", describe(el))
		}
		page, err := c.renderMarkdown(el)
		if err != nil {
			return err
		}
		doc, err := parser.Parse(page.HTML)
		if err != nil {
			return c.locate(diag.Structural(0, 0, "%s produced markup that does not parse: %w", describe(el), err), el)
		}

		article := node.NewElement(ArticleTag, el.Attrs.Clone())
		article.Attrs.Delete(SourceAttr)
		article.Position = el.Position
		if len(page.Meta) > 0 {
			article.Context = node.NewContextFromAny(page.Meta)
		}
		if err := article.Append(children(doc)...); err != nil {
			return err
		}
		if err := scope.Replace(el, article); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compilation) renderMarkdown(el *node.Element) (markdown.Page, error) {
	pages, paged := c.Markdown.(markdown.PageRenderer)
	if src, ok := el.Attrs.String(SourceAttr); ok {
		var page markdown.Page
		var err error
		if paged {
			page, err = pages.Page(src)
		} else {
			page.HTML, err = c.Markdown.Render(src)
		}
		if err != nil {
			return page, c.locate(err, el)
		}
		return page, nil
	}

	src, err := inlineSource(el)
	if err != nil {
		return markdown.Page{}, err
	}
	var page markdown.Page
	if paged {
		page, err = pages.PageSource([]byte(src))
	} else {
		page.HTML, err = c.Markdown.RenderSource([]byte(src))
	}
	if err != nil {
		return page, c.locate(err, el)
	}
	return page, nil
}

// inlineSource turns the parsed children of an inline markdown element
// back into text, one node per line.
func inlineSource(el *node.Element) (string, error) {
	kids := children(el)
	if len(kids) == 0 {
		return "", nil
	}
	clones := make([]node.Node, len(kids))
	for i, k := range kids {
		clones[i] = k.Clone()
	}
	return render.String(node.NewDocument(clones...), render.Expanded)
}
