package compiler

import (
	"strings"

	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/parser"
)

// flushComponentAssets appends the cached styles and scripts of the
// components used by this compile, in first-use order, as one <style> and
// one <script> to the head, else to the html element, else to the
// document.
func flushComponentAssets(c *Compilation, scope node.Parent) error {
	if c.Components == nil || len(c.used) == 0 {
		return nil
	}
	frags := c.Components.Cache().Collect(c.used)
	if frags.Empty() {
		return nil
	}
	var target node.Parent = scope
	if head := node.Find(scope, "head"); head != nil && !head.IsVoid() {
		target = head
	} else if root := node.Find(scope, "html"); root != nil && !root.IsVoid() {
		target = root
	}
	if len(frags.Styles) > 0 {
		style := node.NewElement("style", nil, node.NewText(strings.Join(frags.Styles, "\n")))
		if err := target.Append(style); err != nil {
			return err
		}
	}
	if len(frags.Scripts) > 0 {
		script := node.NewElement("script", nil, node.NewText(strings.Join(frags.Scripts, "\n")))
		if err := target.Append(script); err != nil {
			return err
		}
	}
	c.Logger.Debug("flushed component assets", "components", c.used,
		"styles", len(frags.Styles), "scripts", len(frags.Scripts))
	return nil
}

// ensureDoctype puts an HTML doctype in front of a document that does not
// start with one.
func ensureDoctype(_ *Compilation, scope node.Parent) error {
	kids := children(scope)
	if len(kids) > 0 && tagOf(kids[0]) == parser.DoctypeTag {
		return nil
	}
	return scope.Insert(0, node.NewVoidElement(parser.DoctypeTag, node.NewAttributes("html", true)))
}
