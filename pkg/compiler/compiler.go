// Package compiler turns a parsed hypermark tree into plain HTML markup by
// running a pipeline of tree transformations.
//
// Setup steps run once over the whole document, scoped steps run once for
// every element (and the document) against its direct children, and post
// steps run once at the end. Compile always works on a private clone of its
// input.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/neurodesk/hypermark/pkg/component"
	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/markdown"
	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/script"
)

// MaxDepth bounds the element nesting the scoped stage will descend into.
// Only a component that uses itself gets anywhere near it.
const MaxDepth = 256

// Compiler compiles documents against a component manager. It may be
// reused and shared between goroutines as long as the manager is not
// modified during a compile.
type Compiler struct {
	components *component.Manager
	pipeline   *Pipeline
	eval       script.Evaluator
	md         markdown.Renderer
	logger     *slog.Logger
	baseDir    string
	file       string
}

// Option configures a Compiler.
type Option func(*Compiler)

func WithPipeline(p *Pipeline) Option {
	return func(c *Compiler) { c.pipeline = p }
}

// WithEvaluator overrides the manager's evaluator for document code.
func WithEvaluator(ev script.Evaluator) Option {
	return func(c *Compiler) { c.eval = ev }
}

func WithMarkdown(r markdown.Renderer) Option {
	return func(c *Compiler) { c.md = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithBaseDir sets the directory relative markdown sources are read from
// by the default markdown renderer.
func WithBaseDir(dir string) Option {
	return func(c *Compiler) { c.baseDir = dir }
}

// WithFile sets the label errors are reported against.
func WithFile(name string) Option {
	return func(c *Compiler) { c.file = name }
}

// New returns a compiler using mgr for component substitution. A nil
// manager gets an empty one.
func New(mgr *component.Manager, opts ...Option) *Compiler {
	c := &Compiler{
		components: mgr,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.components == nil {
		c.components = component.NewManager(component.WithLogger(c.logger))
	}
	if c.pipeline == nil {
		c.pipeline = DefaultPipeline()
	}
	if c.eval == nil {
		c.eval = c.components.Evaluator()
	}
	if c.md == nil {
		c.md = markdown.New(markdown.WithBaseDir(c.baseDir))
	}
	return c
}

// Pipeline returns the compiler's pipeline. Changes affect later compiles.
func (c *Compiler) Pipeline() *Pipeline { return c.pipeline }

// Compile runs the pipeline over a clone of doc with bindings visible to
// every expression.
func (c *Compiler) Compile(doc *node.Document, bindings map[string]any) (*node.Document, error) {
	if doc == nil {
		return nil, diag.Internal("compile: nil document")
	}
	work, ok := doc.Clone().(*node.Document)
	if !ok {
		return nil, diag.Internal("compile: clone of %T is not a document", doc)
	}
	comp := &Compilation{
		Doc:        work,
		Bindings:   node.NewContextFromAny(bindings),
		Components: c.components,
		Evaluator:  c.eval,
		Markdown:   c.md,
		Logger:     c.logger,
		File:       c.file,
		scoped:     c.pipeline.Steps(StageScoped),
	}

	for _, step := range c.pipeline.Steps(StageSetup) {
		c.logger.Debug("running step", "stage", StageSetup, "step", step.Name, "file", c.file)
		if err := step.Run(comp, work); err != nil {
			return nil, c.fail(step, err)
		}
	}
	if err := comp.runScoped(work, 0); err != nil {
		return nil, diag.WithFile(err, c.file)
	}
	for _, step := range c.pipeline.Steps(StagePost) {
		c.logger.Debug("running step", "stage", StagePost, "step", step.Name, "file", c.file)
		if err := step.Run(comp, work); err != nil {
			return nil, c.fail(step, err)
		}
	}
	c.logger.Debug("compiled document", "file", c.file, "components", comp.used)
	return work, nil
}

func (c *Compiler) fail(step Step, err error) error {
	c.logger.Debug("step failed", "step", step.Name, "error", err)
	return diag.WithFile(err, c.file)
}

// Compilation is the state of a single compile. Steps read and update it.
type Compilation struct {
	Doc *node.Document
	// Bindings are the compile-wide names: the caller's bindings and the
	// globals exported by the document's script regions.
	Bindings   node.Context
	Components *component.Manager
	Evaluator  script.Evaluator
	Markdown   markdown.Renderer
	Logger     *slog.Logger
	File       string

	scoped []Step
	used   []string
}

// Scope returns every name visible at n.
func (c *Compilation) Scope(n node.Node) node.Context {
	return c.Bindings.Merge(node.ScopeOf(n))
}

// Eval evaluates an expression in the scope of n. what names the
// expression in error messages.
func (c *Compilation) Eval(code, what string, n node.Node) (node.Value, error) {
	return c.EvalWith(code, what, n, nil)
}

// EvalWith is Eval with extra bindings shadowing the scope of n.
func (c *Compilation) EvalWith(code, what string, n node.Node, extra node.Context) (node.Value, error) {
	v, _, err := c.Evaluator.Eval(code, what, c.Scope(n).Merge(extra))
	if err != nil {
		return nil, c.locate(err, n)
	}
	return v, nil
}

// Interpolate resolves the {{ }} spans of text in the scope of n.
func (c *Compilation) Interpolate(text, what string, n node.Node, extra node.Context) (string, error) {
	out, err := script.Interpolate(c.Evaluator, text, what, c.Scope(n).Merge(extra))
	if err != nil {
		return "", c.locate(err, n)
	}
	return out, nil
}

// MarkUsed records a component as used by this compile.
func (c *Compilation) MarkUsed(name string) {
	if !slices.Contains(c.used, name) {
		c.used = append(c.used, name)
	}
}

// Used returns the components used so far, in first-use order.
func (c *Compilation) Used() []string { return slices.Clone(c.used) }

// locate moves the location of a script error to the node that holds the
// code. The snippet keeps the position within the code itself.
func (c *Compilation) locate(err error, n node.Node) error {
	pos := n.Pos().Start
	var de *diag.Error
	if errors.As(err, &de) && pos.Line > 0 && (de.Kind == diag.KindScript || de.Line == 0) {
		de.Line, de.Column = pos.Line, pos.Column
	}
	return diag.WithFile(err, c.File)
}

// structural returns a structural error located at n.
func (c *Compilation) structural(n node.Node, format string, args ...any) error {
	pos := n.Pos().Start
	return diag.WithFile(diag.Structural(pos.Line, pos.Column, format, args...), c.File)
}

// runScoped runs the scoped steps on scope and then descends into the
// child elements that remain.
func (c *Compilation) runScoped(scope node.Parent, depth int) error {
	if depth > MaxDepth {
		return c.structural(scope, "elements nested deeper than %d levels; does a component use itself?", MaxDepth)
	}
	for _, step := range c.scoped {
		if err := step.Run(c, scope); err != nil {
			return err
		}
	}
	kids, err := scope.Children()
	if err != nil {
		return err
	}
	for _, k := range kids {
		el, ok := k.(*node.Element)
		if !ok || el.IsVoid() || el.Parent() != scope {
			continue
		}
		if err := c.runScoped(el, depth+1); err != nil {
			return err
		}
		// A wrapper that was still guarded by a condition, or produced by
		// a loop, goes once its content is compiled.
		if el.Tag == WrapperTag && el.Parent() == scope {
			if err := c.unwrap(scope, el); err != nil {
				return err
			}
		}
	}
	return nil
}

// children returns the children of scope, or nothing for a void element.
func children(scope node.Parent) []node.Node {
	if scope.IsVoid() {
		return nil
	}
	kids, _ := scope.Children()
	return kids
}

func tagOf(n node.Node) string {
	if el, ok := n.(*node.Element); ok {
		return el.Tag
	}
	return ""
}

func describe(el *node.Element) string {
	return fmt.Sprintf("<%s>", el.Tag)
}
