package compiler

import (
	"fmt"
	"slices"

	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/node"
)

// Stage selects when a step runs.
type Stage int

const (
	// StageSetup steps run once on the whole document before scoped work.
	StageSetup Stage = iota
	// StageScoped steps run once per scope, a node and its direct
	// children, in pre-order over every element of the document.
	StageScoped
	// StagePost steps run once on the whole document after scoped work.
	StagePost
	numStages
)

func (s Stage) String() string {
	switch s {
	case StageSetup:
		return "setup"
	case StageScoped:
		return "scoped"
	case StagePost:
		return "post"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Step is a named tree transformation. For setup and post steps scope is
// the document.
type Step struct {
	Name string
	Run  func(c *Compilation, scope node.Parent) error
}

// Pipeline is an ordered list of steps per stage.
type Pipeline struct {
	steps [numStages][]Step
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{} }

// DefaultPipeline returns the standard steps in their fixed order.
func DefaultPipeline() *Pipeline {
	p := NewPipeline()
	p.steps[StageSetup] = []Step{
		{Name: "script-regions", Run: scriptRegions},
	}
	p.steps[StageScoped] = []Step{
		{Name: "wrappers", Run: unwrapWrappers},
		{Name: "loops", Run: expandLoops},
		{Name: "conditionals", Run: resolveConditionals},
		{Name: "markdown", Run: compileMarkdown},
		{Name: "expressions", Run: evaluateExpressions},
		{Name: "components", Run: substituteComponents},
	}
	p.steps[StagePost] = []Step{
		{Name: "component-assets", Run: flushComponentAssets},
		{Name: "doctype", Run: ensureDoctype},
	}
	return p
}

func (p *Pipeline) check(stage Stage) error {
	if stage < 0 || stage >= numStages {
		return diag.Internal("unknown stage %s", stage)
	}
	return nil
}

func (p *Pipeline) find(stage Stage, name string) int {
	return slices.IndexFunc(p.steps[stage], func(s Step) bool { return s.Name == name })
}

// Add appends step to stage. Adding a step whose name is already present
// in that stage does nothing.
func (p *Pipeline) Add(stage Stage, step Step) error {
	if err := p.check(stage); err != nil {
		return err
	}
	if step.Name == "" || step.Run == nil {
		return fmt.Errorf("step needs a name and a run function")
	}
	if p.find(stage, step.Name) >= 0 {
		return nil
	}
	p.steps[stage] = append(p.steps[stage], step)
	return nil
}

// AddBefore inserts step in front of the step named before. Like Add it
// ignores duplicates.
func (p *Pipeline) AddBefore(stage Stage, before string, step Step) error {
	if err := p.check(stage); err != nil {
		return err
	}
	if p.find(stage, step.Name) >= 0 {
		return nil
	}
	i := p.find(stage, before)
	if i < 0 {
		return fmt.Errorf("%s step %q: %w", stage, before, diag.ErrNotFound)
	}
	p.steps[stage] = slices.Insert(p.steps[stage], i, step)
	return nil
}

// Remove deletes the step named name from stage. It fails when there is
// no such step.
func (p *Pipeline) Remove(stage Stage, name string) error {
	if err := p.check(stage); err != nil {
		return err
	}
	i := p.find(stage, name)
	if i < 0 {
		return fmt.Errorf("%s step %q: %w", stage, name, diag.ErrNotFound)
	}
	p.steps[stage] = slices.Delete(p.steps[stage], i, i+1)
	return nil
}

// Steps returns a copy of the steps of stage.
func (p *Pipeline) Steps(stage Stage) []Step {
	if p.check(stage) != nil {
		return nil
	}
	return slices.Clone(p.steps[stage])
}

// Names returns the step names of stage.
func (p *Pipeline) Names(stage Stage) []string {
	var out []string
	for _, s := range p.Steps(stage) {
		out = append(out, s.Name)
	}
	return out
}

// Clone returns an independent copy of p.
func (p *Pipeline) Clone() *Pipeline {
	c := &Pipeline{}
	for i := range p.steps {
		c.steps[i] = slices.Clone(p.steps[i])
	}
	return c
}
