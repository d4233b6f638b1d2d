package component

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/parser"
	"github.com/neurodesk/hypermark/pkg/script"
	"github.com/neurodesk/hypermark/pkg/validator"
)

// PropsName is the script global holding a component's prop defaults.
const PropsName = "Props"

// ScopeAttr is the attribute carrying a component instance's scope id.
const ScopeAttr = "data-scope"

// Definition is a registered component. It is immutable after
// registration.
type Definition struct {
	Name string
	// Scope is Name~ followed by eight hex digits of the source hash.
	Scope string
	// Path is the file the definition was read from, if any.
	Path    string
	Props   node.Context
	Context node.Context
	Styles  []string
	Scripts []string
	Body    []node.Node
}

// Selector is the CSS attribute selector matching instances. The scope is
// quoted as is: ValidateName admits no quote or backslash in a name, and
// every registration path, files included, goes through it.
func (d *Definition) Selector() string {
	return fmt.Sprintf(`[%s="%s"]`, ScopeAttr, d.Scope)
}

// Fragments returns the definition's style and script sources.
func (d *Definition) Fragments() Fragments {
	return Fragments{Styles: d.Styles, Scripts: d.Scripts}
}

// ScopeID returns the scope identifier for a component name and source.
func ScopeID(name, src string) string {
	sum := sha256.Sum256([]byte(src))
	return name + "~" + hex.EncodeToString(sum[:])[:8]
}

// ValidateName checks a component name: dot-separated segments of
// letters, digits, '-' and '_', each starting with a letter.
func ValidateName(name string) error {
	if err := validator.NotEmpty(name, "component name"); err != nil {
		return err
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" || !isLetter(seg[0]) {
			return fmt.Errorf("component name %q: segments must start with a letter", name)
		}
		for i := 0; i < len(seg); i++ {
			c := seg[i]
			if !isLetter(c) && !(c >= '0' && c <= '9') && c != '-' && c != '_' {
				return fmt.Errorf("component name %q: invalid character %q", name, c)
			}
		}
	}
	return nil
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

// parseDefinition splits component source into fragments, props, script
// context and body.
func parseDefinition(name, path, src string, ev script.Evaluator) (*Definition, error) {
	label := path
	if label == "" {
		label = name
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	doc, err := parser.Parse(src)
	if err != nil {
		return nil, diag.WithFile(err, label)
	}

	def := &Definition{
		Name:    name,
		Scope:   ScopeID(name, src),
		Path:    path,
		Props:   node.Context{},
		Context: node.Context{},
	}

	kids, _ := doc.Children()
	for _, n := range kids {
		switch t := n.(type) {
		case *node.Literal:
			if t.Kind == node.Comment {
				continue
			}
			def.Body = append(def.Body, t)
		case *node.Element:
			switch strings.ToLower(t.Tag) {
			case "style":
				css := textOf(t)
				if scoped, ok := t.Attrs.Get("scoped"); ok && scoped != false {
					css = ScopeStyle(css, def.Selector())
				}
				def.Styles = append(def.Styles, css)
			case "script":
				def.Scripts = append(def.Scripts, textOf(t))
			case "starlark":
				if err := def.exec(t, ev, label); err != nil {
					return nil, err
				}
			default:
				def.Body = append(def.Body, t)
			}
		}
	}

	if len(def.Body) == 0 {
		return nil, diag.WithFile(
			diag.Structural(0, 0, "component %s: %w", name, diag.ErrEmptyComponent), label)
	}
	for _, n := range def.Body {
		if err := doc.Remove(n); err != nil {
			return nil, err
		}
	}
	return def, nil
}

// exec runs a definition script region. Earlier regions' globals are
// visible to later ones.
func (d *Definition) exec(el *node.Element, ev script.Evaluator, label string) error {
	if ev == nil {
		return diag.WithFile(diag.Structural(el.Position.Start.Line, el.Position.Start.Column,
			"component %s has a script region but no evaluator is configured", d.Name), label)
	}
	bindings := d.Context.Merge(node.Context{PropsName: node.DictValue(d.Props)})
	globals, _, err := ev.Exec(textOf(el), label, bindings)
	if err != nil {
		return diag.WithFile(err, label)
	}
	for k, v := range globals {
		if k != PropsName {
			d.Context[k] = v
			continue
		}
		props, ok := v.(node.DictValue)
		if !ok {
			return diag.WithFile(diag.Structural(el.Position.Start.Line, el.Position.Start.Column,
				"component %s: %s must be a dict, got %T", d.Name, PropsName, v), label)
		}
		for name, def := range props {
			if err := validator.Identifier(name, "prop name"); err != nil {
				return diag.WithFile(diag.Structural(el.Position.Start.Line, el.Position.Start.Column,
					"component %s: %w", d.Name, err), label)
			}
			d.Props[name] = def
		}
	}
	return nil
}

func textOf(el *node.Element) string {
	kids, err := el.Children()
	if err != nil {
		return ""
	}
	var sb strings.Builder
	for _, k := range kids {
		if l, ok := k.(*node.Literal); ok && l.Kind == node.Text {
			sb.WriteString(l.Content)
		}
	}
	return sb.String()
}
