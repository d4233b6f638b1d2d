package component

import (
	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/validator"
)

const (
	// SlotTag marks where caller children are placed.
	SlotTag = "Slot"
	// SlotAttr selects the named slot for a caller child.
	SlotAttr = "slot"
)

type slotRef struct {
	el   *node.Element
	name string // empty for the catch-all slot
}

// findSlots collects the slot placeholders below root and checks that
// there is at most one catch-all slot and that slot names are unique.
func findSlots(root node.Node, component string) ([]slotRef, error) {
	var slots []slotRef
	var names []string
	catchAll := 0
	for _, el := range node.FindAll(root, func(e *node.Element) bool { return e.Tag == SlotTag }) {
		name, _ := el.Attrs.String("name")
		pos := el.Position.Start
		if err := validator.NoInterpolation(name, "slot name"); err != nil {
			return nil, diag.Structural(pos.Line, pos.Column, "component %s: %w", component, err)
		}
		if name == "" {
			catchAll++
			if catchAll > 1 {
				return nil, diag.Structural(pos.Line, pos.Column,
					"component %s: %w: more than one catch-all slot", component, diag.ErrDuplicateSlot)
			}
		} else {
			names = append(names, name)
			if err := validator.NoDuplicates(names, "slot names"); err != nil {
				return nil, diag.Structural(pos.Line, pos.Column,
					"component %s: %w: %v", component, diag.ErrDuplicateSlot, err)
			}
		}
		slots = append(slots, slotRef{el: el, name: name})
	}
	return slots, nil
}

// partition splits caller children into named buckets by their slot
// attribute, which is removed. Unmarked children go to the "" bucket.
func partition(children []node.Node) map[string][]node.Node {
	buckets := map[string][]node.Node{}
	for _, c := range children {
		name := ""
		if el, ok := c.(*node.Element); ok {
			if v, ok := el.Attrs.String(SlotAttr); ok {
				name = v
				el.Attrs.Delete(SlotAttr)
			}
		}
		buckets[name] = append(buckets[name], c)
	}
	return buckets
}

// bindSlots replaces every slot placeholder below root by its bucket. A
// named slot without content is removed. The catch-all slot without
// content is replaced by its own children, if it has any. It returns the
// names of buckets no slot took.
func bindSlots(slots []slotRef, buckets map[string][]node.Node) ([]string, error) {
	taken := map[string]bool{}
	for _, s := range slots {
		parent := s.el.Parent()
		if parent == nil {
			continue
		}
		content := buckets[s.name]
		if len(content) == 0 && s.name == "" && !s.el.IsVoid() {
			content, _ = s.el.Children()
		}
		taken[s.name] = true
		if err := parent.Replace(s.el, content...); err != nil {
			return nil, err
		}
	}
	var unused []string
	for name, nodes := range buckets {
		if !taken[name] && len(nodes) > 0 {
			unused = append(unused, name)
		}
	}
	return unused, nil
}
