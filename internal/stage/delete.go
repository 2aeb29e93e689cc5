package stage

import (
	"fmt"
	"slices"
)

// DeleteSelectedObjects deletes everything selected and returns how many objects left
// the stage, cascades included.
func (m *Manager) DeleteSelectedObjects() int {
	n, _ := m.Delete(m.SelectedObjects())
	return n
}

// Delete removes objs with these rules:
//   - an association losing any endpoint is deleted with it, multi-target edges included;
//   - an expanded section hands its children to its own fathers (or the top level);
//   - a collapsed section deletes its descendants.
//
// Every object must be on the stage; otherwise nothing is removed.
func (m *Manager) Delete(objs []Object) (int, error) {
	for _, o := range objs {
		if !m.Contains(o) {
			return 0, fmt.Errorf("delete %s: %w", o.UUID(), ErrNotFound)
		}
	}

	doomed := map[string]bool{}
	var order []Object
	var mark func(o Object, wholeTree bool)
	mark = func(o Object, wholeTree bool) {
		if doomed[o.UUID()] {
			return
		}
		doomed[o.UUID()] = true
		order = append(order, o)
		if s, ok := o.(*Section); ok && (wholeTree || s.IsCollapsed) {
			for _, c := range s.Children {
				mark(c, true)
			}
		}
	}
	for _, o := range objs {
		mark(o, false)
	}
	for _, a := range m.Associations() {
		if doomed[a.UUID()] {
			continue
		}
		if slices.ContainsFunc(a.Endpoints(), func(c Connectable) bool { return doomed[c.UUID()] }) {
			mark(a, false)
		}
	}

	var liveFathers func(e Entity, seen map[string]bool) []*Section
	liveFathers = func(e Entity, seen map[string]bool) []*Section {
		var out []*Section
		for _, f := range m.FatherSections(e) {
			switch {
			case seen[f.UUID()]:
			case doomed[f.UUID()]:
				seen[f.UUID()] = true
				out = append(out, liveFathers(f, seen)...)
			default:
				out = append(out, f)
			}
		}
		return out
	}
	for _, o := range order {
		s, ok := o.(*Section)
		if !ok {
			continue
		}
		fathers := liveFathers(s, map[string]bool{})
		for _, c := range s.Children {
			if doomed[c.UUID()] {
				continue
			}
			for _, f := range fathers {
				f.addChild(c)
			}
		}
	}
	for _, o := range order {
		m.Remove(o)
	}
	m.refreshShifting()
	return len(order), nil
}
