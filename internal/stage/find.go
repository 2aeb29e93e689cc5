package stage

import (
	"slices"

	"github.com/graphif/stagecore/internal/geom"
)

// FindEntityByLocation returns the topmost entity under p. Ordinary nodes win, then
// connect points, then pen strokes. Sections are only a fallback so a click inside a
// section grabs the node under the cursor first. Entities hidden by a collapsed section
// are skipped.
func (m *Manager) FindEntityByLocation(p geom.Vector) Entity {
	var point, stroke Entity
	for i := len(m.objects) - 1; i >= 0; i-- {
		e, ok := m.objects[i].(Entity)
		if !ok || !e.CollisionBox().IsContainsPoint(p) || m.IsHiddenBySectionCollapse(e) {
			continue
		}
		switch e.(type) {
		case *Section:
		case *ConnectPoint:
			if point == nil {
				point = e
			}
		case *PenStroke:
			if stroke == nil {
				stroke = e
			}
		default:
			return e
		}
	}
	if point != nil {
		return point
	}
	if stroke != nil {
		return stroke
	}
	if s := m.FindSectionByLocation(p); s != nil {
		return s
	}
	return nil
}

// FindAssociationByLocation returns the topmost association whose body passes near p.
func (m *Manager) FindAssociationByLocation(p geom.Vector) Association {
	for i := len(m.objects) - 1; i >= 0; i-- {
		a, ok := m.objects[i].(Association)
		if ok && m.IsVisibleAssociation(a) && a.CollisionBox().IsContainsPoint(p) {
			return a
		}
	}
	return nil
}

// FindEdgeByLocation is FindAssociationByLocation restricted to directed edges.
func (m *Manager) FindEdgeByLocation(p geom.Vector) DirectedEdge {
	for i := len(m.objects) - 1; i >= 0; i-- {
		e, ok := m.objects[i].(DirectedEdge)
		if ok && m.IsVisibleAssociation(e) && e.CollisionBox().IsContainsPoint(p) {
			return e
		}
	}
	return nil
}

// FindSectionByLocation returns the deepest visible section containing p.
func (m *Manager) FindSectionByLocation(p geom.Vector) *Section {
	for _, s := range m.SectionsByInnerLocation(p) {
		if !m.IsHiddenBySectionCollapse(s) {
			return s
		}
	}
	return nil
}

// EntitiesInRectangle returns visible entities overlapping r, in z order.
func (m *Manager) EntitiesInRectangle(r geom.Rectangle) []Entity {
	var out []Entity
	for _, e := range m.Entities() {
		if !m.IsHiddenBySectionCollapse(e) && e.CollisionBox().IsCollideWithRectangle(r) {
			out = append(out, e)
		}
	}
	return out
}

// IsVisibleAssociation reports whether no endpoint is hidden by a collapsed section.
func (m *Manager) IsVisibleAssociation(a Association) bool {
	return !slices.ContainsFunc(a.Endpoints(), func(c Connectable) bool {
		return m.IsHiddenBySectionCollapse(c)
	})
}

func (m *Manager) SelectedObjects() []Object {
	var out []Object
	for _, o := range m.objects {
		if o.IsSelected() {
			out = append(out, o)
		}
	}
	return out
}

func (m *Manager) SelectedEntities() []Entity {
	return ofType[Entity](m.SelectedObjects())
}

func (m *Manager) SelectedAssociations() []Association {
	return ofType[Association](m.SelectedObjects())
}

func (m *Manager) SelectAll() {
	for _, o := range m.objects {
		o.SetSelected(true)
	}
}

func (m *Manager) ClearSelection() {
	for _, o := range m.objects {
		if o.IsSelected() {
			o.SetSelected(false)
		}
	}
}

// SelectByRectangle selects every visible object colliding with r. A section is only
// picked when r covers it entirely, so dragging inside a section selects its contents.
// Without additive the previous selection is cleared first.
func (m *Manager) SelectByRectangle(r geom.Rectangle, additive bool) []Object {
	if !additive {
		m.ClearSelection()
	}
	var picked []Object
	for _, o := range m.objects {
		switch v := o.(type) {
		case *Section:
			if m.IsHiddenBySectionCollapse(v) || !r.IsContainsRect(v.Rectangle()) {
				continue
			}
		case Entity:
			if m.IsHiddenBySectionCollapse(v) || !v.CollisionBox().IsCollideWithRectangle(r) {
				continue
			}
		case Association:
			if !m.IsVisibleAssociation(v) || !v.CollisionBox().IsCollideWithRectangle(r) {
				continue
			}
		}
		o.SetSelected(true)
		picked = append(picked, o)
	}
	return picked
}
