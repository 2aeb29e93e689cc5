package stage

import (
	"fmt"
	"sort"

	"github.com/graphif/stagecore/internal/geom"
)

// FatherSections returns the sections listing e as a direct child.
func (m *Manager) FatherSections(e Entity) []*Section {
	var out []*Section
	for _, s := range m.Sections() {
		if s.HasChild(e) {
			out = append(out, s)
		}
	}
	return out
}

// IsEntityInSection reports whether e is a child of s at any depth.
func (m *Manager) IsEntityInSection(e Entity, s *Section) bool {
	return isInSection(e, s, map[string]bool{})
}

func isInSection(e Entity, s *Section, seen map[string]bool) bool {
	if seen[s.UUID()] {
		return false
	}
	seen[s.UUID()] = true
	for _, c := range s.Children {
		if c.UUID() == e.UUID() {
			return true
		}
		if sub, ok := c.(*Section); ok && isInSection(e, sub, seen) {
			return true
		}
	}
	return false
}

// IsHiddenBySectionCollapse reports whether any ancestor section of e is collapsed.
func (m *Manager) IsHiddenBySectionCollapse(e Entity) bool {
	return m.hiddenBy(e, map[string]bool{})
}

func (m *Manager) hiddenBy(e Entity, seen map[string]bool) bool {
	for _, f := range m.FatherSections(e) {
		if seen[f.UUID()] {
			continue
		}
		seen[f.UUID()] = true
		if f.IsCollapsed || m.hiddenBy(f, seen) {
			return true
		}
	}
	return false
}

// SectionDepth is the number of sections enclosing e along its longest ancestor chain.
func (m *Manager) SectionDepth(e Entity) int {
	return m.sectionDepth(e, map[string]bool{})
}

func (m *Manager) sectionDepth(e Entity, seen map[string]bool) int {
	depth := 0
	for _, f := range m.FatherSections(e) {
		if seen[f.UUID()] {
			continue
		}
		seen[f.UUID()] = true
		depth = max(depth, 1+m.sectionDepth(f, seen))
		delete(seen, f.UUID())
	}
	return depth
}

// SectionsByInnerLocation returns the sections whose rectangle contains p, deepest first.
func (m *Manager) SectionsByInnerLocation(p geom.Vector) []*Section {
	var out []*Section
	depth := map[string]int{}
	for _, s := range m.Sections() {
		if s.Rectangle().IsPointIn(p) {
			out = append(out, s)
			depth[s.UUID()] = m.sectionDepth(s, map[string]bool{})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return depth[out[i].UUID()] > depth[out[j].UUID()]
	})
	return out
}

// GoInSection makes each entity a direct child of s, removing it from its current
// fathers. World positions are unchanged. A section cannot go into itself or into one
// of its descendants; the call is rejected before anything moves.
func (m *Manager) GoInSection(entities []Entity, s *Section) error {
	if !m.Contains(s) {
		return fmt.Errorf("go in section %s: %w", s.UUID(), ErrNotFound)
	}
	for _, e := range entities {
		if !m.Contains(e) {
			return fmt.Errorf("go in section %s: entity %s: %w", s.UUID(), e.UUID(), ErrNotFound)
		}
		if sub, ok := e.(*Section); ok && (sub.UUID() == s.UUID() || m.IsEntityInSection(s, sub)) {
			return fmt.Errorf("go in section %s: entity %s: %w", s.UUID(), e.UUID(), ErrSectionCycle)
		}
	}
	for _, e := range entities {
		for _, f := range m.FatherSections(e) {
			f.removeChild(e)
		}
		s.addChild(e)
	}
	return nil
}

// GoOutSection moves entities out of s into s's own fathers, or to the top level.
func (m *Manager) GoOutSection(entities []Entity, s *Section) error {
	if !m.Contains(s) {
		return fmt.Errorf("go out section %s: %w", s.UUID(), ErrNotFound)
	}
	fathers := m.FatherSections(s)
	for _, e := range entities {
		if !s.removeChild(e) {
			continue
		}
		for _, f := range fathers {
			f.addChild(e)
		}
	}
	return nil
}

// MoveEntity translates e. A section carries its descendants with it, and the
// ancestors of every moved entity refit around their children.
func (m *Manager) MoveEntity(e Entity, d geom.Vector) {
	m.moveTree(e, d, map[string]bool{})
	m.refitFathers(e)
}

// MoveSelected moves every selected entity once, even when a selected section also
// contains selected children.
func (m *Manager) MoveSelected(d geom.Vector) {
	moved := map[string]bool{}
	sel := m.SelectedEntities()
	for _, e := range sel {
		m.moveTree(e, d, moved)
	}
	for _, e := range sel {
		m.refitFathers(e)
	}
}

func (m *Manager) moveTree(e Entity, d geom.Vector, moved map[string]bool) {
	if moved[e.UUID()] {
		return
	}
	moved[e.UUID()] = true
	e.MoveBy(d)
	if s, ok := e.(*Section); ok {
		for _, c := range s.Children {
			m.moveTree(c, d, moved)
		}
	}
}

func (m *Manager) refitFathers(e Entity) {
	seen := map[string]bool{}
	queue := m.FatherSections(e)
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if seen[f.UUID()] {
			continue
		}
		seen[f.UUID()] = true
		f.AdjustToChildren()
		queue = append(queue, m.FatherSections(f)...)
	}
}

// SetCollapsed packs or unpacks a section and refits it.
func (m *Manager) SetCollapsed(s *Section, collapsed bool) {
	s.IsCollapsed = collapsed
	s.AdjustToChildren()
	m.refitFathers(s)
}

// PackIntoNewSection wraps entities in a new section fitted around them and adds it to
// the stage. The new section takes the place of the entities in their common fathers.
func (m *Manager) PackIntoNewSection(entities []Entity, title string) (*Section, error) {
	if len(entities) == 0 {
		return nil, fmt.Errorf("pack section: %w", geom.ErrEmpty)
	}
	rects := make([]geom.Rectangle, len(entities))
	for i, e := range entities {
		if !m.Contains(e) {
			return nil, fmt.Errorf("pack section: entity %s: %w", e.UUID(), ErrNotFound)
		}
		rects[i] = e.Rectangle()
	}
	bounds, err := geom.BoundingRectangle(rects...)
	if err != nil {
		return nil, fmt.Errorf("pack section: %w", err)
	}
	fathers := m.FatherSections(entities[0])
	s := NewSection("", title, bounds)
	if err := m.Add(s); err != nil {
		return nil, err
	}
	if err := m.GoInSection(entities, s); err != nil {
		m.Remove(s)
		return nil, err
	}
	s.AdjustToChildren()
	for _, f := range fathers {
		f.addChild(s)
	}
	return s, nil
}
