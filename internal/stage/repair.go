package stage

import (
	"fmt"
	"log/slog"
	"slices"
)

// RepairReport counts what Repair changed.
type RepairReport struct {
	ReboundChildren     int
	DroppedChildren     int
	DroppedAssociations int
	DroppedTags         int
	BrokenSectionCycles int
}

func (r RepairReport) Changed() bool {
	return r != RepairReport{}
}

// Repair makes the dual structure consistent again:
//   - every section child is the live object from the flat collection, unknown ones dropped;
//   - a section reachable from itself loses the child that closes the loop;
//   - associations with a missing endpoint are deleted, the rest point at live objects;
//   - tags naming missing objects are removed.
func (m *Manager) Repair() RepairReport {
	var r RepairReport
	for _, s := range m.Sections() {
		children := make([]Entity, 0, len(s.Children))
		for _, c := range s.Children {
			live, ok := m.EntityByUUID(c.UUID())
			if !ok || live.UUID() == s.UUID() {
				slog.Warn("dropping section child", "section", s.UUID(), "child", c.UUID())
				r.DroppedChildren++
				continue
			}
			if live != c {
				r.ReboundChildren++
			}
			if !slices.ContainsFunc(children, func(e Entity) bool { return e.UUID() == live.UUID() }) {
				children = append(children, live)
			}
		}
		s.Children = children
	}
	for _, s := range m.Sections() {
		for _, c := range slices.Clone(s.Children) {
			sub, ok := c.(*Section)
			if ok && m.IsEntityInSection(s, sub) {
				slog.Warn("breaking section cycle", "section", s.UUID(), "child", sub.UUID())
				s.removeChild(sub)
				r.BrokenSectionCycles++
			}
		}
	}

	lookup := func(id string) (Connectable, bool) {
		c, ok := m.byUUID[id].(Connectable)
		return c, ok
	}
	for _, a := range m.Associations() {
		if !a.Rebind(lookup) {
			slog.Warn("dropping association with missing endpoint", "uuid", a.UUID())
			m.Remove(a)
			r.DroppedAssociations++
		}
	}
	m.refreshShifting()

	kept := m.tags[:0]
	for _, t := range m.tags {
		if _, ok := m.byUUID[t]; ok && !slices.Contains(kept, t) {
			kept = append(kept, t)
			continue
		}
		r.DroppedTags++
	}
	m.tags = kept
	return r
}

// Validate reports invariant violations without changing anything.
func (m *Manager) Validate() []error {
	var errs []error
	for _, s := range m.Sections() {
		for _, c := range s.Children {
			live, ok := m.byUUID[c.UUID()]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("section %s: child %s: %w", s.UUID(), c.UUID(), ErrNotFound))
			case live != Object(c):
				errs = append(errs, fmt.Errorf("section %s: child %s is a stale copy", s.UUID(), c.UUID()))
			}
			if sub, ok := c.(*Section); ok && (sub.UUID() == s.UUID() || m.IsEntityInSection(s, sub)) {
				errs = append(errs, fmt.Errorf("section %s: child %s: %w", s.UUID(), c.UUID(), ErrSectionCycle))
			}
		}
	}
	for _, a := range m.Associations() {
		ends := a.Endpoints()
		for _, c := range ends {
			live, ok := m.byUUID[c.UUID()]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("association %s: endpoint %s: %w", a.UUID(), c.UUID(), ErrNotFound))
			case live != Object(c):
				errs = append(errs, fmt.Errorf("association %s: endpoint %s is a stale copy", a.UUID(), c.UUID()))
			}
		}
		if e, ok := a.(DirectedEdge); ok && e.EdgeBase().IsSelfLoop() && !m.AllowSelfLoop {
			errs = append(errs, fmt.Errorf("association %s: %w", a.UUID(), ErrSelfLoop))
		}
	}
	for _, t := range m.tags {
		if _, ok := m.byUUID[t]; !ok {
			errs = append(errs, fmt.Errorf("tag %s: %w", t, ErrNotFound))
		}
	}
	return errs
}
