package stage

import (
	"fmt"
	"slices"
)

// ConnectEntity creates a directed edge from source to target and adds it to the stage.
// When an edge between the same pair in the same direction already exists it is
// returned instead of a new one.
func (m *Manager) ConnectEntity(source, target Connectable, kind EdgeKind) (DirectedEdge, error) {
	if source == nil || target == nil {
		return nil, fmt.Errorf("connect: %w", ErrNilEndpoint)
	}
	for _, c := range []Connectable{source, target} {
		if !m.Contains(c) {
			return nil, fmt.Errorf("connect: endpoint %s: %w", c.UUID(), ErrNotFound)
		}
	}
	if source.UUID() == target.UUID() && !m.AllowSelfLoop {
		return nil, fmt.Errorf("connect %s: %w", source.UUID(), ErrSelfLoop)
	}
	if existing := m.EdgeBetween(source, target); existing != nil {
		return existing, nil
	}

	var edge DirectedEdge
	switch kind {
	case EdgeCatmullRom:
		edge = NewCatmullRomEdge("", source, target)
	default:
		edge = NewLineEdge("", source, target)
	}
	if err := m.Add(edge); err != nil {
		return nil, err
	}
	m.refreshShifting()
	return edge, nil
}

// ConnectByUUID resolves both endpoints and connects them. Non-connectable entities such
// as pen strokes are rejected.
func (m *Manager) ConnectByUUID(sourceID, targetID string, kind EdgeKind) (DirectedEdge, error) {
	source, err := m.connectable(sourceID)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	target, err := m.connectable(targetID)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return m.ConnectEntity(source, target, kind)
}

func (m *Manager) connectable(id string) (Connectable, error) {
	o, ok := m.byUUID[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	c, ok := o.(Connectable)
	if !ok {
		return nil, fmt.Errorf("%s (%s): %w", id, o.Kind(), ErrNotConnectable)
	}
	return c, nil
}

// ConnectMultiTarget ties the entities together with one undirected edge.
func (m *Manager) ConnectMultiTarget(entities []Connectable) (*MultiTargetUndirectedEdge, error) {
	if len(entities) < 2 {
		return nil, fmt.Errorf("connect: %w", ErrTooFewMembers)
	}
	for _, e := range entities {
		if e == nil {
			return nil, fmt.Errorf("connect: %w", ErrNilEndpoint)
		}
		if !m.Contains(e) {
			return nil, fmt.Errorf("connect: endpoint %s: %w", e.UUID(), ErrNotFound)
		}
	}
	edge := NewMultiTargetEdge("", slices.Clone(entities))
	if err := m.Add(edge); err != nil {
		return nil, err
	}
	return edge, nil
}

// EdgeBetween returns the directed edge from source to target, if any.
func (m *Manager) EdgeBetween(source, target Entity) DirectedEdge {
	for _, e := range m.Edges() {
		b := e.EdgeBase()
		if b.Source.UUID() == source.UUID() && b.Target.UUID() == target.UUID() {
			return e
		}
	}
	return nil
}

// IsConnected reports whether a directed edge runs from source to target.
func (m *Manager) IsConnected(source, target Entity) bool {
	return m.EdgeBetween(source, target) != nil
}

// ReverseEdges flips the direction of each edge. An edge whose reverse already exists
// is left alone.
func (m *Manager) ReverseEdges(edges []DirectedEdge) {
	for _, e := range edges {
		b := e.EdgeBase()
		if m.IsConnected(b.Target, b.Source) {
			continue
		}
		b.Reverse()
	}
	m.refreshShifting()
}

// Disconnect removes a single association.
func (m *Manager) Disconnect(a Association) error {
	if !m.Remove(a) {
		return fmt.Errorf("disconnect %s: %w", a.UUID(), ErrNotFound)
	}
	m.refreshShifting()
	return nil
}

// Children returns the direct successors of e along directed edges.
func (m *Manager) Children(e Entity) []Connectable {
	var out []Connectable
	for _, edge := range m.Edges() {
		b := edge.EdgeBase()
		if b.Source.UUID() == e.UUID() {
			out = append(out, b.Target)
		}
	}
	return out
}

// Parents returns the direct predecessors of e along directed edges.
func (m *Manager) Parents(e Entity) []Connectable {
	var out []Connectable
	for _, edge := range m.Edges() {
		b := edge.EdgeBase()
		if b.Target.UUID() == e.UUID() {
			out = append(out, b.Source)
		}
	}
	return out
}

// refreshShifting marks edges that have a reverse twin so they render side by side.
func (m *Manager) refreshShifting() {
	for _, e := range m.Edges() {
		b := e.EdgeBase()
		b.IsShifting = !b.IsSelfLoop() && m.IsConnected(b.Target, b.Source)
	}
}
