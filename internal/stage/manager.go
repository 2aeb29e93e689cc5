package stage

import (
	"errors"
	"fmt"
	"slices"

	"github.com/graphif/stagecore/internal/geom"
)

var (
	ErrNotFound       = errors.New("object not found")
	ErrDuplicateUUID  = errors.New("duplicate uuid")
	ErrNilEndpoint    = errors.New("edge endpoint is nil")
	ErrNotConnectable = errors.New("entity is not connectable")
	ErrSelfLoop       = errors.New("self loop not allowed")
	ErrSectionCycle   = errors.New("section cannot contain itself")
	ErrTooFewMembers  = errors.New("multi-target edge needs at least two members")
)

// Manager owns the flat object collection. The slice order is the z order: later
// objects are drawn on top and hit first.
type Manager struct {
	objects []Object
	byUUID  map[string]Object
	tags    []string

	// AllowSelfLoop lets ConnectEntity create edges from an entity to itself.
	AllowSelfLoop bool
}

func NewManager() *Manager {
	return &Manager{byUUID: make(map[string]Object)}
}

// Add appends obj on top. It does not select it.
func (m *Manager) Add(obj Object) error {
	if obj == nil {
		return fmt.Errorf("add: %w", ErrNotFound)
	}
	if _, ok := m.byUUID[obj.UUID()]; ok {
		return fmt.Errorf("add %s: %w", obj.UUID(), ErrDuplicateUUID)
	}
	m.objects = append(m.objects, obj)
	m.byUUID[obj.UUID()] = obj
	return nil
}

// Remove drops obj from the collection and from every section's children. It does not
// cascade to associations; use Delete for that.
func (m *Manager) Remove(obj Object) bool {
	if _, ok := m.byUUID[obj.UUID()]; !ok {
		return false
	}
	delete(m.byUUID, obj.UUID())
	m.objects = slices.DeleteFunc(m.objects, func(o Object) bool { return o.UUID() == obj.UUID() })
	if e, ok := obj.(Entity); ok {
		for _, s := range m.Sections() {
			s.removeChild(e)
		}
	}
	m.tags = slices.DeleteFunc(m.tags, func(t string) bool { return t == obj.UUID() })
	return true
}

// Clear empties the stage.
func (m *Manager) Clear() {
	m.objects = nil
	m.byUUID = make(map[string]Object)
	m.tags = nil
}

func (m *Manager) Len() int { return len(m.objects) }

func (m *Manager) Get(id string) (Object, bool) {
	o, ok := m.byUUID[id]
	return o, ok
}

func (m *Manager) EntityByUUID(id string) (Entity, bool) {
	e, ok := m.byUUID[id].(Entity)
	return e, ok
}

func (m *Manager) Contains(obj Object) bool {
	_, ok := m.byUUID[obj.UUID()]
	return ok
}

// Objects returns the collection in z order.
func (m *Manager) Objects() []Object {
	return slices.Clone(m.objects)
}

func ofType[T any](objs []Object) []T {
	var out []T
	for _, o := range objs {
		if t, ok := o.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func (m *Manager) Entities() []Entity                 { return ofType[Entity](m.objects) }
func (m *Manager) Associations() []Association        { return ofType[Association](m.objects) }
func (m *Manager) TextNodes() []*TextNode             { return ofType[*TextNode](m.objects) }
func (m *Manager) Sections() []*Section               { return ofType[*Section](m.objects) }
func (m *Manager) ImageNodes() []*ImageNode           { return ofType[*ImageNode](m.objects) }
func (m *Manager) SvgNodes() []*SvgNode               { return ofType[*SvgNode](m.objects) }
func (m *Manager) UrlNodes() []*UrlNode               { return ofType[*UrlNode](m.objects) }
func (m *Manager) PortalNodes() []*PortalNode         { return ofType[*PortalNode](m.objects) }
func (m *Manager) ConnectPoints() []*ConnectPoint     { return ofType[*ConnectPoint](m.objects) }
func (m *Manager) PenStrokes() []*PenStroke           { return ofType[*PenStroke](m.objects) }
func (m *Manager) Edges() []DirectedEdge              { return ofType[DirectedEdge](m.objects) }
func (m *Manager) LineEdges() []*LineEdge             { return ofType[*LineEdge](m.objects) }
func (m *Manager) CatmullRomEdges() []*CatmullRomEdge { return ofType[*CatmullRomEdge](m.objects) }
func (m *Manager) MultiTargetEdges() []*MultiTargetUndirectedEdge {
	return ofType[*MultiTargetUndirectedEdge](m.objects)
}

// AssociationsOf returns every association with e as an endpoint.
func (m *Manager) AssociationsOf(e Entity) []Association {
	var out []Association
	for _, a := range m.Associations() {
		if slices.ContainsFunc(a.Endpoints(), func(c Connectable) bool { return c.UUID() == e.UUID() }) {
			out = append(out, a)
		}
	}
	return out
}

// BoundingRectangle covers every entity. ok is false on an empty stage.
func (m *Manager) BoundingRectangle() (geom.Rectangle, bool) {
	ents := m.Entities()
	rects := make([]geom.Rectangle, 0, len(ents))
	for _, e := range ents {
		if _, ok := e.CollisionBox().Rectangle(); ok {
			rects = append(rects, e.Rectangle())
		}
	}
	r, err := geom.BoundingRectangle(rects...)
	return r, err == nil
}

// Center is the center of BoundingRectangle, or the origin on an empty stage.
func (m *Manager) Center() geom.Vector {
	r, ok := m.BoundingRectangle()
	if !ok {
		return geom.Vector{}
	}
	return r.Center()
}

// SizeOfSelection is the size of the selected entities' bounding rectangle.
func (m *Manager) SizeOfSelection() geom.Vector {
	ents := m.SelectedEntities()
	rects := make([]geom.Rectangle, len(ents))
	for i, e := range ents {
		rects[i] = e.Rectangle()
	}
	r, err := geom.BoundingRectangle(rects...)
	if err != nil {
		return geom.Vector{}
	}
	return r.Size
}

// Tags returns the uuids of tagged objects in display order.
func (m *Manager) Tags() []string {
	return slices.Clone(m.tags)
}

func (m *Manager) IsTagged(id string) bool {
	return slices.Contains(m.tags, id)
}

func (m *Manager) AddTag(id string) error {
	if _, ok := m.byUUID[id]; !ok {
		return fmt.Errorf("tag %s: %w", id, ErrNotFound)
	}
	if !m.IsTagged(id) {
		m.tags = append(m.tags, id)
	}
	return nil
}

func (m *Manager) RemoveTag(id string) bool {
	n := len(m.tags)
	m.tags = slices.DeleteFunc(m.tags, func(t string) bool { return t == id })
	return len(m.tags) != n
}

// ToggleTags untags the selected objects when all of them are tagged, and tags them
// otherwise.
func (m *Manager) ToggleTags() {
	sel := m.SelectedObjects()
	if len(sel) == 0 {
		return
	}
	allTagged := !slices.ContainsFunc(sel, func(o Object) bool { return !m.IsTagged(o.UUID()) })
	for _, o := range sel {
		if allTagged {
			m.RemoveTag(o.UUID())
		} else if !m.IsTagged(o.UUID()) {
			m.tags = append(m.tags, o.UUID())
		}
	}
}

func (m *Manager) MoveTagUp(id string) bool {
	i := slices.Index(m.tags, id)
	if i <= 0 {
		return false
	}
	m.tags[i-1], m.tags[i] = m.tags[i], m.tags[i-1]
	return true
}

func (m *Manager) MoveTagDown(id string) bool {
	i := slices.Index(m.tags, id)
	if i < 0 || i == len(m.tags)-1 {
		return false
	}
	m.tags[i+1], m.tags[i] = m.tags[i], m.tags[i+1]
	return true
}

// Load replaces the whole stage and repairs it.
func (m *Manager) Load(objs []Object, tags []string) (RepairReport, error) {
	fresh := NewManager()
	fresh.AllowSelfLoop = m.AllowSelfLoop
	for _, o := range objs {
		if err := fresh.Add(o); err != nil {
			return RepairReport{}, fmt.Errorf("load stage: %w", err)
		}
	}
	fresh.tags = slices.Clone(tags)
	report := fresh.Repair()
	*m = *fresh
	return report, nil
}
