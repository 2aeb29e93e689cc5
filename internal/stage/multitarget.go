package stage

import (
	"slices"

	"github.com/graphif/stagecore/internal/collision"
	"github.com/graphif/stagecore/internal/geom"
)

// ArrowType is where a multi-target edge draws arrow heads.
type ArrowType string

const (
	ArrowInner ArrowType = "inner"
	ArrowOuter ArrowType = "outer"
	ArrowNone  ArrowType = "none"
)

// RenderType is how a multi-target edge is drawn.
type RenderType string

const (
	RenderLine   RenderType = "line"
	RenderConvex RenderType = "convex"
	RenderCircle RenderType = "circle"
)

const DefaultHullPadding = 10.0

// MultiTargetUndirectedEdge ties any number of entities together around a shared center.
type MultiTargetUndirectedEdge struct {
	base
	Members    []Connectable
	Text       string
	Color      Color
	RectRates  []geom.Vector
	CenterRate geom.Vector
	Arrow      ArrowType
	RenderType RenderType
	Padding    float64
}

func NewMultiTargetEdge(id string, members []Connectable) *MultiTargetUndirectedEdge {
	rates := make([]geom.Vector, len(members))
	for i := range rates {
		rates[i] = centerRate
	}
	return &MultiTargetUndirectedEdge{
		base:       newBase(id),
		Members:    members,
		RectRates:  rates,
		CenterRate: centerRate,
		Arrow:      ArrowNone,
		RenderType: RenderLine,
		Padding:    DefaultHullPadding,
	}
}

func (e *MultiTargetUndirectedEdge) Kind() Kind       { return KindMultiTargetEdge }
func (e *MultiTargetUndirectedEdge) Accept(v Visitor) { v.VisitMultiTargetEdge(e) }

func (e *MultiTargetUndirectedEdge) Endpoints() []Connectable {
	return slices.Clone(e.Members)
}

func (e *MultiTargetUndirectedEdge) Rebind(lookup func(string) (Connectable, bool)) bool {
	out := make([]Connectable, len(e.Members))
	for i, m := range e.Members {
		live, ok := lookup(m.UUID())
		if !ok {
			return false
		}
		out[i] = live
	}
	e.Members = out
	return true
}

func (e *MultiTargetUndirectedEdge) rateAt(i int) geom.Vector {
	if i < len(e.RectRates) {
		return e.RectRates[i]
	}
	return centerRate
}

// MemberLocations returns the anchor point inside each member.
func (e *MultiTargetUndirectedEdge) MemberLocations() []geom.Vector {
	pts := make([]geom.Vector, len(e.Members))
	for i, m := range e.Members {
		pts[i] = m.Rectangle().InnerLocationByRateVector(e.rateAt(i))
	}
	return pts
}

// CenterLocation is the hub of the edge: the midpoint for two members, otherwise the
// point at CenterRate inside the members' bounding rectangle.
func (e *MultiTargetUndirectedEdge) CenterLocation() geom.Vector {
	pts := e.MemberLocations()
	switch len(pts) {
	case 0:
		return geom.Vector{}
	case 1:
		return pts[0]
	case 2:
		return pts[0].Lerp(pts[1], 0.5)
	}
	rects := make([]geom.Rectangle, len(e.Members))
	for i, m := range e.Members {
		rects[i] = m.Rectangle()
	}
	bounds, _ := geom.BoundingRectangle(rects...)
	return bounds.InnerLocationByRateVector(e.CenterRate)
}

// CollisionBox is one line from the center to each member.
func (e *MultiTargetUndirectedEdge) CollisionBox() *collision.Box {
	center := e.CenterLocation()
	shapes := make([]geom.Shape, 0, len(e.Members))
	for _, p := range e.MemberLocations() {
		shapes = append(shapes, geom.Line{Start: center, End: p})
	}
	return collision.New(shapes...)
}

// Contains reports whether ent is a member.
func (e *MultiTargetUndirectedEdge) Contains(ent Entity) bool {
	return slices.ContainsFunc(e.Members, func(m Connectable) bool { return m.UUID() == ent.UUID() })
}
