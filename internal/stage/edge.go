package stage

import (
	"math"

	"github.com/graphif/stagecore/internal/collision"
	"github.com/graphif/stagecore/internal/geom"
)

// ShiftOffset separates an edge from its reverse twin so both stay clickable.
const ShiftOffset = 15.0

// EdgeKind picks the concrete type created by Manager.ConnectEntity.
type EdgeKind int

const (
	EdgeLine EdgeKind = iota
	EdgeCatmullRom
)

var centerRate = geom.V(0.5, 0.5)

// Edge is the shared part of directed edges.
type Edge struct {
	base
	Source         Connectable
	Target         Connectable
	Text           string
	Color          Color
	SourceRectRate geom.Vector
	TargetRectRate geom.Vector
	// IsShifting is set by the manager when a reverse edge exists.
	IsShifting bool
}

// DirectedEdge is implemented by LineEdge and CatmullRomEdge.
type DirectedEdge interface {
	Association
	EdgeBase() *Edge
}

func newEdge(id string, source, target Connectable) Edge {
	return Edge{
		base:           newBase(id),
		Source:         source,
		Target:         target,
		SourceRectRate: centerRate,
		TargetRectRate: centerRate,
	}
}

func (e *Edge) EdgeBase() *Edge { return e }

func (e *Edge) Endpoints() []Connectable {
	return []Connectable{e.Source, e.Target}
}

func (e *Edge) Rebind(lookup func(string) (Connectable, bool)) bool {
	src, ok1 := lookup(e.Source.UUID())
	dst, ok2 := lookup(e.Target.UUID())
	if !ok1 || !ok2 {
		return false
	}
	e.Source, e.Target = src, dst
	return true
}

// SourceLocation is the anchor inside the source rectangle.
func (e *Edge) SourceLocation() geom.Vector {
	return e.Source.Rectangle().InnerLocationByRateVector(e.SourceRectRate)
}

// TargetLocation is the anchor inside the target rectangle.
func (e *Edge) TargetLocation() geom.Vector {
	return e.Target.Rectangle().InnerLocationByRateVector(e.TargetRectRate)
}

// BodyLine runs between the borders of both endpoints, shifted sideways when a reverse
// edge exists.
func (e *Edge) BodyLine() geom.Line {
	from, to := e.SourceLocation(), e.TargetLocation()
	if e.IsShifting {
		normal := to.Subtract(from).Normalize().Rotate(-math.Pi / 2).Multiply(ShiftOffset)
		from, to = from.Add(normal), to.Add(normal)
	}
	center := geom.Line{Start: from, End: to}
	start, ok := e.Source.CollisionBox().LineIntersectionPoint(center.Reversed())
	if !ok {
		start = from
	}
	end, ok := e.Target.CollisionBox().LineIntersectionPoint(center)
	if !ok {
		end = to
	}
	return geom.Line{Start: start, End: end}
}

// TextRectangle is where the label is drawn.
func (e *Edge) TextRectangle() geom.Rectangle {
	w, h := MeasureText(e.Text, DefaultFontSize)
	return geom.CenteredAt(e.BodyLine().Midpoint(), geom.V(w, h))
}

func (e *Edge) IsLeftToRight() bool {
	return e.Source.Rectangle().Right() < e.Target.Rectangle().Left()
}

func (e *Edge) IsRightToLeft() bool {
	return e.Source.Rectangle().Left() > e.Target.Rectangle().Right()
}

func (e *Edge) IsTopToBottom() bool {
	return e.Source.Rectangle().Bottom() < e.Target.Rectangle().Top()
}

func (e *Edge) IsBottomToTop() bool {
	return e.Source.Rectangle().Top() > e.Target.Rectangle().Bottom()
}

// IsUnknownDirection is true when the endpoint rectangles overlap on both axes.
func (e *Edge) IsUnknownDirection() bool {
	return !e.IsLeftToRight() && !e.IsRightToLeft() && !e.IsTopToBottom() && !e.IsBottomToTop()
}

// IsSelfLoop reports whether both ends are the same entity.
func (e *Edge) IsSelfLoop() bool {
	return e.Source.UUID() == e.Target.UUID()
}

// Reverse swaps the endpoints and their anchor rates.
func (e *Edge) Reverse() {
	e.Source, e.Target = e.Target, e.Source
	e.SourceRectRate, e.TargetRectRate = e.TargetRectRate, e.SourceRectRate
}

// LineEdge is a straight directed edge.
type LineEdge struct {
	Edge
}

func NewLineEdge(id string, source, target Connectable) *LineEdge {
	return &LineEdge{Edge: newEdge(id, source, target)}
}

func (e *LineEdge) Kind() Kind       { return KindLineEdge }
func (e *LineEdge) Accept(v Visitor) { v.VisitLineEdge(e) }

func (e *LineEdge) CollisionBox() *collision.Box {
	if e.IsSelfLoop() {
		return collision.FromRectangle(e.Source.Rectangle().Expand(ShiftOffset))
	}
	return collision.New(e.BodyLine())
}

// CatmullRomEdge is a curved directed edge through optional user control points.
type CatmullRomEdge struct {
	Edge
	// ControlPoints are intermediate points the curve passes through.
	ControlPoints []geom.Vector
	Alpha         float64
	Tension       float64
}

func NewCatmullRomEdge(id string, source, target Connectable) *CatmullRomEdge {
	return &CatmullRomEdge{Edge: newEdge(id, source, target), Alpha: 0.5, Tension: 0}
}

func (e *CatmullRomEdge) Kind() Kind       { return KindCatmullRomEdge }
func (e *CatmullRomEdge) Accept(v Visitor) { v.VisitCatmullRomEdge(e) }

// Spline builds the curve from the source border to the target border. The first and
// last control points are phantom points extending the end segments.
func (e *CatmullRomEdge) Spline() geom.CubicCatmullRomSpline {
	body := e.BodyLine()
	pts := make([]geom.Vector, 0, len(e.ControlPoints)+4)
	pts = append(pts, body.Start)
	pts = append(pts, e.ControlPoints...)
	pts = append(pts, body.End)

	first := pts[0].Subtract(pts[1].Subtract(pts[0]))
	last := pts[len(pts)-1].Add(pts[len(pts)-1].Subtract(pts[len(pts)-2]))
	all := make([]geom.Vector, 0, len(pts)+2)
	all = append(all, first)
	all = append(all, pts...)
	all = append(all, last)

	alpha := e.Alpha
	if alpha == 0 {
		alpha = 0.5
	}
	return geom.CubicCatmullRomSpline{ControlPoints: all, Alpha: alpha}
}

func (e *CatmullRomEdge) CollisionBox() *collision.Box {
	if e.IsSelfLoop() {
		return collision.FromRectangle(e.Source.Rectangle().Expand(ShiftOffset))
	}
	return collision.New(e.Spline())
}
