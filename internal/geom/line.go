package geom

import "math"

// LineHitTolerance is the half-width of the band around a line or curve that counts as
// a hit for point containment.
const LineHitTolerance = 8.0

// Line is a segment from Start to End.
type Line struct {
	Start Vector `json:"start"`
	End   Vector `json:"end"`
}

func (l Line) Length() float64   { return l.Start.Distance(l.End) }
func (l Line) Midpoint() Vector  { return l.Start.Lerp(l.End, 0.5) }
func (l Line) Direction() Vector { return l.End.Subtract(l.Start) }

// Reversed swaps Start and End.
func (l Line) Reversed() Line { return Line{l.End, l.Start} }

// IntersectionPoint returns the point where segments l and o cross.
// Parallel and collinear segments report no intersection.
func (l Line) IntersectionPoint(o Line) (Vector, bool) {
	r := l.Direction()
	s := o.Direction()
	denom := r.Cross(s)
	if math.Abs(denom) < Epsilon {
		return Vector{}, false
	}
	qp := o.Start.Subtract(l.Start)
	t := qp.Cross(s) / denom
	u := qp.Cross(r) / denom
	if t < -Epsilon || t > 1+Epsilon || u < -Epsilon || u > 1+Epsilon {
		return Vector{}, false
	}
	return l.Start.Add(r.Multiply(t)), true
}

// IsIntersecting reports whether the segments touch, collinear overlap included.
func (l Line) IsIntersecting(o Line) bool {
	if _, ok := l.IntersectionPoint(o); ok {
		return true
	}
	if math.Abs(l.Direction().Cross(o.Direction())) >= Epsilon {
		return false
	}
	// Parallel: overlapping only when collinear and projections overlap.
	if math.Abs(o.Start.Subtract(l.Start).Cross(l.Direction())) >= Epsilon {
		return false
	}
	return onSegment(l, o.Start) || onSegment(l, o.End) || onSegment(o, l.Start) || onSegment(o, l.End)
}

func onSegment(l Line, p Vector) bool {
	return p.X >= math.Min(l.Start.X, l.End.X)-Epsilon && p.X <= math.Max(l.Start.X, l.End.X)+Epsilon &&
		p.Y >= math.Min(l.Start.Y, l.End.Y)-Epsilon && p.Y <= math.Max(l.Start.Y, l.End.Y)+Epsilon
}

// ClosestPoint returns the point on the segment nearest to p.
func (l Line) ClosestPoint(p Vector) Vector {
	d := l.Direction()
	lenSq := d.Dot(d)
	if lenSq == 0 {
		return l.Start
	}
	t := p.Subtract(l.Start).Dot(d) / lenSq
	t = math.Max(0, math.Min(1, t))
	return l.Start.Add(d.Multiply(t))
}

// DistanceToPoint returns the shortest distance from p to the segment.
func (l Line) DistanceToPoint(p Vector) float64 {
	return l.ClosestPoint(p).Distance(p)
}

// IsPointNear reports whether p lies within tol of the segment.
func (l Line) IsPointNear(p Vector, tol float64) bool {
	return l.DistanceToPoint(p) <= tol
}

// IsPointIn implements Shape with LineHitTolerance.
func (l Line) IsPointIn(p Vector) bool { return l.IsPointNear(p, LineHitTolerance) }

func (l Line) IsCollideWithRectangle(r Rectangle) bool { return r.IsCollideWithLine(l) }
func (l Line) IsCollideWithLine(o Line) bool           { return l.IsIntersecting(o) }

func (l Line) BoundingRectangle() Rectangle { return FromTwoPoints(l.Start, l.End) }

func (l Line) LineIntersection(o Line) (Vector, bool) { return l.IntersectionPoint(o) }

func (l Line) TranslateShape(d Vector) Shape {
	return Line{l.Start.Add(d), l.End.Add(d)}
}
