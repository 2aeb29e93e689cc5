package geom

import (
	"errors"
	"math"
)

// ErrEmpty is returned by aggregate operations given no input.
var ErrEmpty = errors.New("geom: empty input")

// Rectangle is an axis-aligned box. Size components are expected to be non-negative.
type Rectangle struct {
	Location Vector `json:"location"`
	Size     Vector `json:"size"`
}

// Rect is shorthand for a rectangle at (x, y) with size (w, h).
func Rect(x, y, w, h float64) Rectangle {
	return Rectangle{Location: Vector{x, y}, Size: Vector{w, h}}
}

// FromEdges builds a rectangle from its left, top, right and bottom coordinates.
func FromEdges(left, top, right, bottom float64) Rectangle {
	return Rectangle{Location: Vector{left, top}, Size: Vector{right - left, bottom - top}}
}

// FromTwoPoints builds the rectangle spanned by two arbitrary corners.
func FromTwoPoints(a, b Vector) Rectangle {
	return FromEdges(math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Max(a.X, b.X), math.Max(a.Y, b.Y))
}

// CenteredAt builds a rectangle of the given size centered on c.
func CenteredAt(c, size Vector) Rectangle {
	return Rectangle{Location: c.Subtract(size.Divide(2)), Size: size}
}

func (r Rectangle) Left() float64   { return r.Location.X }
func (r Rectangle) Top() float64    { return r.Location.Y }
func (r Rectangle) Right() float64  { return r.Location.X + r.Size.X }
func (r Rectangle) Bottom() float64 { return r.Location.Y + r.Size.Y }
func (r Rectangle) Width() float64  { return r.Size.X }
func (r Rectangle) Height() float64 { return r.Size.Y }

func (r Rectangle) Center() Vector {
	return Vector{r.Location.X + r.Size.X/2, r.Location.Y + r.Size.Y/2}
}

func (r Rectangle) LeftTop() Vector     { return r.Location }
func (r Rectangle) RightTop() Vector    { return Vector{r.Right(), r.Top()} }
func (r Rectangle) LeftBottom() Vector  { return Vector{r.Left(), r.Bottom()} }
func (r Rectangle) RightBottom() Vector { return Vector{r.Right(), r.Bottom()} }

func (r Rectangle) LeftCenter() Vector   { return Vector{r.Left(), r.Location.Y + r.Size.Y/2} }
func (r Rectangle) RightCenter() Vector  { return Vector{r.Right(), r.Location.Y + r.Size.Y/2} }
func (r Rectangle) TopCenter() Vector    { return Vector{r.Location.X + r.Size.X/2, r.Top()} }
func (r Rectangle) BottomCenter() Vector { return Vector{r.Location.X + r.Size.X/2, r.Bottom()} }

// Edges returns the four border segments clockwise from the top.
func (r Rectangle) Edges() [4]Line {
	return [4]Line{
		{r.LeftTop(), r.RightTop()},
		{r.RightTop(), r.RightBottom()},
		{r.RightBottom(), r.LeftBottom()},
		{r.LeftBottom(), r.LeftTop()},
	}
}

// IsEmpty reports whether the rectangle has no area.
func (r Rectangle) IsEmpty() bool {
	return r.Size.X <= 0 || r.Size.Y <= 0
}

// IsPointIn reports whether p lies inside r, borders included.
func (r Rectangle) IsPointIn(p Vector) bool {
	return p.X >= r.Left() && p.X <= r.Right() && p.Y >= r.Top() && p.Y <= r.Bottom()
}

// IsCollideWith reports whether r and o overlap, touching borders included.
func (r Rectangle) IsCollideWith(o Rectangle) bool {
	return r.Left() <= o.Right() && r.Right() >= o.Left() &&
		r.Top() <= o.Bottom() && r.Bottom() >= o.Top()
}

// IsContainsRect reports whether o lies completely inside r.
func (r Rectangle) IsContainsRect(o Rectangle) bool {
	return o.Left() >= r.Left() && o.Right() <= r.Right() &&
		o.Top() >= r.Top() && o.Bottom() <= r.Bottom()
}

// IsCollideWithLine reports whether l crosses or lies inside r.
func (r Rectangle) IsCollideWithLine(l Line) bool {
	if r.IsPointIn(l.Start) || r.IsPointIn(l.End) {
		return true
	}
	for _, e := range r.Edges() {
		if e.IsIntersecting(l) {
			return true
		}
	}
	return false
}

// BoundingRectangle implements Shape.
func (r Rectangle) BoundingRectangle() Rectangle { return r }

// IsCollideWithRectangle implements Shape.
func (r Rectangle) IsCollideWithRectangle(o Rectangle) bool { return r.IsCollideWith(o) }

// Translate returns r moved by d.
func (r Rectangle) Translate(d Vector) Rectangle {
	return Rectangle{Location: r.Location.Add(d), Size: r.Size}
}

// TranslateShape implements Shape.
func (r Rectangle) TranslateShape(d Vector) Shape { return r.Translate(d) }

// Expand grows the rectangle by pad on every side.
func (r Rectangle) Expand(pad float64) Rectangle {
	return Rectangle{
		Location: r.Location.Subtract(Vector{pad, pad}),
		Size:     r.Size.Add(Vector{2 * pad, 2 * pad}),
	}
}

// Union returns the smallest rectangle containing r and o.
func (r Rectangle) Union(o Rectangle) Rectangle {
	return FromEdges(
		math.Min(r.Left(), o.Left()),
		math.Min(r.Top(), o.Top()),
		math.Max(r.Right(), o.Right()),
		math.Max(r.Bottom(), o.Bottom()),
	)
}

// InnerLocationByRateVector maps a rate in [0,1]x[0,1] to a point inside r.
func (r Rectangle) InnerLocationByRateVector(rate Vector) Vector {
	return Vector{r.Location.X + r.Size.X*rate.X, r.Location.Y + r.Size.Y*rate.Y}
}

// InnerRateVector is the inverse of InnerLocationByRateVector.
func (r Rectangle) InnerRateVector(p Vector) Vector {
	var rate Vector
	if r.Size.X != 0 {
		rate.X = (p.X - r.Location.X) / r.Size.X
	}
	if r.Size.Y != 0 {
		rate.Y = (p.Y - r.Location.Y) / r.Size.Y
	}
	return rate
}

// LineIntersectionPoint returns the intersection of l with the border of r closest to
// l.Start. When l does not cross the border the center of r is returned.
func (r Rectangle) LineIntersectionPoint(l Line) Vector {
	best, ok := r.lineIntersection(l)
	if !ok {
		return r.Center()
	}
	return best
}

func (r Rectangle) lineIntersection(l Line) (Vector, bool) {
	var (
		best  Vector
		found bool
		dist  = math.Inf(1)
	)
	for _, e := range r.Edges() {
		p, ok := e.IntersectionPoint(l)
		if !ok {
			continue
		}
		if d := p.Distance(l.Start); d < dist {
			best, dist, found = p, d, true
		}
	}
	return best, found
}

// LineIntersection implements Shape.
func (r Rectangle) LineIntersection(l Line) (Vector, bool) {
	return r.lineIntersection(l)
}

// BoundingRectangle returns the union of all rects.
func BoundingRectangle(rects ...Rectangle) (Rectangle, error) {
	if len(rects) == 0 {
		return Rectangle{}, ErrEmpty
	}
	out := rects[0]
	for _, r := range rects[1:] {
		out = out.Union(r)
	}
	return out, nil
}

// BoundingRectangleOfPoints returns the bounds of a point set.
func BoundingRectangleOfPoints(points ...Vector) (Rectangle, error) {
	if len(points) == 0 {
		return Rectangle{}, ErrEmpty
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return FromEdges(minX, minY, maxX, maxY), nil
}
