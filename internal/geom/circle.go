package geom

import "math"

// Circle is a disc around Location.
type Circle struct {
	Location Vector  `json:"location"`
	Radius   float64 `json:"radius"`
}

// IsPointIn reports whether p is strictly inside the circle.
func (c Circle) IsPointIn(p Vector) bool {
	return c.Location.Distance(p) < c.Radius
}

// IsCollideWithRectangle tests against the closest point of r to the center.
func (c Circle) IsCollideWithRectangle(r Rectangle) bool {
	closest := Vector{
		X: math.Max(r.Left(), math.Min(c.Location.X, r.Right())),
		Y: math.Max(r.Top(), math.Min(c.Location.Y, r.Bottom())),
	}
	return closest.Distance(c.Location) <= c.Radius
}

func (c Circle) IsCollideWithLine(l Line) bool {
	return l.DistanceToPoint(c.Location) <= c.Radius
}

func (c Circle) BoundingRectangle() Rectangle {
	return Rectangle{
		Location: c.Location.Subtract(Vector{c.Radius, c.Radius}),
		Size:     Vector{2 * c.Radius, 2 * c.Radius},
	}
}

// LineIntersection returns the crossing of l with the circumference closest to l.Start.
func (c Circle) LineIntersection(l Line) (Vector, bool) {
	d := l.Direction()
	f := l.Start.Subtract(c.Location)
	a := d.Dot(d)
	if a == 0 {
		return Vector{}, false
	}
	b := 2 * f.Dot(d)
	cc := f.Dot(f) - c.Radius*c.Radius
	disc := b*b - 4*a*cc
	if disc < 0 {
		return Vector{}, false
	}
	sq := math.Sqrt(disc)
	for _, t := range []float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
		if t >= 0 && t <= 1 {
			return l.Start.Add(d.Multiply(t)), true
		}
	}
	return Vector{}, false
}

func (c Circle) TranslateShape(d Vector) Shape {
	return Circle{Location: c.Location.Add(d), Radius: c.Radius}
}
