// Package collision holds the hit-testing geometry attached to stage objects.
package collision

import (
	"math"

	"github.com/graphif/stagecore/internal/geom"
)

// Box is a union of shapes owned by one stage object.
type Box struct {
	Shapes []geom.Shape
}

// New returns a box over the given shapes.
func New(shapes ...geom.Shape) *Box {
	return &Box{Shapes: shapes}
}

// FromRectangle is the common single-rectangle box.
func FromRectangle(r geom.Rectangle) *Box {
	return &Box{Shapes: []geom.Shape{r}}
}

// IsEmpty reports whether the box has no shapes.
func (b *Box) IsEmpty() bool {
	return b == nil || len(b.Shapes) == 0
}

// Rectangle returns the bounding rectangle of all shapes. ok is false for an empty box,
// whose bounds are undefined.
func (b *Box) Rectangle() (r geom.Rectangle, ok bool) {
	if b.IsEmpty() {
		return geom.Rectangle{}, false
	}
	r = b.Shapes[0].BoundingRectangle()
	for _, s := range b.Shapes[1:] {
		r = r.Union(s.BoundingRectangle())
	}
	return r, true
}

// MustRectangle is Rectangle for callers that guarantee a non-empty box.
func (b *Box) MustRectangle() geom.Rectangle {
	r, ok := b.Rectangle()
	if !ok {
		panic("collision: rectangle of empty box")
	}
	return r
}

// IsContainsPoint reports whether p falls inside any shape.
func (b *Box) IsContainsPoint(p geom.Vector) bool {
	if b == nil {
		return false
	}
	for _, s := range b.Shapes {
		if s.IsPointIn(p) {
			return true
		}
	}
	return false
}

// IsCollideWithRectangle reports whether any shape overlaps r.
func (b *Box) IsCollideWithRectangle(r geom.Rectangle) bool {
	if b == nil {
		return false
	}
	for _, s := range b.Shapes {
		if s.IsCollideWithRectangle(r) {
			return true
		}
	}
	return false
}

// IsCollideWithLine reports whether any shape touches l.
func (b *Box) IsCollideWithLine(l geom.Line) bool {
	if b == nil {
		return false
	}
	for _, s := range b.Shapes {
		if s.IsCollideWithLine(l) {
			return true
		}
	}
	return false
}

// LineIntersectionPoint returns the intersection of l with any shape border nearest to
// l.Start. Edges use it to stop at the border of the connected node.
func (b *Box) LineIntersectionPoint(l geom.Line) (geom.Vector, bool) {
	if b == nil {
		return geom.Vector{}, false
	}
	var (
		best  geom.Vector
		found bool
		dist  = math.Inf(1)
	)
	for _, s := range b.Shapes {
		p, ok := s.LineIntersection(l)
		if !ok {
			continue
		}
		if d := p.Distance(l.Start); d < dist {
			best, dist, found = p, d, true
		}
	}
	return best, found
}

// Translate moves every shape by d in place.
func (b *Box) Translate(d geom.Vector) {
	for i, s := range b.Shapes {
		b.Shapes[i] = s.TranslateShape(d)
	}
}
