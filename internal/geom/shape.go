package geom

// Shape is a primitive used for hit-testing. Implementations are value types.
type Shape interface {
	IsPointIn(p Vector) bool
	IsCollideWithRectangle(r Rectangle) bool
	IsCollideWithLine(l Line) bool
	BoundingRectangle() Rectangle
	// LineIntersection returns the crossing of l with the shape border closest to l.Start.
	LineIntersection(l Line) (Vector, bool)
	TranslateShape(d Vector) Shape
}

var (
	_ Shape = Rectangle{}
	_ Shape = Circle{}
	_ Shape = Line{}
	_ Shape = CubicBezierCurve{}
	_ Shape = CubicCatmullRomSpline{}
)
