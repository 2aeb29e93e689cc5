package geom

import "math"

// CurveSegments is the number of straight pieces used to approximate a curve span.
const CurveSegments = 24

// CubicBezierCurve is a cubic Bézier from Start to End with two control points.
type CubicBezierCurve struct {
	Start Vector `json:"start"`
	Ctrl1 Vector `json:"ctrl1"`
	Ctrl2 Vector `json:"ctrl2"`
	End   Vector `json:"end"`
}

// Point evaluates the curve at t in [0,1].
func (c CubicBezierCurve) Point(t float64) Vector {
	u := 1 - t
	return c.Start.Multiply(u * u * u).
		Add(c.Ctrl1.Multiply(3 * u * u * t)).
		Add(c.Ctrl2.Multiply(3 * u * t * t)).
		Add(c.End.Multiply(t * t * t))
}

// Polyline approximates the curve with n segments.
func (c CubicBezierCurve) Polyline(n int) []Line {
	return polyline(c.Point, n)
}

func (c CubicBezierCurve) IsPointIn(p Vector) bool {
	return polylineNear(c.Polyline(CurveSegments), p)
}

func (c CubicBezierCurve) IsCollideWithRectangle(r Rectangle) bool {
	return polylineHitsRect(c.Polyline(CurveSegments), r)
}

func (c CubicBezierCurve) IsCollideWithLine(l Line) bool {
	return polylineHitsLine(c.Polyline(CurveSegments), l)
}

// BoundingRectangle returns the bounds of the control polygon, which contains the curve.
func (c CubicBezierCurve) BoundingRectangle() Rectangle {
	r, _ := BoundingRectangleOfPoints(c.Start, c.Ctrl1, c.Ctrl2, c.End)
	return r
}

func (c CubicBezierCurve) LineIntersection(l Line) (Vector, bool) {
	return polylineIntersection(c.Polyline(CurveSegments), l)
}

func (c CubicBezierCurve) TranslateShape(d Vector) Shape {
	return CubicBezierCurve{c.Start.Add(d), c.Ctrl1.Add(d), c.Ctrl2.Add(d), c.End.Add(d)}
}

// CubicCatmullRomSpline is a centripetal Catmull-Rom spline. The curve passes through
// every control point except the first and last, which only shape the end tangents.
type CubicCatmullRomSpline struct {
	ControlPoints []Vector `json:"controlPoints"`
	Alpha         float64  `json:"alpha"`
}

// NewCatmullRom builds a centripetal spline (alpha 0.5).
func NewCatmullRom(points ...Vector) CubicCatmullRomSpline {
	return CubicCatmullRomSpline{ControlPoints: points, Alpha: 0.5}
}

// Spans returns the number of drawable spans.
func (s CubicCatmullRomSpline) Spans() int {
	if len(s.ControlPoints) < 4 {
		return 0
	}
	return len(s.ControlPoints) - 3
}

// Polyline approximates each span with n segments. Splines with fewer than four control
// points degrade to straight lines between the points.
func (s CubicCatmullRomSpline) Polyline(n int) []Line {
	pts := s.ControlPoints
	if len(pts) < 4 {
		lines := make([]Line, 0, len(pts))
		for i := 1; i < len(pts); i++ {
			lines = append(lines, Line{pts[i-1], pts[i]})
		}
		return lines
	}
	var lines []Line
	for i := 0; i < s.Spans(); i++ {
		p0, p1, p2, p3 := pts[i], pts[i+1], pts[i+2], pts[i+3]
		lines = append(lines, polyline(func(t float64) Vector {
			return catmullRomPoint(p0, p1, p2, p3, s.Alpha, t)
		}, n)...)
	}
	return lines
}

// catmullRomPoint evaluates one span with the Barry-Goldman pyramid.
func catmullRomPoint(p0, p1, p2, p3 Vector, alpha, t float64) Vector {
	knot := func(ti float64, a, b Vector) float64 {
		d := math.Pow(a.Distance(b), alpha)
		if d < Epsilon {
			d = Epsilon
		}
		return ti + d
	}
	t0 := 0.0
	t1 := knot(t0, p0, p1)
	t2 := knot(t1, p1, p2)
	t3 := knot(t2, p2, p3)
	u := t1 + (t2-t1)*t

	mix := func(a, b Vector, ta, tb float64) Vector {
		return a.Multiply((tb - u) / (tb - ta)).Add(b.Multiply((u - ta) / (tb - ta)))
	}
	a1 := mix(p0, p1, t0, t1)
	a2 := mix(p1, p2, t1, t2)
	a3 := mix(p2, p3, t2, t3)
	b1 := mix(a1, a2, t0, t2)
	b2 := mix(a2, a3, t1, t3)
	return mix(b1, b2, t1, t2)
}

func (s CubicCatmullRomSpline) IsPointIn(p Vector) bool {
	return polylineNear(s.Polyline(CurveSegments), p)
}

func (s CubicCatmullRomSpline) IsCollideWithRectangle(r Rectangle) bool {
	return polylineHitsRect(s.Polyline(CurveSegments), r)
}

func (s CubicCatmullRomSpline) IsCollideWithLine(l Line) bool {
	return polylineHitsLine(s.Polyline(CurveSegments), l)
}

func (s CubicCatmullRomSpline) BoundingRectangle() Rectangle {
	var pts []Vector
	for _, l := range s.Polyline(CurveSegments) {
		pts = append(pts, l.Start, l.End)
	}
	if len(pts) == 0 {
		pts = s.ControlPoints
	}
	r, _ := BoundingRectangleOfPoints(pts...)
	return r
}

func (s CubicCatmullRomSpline) LineIntersection(l Line) (Vector, bool) {
	return polylineIntersection(s.Polyline(CurveSegments), l)
}

func (s CubicCatmullRomSpline) TranslateShape(d Vector) Shape {
	pts := make([]Vector, len(s.ControlPoints))
	for i, p := range s.ControlPoints {
		pts[i] = p.Add(d)
	}
	return CubicCatmullRomSpline{ControlPoints: pts, Alpha: s.Alpha}
}

func polyline(f func(float64) Vector, n int) []Line {
	if n < 1 {
		n = 1
	}
	lines := make([]Line, 0, n)
	prev := f(0)
	for i := 1; i <= n; i++ {
		next := f(float64(i) / float64(n))
		lines = append(lines, Line{prev, next})
		prev = next
	}
	return lines
}

func polylineNear(lines []Line, p Vector) bool {
	for _, l := range lines {
		if l.IsPointNear(p, LineHitTolerance) {
			return true
		}
	}
	return false
}

func polylineHitsRect(lines []Line, r Rectangle) bool {
	for _, l := range lines {
		if r.IsCollideWithLine(l) {
			return true
		}
	}
	return false
}

func polylineHitsLine(lines []Line, o Line) bool {
	for _, l := range lines {
		if l.IsIntersecting(o) {
			return true
		}
	}
	return false
}

func polylineIntersection(lines []Line, o Line) (Vector, bool) {
	var (
		best  Vector
		found bool
		dist  = math.Inf(1)
	)
	for _, l := range lines {
		p, ok := l.IntersectionPoint(o)
		if !ok {
			continue
		}
		if d := p.Distance(o.Start); d < dist {
			best, dist, found = p, d, true
		}
	}
	return best, found
}
