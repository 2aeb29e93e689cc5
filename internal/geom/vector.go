package geom

import "math"

// Epsilon is the tolerance used for floating point comparisons across the package.
const Epsilon = 1e-9

// Vector is a 2D point or displacement. Methods return new values.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// V is shorthand for Vector{X: x, Y: y}.
func V(x, y float64) Vector {
	return Vector{X: x, Y: y}
}

// Zero returns the origin.
func Zero() Vector { return Vector{} }

func (v Vector) Add(o Vector) Vector      { return Vector{v.X + o.X, v.Y + o.Y} }
func (v Vector) Subtract(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y} }
func (v Vector) Multiply(k float64) Vector {
	return Vector{v.X * k, v.Y * k}
}

// Divide returns v/k. Division by zero yields the zero vector.
func (v Vector) Divide(k float64) Vector {
	if k == 0 {
		return Vector{}
	}
	return Vector{v.X / k, v.Y / k}
}

// MultiplyVector multiplies component-wise.
func (v Vector) MultiplyVector(o Vector) Vector {
	return Vector{v.X * o.X, v.Y * o.Y}
}

func (v Vector) Dot(o Vector) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vector) Cross(o Vector) float64 { return v.X*o.Y - v.Y*o.X }

// Magnitude returns the Euclidean length.
func (v Vector) Magnitude() float64 {
	return math.Hypot(v.X, v.Y)
}

// Distance returns the Euclidean distance between v and o.
func (v Vector) Distance(o Vector) float64 {
	return v.Subtract(o).Magnitude()
}

// Normalize returns a unit vector in the direction of v, or zero when v is zero.
func (v Vector) Normalize() Vector {
	m := v.Magnitude()
	if m == 0 {
		return Vector{}
	}
	return Vector{v.X / m, v.Y / m}
}

// Rotate rotates v by radians around the origin.
func (v Vector) Rotate(radians float64) Vector {
	s, c := math.Sincos(radians)
	return Vector{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// Angle returns the direction of v in radians.
func (v Vector) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Equals reports whether both components differ by at most eps.
func (v Vector) Equals(o Vector, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

func (v Vector) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Lerp interpolates between v (t=0) and o (t=1).
func (v Vector) Lerp(o Vector, t float64) Vector {
	return Vector{v.X + (o.X-v.X)*t, v.Y + (o.Y-v.Y)*t}
}

// Array returns the [x, y] form used by the document format.
func (v Vector) Array() [2]float64 {
	return [2]float64{v.X, v.Y}
}

// FromArray builds a Vector from the [x, y] document form.
func FromArray(a [2]float64) Vector {
	return Vector{X: a[0], Y: a[1]}
}
