package stage

import (
	"fmt"
	"math"
	"strings"
)

// Color is RGBA with 0-255 channels and alpha in [0,1]. The zero value is transparent,
// which renderers treat as "use the theme default".
type Color struct {
	R float64
	G float64
	B float64
	A float64
}

func RGBA(r, g, b, a float64) Color { return Color{R: r, G: g, B: b, A: a} }

func (c Color) IsTransparent() bool { return c.A == 0 }

// Array returns the [r, g, b, a] document form.
func (c Color) Array() []float64 {
	return []float64{c.R, c.G, c.B, c.A}
}

// ColorFromArray parses the document form; short arrays are padded, missing alpha is opaque.
func ColorFromArray(a []float64) Color {
	var c Color
	if len(a) == 0 {
		return c
	}
	c.A = 1
	for i, v := range a {
		switch i {
		case 0:
			c.R = v
		case 1:
			c.G = v
		case 2:
			c.B = v
		case 3:
			c.A = v
		}
	}
	return c
}

// Hex returns #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

// CSS returns an rgba() expression.
func (c Color) CSS() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rgba(%d,%d,%d,%g)", channel(c.R), channel(c.G), channel(c.B), c.A)
	return b.String()
}

// Normalized returns channels scaled to [0,1].
func (c Color) Normalized() (r, g, b, a float64) {
	return c.R / 255, c.G / 255, c.B / 255, c.A
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
