package engine

import "math"

// Easing names an interpolation curve for effects.
type Easing string

const (
	EasingLinear     Easing = "linear"
	EasingEaseIn     Easing = "easeIn"
	EasingEaseOut    Easing = "easeOut"
	EasingEaseInOut  Easing = "easeInOut"
	EasingCubicOut   Easing = "cubicOut"
	EasingBackOut    Easing = "backOut"
	EasingElasticOut Easing = "elasticOut"
)

// applyEasing maps progress t in [0, 1] through the named curve.
func applyEasing(t float64, easing Easing) float64 {
	t = min(max(t, 0), 1)
	switch easing {
	case EasingEaseIn:
		return t * t

	case EasingEaseOut:
		return t * (2 - t)

	case EasingEaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t

	case EasingCubicOut:
		t2 := 1 - t
		return 1 - t2*t2*t2

	case EasingBackOut:
		c1 := 1.70158
		c3 := c1 + 1
		t2 := t - 1
		return 1 + c3*t2*t2*t2 + c1*t2*t2

	case EasingElasticOut:
		if t == 0 || t == 1 {
			return t
		}
		c4 := (2 * math.Pi) / 3
		return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*c4) + 1

	default: // linear
		return t
	}
}
