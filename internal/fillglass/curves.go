package fillglass

import "math"

// Curves map linear progress t in [0, 1] to eased progress in [0, 1].

// Linear returns t unchanged.
func Linear(t float64) float64 {
	return clampUnit(t)
}

// Decelerate starts fast and slows to a stop: 1-(1-t)^2.
func Decelerate(t float64) float64 {
	t = clampUnit(t)
	inv := 1 - t
	return 1 - inv*inv
}

// DecelerateBy returns a decelerating curve 1-(1-t)^(2*factor).
// Factors <= 0 fall back to 1.
func DecelerateBy(factor float64) func(float64) float64 {
	if factor <= 0 {
		factor = 1
	}
	if factor == 1 {
		return Decelerate
	}
	return func(t float64) float64 {
		return 1 - math.Pow(1-clampUnit(t), 2*factor)
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
