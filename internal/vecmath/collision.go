package vecmath

import "math"

// Contact is the narrow-phase result of a circle-circle test
type Contact struct {
	Collided bool
	Depth    float64
	Normal   Vector2 // unit vector from the first circle towards the second
}

// CircleCircle tests two circles for overlap. Coincident centers report no
// collision since no normal can be derived.
func CircleCircle(c1 Vector2, r1 float64, c2 Vector2, r2 float64) Contact {
	d := c2.Sub(c1)
	dist := d.Len()
	radSum := r1 + r2
	if dist == 0 || dist >= radSum {
		return Contact{}
	}
	return Contact{
		Collided: true,
		Depth:    radSum - dist,
		Normal:   d.Scale(1 / dist),
	}
}

// Wrap maps v into [0, size)
func Wrap(v, size float64) float64 {
	w := math.Mod(v, size)
	if w < 0 {
		w += size
	}
	// -tiny + size rounds to size
	if w >= size {
		return 0
	}
	return w
}

// WrapPosition wraps p onto a w x h torus
func WrapPosition(p Vector2, w, h float64) Vector2 {
	return Vector2{X: Wrap(p.X, w), Y: Wrap(p.Y, h)}
}
