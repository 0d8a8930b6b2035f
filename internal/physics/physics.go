// Package physics provides collision detection and distance utilities.
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Distance calculates the Euclidean distance between two points.
func Distance(a, b mgl32.Vec3) float32 {
	return b.Sub(a).Len()
}

// DistanceSquared calculates the squared distance between two points.
// Use this when comparing distances to avoid the sqrt cost.
func DistanceSquared(a, b mgl32.Vec3) float32 {
	d := b.Sub(a)
	return d.Dot(d)
}

// SpheresOverlap reports whether the squared centre distance is below
// r1² + r2². This is the cloth contact test, not the r1+r2 test: it is
// looser for small particles against a large obstacle.
func SpheresOverlap(c1 mgl32.Vec3, r1 float32, c2 mgl32.Vec3, r2 float32) bool {
	return DistanceSquared(c1, c2) < r1*r1+r2*r2
}

// SafeNormalize returns v scaled to unit length, or the zero vector when v
// has zero length. mgl32.Vec3.Normalize divides by zero in that case.
func SafeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}

// ProjectOnto returns the component of v along dir. dir does not need to be
// unit length; a zero dir yields the zero vector.
func ProjectOnto(v, dir mgl32.Vec3) mgl32.Vec3 {
	n := SafeNormalize(dir)
	return n.Mul(n.Dot(v))
}

// IsFinite reports whether every component of v is neither NaN nor ±Inf.
func IsFinite(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
