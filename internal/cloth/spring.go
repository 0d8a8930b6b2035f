package cloth

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tomz197/fabric/internal/physics"
)

// Spring links two particles. The endpoints never change after creation.
type Spring struct {
	Origin *Particle
	Target *Particle

	Stiffness  float32
	RestLength float32
}

// NewSpring creates a spring between origin and target.
func NewSpring(origin, target *Particle, stiffness, restLength float32) Spring {
	return Spring{
		Origin:     origin,
		Target:     target,
		Stiffness:  stiffness,
		RestLength: restLength,
	}
}

// Length returns the current distance between the endpoints.
func (s *Spring) Length() float32 {
	return physics.Distance(s.Origin.Pos, s.Target.Pos)
}

// ApplyHooke adds equal and opposite Hooke's-law forces to both endpoints.
// A stretched spring pulls them together, a compressed one pushes them apart.
func (s *Spring) ApplyHooke() {
	ext := s.Length() - s.RestLength

	f := s.Axis().Mul(s.Stiffness * ext)

	s.Target.ApplyForce(f.Mul(-1))
	s.Origin.ApplyForce(f)
}

// ApplyConstraint moves both endpoints halfway toward the rest length.
// Coincident endpoints have no defined direction and are left alone.
func (s *Spring) ApplyConstraint() {
	offset := s.Origin.Pos.Sub(s.Target.Pos)
	d := offset.Len()
	if d == 0 {
		return
	}

	// each endpoint absorbs half of the fractional error
	half := (d - s.RestLength) / d / 2
	correction := offset.Mul(half)

	s.Origin.Pos = s.Origin.Pos.Sub(correction)
	s.Target.Pos = s.Target.Pos.Add(correction)
}

// Axis returns the unit vector from origin to target.
func (s *Spring) Axis() mgl32.Vec3 {
	return physics.SafeNormalize(s.Target.Pos.Sub(s.Origin.Pos))
}
