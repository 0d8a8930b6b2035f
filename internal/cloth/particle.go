package cloth

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tomz197/fabric/internal/physics"
)

// Up is the world up axis. Gravity acts along -Up.
var Up = mgl32.Vec3{0, 1, 0}

// Particle is a point mass integrated with position Verlet.
// Velocity is implicit in Pos - PrevPos.
type Particle struct {
	Pos     mgl32.Vec3
	PrevPos mgl32.Vec3
	Force   mgl32.Vec3 // accumulated this tick, cleared by Integrate

	Mass    float32
	Gravity float32 // gravitational acceleration magnitude
	Damping float32
	Radius  float32 // collision radius

	Pinned bool
	PinPos mgl32.Vec3
}

// NewParticle creates a particle at rest at pos.
func NewParticle(mass, gravity, damping, radius float32, pos mgl32.Vec3) Particle {
	return Particle{
		Pos:     pos,
		PrevPos: pos,
		Mass:    mass,
		Gravity: gravity,
		Damping: damping,
		Radius:  radius,
	}
}

// GravityForce returns m*g pointing down.
func (p *Particle) GravityForce() mgl32.Vec3 {
	return Up.Mul(-p.Gravity * p.Mass)
}

// ApplyForce adds f to the force accumulator.
func (p *Particle) ApplyForce(f mgl32.Vec3) {
	p.Force = p.Force.Add(f)
}

// Velocity returns the implicit velocity over the last step of length dt.
func (p *Particle) Velocity(dt float32) mgl32.Vec3 {
	return p.Pos.Sub(p.PrevPos).Mul(1 / dt)
}

// Integrate advances the particle by one Störmer-Verlet step of length dt
// and clears the force accumulator. A pinned particle snaps to its anchor.
func (p *Particle) Integrate(dt float32) {
	if p.Pinned {
		p.Pos = p.PinPos
	} else {
		v := p.Velocity(dt)

		acc := p.Force.Mul(1 / p.Mass)
		acc = acc.Sub(v.Mul(p.Damping / p.Mass))

		// x' = 2x - x_prev + a*dt²
		next := p.Pos.Mul(2).Sub(p.PrevPos).Add(acc.Mul(dt * dt))

		p.PrevPos = p.Pos
		p.Pos = next
	}

	p.Force = mgl32.Vec3{}
}

// Pin fixes the particle at its current position.
func (p *Particle) Pin() {
	p.Pinned = true
	p.PinPos = p.Pos
}

// CheckCollision removes the component of the accumulated force that lies
// along the line to q when the two overlap. It does not push the particle
// out, so a particle with no accumulated force can still sink into q.
// Reports whether the particles overlapped.
func (p *Particle) CheckCollision(q *Particle) bool {
	if q == p {
		return false
	}
	if !p.overlaps(q) {
		return false
	}

	p.ApplyForce(physics.ProjectOnto(p.Force, q.Pos.Sub(p.Pos)).Mul(-1))
	return true
}

func (p *Particle) overlaps(q *Particle) bool {
	return physics.SpheresOverlap(p.Pos, p.Radius, q.Pos, q.Radius)
}
