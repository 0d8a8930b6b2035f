// Package cloth simulates a rectangular sheet of point masses connected by
// structural, shear and bend springs.
package cloth

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// minParallelParticles is the grid size below which worker goroutines cost
// more than they save.
const minParallelParticles = 256

// Simulation owns one cloth and advances it in fixed steps.
// It is not safe for concurrent use; a single owner drives Step and the
// toggle methods.
type Simulation struct {
	cfg  Config
	topo *Topology
	wind Wind

	tick       uint64
	generation uint64  // bumped on every topology rebuild
	lastDt     float32 // step length of the last completed tick

	surface Surface
}

// New validates cfg and builds the initial topology.
func New(cfg Config) (*Simulation, error) {
	s := &Simulation{}
	if err := s.Configure(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns a copy of the active configuration.
func (s *Simulation) Config() Config { return s.cfg }

// Topology returns the current topology. It is replaced, not mutated in
// place, by Rebuild.
func (s *Simulation) Topology() *Topology { return s.topo }

// Paused reports whether Step is currently a no-op.
func (s *Simulation) Paused() bool { return s.cfg.Paused }

// Tick returns the number of completed steps.
func (s *Simulation) Tick() uint64 { return s.tick }

// Generation returns the topology generation, incremented on each rebuild.
func (s *Simulation) Generation() uint64 { return s.generation }

// WindPhase returns the current wind phase in degrees.
func (s *Simulation) WindPhase() float32 { return s.wind.Theta }

// Configure validates cfg, then rebuilds the topology from it. On error the
// previous configuration and topology stay in place.
func (s *Simulation) Configure(cfg Config) error {
	topo, err := Build(cfg)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.wind.Speed = cfg.WindSpeed
	s.wind.Oscillation = cfg.OscillationSpeed
	s.install(topo)
	return nil
}

// Rebuild discards all particle and spring state and rebuilds the topology
// from the current configuration.
func (s *Simulation) Rebuild() error {
	return s.Configure(s.cfg)
}

// ApplyForcePreset switches to the stable Hooke parameters and rebuilds.
func (s *Simulation) ApplyForcePreset() error {
	return s.Configure(ForcePreset(s.cfg))
}

// ApplyConstraintPreset switches to the stable position-constraint
// parameters and rebuilds.
func (s *Simulation) ApplyConstraintPreset() error {
	return s.Configure(ConstraintPreset(s.cfg))
}

// TogglePause flips the paused state and returns the new value.
func (s *Simulation) TogglePause() bool {
	s.cfg.Paused = !s.cfg.Paused
	return s.cfg.Paused
}

// ToggleWind flips the wind field and returns the new value.
func (s *Simulation) ToggleWind() bool {
	s.cfg.Wind = !s.cfg.Wind
	return s.cfg.Wind
}

// ToggleSphereCollision flips the sphere response and returns the new value.
func (s *Simulation) ToggleSphereCollision() bool {
	s.cfg.Sphere = !s.cfg.Sphere
	return s.cfg.Sphere
}

// ToggleCornerPins flips corner pinning. It takes effect on the next rebuild.
func (s *Simulation) ToggleCornerPins() bool {
	s.cfg.CornerPins = !s.cfg.CornerPins
	return s.cfg.CornerPins
}

// ToggleEdgePins flips edge pinning. It takes effect on the next rebuild.
func (s *Simulation) ToggleEdgePins() bool {
	s.cfg.EdgePins = !s.cfg.EdgePins
	return s.cfg.EdgePins
}

// ToggleMode switches between force and position spring resolution,
// effective from the next tick.
func (s *Simulation) ToggleMode() Mode {
	if s.cfg.Mode == ModeForce {
		s.cfg.Mode = ModePosition
	} else {
		s.cfg.Mode = ModeForce
	}
	return s.cfg.Mode
}

// SetIterations changes the number of spring passes per tick.
func (s *Simulation) SetIterations(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidIterations, n)
	}
	s.cfg.Iterations = n
	return nil
}

func (s *Simulation) install(topo *Topology) {
	s.topo = topo
	s.generation++
	s.extract()
}

// Step advances the simulation by dt seconds. dt must be a fixed step, not
// a measured frame time. While paused nothing is mutated.
func (s *Simulation) Step(dt float32) error {
	if !(dt > 0) || math.IsInf(float64(dt), 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidStep, dt)
	}
	if s.cfg.Paused {
		return nil
	}

	s.accumulateForces()
	s.resolveSprings()
	s.forEachParticle(func(p *Particle) {
		p.Integrate(dt)
	})

	s.tick++
	s.lastDt = dt
	s.extract()
	return nil
}

func (s *Simulation) accumulateForces() {
	cfg := &s.cfg
	sphere := &s.topo.Sphere

	apply := func(p *Particle) {
		if cfg.Gravity {
			p.ApplyForce(p.GravityForce())
		}
		if cfg.Wind {
			p.ApplyForce(s.wind.Force(p.Pos))
			if cfg.LegacyWindPhase {
				s.wind.Advance()
			}
		}
		if cfg.Sphere {
			p.CheckCollision(sphere)
		}
	}

	if cfg.Wind && cfg.LegacyWindPhase {
		// the phase is shared state written per particle
		for i := range s.topo.Particles {
			apply(&s.topo.Particles[i])
		}
		return
	}

	s.forEachParticle(apply)
	if cfg.Wind {
		s.wind.Advance()
	}
}

// resolveSprings runs the active spring mode Iterations times, resolving
// structural, shear and bend springs in that order.
func (s *Simulation) resolveSprings() {
	sets := s.topo.SpringSets()
	for it := 0; it < s.cfg.Iterations; it++ {
		for _, set := range sets {
			for i := range set {
				if s.cfg.Mode == ModePosition {
					set[i].ApplyConstraint()
				} else {
					set[i].ApplyHooke()
				}
			}
		}
	}
}

// forEachParticle calls fn on every particle, fanning out over Workers
// goroutines when the grid is large enough. fn must only touch the particle
// it is given.
func (s *Simulation) forEachParticle(fn func(p *Particle)) {
	ps := s.topo.Particles
	workers := s.cfg.Workers
	if workers <= 1 || len(ps) < minParallelParticles {
		for i := range ps {
			fn(&ps[i])
		}
		return
	}

	chunk := (len(ps) + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < len(ps); start += chunk {
		part := ps[start:min(start+chunk, len(ps))]
		g.Go(func() error {
			for i := range part {
				fn(&part[i])
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Stats summarises the current cloth state.
type Stats struct {
	Tick          uint64
	KineticEnergy float32
	Min, Max      mgl32.Vec3 // axis-aligned bounds of all particles
	Contacts      int        // particles overlapping the sphere
}

// Center returns the centre of the bounds.
func (st Stats) Center() mgl32.Vec3 {
	return st.Min.Add(st.Max).Mul(0.5)
}

// Size returns the extent of the bounds.
func (st Stats) Size() mgl32.Vec3 {
	return st.Max.Sub(st.Min)
}

// Stats computes statistics for the current state. Kinetic energy uses the
// implicit velocity of the last step and is zero before the first one.
func (s *Simulation) Stats() Stats {
	ps := s.topo.Particles
	st := Stats{
		Tick: s.tick,
		Min:  ps[0].Pos,
		Max:  ps[0].Pos,
	}
	for i := range ps {
		p := &ps[i]
		for a := 0; a < 3; a++ {
			st.Min[a] = min(st.Min[a], p.Pos[a])
			st.Max[a] = max(st.Max[a], p.Pos[a])
		}
		if s.lastDt > 0 && !p.Pinned {
			v := p.Velocity(s.lastDt)
			st.KineticEnergy += 0.5 * p.Mass * v.Dot(v)
		}
		if s.cfg.Sphere && p.overlaps(&s.topo.Sphere) {
			st.Contacts++
		}
	}
	return st
}
