package cloth

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Topology is the fixed adjacency of one cloth generation: the particle
// grid, the triangle index buffer and the three spring sets. Springs point
// into Particles, so the slice must never be reallocated.
//
// The particle at grid coordinate (x, y) lives at Particles[x*Height+y].
type Topology struct {
	Width   int
	Height  int
	Spacing float32

	Particles []Particle
	Indices   []uint32

	Structural []Spring
	Shear      []Spring
	Bend       []Spring

	// Sphere is the static collision obstacle. It is never integrated.
	Sphere Particle
}

// Index returns the flat particle index of grid coordinate (x, y).
func Index(x, y, height int) int {
	return x*height + y
}

// StructuralCount is the number of axis-adjacent springs on a w×h grid.
func StructuralCount(w, h int) int { return 2*w*h - w - h }

// ShearCount is the number of diagonal springs on a w×h grid.
func ShearCount(w, h int) int { return 2 * (w - 1) * (h - 1) }

// BendCount is the number of skip-one springs on a w×h grid.
func BendCount(w, h int) int { return 2 * (w*h - h - w) }

// IndexCount is the length of the triangle index buffer on a w×h grid.
func IndexCount(w, h int) int { return 6 * (w - 1) * (h - 1) }

// Build creates a new topology from cfg. Pins are applied according to
// cfg.EdgePins (every particle with x == 0) and cfg.CornerPins.
func Build(cfg Config) (*Topology, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Topology{
		Width:   cfg.Width,
		Height:  cfg.Height,
		Spacing: cfg.Spacing,
	}

	t.buildParticles(cfg)
	t.buildTriangles()
	t.buildSprings(cfg.Stiffness)

	if err := t.verify(); err != nil {
		return nil, err
	}

	if cfg.EdgePins {
		t.PinEdge()
	}
	if cfg.CornerPins {
		t.PinCorners()
	}

	return t, nil
}

func (t *Topology) buildParticles(cfg Config) {
	w, h, r := t.Width, t.Height, t.Spacing

	t.Particles = make([]Particle, w*h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			i := Index(x, y, h)
			// particles collide with a radius equal to their mass
			t.Particles[i] = NewParticle(cfg.Mass, cfg.GravityAccel, cfg.Damping, cfg.Mass,
				mgl32.Vec3{float32(x) * r, 0, float32(y) * r})
		}
	}

	fw, fh := float32(w), float32(h)
	t.Sphere = NewParticle(0, 0, 0, fw*r/8, mgl32.Vec3{fw * r / 2, -fw * r / 4, fh * r / 2})
}

// buildTriangles emits two triangles per grid cell with a consistent winding.
func (t *Topology) buildTriangles() {
	w, h := t.Width, t.Height

	t.Indices = make([]uint32, 0, IndexCount(w, h))
	for x := 0; x < w-1; x++ {
		for y := 0; y < h-1; y++ {
			i := uint32(Index(x, y, h))
			uh := uint32(h)
			t.Indices = append(t.Indices,
				i, i+1, i+uh,
				i+uh+1, i+uh, i+1,
			)
		}
	}
}

func (t *Topology) buildSprings(k float32) {
	w, h, r := t.Width, t.Height, t.Spacing
	diag := r * float32(math.Sqrt2)

	t.Structural = make([]Spring, 0, StructuralCount(w, h))
	t.Shear = make([]Spring, 0, ShearCount(w, h))
	t.Bend = make([]Spring, 0, BendCount(w, h))

	p := func(i int) *Particle { return &t.Particles[i] }

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			i := Index(x, y, h)
			if x < w-1 {
				t.Structural = append(t.Structural, NewSpring(p(i), p(i+h), k, r))
			}
			if y < h-1 {
				t.Structural = append(t.Structural, NewSpring(p(i), p(i+1), k, r))
			}
			if x < w-1 && y < h-1 {
				t.Shear = append(t.Shear, NewSpring(p(i), p(i+h+1), k, diag))
			}
			if x < w-1 && y > 0 {
				t.Shear = append(t.Shear, NewSpring(p(i), p(i+h-1), k, diag))
			}
			if x < w-2 {
				t.Bend = append(t.Bend, NewSpring(p(i), p(i+2*h), k, 2*r))
			}
			if y < h-2 {
				t.Bend = append(t.Bend, NewSpring(p(i), p(i+2), k, 2*r))
			}
		}
	}
}

// verify asserts that every buffer matches its closed-form size.
func (t *Topology) verify() error {
	w, h := t.Width, t.Height
	checks := []struct {
		name      string
		got, want int
	}{
		{"particles", len(t.Particles), w * h},
		{"indices", len(t.Indices), IndexCount(w, h)},
		{"structural springs", len(t.Structural), StructuralCount(w, h)},
		{"shear springs", len(t.Shear), ShearCount(w, h)},
		{"bend springs", len(t.Bend), BendCount(w, h)},
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("%w: %d %s on %dx%d grid, want %d", ErrTopologyMismatch, c.got, c.name, w, h, c.want)
		}
	}
	return nil
}

// PinCorners pins the four grid-corner particles.
func (t *Topology) PinCorners() {
	w, h := t.Width, t.Height
	for _, i := range []int{0, h - 1, w*h - h, w*h - 1} {
		t.Particles[i].Pin()
	}
}

// PinEdge pins every particle on the x == 0 edge.
func (t *Topology) PinEdge() {
	for y := 0; y < t.Height; y++ {
		t.Particles[Index(0, y, t.Height)].Pin()
	}
}

// SpringSets returns the spring sets in resolution order.
func (t *Topology) SpringSets() [3][]Spring {
	return [3][]Spring{t.Structural, t.Shear, t.Bend}
}

// SpringCount returns the total number of springs.
func (t *Topology) SpringCount() int {
	return len(t.Structural) + len(t.Shear) + len(t.Bend)
}
