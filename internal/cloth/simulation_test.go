package cloth

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/tomz197/fabric/internal/physics"
)

const testDt = 0.01

func newSim(t *testing.T, cfg Config) *Simulation {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func stepN(t *testing.T, s *Simulation, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.Step(testDt); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
}

func TestEndToEndEdgePinnedSag(t *testing.T) {
	cfg := ConstraintPreset(Config{Width: 5, Height: 5, Gravity: true, EdgePins: true})
	cfg.Spacing = 1
	cfg.Iterations = 3
	s := newSim(t, cfg)

	stepN(t, s, 100)

	if s.Tick() != 100 {
		t.Fatalf("tick = %d, want 100", s.Tick())
	}
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			p := s.Topology().Particles[Index(x, y, 5)]
			if !physics.IsFinite(p.Pos) {
				t.Fatalf("particle (%d,%d) not finite: %v", x, y, p.Pos)
			}
			if x == 0 {
				if p.Pos != (mgl32.Vec3{0, 0, float32(y)}) {
					t.Fatalf("pinned particle (0,%d) moved to %v", y, p.Pos)
				}
				continue
			}
			if p.Pos.Y() >= 0 {
				t.Fatalf("particle (%d,%d) did not sag: y = %f", x, y, p.Pos.Y())
			}
		}
	}
}

func TestNoForcesNoMotion(t *testing.T) {
	cfg := Config{
		Width: 4, Height: 4, Spacing: 1, Mass: 1,
		Stiffness: 0, Damping: 0, Iterations: 2,
	}
	for _, mode := range []Mode{ModeForce, ModePosition} {
		cfg.Mode = mode
		s := newSim(t, cfg)
		before := s.Surface().Vertices
		stepN(t, s, 250)
		after := s.Surface().Vertices
		for i := range before {
			if before[i] != after[i] {
				t.Fatalf("%s: particle %d moved from %v to %v", mode, i, before[i], after[i])
			}
		}
	}
}

func TestPinnedParticlesHoldUnderLoad(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 8, 8
	cfg.Wind = true
	s := newSim(t, cfg)

	var anchors []int
	for i, p := range s.Topology().Particles {
		if p.Pinned {
			anchors = append(anchors, i)
		}
	}
	if len(anchors) != 4 {
		t.Fatalf("pinned = %d, want 4 corners", len(anchors))
	}
	for tick := 0; tick < 200; tick++ {
		stepN(t, s, 1)
		for _, i := range anchors {
			p := s.Topology().Particles[i]
			if p.Pos != p.PinPos {
				t.Fatalf("tick %d: pinned particle %d at %v, anchor %v", tick, i, p.Pos, p.PinPos)
			}
		}
	}
}

func TestForceModeStaysFinite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 10, 10
	cfg.Wind = true
	s := newSim(t, cfg)
	stepN(t, s, 500)
	for i, v := range s.Surface().Vertices {
		if !physics.IsFinite(v) {
			t.Fatalf("vertex %d not finite: %v", i, v)
		}
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	s := newSim(t, DefaultConfig())
	stepN(t, s, 30)

	if err := s.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	first := s.Surface()
	firstSprings := s.Topology().SpringCount()

	if err := s.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	second := s.Surface()

	if s.Topology().SpringCount() != firstSprings {
		t.Fatalf("spring count changed: %d vs %d", firstSprings, s.Topology().SpringCount())
	}
	if len(first.Vertices) != len(second.Vertices) || len(first.Indices) != len(second.Indices) {
		t.Fatalf("buffer sizes changed between rebuilds")
	}
	for i := range first.Vertices {
		if first.Vertices[i] != second.Vertices[i] {
			t.Fatalf("vertex %d differs: %v vs %v", i, first.Vertices[i], second.Vertices[i])
		}
	}
	for i := range first.Indices {
		if first.Indices[i] != second.Indices[i] {
			t.Fatalf("index %d differs", i)
		}
	}
	if second.Generation != first.Generation+1 {
		t.Fatalf("generation = %d, want %d", second.Generation, first.Generation+1)
	}
}

func TestPausedStepDoesNotMutate(t *testing.T) {
	s := newSim(t, DefaultConfig())
	stepN(t, s, 10)
	if !s.TogglePause() {
		t.Fatalf("TogglePause should report paused")
	}
	before := s.Surface().Vertices
	tick := s.Tick()
	stepN(t, s, 10)
	if s.Tick() != tick {
		t.Fatalf("tick advanced while paused")
	}
	for i, v := range s.Surface().Vertices {
		if v != before[i] {
			t.Fatalf("vertex %d moved while paused", i)
		}
	}
	if s.TogglePause() {
		t.Fatalf("second TogglePause should resume")
	}
}

func TestStepRejectsInvalidDt(t *testing.T) {
	s := newSim(t, DefaultConfig())
	for _, dt := range []float32{0, -0.01} {
		if err := s.Step(dt); !errors.Is(err, ErrInvalidStep) {
			t.Fatalf("Step(%v) error = %v, want ErrInvalidStep", dt, err)
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Wind = true
	seq := newSim(t, cfg)
	cfg.Workers = 4
	par := newSim(t, cfg)

	stepN(t, seq, 60)
	stepN(t, par, 60)

	a, b := seq.Surface().Vertices, par.Surface().Vertices
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vertex %d: sequential %v, parallel %v", i, a[i], b[i])
		}
	}
}

func TestWindPhaseAdvancesOncePerTick(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 4, 4
	cfg.Wind = true
	cfg.OscillationSpeed = 2
	s := newSim(t, cfg)
	stepN(t, s, 3)
	if got := s.WindPhase(); got != 6 {
		t.Fatalf("phase = %f, want 6", got)
	}

	cfg.LegacyWindPhase = true
	legacy := newSim(t, cfg)
	stepN(t, legacy, 3)
	// 16 particles * 3 ticks * 2 degrees = 96
	if got := legacy.WindPhase(); got != 96 {
		t.Fatalf("legacy phase = %f, want 96", got)
	}
}

func TestWindPhaseFrozenWhenDisabled(t *testing.T) {
	s := newSim(t, DefaultConfig())
	stepN(t, s, 5)
	if s.WindPhase() != 0 {
		t.Fatalf("phase advanced with wind off: %f", s.WindPhase())
	}
}

func TestTogglesReturnNewState(t *testing.T) {
	s := newSim(t, DefaultConfig())
	if !s.ToggleWind() || s.ToggleWind() {
		t.Fatalf("ToggleWind did not alternate")
	}
	if s.ToggleSphereCollision() || !s.ToggleSphereCollision() {
		t.Fatalf("ToggleSphereCollision did not alternate from enabled")
	}
	if !s.ToggleEdgePins() || !s.Config().EdgePins {
		t.Fatalf("ToggleEdgePins did not enable")
	}
	if s.ToggleCornerPins() {
		t.Fatalf("ToggleCornerPins should disable default corner pins")
	}
	if s.ToggleMode() != ModePosition || s.ToggleMode() != ModeForce {
		t.Fatalf("ToggleMode did not alternate")
	}
}

func TestPinTogglesApplyOnRebuild(t *testing.T) {
	s := newSim(t, DefaultConfig())
	s.ToggleCornerPins()
	s.ToggleEdgePins()
	if !s.Topology().Particles[0].Pinned || s.Topology().Particles[Index(1, 0, 20)].Pinned {
		t.Fatalf("pin toggles must not touch the live topology")
	}
	if err := s.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	ps := s.Topology().Particles
	if ps[len(ps)-1].Pinned {
		t.Fatalf("far corner still pinned after disabling corner pins")
	}
	for y := 0; y < 20; y++ {
		if !ps[Index(0, y, 20)].Pinned {
			t.Fatalf("edge particle %d not pinned", y)
		}
	}
}

func TestPresetsRebuild(t *testing.T) {
	s := newSim(t, DefaultConfig())
	stepN(t, s, 20)
	gen := s.Generation()

	if err := s.ApplyConstraintPreset(); err != nil {
		t.Fatalf("ApplyConstraintPreset: %v", err)
	}
	cfg := s.Config()
	if cfg.Mode != ModePosition || cfg.Iterations != 3 || cfg.Damping != 20 || cfg.Stiffness != 1 {
		t.Fatalf("constraint preset not applied: %+v", cfg)
	}
	if s.Generation() != gen+1 {
		t.Fatalf("preset did not rebuild the topology")
	}
	for _, i := range []int{0, 19, 380, 399} {
		if !s.Topology().Particles[i].Pinned {
			t.Fatalf("corner %d not re-pinned after preset", i)
		}
	}

	if err := s.ApplyForcePreset(); err != nil {
		t.Fatalf("ApplyForcePreset: %v", err)
	}
	cfg = s.Config()
	if cfg.Mode != ModeForce || cfg.Iterations != 1 || cfg.Stiffness != 100 || cfg.Spacing != 5 {
		t.Fatalf("force preset not applied: %+v", cfg)
	}
}

func TestConfigureKeepsStateOnError(t *testing.T) {
	s := newSim(t, DefaultConfig())
	gen := s.Generation()
	bad := s.Config()
	bad.Width = 1
	if err := s.Configure(bad); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("Configure error = %v, want ErrInvalidDimensions", err)
	}
	if s.Generation() != gen || s.Config().Width != 20 {
		t.Fatalf("failed Configure replaced the simulation state")
	}
	if err := s.SetIterations(-1); !errors.Is(err, ErrInvalidIterations) {
		t.Fatalf("SetIterations(-1) error = %v", err)
	}
}

func TestStatsBoundsAndEnergy(t *testing.T) {
	s := newSim(t, DefaultConfig())
	st := s.Stats()
	if st.KineticEnergy != 0 {
		t.Fatalf("kinetic energy before first step = %f", st.KineticEnergy)
	}
	if st.Min != (mgl32.Vec3{}) || st.Max != (mgl32.Vec3{95, 0, 95}) {
		t.Fatalf("bounds = %v..%v", st.Min, st.Max)
	}
	stepN(t, s, 10)
	st = s.Stats()
	if st.KineticEnergy <= 0 {
		t.Fatalf("expected falling cloth to carry kinetic energy")
	}
	if st.Min.Y() >= 0 {
		t.Fatalf("expected cloth to sag below y=0, min %v", st.Min)
	}
}
