package cloth

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects how springs are resolved each tick.
type Mode int

const (
	// ModeForce applies Hooke's-law forces that are integrated with gravity and wind.
	ModeForce Mode = iota
	// ModePosition moves spring endpoints directly toward their rest length.
	ModePosition
)

func (m Mode) String() string {
	switch m {
	case ModeForce:
		return "force"
	case ModePosition:
		return "position"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "force"/"hooke" or "position"/"constraints".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "force", "hooke":
		return ModeForce, nil
	case "position", "constraint", "constraints":
		return ModePosition, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Config holds every externally settable simulation parameter.
// Pinning flags only take effect when the topology is (re)built.
type Config struct {
	Width   int     // particles along x
	Height  int     // particles along z
	Spacing float32 // base spring rest length

	Stiffness float32 // Hooke's constant shared by all spring categories
	Mass      float32
	Damping   float32

	Gravity      bool
	GravityAccel float32

	Mode       Mode
	Iterations int // spring resolution passes per tick

	Sphere bool // sphere obstacle collision response

	Wind             bool
	WindSpeed        float32
	OscillationSpeed float32 // degrees of wind phase per advance

	// LegacyWindPhase advances the wind phase once per particle instead of
	// once per tick. It exists only to reproduce recorded runs exactly.
	LegacyWindPhase bool

	CornerPins bool
	EdgePins   bool

	Paused bool

	// Workers > 1 splits force accumulation and integration across that
	// many goroutines. Spring resolution always runs on the caller.
	Workers int
}

// DefaultConfig returns the start-up configuration: the force preset on a
// 20x20 grid with corners pinned and the sphere obstacle enabled.
func DefaultConfig() Config {
	cfg := Config{
		Width:            20,
		Height:           20,
		Gravity:          true,
		Sphere:           true,
		WindSpeed:        10,
		OscillationSpeed: 0.5,
		CornerPins:       true,
	}
	return ForcePreset(cfg)
}

// ForcePreset returns cfg with the known-stable Hooke parameters applied.
func ForcePreset(cfg Config) Config {
	cfg.Spacing = 5
	cfg.Stiffness = 100
	cfg.Mass = 1
	cfg.Damping = 1
	cfg.GravityAccel = 9.8
	cfg.Mode = ModeForce
	cfg.Iterations = 1
	return cfg
}

// ConstraintPreset returns cfg with the known-stable position-constraint
// parameters applied.
func ConstraintPreset(cfg Config) Config {
	cfg.Spacing = 5
	cfg.Stiffness = 1
	cfg.Mass = 1
	cfg.Damping = 20
	cfg.GravityAccel = 9.8
	cfg.Mode = ModePosition
	cfg.Iterations = 3
	return cfg
}

// Validate rejects configurations the topology formulas or the integrator
// cannot handle. Nothing is clamped.
func (c Config) Validate() error {
	if c.Width < 2 || c.Height < 2 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, c.Width, c.Height)
	}
	if !(c.Spacing > 0) || math.IsInf(float64(c.Spacing), 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidSpacing, c.Spacing)
	}
	if !(c.Mass > 0) || math.IsInf(float64(c.Mass), 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidMass, c.Mass)
	}
	for _, f := range []struct {
		name string
		v    float32
	}{
		{"stiffness", c.Stiffness},
		{"damping", c.Damping},
		{"gravity", c.GravityAccel},
		{"wind speed", c.WindSpeed},
		{"oscillation speed", c.OscillationSpeed},
	} {
		if math.IsNaN(float64(f.v)) || math.IsInf(float64(f.v), 0) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidParameter, f.name, f.v)
		}
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidIterations, c.Iterations)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, c.Workers)
	}
	if c.Mode != ModeForce && c.Mode != ModePosition {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(c.Mode))
	}
	return nil
}
