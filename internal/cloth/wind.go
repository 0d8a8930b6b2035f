package cloth

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Wind is a deterministic oscillating force field. Its strength along x
// depends on the particle's x position and the current phase.
type Wind struct {
	Speed       float32
	Oscillation float32 // phase advance in degrees
	Theta       float32 // phase in degrees, kept in [0, 360)
}

// Force returns the wind force at pos for the current phase.
func (w *Wind) Force(pos mgl32.Vec3) mgl32.Vec3 {
	gust := math.Abs(math.Sin(float64(mgl32.DegToRad(pos.X() + w.Theta))))
	lateral := 0.5 * math.Sin(float64(mgl32.DegToRad(w.Theta)))
	return mgl32.Vec3{float32(gust), 0, float32(lateral)}.Mul(w.Speed)
}

// Advance moves the phase forward by Oscillation degrees.
func (w *Wind) Advance() {
	theta := math.Mod(float64(w.Theta+w.Oscillation), 360)
	if theta < 0 {
		theta += 360
	}
	w.Theta = float32(theta)
}
