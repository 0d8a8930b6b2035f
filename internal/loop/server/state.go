package server

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tomz197/fabric/internal/cloth"
)

// Snapshot is an immutable view of the simulation for rendering. Viewers
// must not modify any slice it holds.
type Snapshot struct {
	Surface   cloth.Surface
	Sphere    Sphere
	Pins      []int // particle indices pinned in the current topology
	Config    cloth.Config
	Stats     cloth.Stats
	Paused    bool
	Tick      uint64
	WindPhase float32
	Energy    []float64 // kinetic energy samples, oldest first
	Viewers   int
}

// Sphere describes the collision obstacle.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// energyHistory is a fixed-size ring of kinetic energy samples.
type energyHistory struct {
	buf  []float64
	next int
	full bool
}

func newEnergyHistory(n int) energyHistory {
	return energyHistory{buf: make([]float64, n)}
}

// Push records a sample, overwriting the oldest once full.
func (h *energyHistory) Push(v float64) {
	if len(h.buf) == 0 {
		return
	}
	h.buf[h.next] = v
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Values returns a fresh copy of the samples, oldest first.
func (h *energyHistory) Values() []float64 {
	if !h.full {
		return append([]float64(nil), h.buf[:h.next]...)
	}
	out := make([]float64, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	return append(out, h.buf[:h.next]...)
}

// Reset discards all samples.
func (h *energyHistory) Reset() {
	h.next = 0
	h.full = false
}
