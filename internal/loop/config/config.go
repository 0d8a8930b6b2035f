// Package config centralizes the timing and display parameters of the
// simulation host and its viewers.
package config

import "time"

// View resolution - the visible viewport in logical units.
// Actual rendering scales to fit terminal size.
const (
	ViewWidth  = 160 // Logical viewport width
	ViewHeight = 96  // Logical viewport height (in sub-pixels, so 48 terminal rows)
)

// Terminal limits
const (
	MaxTermWidth  = 240
	MaxTermHeight = 80
)

// Simulation tick rate. Every tick advances the cloth by exactly StepDt.
const (
	ServerTickRate = 100
	ServerTickTime = time.Second / ServerTickRate
	StepDt         = float32(1.0 / ServerTickRate)

	// MaxCatchUpSteps bounds how many fixed steps one wakeup may run after
	// a stall. Time beyond that is dropped.
	MaxCatchUpSteps = 5
)

// Client rendering
const (
	ClientTargetFPS       = 60
	ClientTargetFrameTime = time.Second / ClientTargetFPS
)

// Viewpoint
const (
	OrbitSpeed       = 0.25 // Degrees per rendered frame
	FieldOfView      = 45.0 // Degrees
	ViewDistanceMult = 1.6  // Distance from the cloth centre, in multiples of its size
	ZoomStep         = 0.05
	MinZoom          = 0.4
	MaxZoom          = 3.0
)

// History
const (
	EnergyHistoryLen = 120 // Samples kept for the energy chart
	EnergySampleTick = 5   // Ticks between samples
)

// Viewers
const (
	MaxUsernameLength = 16 // Maximum display length for viewer names
)

// Shutdown
const (
	ShutdownDisplaySeconds = 10.0 // Seconds to show shutdown message before auto-disconnect
)

// Inactivity
const (
	InactivityWarnUser       = 90  // Seconds
	InactivityDisconnectUser = 120 // Seconds
)
