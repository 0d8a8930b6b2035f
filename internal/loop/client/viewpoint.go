package client

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tomz197/fabric/internal/draw"
	"github.com/tomz197/fabric/internal/input"
	"github.com/tomz197/fabric/internal/loop/config"
	"github.com/tomz197/fabric/internal/loop/server"
)

// Viewpoint orbits the cloth around its bounds centre. The orbit only
// advances while the simulation is running; the pause flag comes from the
// snapshot passed to Update.
type Viewpoint struct {
	Angle     float64 // degrees, [0, 360)
	Speed     float64 // degrees per frame
	AutoOrbit bool
	Zoom      float64

	target mgl32.Vec3

	// distance and height ease toward the framing of the current bounds
	spring            harmonica.Spring
	distance, distVel float64
	height, heightVel float64
	settled           bool

	view, proj            mgl32.Mat4
	viewWidth, viewHeight int
}

// NewViewpoint creates a viewpoint rendering into a viewport of the given
// logical size.
func NewViewpoint(viewWidth, viewHeight int) *Viewpoint {
	return &Viewpoint{
		Speed:      config.OrbitSpeed,
		AutoOrbit:  true,
		Zoom:       1,
		spring:     harmonica.NewSpring(harmonica.FPS(config.ClientTargetFPS), 4.0, 1.0),
		viewWidth:  viewWidth,
		viewHeight: viewHeight,
	}
}

// Update advances the orbit and re-frames the snapshot's bounds.
func (v *Viewpoint) Update(snap *server.Snapshot, in input.Input) {
	if v.AutoOrbit && !snap.Paused {
		v.Angle += v.Speed
	}
	if in.Left {
		v.Angle -= 4 * config.OrbitSpeed
	}
	if in.Right {
		v.Angle += 4 * config.OrbitSpeed
	}
	v.Angle = math.Mod(v.Angle, 360)
	if v.Angle < 0 {
		v.Angle += 360
	}

	if in.Up {
		v.Zoom = max(v.Zoom-config.ZoomStep, config.MinZoom)
	}
	if in.Down {
		v.Zoom = min(v.Zoom+config.ZoomStep, config.MaxZoom)
	}

	v.frame(snap)
}

// frame moves the look-at target to the bounds centre and eases the
// distance and height toward values that keep the bounds in view.
func (v *Viewpoint) frame(snap *server.Snapshot) {
	stats := snap.Stats
	v.target = stats.Center()

	size := stats.Size()
	extent := float64(max(size.X(), size.Z(), 2*snap.Sphere.Radius))
	targetDist := extent * config.ViewDistanceMult * v.Zoom
	targetHeight := targetDist * 0.5

	if !v.settled {
		v.distance, v.height = targetDist, targetHeight
		v.settled = true
	} else {
		v.distance, v.distVel = v.spring.Update(v.distance, v.distVel, targetDist)
		v.height, v.heightVel = v.spring.Update(v.height, v.heightVel, targetHeight)
	}

	eye := v.Eye()
	v.view = mgl32.LookAtV(eye, v.target, mgl32.Vec3{0, 1, 0})
	aspect := float32(v.viewWidth) / float32(v.viewHeight)
	far := float32(v.distance*4 + extent)
	v.proj = mgl32.Perspective(mgl32.DegToRad(config.FieldOfView), aspect, 0.1, far)
}

// Eye returns the camera position.
func (v *Viewpoint) Eye() mgl32.Vec3 {
	rad := float64(mgl32.DegToRad(float32(v.Angle)))
	return v.target.Add(mgl32.Vec3{
		float32(math.Sin(rad) * v.distance),
		float32(v.height),
		float32(math.Cos(rad) * v.distance),
	})
}

// Right returns the horizontal unit vector pointing to the viewer's right.
func (v *Viewpoint) Right() mgl32.Vec3 {
	rad := float64(mgl32.DegToRad(float32(v.Angle)))
	return mgl32.Vec3{float32(math.Cos(rad)), 0, float32(-math.Sin(rad))}
}

// Project maps a world position to logical viewport coordinates, with y
// growing downward. ok is false for points behind the camera.
func (v *Viewpoint) Project(p mgl32.Vec3) (pt draw.Point, ok bool) {
	clip := v.proj.Mul4(v.view).Mul4x1(p.Vec4(1))
	if clip.W() <= 1e-4 {
		return draw.Point{}, false
	}
	win := mgl32.Project(p, v.view, v.proj, 0, 0, v.viewWidth, v.viewHeight)
	return draw.Point{X: float64(win.X()), Y: float64(v.viewHeight) - float64(win.Y())}, true
}
