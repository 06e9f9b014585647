// Package camera provides the orbit camera used to preview an avatar.
package camera

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/pkg/math"
)

// Up is the camera up vector in model space, where +Y points down.
var Up = mgl32.Vec3{0, -1, 0}

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	Center mgl32.Vec3

	// Spherical coordinates
	Distance float32 // Distance from center
	Pitch    float32 // Elevation above the center, radians
	Yaw      float32 // Rotation around the vertical axis, radians

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	// Projection
	FOV        float32 // vertical, degrees
	Near, Far  float32
}

// NewOrbitCamera creates a camera looking at the avatar's front.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        60.0,
		Pitch:           0.3,
		MinDistance:     8.0,
		MaxDistance:     400.0,
		MinPitch:        -1.4,
		MaxPitch:        1.4,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FOV:             45,
		Near:            0.5,
		Far:             2000,
	}
}

// Position returns the camera position. With zero yaw the camera sits on
// the -Z side, in front of the avatar.
func (c *OrbitCamera) Position() mgl32.Vec3 {
	cp, sp := gomath.Cos(float64(c.Pitch)), gomath.Sin(float64(c.Pitch))
	cy, sy := gomath.Cos(float64(c.Yaw)), gomath.Sin(float64(c.Yaw))
	offset := mgl32.Vec3{
		c.Distance * float32(cp*sy),
		-c.Distance * float32(sp), // up is -Y
		-c.Distance * float32(cp*cy),
	}
	return c.Center.Add(offset)
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Center, Up)
}

// ProjectionMatrix returns a perspective projection for the given aspect
// ratio.
func (c *OrbitCamera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch = mgl32.Clamp(c.Pitch+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = mgl32.Clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// FitToBounds centers the camera on b and backs off far enough to see all
// of it.
func (c *OrbitCamera) FitToBounds(b math.Box) {
	c.Center = b.Center()
	radius := b.Size().Len() / 2
	half := mgl32.DegToRad(c.FOV) / 2
	dist := radius / float32(gomath.Sin(float64(half)))
	c.Distance = mgl32.Clamp(dist, c.MinDistance, c.MaxDistance)
}
