// Package camera provides the perspective camera and orbit controls.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Perspective is a perspective-projection camera.
type Perspective struct {
	FOV    float32 // vertical field of view, degrees
	Aspect float32
	Near   float32
	Far    float32

	Position mgl32.Vec3
	Up       mgl32.Vec3

	target     mgl32.Vec3
	projection mgl32.Mat4
}

// NewPerspective creates a camera at the origin looking down -Z.
func NewPerspective(fov, aspect, near, far float32) *Perspective {
	c := &Perspective{
		FOV:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		Up:     mgl32.Vec3{0, 1, 0},
		target: mgl32.Vec3{0, 0, -1},
	}
	c.UpdateProjection()
	return c
}

// AspectOf returns width/height, or 1 when the height is not positive.
func AspectOf(width, height int) float32 {
	if height <= 0 || width <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}

// UpdateProjection recomputes the projection after FOV, Aspect, Near or Far change.
func (c *Perspective) UpdateProjection() {
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// Projection returns the cached projection matrix.
func (c *Perspective) Projection() mgl32.Mat4 {
	return c.projection
}

// LookAt points the camera at target.
func (c *Perspective) LookAt(target mgl32.Vec3) {
	c.target = target
}

// Target returns the point the camera looks at.
func (c *Perspective) Target() mgl32.Vec3 {
	return c.target
}

// View returns the view matrix.
func (c *Perspective) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.target, c.Up)
}

// ViewProjection returns projection * view.
func (c *Perspective) ViewProjection() mgl32.Mat4 {
	return c.projection.Mul4(c.View())
}
