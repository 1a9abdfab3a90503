// Package shadow computes the light-space projection used for directional
// shadow maps.
package shadow

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/showcase/internal/engine/scene"
)

// DefaultResolution is the shadow map size used when a light does not set one.
const DefaultResolution = 2048

// minRadius keeps the light frustum usable for tiny or flat casters.
const minRadius = 0.5

// DirectionalLightMatrix returns the view-projection of a directional light
// shining along -lightDir onto bounds. lightDir points from the scene towards
// the light and need not be normalised. An empty box yields the identity.
func DirectionalLightMatrix(lightDir mgl32.Vec3, bounds scene.AABB) mgl32.Mat4 {
	if bounds.IsEmpty() || lightDir.Len() == 0 {
		return mgl32.Ident4()
	}
	dir := lightDir.Normalize()
	center := bounds.Center()
	radius := max(bounds.Radius(), minRadius)

	// Place the light outside the bounding sphere
	lightDistance := radius * 2
	lightPos := center.Add(dir.Mul(lightDistance))

	up := mgl32.Vec3{0, 1, 0}
	if mgl32.Abs(dir.Y()) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	view := mgl32.LookAtV(lightPos, center, up)

	// Pad to avoid clipping at the edges
	padding := radius * 0.1
	halfSize := radius + padding
	near := float32(0.1)
	far := lightDistance + radius + padding

	proj := mgl32.Ortho(-halfSize, halfSize, -halfSize, halfSize, near, far)
	return proj.Mul4(view)
}

// CasterBounds returns the world-space box around visible shadow casters.
func CasterBounds(s *scene.Scene) scene.AABB {
	b := scene.EmptyAABB()
	s.Traverse(func(n *scene.Node) {
		if !n.IsDrawable() || !n.CastShadow || !n.Visible || n.Geometry == nil {
			return
		}
		b = b.Union(n.Geometry.Bounds().Transform(n.WorldMatrix()))
	})
	return b
}
