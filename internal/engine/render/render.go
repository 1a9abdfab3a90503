// Package render defines the render target the viewer draws into. Backends
// live in sub-packages: opengl for OpenGL, headless for tests and windowless runs.
package render

import (
	"github.com/Faultbox/showcase/internal/engine/camera"
	"github.com/Faultbox/showcase/internal/engine/scene"
)

// Surface is the presentable output of a Target. A container composites its
// attached surfaces over its own background when presenting.
type Surface interface {
	Composite()
}

// Target renders a scene from a camera into its Surface.
type Target interface {
	// SetSize sets the output resolution in pixels.
	SetSize(width, height int)
	Size() (width, height int)

	// SetClearColor sets the RGBA colour the output is cleared to each frame.
	// An alpha of 0 lets the container background show through.
	SetClearColor(rgba [4]float32)

	Surface() Surface

	Render(s *scene.Scene, cam *camera.Perspective)

	// Dispose releases backend resources. Render after Dispose is a no-op.
	Dispose()
}

// Factory creates a Target. It is called once per mount.
type Factory func() (Target, error)
