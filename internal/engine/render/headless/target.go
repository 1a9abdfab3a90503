// Package headless provides a render target and container that do no GPU work
// and record what the viewer asked of them.
package headless

import (
	"github.com/Faultbox/showcase/internal/engine/camera"
	"github.com/Faultbox/showcase/internal/engine/render"
	"github.com/Faultbox/showcase/internal/engine/scene"
)

// Size is a recorded output resolution.
type Size struct {
	Width, Height int
}

// Target records frames and mirrors GPU residency of scene resources.
type Target struct {
	width, height int
	clear         [4]float32
	surface       *Surface
	disposed      bool

	Sizes   []Size
	Frames  int
	Refused int // Render calls after Dispose

	LastDrawCalls int
	LastAspect    float32

	resident map[*scene.Resource]struct{}
}

// NewTarget creates a recording target.
func NewTarget() *Target {
	t := &Target{resident: make(map[*scene.Resource]struct{})}
	t.surface = &Surface{target: t}
	return t
}

// Factory returns a render.Factory that hands out t.
func Factory(t *Target) render.Factory {
	return func() (render.Target, error) { return t, nil }
}

func (t *Target) SetSize(width, height int) {
	t.width, t.height = width, height
	t.Sizes = append(t.Sizes, Size{width, height})
}

func (t *Target) Size() (int, int) {
	return t.width, t.height
}

func (t *Target) SetClearColor(rgba [4]float32) {
	t.clear = rgba
}

// ClearColor returns the configured clear colour.
func (t *Target) ClearColor() [4]float32 {
	return t.clear
}

func (t *Target) Surface() render.Surface {
	return t.surface
}

// Render walks the scene the way a GPU backend would: visible drawables are
// made resident and counted as draw calls.
func (t *Target) Render(s *scene.Scene, cam *camera.Perspective) {
	if t.disposed {
		t.Refused++
		return
	}
	t.Frames++
	t.LastAspect = cam.Aspect
	t.LastDrawCalls = 0
	s.Traverse(func(n *scene.Node) {
		if !n.IsDrawable() || !n.Visible || n.Geometry == nil || n.Geometry.Disposed() {
			return
		}
		t.makeResident(&n.Geometry.Resource)
		for _, m := range n.Materials {
			if m != nil {
				t.makeResident(&m.Resource)
			}
		}
		t.LastDrawCalls++
	})
}

func (t *Target) makeResident(r *scene.Resource) {
	if _, ok := t.resident[r]; ok || r.Disposed() {
		return
	}
	t.resident[r] = struct{}{}
	r.OnDispose(func() { delete(t.resident, r) })
}

// Resident returns the number of scene resources with a live backend copy.
func (t *Target) Resident() int {
	return len(t.resident)
}

func (t *Target) Dispose() {
	t.disposed = true
}

// Disposed reports whether Dispose has run.
func (t *Target) Disposed() bool {
	return t.disposed
}

// Surface counts composites of its target.
type Surface struct {
	target     *Target
	Composites int
}

func (s *Surface) Composite() {
	s.Composites++
}
