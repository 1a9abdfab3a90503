package camera

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/showcase/internal/engine/input"
)

func TestAspectOf(t *testing.T) {
	assert.InDelta(t, 4.0/3.0, AspectOf(800, 600), 1e-6)
	assert.Equal(t, float32(1), AspectOf(800, 0))
	assert.Equal(t, float32(1), AspectOf(-1, 600))
}

func TestPerspectiveProjectionTracksAspect(t *testing.T) {
	cam := NewPerspective(75, AspectOf(800, 600), 0.1, 1000)
	f := float32(1 / gomath.Tan(float64(mgl32.DegToRad(75))/2))

	assert.InDelta(t, f/(4.0/3.0), cam.Projection()[0], 1e-5)
	assert.InDelta(t, f, cam.Projection()[5], 1e-5)

	cam.Aspect = AspectOf(1000, 500)
	cam.UpdateProjection()
	assert.InDelta(t, f/2, cam.Projection()[0], 1e-5)
}

func newRig(damping bool) (*Perspective, *OrbitControls) {
	cam := NewPerspective(75, 1, 0.1, 1000)
	cam.Position = mgl32.Vec3{0, 1.5, 3}
	ctl := NewOrbitControls(cam)
	ctl.Target = mgl32.Vec3{0, 0.8, 0}
	ctl.EnableDamping = damping
	ctl.DampingFactor = 0.05
	ctl.SetViewportHeight(600)
	return cam, ctl
}

func TestOrbitUpdateKeepsInitialPose(t *testing.T) {
	cam, ctl := newRig(true)

	moved := ctl.Update()

	assert.False(t, moved)
	assert.InDelta(t, 0, cam.Position.X(), 1e-5)
	assert.InDelta(t, 1.5, cam.Position.Y(), 1e-5)
	assert.InDelta(t, 3, cam.Position.Z(), 1e-5)
	assert.Equal(t, mgl32.Vec3{0, 0.8, 0}, cam.Target())
}

func TestOrbitDampingSpreadsRotationOverFrames(t *testing.T) {
	cam, ctl := newRig(true)
	ctl.HandleDrag(100, 0)
	require.True(t, ctl.Pending())

	ctl.Update()
	first := cam.Position
	assert.True(t, ctl.Pending(), "damping leaves a remainder")

	ctl.Update()
	second := cam.Position
	assert.NotEqual(t, first, second, "camera keeps gliding after input stops")

	radius := cam.Position.Sub(ctl.Target).Len()
	assert.InDelta(t, mgl32.Vec3{0, 0.7, 3}.Len(), radius, 1e-4, "rotation preserves distance")

	for i := 0; i < 2000; i++ {
		ctl.Update()
	}
	assert.False(t, ctl.Pending())
}

func TestOrbitWithoutDampingAppliesOnce(t *testing.T) {
	cam, ctl := newRig(false)
	ctl.HandleDrag(150, 0) // quarter turn at 600px

	assert.True(t, ctl.Update())
	assert.False(t, ctl.Pending())
	pos := cam.Position

	assert.False(t, ctl.Update())
	assert.InDelta(t, 0, pos.Sub(cam.Position).Len(), 1e-4)
	assert.InDelta(t, -3, pos.X(), 1e-4)
	assert.InDelta(t, 0, pos.Z(), 1e-4)
}

func TestOrbitZoomClampsDistance(t *testing.T) {
	cam, ctl := newRig(false)
	ctl.MinDistance = 2
	ctl.MaxDistance = 4
	start := cam.Position.Sub(ctl.Target).Len()

	ctl.HandleZoom(1)
	ctl.Update()
	assert.InDelta(t, max(start*0.95, 2), cam.Position.Sub(ctl.Target).Len(), 1e-4)

	for i := 0; i < 50; i++ {
		ctl.HandleZoom(1)
		ctl.Update()
	}
	assert.InDelta(t, 2, cam.Position.Sub(ctl.Target).Len(), 1e-4)

	for i := 0; i < 50; i++ {
		ctl.HandleZoom(-1)
		ctl.Update()
	}
	assert.InDelta(t, 4, cam.Position.Sub(ctl.Target).Len(), 1e-4)
}

func TestOrbitPanMovesTarget(t *testing.T) {
	_, ctl := newRig(false)
	ctl.HandlePan(-60, 0)
	ctl.Update()

	assert.Greater(t, ctl.Target.X(), float32(0))
	assert.InDelta(t, 0.8, ctl.Target.Y(), 1e-4)
}

func TestOrbitBindAndDispose(t *testing.T) {
	_, ctl := newRig(false)
	hub := input.NewHub()
	ctl.Bind(hub)
	require.Equal(t, 1, hub.Len())

	hub.Dispatch(input.Event{Type: input.EventMouseDown, Button: input.ButtonLeft, MouseX: 10, MouseY: 10})
	hub.Dispatch(input.Event{Type: input.EventMouseMove, MouseX: 40, MouseY: 10})
	assert.True(t, ctl.Pending())

	ctl.Dispose()
	assert.Equal(t, 0, hub.Len())
	assert.True(t, ctl.Disposed())

	ctl.Update()
	ctl.HandleEvent(input.Event{Type: input.EventMouseWheel, WheelY: 1})
	assert.False(t, ctl.Pending())

	ctl.Bind(hub)
	assert.Equal(t, 0, hub.Len(), "disposed controls do not rebind")
}
