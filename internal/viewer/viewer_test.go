package viewer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/showcase/internal/assets"
	"github.com/Faultbox/showcase/internal/config"
	"github.com/Faultbox/showcase/internal/engine/animation"
	"github.com/Faultbox/showcase/internal/engine/clock"
	"github.com/Faultbox/showcase/internal/engine/frameloop"
	"github.com/Faultbox/showcase/internal/engine/input"
	"github.com/Faultbox/showcase/internal/engine/render"
	"github.com/Faultbox/showcase/internal/engine/render/headless"
	"github.com/Faultbox/showcase/internal/engine/scene"
)

// fakeLoader returns a fixed result and records the calls it got.
type fakeLoader struct {
	model *assets.Model
	err   error

	urls []string
	ctx  context.Context
}

func (l *fakeLoader) Load(ctx context.Context, url string, progress assets.Progress) (*assets.Model, error) {
	l.urls = append(l.urls, url)
	l.ctx = ctx
	if progress != nil {
		progress(50, 100)
		progress(100, 100)
	}
	return l.model, l.err
}

// harness wires a controller to headless collaborators. Background work is
// queued and only runs when the test calls finishLoad.
type harness struct {
	t         *testing.T
	ctrl      *Controller
	container *headless.Container
	target    *headless.Target
	sched     *frameloop.Scheduler
	time      *clock.Manual
	loader    *fakeLoader
	logs      *observer.ObservedLogs
	tasks     []func()
}

func newHarness(t *testing.T, loader *fakeLoader) *harness {
	t.Helper()
	cfg := config.Default()
	core, logs := observer.New(zap.DebugLevel)

	h := &harness{
		t:         t,
		container: headless.NewContainer(800, 600),
		target:    headless.NewTarget(),
		sched:     frameloop.New(),
		time:      clock.NewManual(time.Unix(1700000000, 0)),
		loader:    loader,
		logs:      logs,
	}
	h.ctrl = New(cfg.Scene, cfg.Model, Deps{
		NewTarget: headless.Factory(h.target),
		Loader:    loader,
		Scheduler: h.sched,
		Clock:     clock.NewWithSource(h.time.Now),
		Go:        func(fn func()) { h.tasks = append(h.tasks, fn) },
		Logger:    zap.New(core),
	})
	return h
}

func (h *harness) mount() {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.Mount(h.container))
}

// finishLoad runs the background load and delivers its result on the next frame.
func (h *harness) finishLoad() {
	tasks := h.tasks
	h.tasks = nil
	for _, fn := range tasks {
		fn()
	}
	h.sched.RunFrame()
}

func (h *harness) advance(d time.Duration) {
	h.time.Advance(d)
	h.sched.RunFrame()
}

// robot builds a model with a skinned body and the given number of clips.
func robot(clips int) *assets.Model {
	root := scene.NewGroup("model")
	hips := scene.NewBone("Hips")
	mat := scene.NewMaterial("metal", 0x888888)
	body := scene.NewSkinnedMesh("Body", scene.NewPlaneGeometry(1, 2),
		&scene.Skin{Joints: []*scene.Node{hips}}, mat)
	head := scene.NewMesh("Head", scene.NewPlaneGeometry(1, 1), mat, scene.NewMaterial("eyes", 0x000000))
	hips.Add(head)
	root.Add(hips, body)

	m := &assets.Model{URL: config.DefaultModelURL, Root: root}
	for i := 0; i < clips; i++ {
		m.Clips = append(m.Clips, animation.NewClip("clip", []animation.Track{{
			Node:   "Hips",
			Path:   animation.PathTranslation,
			Times:  []float32{0, 2},
			Values: []float32{0, 0, 0, 0, 1, 0},
		}}))
	}
	return m
}

func TestMountSizesTargetAndCamera(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(0)})
	h.mount()

	assert.True(t, h.ctrl.Mounted())
	w, hgt := h.target.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, hgt)
	assert.InDelta(t, 800.0/600.0, h.ctrl.Camera().Aspect, 1e-6)
	assert.Equal(t, []render.Surface{h.target.Surface()}, h.container.Surfaces())
	assert.Equal(t, [4]float32{0, 0, 0, 0}, h.target.ClearColor(), "transparent background")
	assert.Equal(t, 1, h.container.Observers())
	assert.Equal(t, 1, h.sched.Pending())
	assert.Nil(t, h.ctrl.Model(), "model is still loading")
}

func TestMountBuildsScene(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(0)})
	h.mount()

	cam := h.ctrl.Camera()
	assert.Equal(t, float32(75), cam.FOV)
	assert.Equal(t, float32(0.1), cam.Near)
	assert.Equal(t, float32(1000), cam.Far)
	assert.True(t, cam.Position.ApproxEqualThreshold(mgl32.Vec3{0, 1.5, 3}, 1e-4))
	assert.True(t, cam.Target().ApproxEqual(mgl32.Vec3{0, 0.8, 0}))

	ctl := h.ctrl.Controls()
	assert.True(t, ctl.EnableDamping)
	assert.Equal(t, float32(0.05), ctl.DampingFactor)

	amb, dir := h.ctrl.Scene().Lights()
	require.NotNil(t, amb)
	require.NotNil(t, dir)
	assert.Equal(t, float32(0.7), amb.Light.Intensity)
	assert.Equal(t, float32(1.5), dir.Light.Intensity)
	assert.True(t, dir.CastShadow)
	assert.InDelta(t, 1, dir.Position.Len(), 1e-6)
	assert.True(t, dir.Position.ApproxEqual(mgl32.Vec3{5, 10, 7}.Normalize()))

	ground := h.ctrl.Scene().Root().FindByName("ground")
	require.NotNil(t, ground)
	assert.True(t, ground.ReceiveShadow)
	assert.False(t, ground.CastShadow)
	assert.Equal(t, float32(-1.5), ground.Position.Y())
	b := ground.Geometry.Bounds().Transform(ground.WorldMatrix())
	assert.InDelta(t, 100, b.Max.X()-b.Min.X(), 1e-3)
	assert.InDelta(t, 100, b.Max.Z()-b.Min.Z(), 1e-3)

	assert.Equal(t, 3, h.ctrl.Scene().Count())
	h.finishLoad()
	assert.Equal(t, []string{config.DefaultModelURL}, h.loader.urls)
}

func TestMountErrors(t *testing.T) {
	h := newHarness(t, &fakeLoader{})
	assert.ErrorIs(t, h.ctrl.Mount(nil), ErrNoContainer)

	gone := headless.NewContainer(10, 10)
	gone.SetAvailable(false)
	assert.ErrorIs(t, h.ctrl.Mount(gone), ErrNoContainer)

	h.mount()
	assert.ErrorIs(t, h.ctrl.Mount(h.container), ErrAlreadyMounted)
}

func TestMountTargetFailure(t *testing.T) {
	boom := errors.New("no gl context")
	ctrl := New(config.Default().Scene, config.Default().Model, Deps{
		NewTarget: func() (render.Target, error) { return nil, boom },
		Loader:    &fakeLoader{},
		Scheduler: frameloop.New(),
		Logger:    zap.NewNop(),
	})

	err := ctrl.Mount(headless.NewContainer(10, 10))
	assert.ErrorIs(t, err, boom)
	assert.False(t, ctrl.Mounted())
	ctrl.Unmount()
}

func TestMountAttachFailureReleasesTarget(t *testing.T) {
	h := newHarness(t, &fakeLoader{})
	require.NoError(t, h.container.Attach(h.target.Surface()))

	err := h.ctrl.Mount(h.container)
	assert.ErrorIs(t, err, headless.ErrAlreadyAttached)
	assert.True(t, h.target.Disposed())
	assert.False(t, h.ctrl.Mounted())
}

func TestResizeTracksLatestSize(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(0)})
	h.mount()

	sizes := []headless.Size{{Width: 1024, Height: 768}, {Width: 300, Height: 900}, {Width: 1920, Height: 1080}, {Width: 1, Height: 1}}
	for _, s := range sizes {
		h.container.Resize(s.Width, s.Height)

		w, hgt := h.target.Size()
		assert.Equal(t, s.Width, w)
		assert.Equal(t, s.Height, hgt)
		assert.InDelta(t, float32(s.Width)/float32(s.Height), h.ctrl.Camera().Aspect, 1e-6)

		h.advance(16 * time.Millisecond)
		assert.InDelta(t, float32(s.Width)/float32(s.Height), h.target.LastAspect, 1e-6)
	}
	assert.Equal(t, append([]headless.Size{{Width: 800, Height: 600}}, sizes...), h.target.Sizes)
}

func TestResizeIgnoresMissingContainer(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(0)})
	h.mount()

	h.container.SetAvailable(false)
	h.container.Resize(10, 10)
	h.container.SetAvailable(true)
	h.container.Resize(0, 50)

	w, hgt := h.target.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, hgt)
	assert.Len(t, h.target.Sizes, 1)
}

func TestLoadSuccessAttachesModel(t *testing.T) {
	model := robot(1)
	h := newHarness(t, &fakeLoader{model: model})
	h.mount()
	h.finishLoad()

	require.Equal(t, model, h.ctrl.Model())
	assert.Equal(t, h.ctrl.Scene().Root(), model.Root.Parent())
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, model.Root.Position)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, model.Root.Scale)

	model.Root.Traverse(func(n *scene.Node) {
		if n.IsDrawable() {
			assert.True(t, n.CastShadow, n.Name)
			assert.True(t, n.ReceiveShadow, n.Name)
		}
	})
	assert.False(t, model.Root.FindByName("Hips").CastShadow, "non-drawables untouched")

	require.NotNil(t, h.ctrl.Mixer())
	assert.Equal(t, model.Root, h.ctrl.Mixer().Root())
	assert.Equal(t, 1, h.ctrl.Mixer().RunningActions())

	assert.NotEmpty(t, h.logs.FilterMessage("model loading").All(), "progress is reported")
	assert.Error(t, h.loader.ctx.Err(), "load context is released once applied")
}

func TestLoadWithoutClipsHasNoMixer(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(0)})
	h.mount()
	h.finishLoad()

	require.NotNil(t, h.ctrl.Model())
	assert.Nil(t, h.ctrl.Mixer())

	before := h.target.Frames
	h.advance(16 * time.Millisecond)
	assert.Equal(t, before+1, h.target.Frames)
	assert.Equal(t, 3, h.target.LastDrawCalls, "ground, body and head")
}

func TestLoadFailureIsLogged(t *testing.T) {
	h := newHarness(t, &fakeLoader{err: errors.New("connection refused")})
	h.mount()
	h.finishLoad()

	assert.Nil(t, h.ctrl.Model())
	assert.Nil(t, h.ctrl.Mixer())
	assert.Equal(t, 3, h.ctrl.Scene().Count(), "no partial state")

	entries := h.logs.FilterMessage("failed to load model").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, config.DefaultModelURL, fields["url"])
	assert.Equal(t, "connection refused", fields["error"])

	h.advance(16 * time.Millisecond)
	assert.True(t, h.ctrl.Mounted(), "rendering continues without a model")
}

func TestLateLoadIsDiscarded(t *testing.T) {
	for _, tt := range []struct {
		name   string
		loader *fakeLoader
	}{
		{"success", &fakeLoader{model: robot(2)}},
		{"failure", &fakeLoader{err: context.Canceled}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.loader)
			h.mount()
			h.ctrl.Unmount()
			require.Equal(t, 0, h.ctrl.Scene().Count())

			h.finishLoad()

			assert.Equal(t, 0, h.ctrl.Scene().Count())
			assert.Nil(t, h.ctrl.Mixer())
			assert.Nil(t, h.ctrl.Model())
			assert.Empty(t, h.logs.FilterMessage("failed to load model").All())
			assert.Error(t, tt.loader.ctx.Err(), "fetch is cancelled at teardown")
			if tt.loader.model != nil {
				tt.loader.model.Root.Traverse(func(n *scene.Node) {
					if n.IsDrawable() {
						assert.True(t, n.Geometry.Disposed(), n.Name)
					}
				})
			}
		})
	}
}

func TestLoadFromPreviousMountIsDiscarded(t *testing.T) {
	first := robot(1)
	h := newHarness(t, &fakeLoader{model: first})
	h.mount()
	stale := h.tasks
	h.tasks = nil
	h.ctrl.Unmount()

	h.target = headless.NewTarget()
	h.ctrl.deps.NewTarget = headless.Factory(h.target)
	h.mount()

	for _, fn := range stale {
		fn()
	}
	h.sched.RunFrame()

	assert.Nil(t, h.ctrl.Model())
	assert.Equal(t, 3, h.ctrl.Scene().Count())
	assert.True(t, first.Root.FindByName("Body").Geometry.Disposed())
}

func TestAnimationAdvancesByFrameDelta(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(3)})
	h.mount()
	h.finishLoad()

	mixer := h.ctrl.Mixer()
	require.NotNil(t, mixer)
	start := make([]float64, len(mixer.Actions()))
	for i, a := range mixer.Actions() {
		start[i] = a.Time()
	}

	h.advance(250 * time.Millisecond)

	for i, a := range mixer.Actions() {
		assert.InDelta(t, start[i]+0.25, a.Time(), 1e-9)
	}
	assert.InDelta(t, 0.125, h.ctrl.Model().Root.FindByName("Hips").Position.Y(), 1e-4)
}

func TestFrameOrderAndScheduling(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(0)})
	h.mount()

	for i := 1; i <= 5; i++ {
		h.advance(16 * time.Millisecond)
		assert.Equal(t, i, h.target.Frames)
		assert.Equal(t, 1, h.sched.Pending(), "exactly one frame in flight")
	}

	h.ctrl.Frame()
	assert.Equal(t, 6, h.target.Frames)
	assert.Equal(t, 1, h.sched.Pending(), "manual frame replaces the pending one")
}

func TestControlsFollowContainerInput(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(0)})
	h.mount()
	before := h.ctrl.Camera().Position

	h.container.Dispatch(input.Event{Type: input.EventMouseDown, Button: input.ButtonLeft, MouseX: 100, MouseY: 100})
	h.container.Dispatch(input.Event{Type: input.EventMouseMove, MouseX: 300, MouseY: 100})
	h.container.Dispatch(input.Event{Type: input.EventMouseUp, Button: input.ButtonLeft})
	h.advance(16 * time.Millisecond)

	assert.False(t, before.ApproxEqualThreshold(h.ctrl.Camera().Position, 1e-4), "camera orbits")
	assert.True(t, h.ctrl.Controls().Pending(), "damping carries motion into later frames")
}

func TestUnmountTearsDown(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(2)})
	h.mount()
	h.finishLoad()
	h.advance(16 * time.Millisecond)
	require.Positive(t, h.target.Resident())

	h.ctrl.Unmount()

	assert.False(t, h.ctrl.Mounted())
	assert.Equal(t, 0, h.container.Observers())
	assert.True(t, h.ctrl.Controls().Disposed())
	assert.Equal(t, 0, h.container.Len(), "input unsubscribed")
	assert.True(t, h.target.Disposed())
	assert.Empty(t, h.container.Surfaces())
	assert.Equal(t, 0, h.ctrl.Scene().Count())
	assert.Equal(t, 0, h.target.Resident(), "every geometry and material released")
	assert.Equal(t, 0, h.sched.Pending())
	assert.Nil(t, h.ctrl.Mixer())

	frames := h.target.Frames
	h.sched.RunFrame()
	h.ctrl.Frame()
	h.ctrl.Resize()
	assert.Equal(t, frames, h.target.Frames)
	assert.Zero(t, h.target.Refused, "no render is even attempted")

	h.ctrl.Unmount()
	assert.Len(t, h.logs.FilterMessage("viewer unmounted").All(), 1)
}

func TestUnmountBeforeLoadAndWithoutMount(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(1)})
	assert.NotPanics(t, h.ctrl.Unmount)

	h.mount()
	assert.NotPanics(t, h.ctrl.Unmount)
	assert.Equal(t, 0, h.ctrl.Scene().Count())
}

func TestConcreteScenario(t *testing.T) {
	h := newHarness(t, &fakeLoader{model: robot(2)})
	h.mount()

	w, hgt := h.target.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, hgt)
	assert.InDelta(t, 1.333, h.ctrl.Camera().Aspect, 1e-3)

	h.finishLoad()
	mixer := h.ctrl.Mixer()
	require.NotNil(t, mixer)
	assert.Len(t, mixer.Actions(), 2)
	assert.Equal(t, 2, mixer.RunningActions())

	before := []float64{mixer.Actions()[0].Time(), mixer.Actions()[1].Time()}
	h.advance(16 * time.Millisecond)
	for i, a := range mixer.Actions() {
		assert.InDelta(t, before[i]+0.016, a.Time(), 1e-9)
	}

	h.ctrl.Unmount()
	assert.Equal(t, 0, h.ctrl.Scene().Count())
	assert.NotContains(t, h.container.Surfaces(), h.target.Surface())
}
