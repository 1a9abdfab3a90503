// Package viewer hosts the animated character scene inside a container: it
// builds the scene on mount, loads the model in the background, drives the
// per-frame update and tears everything down on unmount.
package viewer

import (
	"context"
	"errors"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/showcase/internal/assets"
	"github.com/Faultbox/showcase/internal/config"
	"github.com/Faultbox/showcase/internal/engine/animation"
	"github.com/Faultbox/showcase/internal/engine/camera"
	"github.com/Faultbox/showcase/internal/engine/clock"
	"github.com/Faultbox/showcase/internal/engine/frameloop"
	"github.com/Faultbox/showcase/internal/engine/input"
	"github.com/Faultbox/showcase/internal/engine/render"
	"github.com/Faultbox/showcase/internal/engine/scene"
	"github.com/Faultbox/showcase/internal/logger"
)

var (
	// ErrAlreadyMounted is returned by Mount on a mounted controller.
	ErrAlreadyMounted = errors.New("viewer already mounted")
	// ErrNoContainer is returned by Mount when the container is missing or gone.
	ErrNoContainer = errors.New("viewer container unavailable")
)

// Container is the host element the scene is embedded in.
type Container interface {
	input.Source

	// Size returns the current pixel size; ok is false once the container is gone.
	Size() (width, height int, ok bool)
	Attach(s render.Surface) error
	Detach(s render.Surface)
	// ObserveResize calls fn after every size change until stop is called.
	ObserveResize(fn func()) (stop func())
}

// ModelLoader fetches and decodes a model. Load may block.
type ModelLoader interface {
	Load(ctx context.Context, url string, progress assets.Progress) (*assets.Model, error)
}

// Scheduler runs frame callbacks and hands background results back to the
// frame thread.
type Scheduler interface {
	Request(fn func()) frameloop.Handle
	Cancel(h frameloop.Handle)
	Post(fn func())
}

// Deps are the collaborators of a Controller.
type Deps struct {
	NewTarget render.Factory
	Loader    ModelLoader
	Scheduler Scheduler

	// Clock defaults to the wall clock.
	Clock *clock.Clock
	// Go starts background work; defaults to a goroutine.
	Go func(fn func())
	// Logger defaults to the "viewer" logger.
	Logger *zap.Logger
}

// Controller owns the scene shown in one container.
type Controller struct {
	cfg   config.SceneConfig
	asset config.ModelConfig
	deps  Deps
	log   *zap.Logger

	container Container
	target    render.Target
	scene     *scene.Scene
	camera    *camera.Perspective
	controls  *camera.OrbitControls
	clock     *clock.Clock

	loaded *assets.Model
	mixer  *animation.Mixer

	frame         frameloop.Handle
	stopObserving func()
	cancelLoad    context.CancelFunc
	generation    uint64
	mounted       bool
}

// New creates an unmounted controller.
func New(cfg config.SceneConfig, model config.ModelConfig, deps Deps) *Controller {
	if deps.Go == nil {
		deps.Go = func(fn func()) { go fn() }
	}
	log := deps.Logger
	if log == nil {
		log = logger.Named("viewer")
	}
	return &Controller{
		cfg:   cfg,
		asset: model,
		deps:  deps,
		log:   log.With(zap.String("instance", uuid.NewString())),
		scene: scene.New(),
	}
}

// Mount builds the scene inside c and starts the frame loop and model load.
func (v *Controller) Mount(c Container) error {
	if v.mounted {
		return ErrAlreadyMounted
	}
	if c == nil {
		return ErrNoContainer
	}
	width, height, ok := c.Size()
	if !ok {
		return ErrNoContainer
	}

	target, err := v.deps.NewTarget()
	if err != nil {
		return fmt.Errorf("creating render target: %w", err)
	}

	cam := v.cfg.Camera
	v.camera = camera.NewPerspective(cam.FOV, camera.AspectOf(width, height), cam.Near, cam.Far)
	v.camera.Position = mgl32.Vec3(cam.Position)

	target.SetClearColor(v.cfg.ClearColor)
	if err := c.Attach(target.Surface()); err != nil {
		target.Dispose()
		return fmt.Errorf("attaching render surface: %w", err)
	}
	v.container = c
	v.target = target

	v.addLights()
	v.addGround()
	v.setupControls()

	v.mounted = true
	v.generation++
	v.loadModel(v.generation)

	v.clock = v.deps.Clock
	if v.clock == nil {
		v.clock = clock.New()
	} else {
		v.clock.Start()
	}
	v.frame = v.deps.Scheduler.Request(v.Frame)

	v.stopObserving = c.ObserveResize(v.Resize)
	v.Resize()

	v.log.Info("viewer mounted",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("model", v.asset.URL),
	)
	return nil
}

func (v *Controller) addLights() {
	amb := v.cfg.Ambient
	v.scene.Add(scene.NewAmbientLight(amb.Color, amb.Intensity))

	dir := v.cfg.Directional
	light := scene.NewDirectionalLight(dir.Color, dir.Intensity)
	if p := mgl32.Vec3(dir.Position); p.Len() > 0 {
		light.Position = p.Normalize()
	}
	light.CastShadow = dir.CastShadow
	light.Light.ShadowResolution = dir.ShadowResolution
	v.scene.Add(light)
}

func (v *Controller) addGround() {
	g := v.cfg.Ground
	mat := scene.NewMaterial("ground", g.Color)
	mat.DoubleSided = true

	ground := scene.NewMesh("ground", scene.NewPlaneGeometry(g.Size, g.Size), mat)
	ground.SetRotationEuler(gomath.Pi/2, 0, 0)
	ground.Position = mgl32.Vec3{0, g.Y, 0}
	ground.ReceiveShadow = true
	ground.CastShadow = false
	v.scene.Add(ground)
}

func (v *Controller) setupControls() {
	ctl := v.cfg.Controls
	v.controls = camera.NewOrbitControls(v.camera)
	v.controls.Target = mgl32.Vec3(ctl.Target)
	v.controls.EnableDamping = ctl.EnableDamping
	v.controls.DampingFactor = ctl.DampingFactor
	v.controls.RotateSpeed = ctl.RotateSpeed
	v.controls.ZoomSpeed = ctl.ZoomSpeed
	v.controls.MinDistance = ctl.MinDistance
	v.controls.MaxDistance = ctl.MaxDistance
	v.controls.Update()
	v.controls.Bind(v.container)
}

// loadModel starts the background load. The result is applied on the frame
// thread only if gen is still current.
func (v *Controller) loadModel(gen uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	v.cancelLoad = cancel

	url := v.asset.URL
	loader := v.deps.Loader
	sched := v.deps.Scheduler
	log := v.log

	v.deps.Go(func() {
		lastPct := -1
		progress := func(loaded, total int64) {
			if total <= 0 {
				return
			}
			pct := int(loaded * 100 / total)
			if pct/10 == lastPct/10 && pct != 100 {
				return
			}
			lastPct = pct
			log.Debug("model loading", zap.String("url", url), zap.Int("percent", pct))
		}

		model, err := loader.Load(ctx, url, progress)
		sched.Post(func() { v.onLoaded(gen, model, err) })
	})
}

func (v *Controller) onLoaded(gen uint64, model *assets.Model, err error) {
	if gen != v.generation || !v.mounted {
		if model != nil {
			model.Dispose()
		}
		v.log.Debug("discarding model load after teardown", zap.String("url", v.asset.URL))
		return
	}
	v.cancelLoad()

	if err != nil {
		v.log.Error("failed to load model", zap.String("url", v.asset.URL), zap.Error(err))
		return
	}

	root := model.Root
	root.Position = mgl32.Vec3(v.asset.Position)
	root.SetUniformScale(v.asset.Scale)

	meshes := 0
	root.Traverse(func(n *scene.Node) {
		if n.IsDrawable() {
			n.CastShadow = true
			n.ReceiveShadow = true
			meshes++
		}
	})
	v.scene.Add(root)
	v.loaded = model

	if len(model.Clips) > 0 {
		v.mixer = animation.NewMixer(root)
		for _, clip := range model.Clips {
			v.mixer.ClipAction(clip).Play()
		}
	}

	v.log.Info("model attached",
		zap.String("url", v.asset.URL),
		zap.Int("meshes", meshes),
		zap.Int("clips", len(model.Clips)),
	)
}

// Frame advances animation and controls, renders, and schedules the next
// frame. It does nothing once the controller is unmounted.
func (v *Controller) Frame() {
	if !v.mounted {
		return
	}
	if v.frame != 0 {
		v.deps.Scheduler.Cancel(v.frame)
		v.frame = 0
	}

	dt := v.clock.Delta()
	if v.mixer != nil {
		v.mixer.Update(dt)
	}
	v.controls.Update()
	v.target.Render(v.scene, v.camera)

	v.frame = v.deps.Scheduler.Request(v.Frame)
}

// Resize fits the render target and camera to the container's current size.
func (v *Controller) Resize() {
	if !v.mounted {
		return
	}
	width, height, ok := v.container.Size()
	if !ok || width <= 0 || height <= 0 {
		return
	}
	v.target.SetSize(width, height)
	v.camera.Aspect = camera.AspectOf(width, height)
	v.camera.UpdateProjection()
	v.controls.SetViewportHeight(height)
}

// Unmount tears the scene down and stops the frame loop. Calls on an
// unmounted controller do nothing.
func (v *Controller) Unmount() {
	if !v.mounted {
		return
	}
	v.mounted = false

	if v.stopObserving != nil {
		v.stopObserving()
		v.stopObserving = nil
	}
	v.controls.Dispose()
	v.target.Dispose()
	v.container.Detach(v.target.Surface())

	scene.DisposeDrawables(v.scene.Root())
	v.scene.Clear()

	if v.frame != 0 {
		v.deps.Scheduler.Cancel(v.frame)
		v.frame = 0
	}

	v.cancelLoad()
	v.generation++
	if v.mixer != nil {
		v.mixer.StopAll()
		v.mixer = nil
	}
	v.loaded = nil
	v.container = nil

	v.log.Info("viewer unmounted")
}

// Mounted reports whether the controller is mounted.
func (v *Controller) Mounted() bool {
	return v.mounted
}

// Scene returns the scene graph.
func (v *Controller) Scene() *scene.Scene {
	return v.scene
}

// Camera returns the camera, or nil before the first mount.
func (v *Controller) Camera() *camera.Perspective {
	return v.camera
}

// Controls returns the orbit controls, or nil before the first mount.
func (v *Controller) Controls() *camera.OrbitControls {
	return v.controls
}

// Mixer returns the animation mixer, or nil when no animated model is shown.
func (v *Controller) Mixer() *animation.Mixer {
	return v.mixer
}

// Model returns the attached model, or nil while loading.
func (v *Controller) Model() *assets.Model {
	return v.loaded
}

// Target returns the render target of the current mount.
func (v *Controller) Target() render.Target {
	return v.target
}
