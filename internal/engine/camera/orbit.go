package camera

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/showcase/internal/engine/input"
)

// OrbitControls orbits a Perspective camera around a target point. Input
// accumulates rotation, zoom and pan deltas; Update integrates them, and with
// damping enabled leaves a decaying remainder for the following frames.
type OrbitControls struct {
	Target mgl32.Vec3

	Enabled       bool
	EnableDamping bool
	DampingFactor float32

	RotateSpeed float32
	ZoomSpeed   float32
	PanSpeed    float32

	// Distance limits; MaxDistance 0 means unbounded.
	MinDistance float32
	MaxDistance float32

	// Polar angle limits in radians, measured from +Y.
	MinPolarAngle float32
	MaxPolarAngle float32

	camera *Perspective

	deltaTheta float32
	deltaPhi   float32
	scale      float32
	panOffset  mgl32.Vec3

	// viewport height in pixels, used to scale drags
	viewHeight int

	dragging    bool
	dragButton  uint8
	lastX       int
	lastY       int
	unsubscribe func()
	disposed    bool
}

// NewOrbitControls creates controls for cam with the camera's current target.
func NewOrbitControls(cam *Perspective) *OrbitControls {
	return &OrbitControls{
		Target:        cam.Target(),
		Enabled:       true,
		DampingFactor: 0.05,
		RotateSpeed:   1,
		ZoomSpeed:     1,
		PanSpeed:      1,
		MinPolarAngle: 0,
		MaxPolarAngle: gomath.Pi,
		camera:        cam,
		scale:         1,
		viewHeight:    1,
	}
}

// Camera returns the controlled camera.
func (o *OrbitControls) Camera() *Perspective {
	return o.camera
}

// SetViewportHeight sets the pixel height that a full-height drag maps to.
func (o *OrbitControls) SetViewportHeight(h int) {
	if h > 0 {
		o.viewHeight = h
	}
}

// Bind subscribes the controls to pointer events from src. A previous binding
// is released first.
func (o *OrbitControls) Bind(src input.Source) {
	if o.disposed || src == nil {
		return
	}
	if o.unsubscribe != nil {
		o.unsubscribe()
	}
	o.unsubscribe = src.Subscribe(o.HandleEvent)
}

// Dispose releases the event binding. The controls ignore input afterwards.
func (o *OrbitControls) Dispose() {
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
	o.dragging = false
	o.disposed = true
}

// Disposed reports whether Dispose has run.
func (o *OrbitControls) Disposed() bool {
	return o.disposed
}

// HandleEvent applies a pointer event.
func (o *OrbitControls) HandleEvent(e input.Event) {
	if !o.Enabled || o.disposed {
		return
	}
	switch e.Type {
	case input.EventMouseDown:
		o.dragging = true
		o.dragButton = e.Button
		o.lastX, o.lastY = e.MouseX, e.MouseY
	case input.EventMouseUp:
		o.dragging = false
	case input.EventMouseMove:
		if !o.dragging {
			return
		}
		dx := float32(e.MouseX - o.lastX)
		dy := float32(e.MouseY - o.lastY)
		o.lastX, o.lastY = e.MouseX, e.MouseY
		if o.dragButton == input.ButtonRight || o.dragButton == input.ButtonMiddle {
			o.HandlePan(dx, dy)
		} else {
			o.HandleDrag(dx, dy)
		}
	case input.EventMouseWheel:
		o.HandleZoom(e.WheelY)
	}
}

// HandleDrag rotates by a pointer delta in pixels.
func (o *OrbitControls) HandleDrag(dx, dy float32) {
	h := float32(o.viewHeight)
	o.deltaTheta -= 2 * gomath.Pi * dx / h * o.RotateSpeed
	o.deltaPhi -= 2 * gomath.Pi * dy / h * o.RotateSpeed
}

// HandleZoom dollies in for positive wheel steps and out for negative ones.
func (o *OrbitControls) HandleZoom(steps float32) {
	if steps == 0 {
		return
	}
	f := float32(gomath.Pow(0.95, float64(o.ZoomSpeed*mgl32.Abs(steps))))
	if steps > 0 {
		o.scale *= f
	} else {
		o.scale /= f
	}
}

// HandlePan moves the target in the camera plane by a pointer delta in pixels.
func (o *OrbitControls) HandlePan(dx, dy float32) {
	offset := o.camera.Position.Sub(o.Target)
	dist := offset.Len() * float32(gomath.Tan(float64(mgl32.DegToRad(o.camera.FOV))/2))
	h := float32(o.viewHeight)

	view := o.camera.View()
	right := mgl32.Vec3{view[0], view[4], view[8]}
	up := mgl32.Vec3{view[1], view[5], view[9]}

	o.panOffset = o.panOffset.
		Add(right.Mul(-2 * dx * dist / h * o.PanSpeed)).
		Add(up.Mul(2 * dy * dist / h * o.PanSpeed))
}

// Update integrates pending deltas into the camera position and aims the
// camera at Target. It reports whether the camera moved.
func (o *OrbitControls) Update() bool {
	offset := o.camera.Position.Sub(o.Target)
	radius := offset.Len()
	theta := float32(gomath.Atan2(float64(offset.X()), float64(offset.Z())))
	phi := float32(0)
	if radius > 0 {
		phi = float32(gomath.Acos(float64(mgl32.Clamp(offset.Y()/radius, -1, 1))))
	}

	step := float32(1)
	if o.EnableDamping {
		step = o.DampingFactor
	}
	theta += o.deltaTheta * step
	phi += o.deltaPhi * step
	phi = mgl32.Clamp(phi, o.MinPolarAngle, o.MaxPolarAngle)
	const eps = 1e-6
	phi = mgl32.Clamp(phi, eps, gomath.Pi-eps)

	radius *= o.scale
	radius = max(radius, o.MinDistance)
	if o.MaxDistance > 0 {
		radius = min(radius, o.MaxDistance)
	}

	o.Target = o.Target.Add(o.panOffset.Mul(step))

	sinPhi := float32(gomath.Sin(float64(phi)))
	newOffset := mgl32.Vec3{
		radius * sinPhi * float32(gomath.Sin(float64(theta))),
		radius * float32(gomath.Cos(float64(phi))),
		radius * sinPhi * float32(gomath.Cos(float64(theta))),
	}
	before := o.camera.Position
	o.camera.Position = o.Target.Add(newOffset)
	o.camera.LookAt(o.Target)

	if o.EnableDamping {
		o.deltaTheta *= 1 - o.DampingFactor
		o.deltaPhi *= 1 - o.DampingFactor
		o.panOffset = o.panOffset.Mul(1 - o.DampingFactor)
	} else {
		o.deltaTheta, o.deltaPhi = 0, 0
		o.panOffset = mgl32.Vec3{}
	}
	o.scale = 1

	return before.Sub(o.camera.Position).Len() > 1e-4
}

// Pending reports whether damped motion remains to be integrated.
func (o *OrbitControls) Pending() bool {
	const eps = 1e-6
	return gomath.Abs(float64(o.deltaTheta)) > eps ||
		gomath.Abs(float64(o.deltaPhi)) > eps ||
		o.panOffset.Len() > eps
}
