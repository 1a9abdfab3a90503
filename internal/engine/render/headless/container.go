package headless

import (
	"errors"
	"slices"

	"github.com/Faultbox/showcase/internal/engine/input"
	"github.com/Faultbox/showcase/internal/engine/render"
)

// ErrAlreadyAttached is returned when a surface is attached twice.
var ErrAlreadyAttached = errors.New("surface already attached")

// Container is an in-memory host for the viewer with a settable size.
type Container struct {
	*input.Hub

	width, height int
	available     bool
	surfaces      []render.Surface
	observers     map[int]func()
	nextObserver  int
}

// NewContainer creates an available container of the given size.
func NewContainer(width, height int) *Container {
	return &Container{
		Hub:       input.NewHub(),
		width:     width,
		height:    height,
		available: true,
		observers: make(map[int]func()),
	}
}

// Size returns the container size; ok is false once the container is gone.
func (c *Container) Size() (width, height int, ok bool) {
	if !c.available {
		return 0, 0, false
	}
	return c.width, c.height, true
}

// Resize changes the size and notifies observers, like a layout change.
func (c *Container) Resize(width, height int) {
	c.width, c.height = width, height
	for _, id := range c.observerIDs() {
		if fn, ok := c.observers[id]; ok {
			fn()
		}
	}
}

// SetAvailable simulates the container element appearing or disappearing.
func (c *Container) SetAvailable(ok bool) {
	c.available = ok
}

func (c *Container) observerIDs() []int {
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ObserveResize registers fn for size changes.
func (c *Container) ObserveResize(fn func()) func() {
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	return func() { delete(c.observers, id) }
}

// Observers returns the number of active resize observers.
func (c *Container) Observers() int {
	return len(c.observers)
}

// Attach adds s to the surfaces composited on Present.
func (c *Container) Attach(s render.Surface) error {
	if slices.Contains(c.surfaces, s) {
		return ErrAlreadyAttached
	}
	c.surfaces = append(c.surfaces, s)
	return nil
}

// Detach removes s. Unknown surfaces are ignored.
func (c *Container) Detach(s render.Surface) {
	if i := slices.Index(c.surfaces, s); i >= 0 {
		c.surfaces = slices.Delete(c.surfaces, i, i+1)
	}
}

// Surfaces returns the attached surfaces.
func (c *Container) Surfaces() []render.Surface {
	return c.surfaces
}

// Present composites every attached surface.
func (c *Container) Present() {
	for _, s := range c.surfaces {
		s.Composite()
	}
}
