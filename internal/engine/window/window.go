// Package window hosts the viewer in an SDL2 window with an OpenGL context.
package window

import (
	"errors"
	"fmt"
	"runtime"
	"slices"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/showcase/internal/config"
	"github.com/Faultbox/showcase/internal/engine/input"
	"github.com/Faultbox/showcase/internal/engine/render"
	"github.com/Faultbox/showcase/internal/logger"
)

func init() {
	// OpenGL calls must be made from the main thread
	runtime.LockOSThread()
}

// ErrClosed is returned when attaching to a closed window.
var ErrClosed = errors.New("window closed")

// Window wraps an SDL2 window and its OpenGL context. It is the container the
// viewer mounts into: it reports its drawable size, fans input out to
// subscribers and composites attached surfaces over its background.
type Window struct {
	*input.Hub

	config    config.WindowConfig
	sdlWindow *sdl.Window
	glContext sdl.GLContext
	poller    *poller

	background [4]float32
	surfaces   []render.Surface
	observers  map[int]func()
	nextID     int
	closed     bool

	log *zap.Logger
}

// New creates a window with an OpenGL 4.1 core context and loads GL.
func New(cfg config.WindowConfig) (*Window, error) {
	w := &Window{
		Hub:       input.NewHub(),
		config:    cfg,
		poller:    newPoller(),
		observers: make(map[int]func()),
		log:       logger.Named("window"),
	}
	w.background = [4]float32{
		float32((cfg.Background>>16)&0xff) / 255,
		float32((cfg.Background>>8)&0xff) / 255,
		float32(cfg.Background&0xff) / 255,
		1,
	}

	w.log.Info("initializing SDL2")
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	// OpenGL 4.1 core is the highest macOS supports
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 1)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)
	sdl.GLSetAttribute(sdl.GL_DEPTH_SIZE, 24)

	flags := uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_RESIZABLE | sdl.WINDOW_ALLOW_HIGHDPI)
	if cfg.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}

	var err error
	w.sdlWindow, err = sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	w.glContext, err = w.sdlWindow.GLCreateContext()
	if err != nil {
		w.sdlWindow.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}

	if err := gl.Init(); err != nil {
		w.Close()
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}

	interval := 0
	if cfg.VSync {
		interval = 1
	}
	if err := sdl.GLSetSwapInterval(interval); err != nil {
		w.log.Warn("failed to set swap interval", zap.Int("interval", interval), zap.Error(err))
	}

	width, height, _ := w.Size()
	w.log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Bool("fullscreen", cfg.Fullscreen),
		zap.Bool("vsync", cfg.VSync),
		zap.String("gl_version", gl.GoStr(gl.GetString(gl.VERSION))),
	)
	return w, nil
}

// Size returns the drawable size in pixels.
func (w *Window) Size() (width, height int, ok bool) {
	if w.closed {
		return 0, 0, false
	}
	dw, dh := w.sdlWindow.GLGetDrawableSize()
	return int(dw), int(dh), true
}

// Attach adds s to the surfaces composited by Present.
func (w *Window) Attach(s render.Surface) error {
	if w.closed {
		return ErrClosed
	}
	if !slices.Contains(w.surfaces, s) {
		w.surfaces = append(w.surfaces, s)
	}
	return nil
}

// Detach removes s. Unknown surfaces are ignored.
func (w *Window) Detach(s render.Surface) {
	if i := slices.Index(w.surfaces, s); i >= 0 {
		w.surfaces = slices.Delete(w.surfaces, i, i+1)
	}
}

// ObserveResize registers fn to run after the window size changes.
func (w *Window) ObserveResize(fn func()) func() {
	id := w.nextID
	w.nextID++
	w.observers[id] = fn
	return func() { delete(w.observers, id) }
}

// Pump processes pending window events. It reports whether the user asked to
// quit, by closing the window or pressing Escape.
func (w *Window) Pump() (quit bool) {
	quit = w.poller.Update()
	for _, e := range w.poller.Events() {
		switch e.Type {
		case input.EventWindowResize:
			w.log.Debug("window resized", zap.Int("width", e.Width), zap.Int("height", e.Height))
			w.notifyResize()
		case input.EventKeyDown:
			if e.Key == keyEscape {
				quit = true
			}
		}
		w.Dispatch(e)
	}
	return quit
}

func (w *Window) notifyResize() {
	ids := make([]int, 0, len(w.observers))
	for id := range w.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if fn, ok := w.observers[id]; ok {
			fn()
		}
	}
}

// Present clears to the page background, composites the attached surfaces
// and swaps buffers.
func (w *Window) Present() {
	width, height, ok := w.Size()
	if !ok {
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(width), int32(height))
	bg := w.background
	gl.ClearColor(bg[0], bg[1], bg[2], bg[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	for _, s := range w.surfaces {
		s.Composite()
	}
	w.sdlWindow.GLSwap()
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.sdlWindow.SetTitle(title)
}

// Close destroys the window and shuts SDL2 down.
func (w *Window) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.log.Info("closing window")

	if w.glContext != nil {
		sdl.GLDeleteContext(w.glContext)
	}
	if w.sdlWindow != nil {
		w.sdlWindow.Destroy()
	}
	sdl.Quit()
}
