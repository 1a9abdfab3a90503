// Package app runs the viewer: it builds the host container, mounts the
// controller and drives the frame loop until the user quits.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/showcase/internal/assets"
	"github.com/Faultbox/showcase/internal/config"
	"github.com/Faultbox/showcase/internal/engine/frameloop"
	"github.com/Faultbox/showcase/internal/engine/render"
	"github.com/Faultbox/showcase/internal/engine/render/headless"
	"github.com/Faultbox/showcase/internal/engine/render/opengl"
	"github.com/Faultbox/showcase/internal/engine/window"
	"github.com/Faultbox/showcase/internal/logger"
	"github.com/Faultbox/showcase/internal/viewer"
)

// headlessFPS paces headless runs that set no explicit limit.
const headlessFPS = 60

// Host is a container that also owns the event pump and presentation.
type Host interface {
	viewer.Container

	// Pump processes pending events and reports whether to quit.
	Pump() bool
	// Present shows the attached surfaces.
	Present()
	Close()
}

// App is the running viewer.
type App struct {
	cfg    *config.Config
	host   Host
	sched  *frameloop.Scheduler
	viewer *viewer.Controller
	frames int
	log    *zap.Logger
}

// New creates the host selected by cfg: an SDL window with OpenGL, or a
// headless container.
func New(cfg *config.Config) (*App, error) {
	loader := assets.NewLoader(assets.Options{
		Timeout: cfg.Model.Timeout,
		Cache:   cfg.Model.Cache,
	})

	if cfg.Window.Headless {
		host := &headlessHost{Container: headless.NewContainer(cfg.Window.Width, cfg.Window.Height)}
		target := headless.NewTarget()
		return NewWith(cfg, host, headless.Factory(target), loader), nil
	}

	win, err := window.New(cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	return NewWith(cfg, win, opengl.Factory(), loader), nil
}

// NewWith creates an app on an existing host.
func NewWith(cfg *config.Config, host Host, targets render.Factory, loader viewer.ModelLoader) *App {
	sched := frameloop.New()
	return &App{
		cfg:   cfg,
		host:  host,
		sched: sched,
		viewer: viewer.New(cfg.Scene, cfg.Model, viewer.Deps{
			NewTarget: targets,
			Loader:    loader,
			Scheduler: sched,
		}),
		log: logger.Named("app"),
	}
}

// Run mounts the viewer and runs frames until the host asks to quit, ctx
// ends, or the configured frame budget is spent. The viewer is unmounted
// before Run returns.
func (a *App) Run(ctx context.Context) error {
	if err := a.viewer.Mount(a.host); err != nil {
		return fmt.Errorf("mounting viewer: %w", err)
	}
	defer a.viewer.Unmount()

	var frameTime time.Duration
	limit := a.cfg.Window.FPSLimit
	if limit <= 0 && a.cfg.Window.Headless {
		limit = headlessFPS
	}
	if limit > 0 {
		frameTime = time.Second / time.Duration(limit)
	}

	fpsTimer := time.Now()
	fpsFrames := 0

	a.log.Info("starting frame loop", zap.Int("fps_limit", limit), zap.Int("max_frames", a.cfg.Window.MaxFrames))

	for {
		if ctx.Err() != nil {
			a.log.Info("frame loop interrupted", zap.Error(ctx.Err()))
			return nil
		}
		start := time.Now()

		if a.host.Pump() {
			a.log.Info("quit requested")
			return nil
		}
		a.sched.RunFrame()
		a.host.Present()

		a.frames++
		fpsFrames++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", fpsFrames))
			fpsFrames = 0
			fpsTimer = time.Now()
		}

		if budget := a.cfg.Window.MaxFrames; budget > 0 && a.frames >= budget {
			a.log.Info("frame budget reached", zap.Int("frames", a.frames))
			return nil
		}

		if frameTime > 0 {
			if rest := frameTime - time.Since(start); rest > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(rest):
				}
			}
		}
	}
}

// Frames returns the number of frames presented.
func (a *App) Frames() int {
	return a.frames
}

// Viewer returns the scene controller.
func (a *App) Viewer() *viewer.Controller {
	return a.viewer
}

// Close releases the host.
func (a *App) Close() {
	a.log.Info("closing")
	a.viewer.Unmount()
	a.host.Close()
}

// headlessHost adapts a headless container into a Host that never quits.
type headlessHost struct {
	*headless.Container
}

func (h *headlessHost) Pump() bool { return false }

func (h *headlessHost) Close() {}
