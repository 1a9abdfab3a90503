package window

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/showcase/internal/engine/input"
)

// poller converts SDL events into viewer events.
type poller struct {
	events []input.Event
}

func newPoller() *poller {
	return &poller{
		events: make([]input.Event, 0, 16),
	}
}

// Update polls pending SDL events. It returns true if the window asked to quit.
func (p *poller) Update() bool {
	p.events = p.events[:0]
	quit := false

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			p.events = append(p.events, input.Event{Type: input.EventQuit})
			quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				p.events = append(p.events, input.Event{
					Type:   input.EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			typ := input.EventKeyUp
			if e.Type == sdl.KEYDOWN {
				typ = input.EventKeyDown
			}
			p.events = append(p.events, input.Event{Type: typ, Key: int(e.Keysym.Scancode)})

		case *sdl.MouseMotionEvent:
			p.events = append(p.events, input.Event{
				Type:   EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
			})

		case *sdl.MouseButtonEvent:
			typ := input.EventMouseUp
			if e.Type == sdl.MOUSEBUTTONDOWN {
				typ = input.EventMouseDown
			}
			p.events = append(p.events, input.Event{
				Type:   typ,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				Button: e.Button,
			})

		case *sdl.MouseWheelEvent:
			p.events = append(p.events, input.Event{Type: input.EventMouseWheel, WheelY: float32(e.Y)})
		}
	}

	return quit
}

// Events returns the events from the last Update.
func (p *poller) Events() []input.Event {
	return p.events
}

// keyEscape is the scancode that closes the viewer.
const keyEscape = int(sdl.SCANCODE_ESCAPE)
