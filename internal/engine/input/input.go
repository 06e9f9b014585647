// Package input turns SDL2 events into preview controls.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType classifies a processed event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseDrag
	EventMouseWheel
)

// Event is one control the preview reacts to.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	DX, DY float32 // drag delta in pixels or wheel steps
}

// Input collects the events of one frame and tracks held keys. Only the
// left button drags; other buttons are ignored.
type Input struct {
	events   []Event
	held     map[sdl.Scancode]bool
	dragging bool
}

// New creates a new input handler.
func New() *Input {
	return &Input{held: make(map[sdl.Scancode]bool)}
}

// Update drains the SDL queue into this frame's events. It returns true
// once the window is asked to close; later events stay queued.
func (in *Input) Update() bool {
	in.events = in.events[:0]
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		if in.handle(ev) {
			return true
		}
	}
	return false
}

func (in *Input) push(e Event) { in.events = append(in.events, e) }

func (in *Input) handle(ev sdl.Event) (quit bool) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		in.push(Event{Type: EventQuit})
		return true
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
			in.push(Event{Type: EventWindowResize})
		case sdl.WINDOWEVENT_FOCUS_LOST:
			// Key-ups sent while unfocused never arrive.
			clear(in.held)
			in.dragging = false
		}
	case *sdl.KeyboardEvent:
		in.key(e)
	case *sdl.MouseButtonEvent:
		if e.Button == sdl.BUTTON_LEFT {
			in.dragging = e.Type == sdl.MOUSEBUTTONDOWN
		}
	case *sdl.MouseMotionEvent:
		if in.dragging {
			in.push(Event{Type: EventMouseDrag, DX: float32(e.XRel), DY: float32(e.YRel)})
		}
	case *sdl.MouseWheelEvent:
		dy := float32(e.Y)
		if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
			dy = -dy
		}
		in.push(Event{Type: EventMouseWheel, DY: dy})
	}
	return false
}

func (in *Input) key(e *sdl.KeyboardEvent) {
	if e.Repeat != 0 {
		return
	}
	code := e.Keysym.Scancode
	switch e.Type {
	case sdl.KEYDOWN:
		in.held[code] = true
		in.push(Event{Type: EventKeyDown, Key: code})
	case sdl.KEYUP:
		delete(in.held, code)
		in.push(Event{Type: EventKeyUp, Key: code})
	}
}

// Events returns the events from the last Update.
func (in *Input) Events() []Event {
	return in.events
}

// Pressed reports whether code went down this frame.
func (in *Input) Pressed(code sdl.Scancode) bool {
	for _, e := range in.events {
		if e.Type == EventKeyDown && e.Key == code {
			return true
		}
	}
	return false
}

// Held reports whether code is currently down.
func (in *Input) Held(code sdl.Scancode) bool {
	return in.held[code]
}

// Axis returns -1, 0 or 1 from a pair of held keys.
func (in *Input) Axis(negative, positive sdl.Scancode) float32 {
	var v float32
	if in.held[negative] {
		v--
	}
	if in.held[positive] {
		v++
	}
	return v
}
