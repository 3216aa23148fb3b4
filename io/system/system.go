// SPDX-License-Identifier: Unlicense OR MIT

// Package system contains events that concern a window as a whole,
// or the event loop itself.
package system

import (
	"image"

	"xevloop.org/io/event"
)

// A CloseEvent is generated when the window manager asks
// the window to close.
type CloseEvent struct {
	Window event.WindowID
}

// A ResizeEvent is generated when the size of a window
// changes, and once when its geometry is first observed.
type ResizeEvent struct {
	Window event.WindowID
	Size   image.Point
}

// A MoveEvent is generated when the position of a window
// changes, and once when its geometry is first observed.
type MoveEvent struct {
	Window   event.WindowID
	Position image.Point
}

// A RefreshEvent asks for the window contents to be redrawn.
type RefreshEvent struct {
	Window event.WindowID
}

// WakeupEvent is delivered once after one or more wakeup
// requests from another goroutine.
type WakeupEvent struct{}

func (CloseEvent) ImplementsEvent()   {}
func (ResizeEvent) ImplementsEvent()  {}
func (MoveEvent) ImplementsEvent()    {}
func (RefreshEvent) ImplementsEvent() {}
func (WakeupEvent) ImplementsEvent()  {}
