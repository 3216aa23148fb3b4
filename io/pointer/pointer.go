// SPDX-License-Identifier: Unlicense OR MIT

// Package pointer implements mouse, scroll and touch events.
package pointer

import (
	"strconv"

	"xevloop.org/io/event"
	"xevloop.org/io/key"
)

// Point is a position in window coordinates. Positions are
// fractional on devices with sub-pixel precision.
type Point struct {
	X, Y float64
}

// Delta is a scroll amount in lines. Positive Y scrolls up,
// positive X scrolls right.
type Delta struct {
	X, Y float64
}

// Button identifies a mouse button. The primary three buttons
// have names; any other button is identified by its number.
type Button uint8

// Phase is the stage of a scroll or touch gesture.
type Phase uint8

// MoveEvent is generated when the pointer moves to a new
// position inside a window.
type MoveEvent struct {
	Window   event.WindowID
	Device   event.DeviceID
	Position Point
}

// EnterEvent is generated when the pointer enters a window.
type EnterEvent struct {
	Window event.WindowID
	Device event.DeviceID
}

// LeaveEvent is generated when the pointer leaves a window.
type LeaveEvent struct {
	Window event.WindowID
	Device event.DeviceID
}

// ButtonEvent is generated when a mouse button is pressed
// or released.
type ButtonEvent struct {
	Window event.WindowID
	Device event.DeviceID
	State  key.State
	Button Button
}

// ScrollEvent reports wheel or smooth scrolling.
type ScrollEvent struct {
	Window event.WindowID
	Device event.DeviceID
	Lines  Delta
	Phase  Phase
}

// AxisEvent reports motion on a device axis that is not
// a scroll axis, such as pen pressure or tilt.
type AxisEvent struct {
	Window event.WindowID
	Device event.DeviceID
	Axis   uint32
	Value  float64
}

// TouchEvent reports one contact of a touch screen. ID is stable
// from Started to Ended for the same contact.
type TouchEvent struct {
	Window   event.WindowID
	Device   event.DeviceID
	Phase    Phase
	Position Point
	ID       uint64
}

const (
	ButtonLeft   Button = 1
	ButtonMiddle Button = 2
	ButtonRight  Button = 3
)

const (
	Started Phase = iota
	Moved
	Ended
	Cancelled
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "Left"
	case ButtonMiddle:
		return "Middle"
	case ButtonRight:
		return "Right"
	default:
		return "Button" + strconv.Itoa(int(b))
	}
}

func (p Phase) String() string {
	switch p {
	case Started:
		return "Started"
	case Moved:
		return "Moved"
	case Ended:
		return "Ended"
	case Cancelled:
		return "Cancelled"
	default:
		panic("unknown Phase")
	}
}

func (MoveEvent) ImplementsEvent()   {}
func (EnterEvent) ImplementsEvent()  {}
func (LeaveEvent) ImplementsEvent()  {}
func (ButtonEvent) ImplementsEvent() {}
func (ScrollEvent) ImplementsEvent() {}
func (AxisEvent) ImplementsEvent()   {}
func (TouchEvent) ImplementsEvent()  {}
