// SPDX-License-Identifier: Unlicense OR MIT

// Package device contains events that are scoped to an input device
// rather than a window. They are delivered regardless of which window,
// if any, has focus.
package device

import (
	"xevloop.org/io/event"
	"xevloop.org/io/key"
)

// AddedEvent is generated when a device is attached.
type AddedEvent struct {
	Device event.DeviceID
}

// RemovedEvent is generated when a device is detached. The
// device id is invalid afterwards.
type RemovedEvent struct {
	Device event.DeviceID
}

// ButtonEvent reports a raw button press or release.
type ButtonEvent struct {
	Device event.DeviceID
	Button uint32
	State  key.State
}

// MotionEvent reports the raw value of one device axis.
type MotionEvent struct {
	Device event.DeviceID
	Axis   uint32
	Value  float64
}

// KeyEvent reports a raw key press or release. Raw events carry
// no modifier state, so Modifiers is always empty.
type KeyEvent struct {
	Device    event.DeviceID
	ScanCode  uint32
	Name      key.Name
	State     key.State
	Modifiers key.Modifiers
}

func (AddedEvent) ImplementsEvent()   {}
func (RemovedEvent) ImplementsEvent() {}
func (ButtonEvent) ImplementsEvent()  {}
func (MotionEvent) ImplementsEvent()  {}
func (KeyEvent) ImplementsEvent()     {}
