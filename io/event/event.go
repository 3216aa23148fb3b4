// SPDX-License-Identifier: Unlicense OR MIT

// Package event contains the types shared by every normalized event.
package event

import "strconv"

// Event is the marker interface for events.
type Event interface {
	ImplementsEvent()
}

// WindowID identifies a window. It equals the native window handle
// and is unique among live windows.
type WindowID uint64

// DeviceID identifies an input device. It equals the native device id
// and is only valid while the device is attached.
type DeviceID uint16

func (w WindowID) String() string {
	return "0x" + strconv.FormatUint(uint64(w), 16)
}

func (d DeviceID) String() string {
	return strconv.Itoa(int(d))
}
