// SPDX-License-Identifier: Unlicense OR MIT

package x11

import (
	"github.com/BurntSushi/xgb/xproto"

	"xevloop.org/io/event"
)

// Transport is the native connection driven by a Loop. Every call is made
// from the dispatching goroutine, except SendEvent, Flush and CheckRequest
// which a Proxy may call concurrently.
type Transport interface {
	// InternAtom resolves an atom by name.
	InternAtom(name string, onlyIfExists bool) xproto.Atom
	// QueryExtension reports whether the named extension is present.
	QueryExtension(name string) (Extension, bool)
	// QueryXInputVersion announces the supported XInput version and returns
	// the version of the server.
	QueryXInputVersion(major, minor int) (int, int, error)
	RootWindow() event.WindowID
	CreateInputOnlyWindow(parent event.WindowID) (event.WindowID, error)
	DestroyWindow(w event.WindowID)
	// SelectXIEvents selects the XInput2 events in mask, a bit set of
	// 1<<XI_* values, for device dev on window w.
	SelectXIEvents(w event.WindowID, dev event.DeviceID, mask uint32)
	// QueryDevices describes the device sel, or every device when sel is
	// AllDevices. The list must be released by the caller.
	QueryDevices(sel event.DeviceID) (*DeviceList, error)
	// Pending returns the number of events that can be read without blocking.
	Pending() int
	// NextEvent returns the next event, blocking until one arrives.
	NextEvent() (XEvent, error)
	// FilterEvent passes ev to the input method and reports whether
	// the input method consumed it.
	FilterEvent(ev XEvent) bool
	RefreshKeyboardMapping(ev *MappingEvent)
	// LookupKeysym returns the keysym of a key event, taking its modifier
	// state into account.
	LookupKeysym(ev *KeyEvent) xproto.Keysym
	// KeycodeToKeysym returns the keysym of code in the given layout group.
	KeycodeToKeysym(code xproto.Keycode, group int) xproto.Keysym
	// EventData fetches the extension payload of a generic event. The
	// cookie must be released by the caller.
	EventData(ev *GenericEvent) (*Cookie, bool)
	// SendEvent sends ev to w. Errors of the returned request are only
	// reported by CheckRequest.
	SendEvent(w event.WindowID, ev *ClientMessageEvent) Request
	Flush()
	// CheckErrors returns and clears the first protocol error reported
	// since the previous call, skipping errors of requests returned by
	// SendEvent.
	CheckErrors() error
	// CheckRequest waits until req is processed and returns its error.
	CheckRequest(req Request) error
	OpenIM() (InputMethod, error)
	Close() error
}

// Request identifies a request sent by SendEvent.
type Request uint64

// InputMethod is an open connection to the input method server.
type InputMethod interface {
	// CreateContext creates an input context for the client window w.
	CreateContext(w event.WindowID) (InputContext, error)
	Close()
}

// InputContext composes key events of a window into text.
type InputContext interface {
	SetFocus()
	UnsetFocus()
	// SetSpot moves the anchor of the composition window.
	SetSpot(spot xproto.Point)
	// LookupString composes ev into buf. On LookupBufferOverflow the
	// returned count is the buffer size required.
	LookupString(ev *KeyEvent, buf []byte) (int, LookupStatus)
	Destroy()
}

// LookupStatus is the result of InputContext.LookupString.
type LookupStatus uint8

const (
	LookupNone LookupStatus = iota
	LookupChars
	LookupKeySym
	LookupBoth
	LookupBufferOverflow
)

// Extension identifies a protocol extension.
type Extension struct {
	Opcode     uint8
	FirstEvent uint8
	FirstError uint8
}

// XEvent is an event read from the connection.
type XEvent interface {
	Head() *Header
}

// Header is common to every XEvent.
type Header struct {
	// Type is the core protocol event code, such as xproto.KeyPress.
	Type   uint8
	Window event.WindowID
	// Raw is the transport's own representation of the event. The loop
	// hands it back to the transport untouched.
	Raw any
}

// Head returns the common fields of the event.
func (h *Header) Head() *Header { return h }

type MappingEvent struct {
	Header
}

type ClientMessageEvent struct {
	Header
	Format uint8
	Data   [5]uint32
}

type ConfigureEvent struct {
	Header
	X, Y          int
	Width, Height int
}

type ExposeEvent struct {
	Header
	Count int
}

// KeyEvent is a core KeyPress or KeyRelease.
type KeyEvent struct {
	Header
	Keycode xproto.Keycode
	State   uint16
}

// GenericEvent carries an extension event whose payload is fetched
// with Transport.EventData.
type GenericEvent struct {
	Header
	Extension uint8
	EvType    uint16
}

// AnyEvent is an event the loop has no use for.
type AnyEvent struct {
	Header
}

// Cookie is the payload of a generic event. It holds transport memory
// until released.
type Cookie struct {
	Extension uint8
	EvType    uint16
	// Data is a *XIDeviceEvent, *XIEnterEvent, *XIRawEvent or
	// *XIHierarchyEvent, or nil for sub-types the transport doesn't decode.
	Data any

	free func()
}

// NewCookie wraps a payload. free is called once by Release.
func NewCookie(ext uint8, evtype uint16, data any, free func()) *Cookie {
	return &Cookie{Extension: ext, EvType: evtype, Data: data, free: free}
}

// Release frees the transport memory of the cookie. It is safe to call
// more than once.
func (c *Cookie) Release() {
	if c.free != nil {
		c.free()
		c.free = nil
	}
}

// DeviceList is the result of a device query. It holds transport memory
// until released.
type DeviceList struct {
	Devices []DeviceInfo

	free func()
}

func NewDeviceList(devs []DeviceInfo, free func()) *DeviceList {
	return &DeviceList{Devices: devs, free: free}
}

// Release frees the transport memory of the list. It is safe to call
// more than once.
func (l *DeviceList) Release() {
	if l.free != nil {
		l.free()
		l.free = nil
	}
}

// DeviceUse is the role of a device in the XInput2 hierarchy.
type DeviceUse uint8

const (
	MasterPointer DeviceUse = iota + 1
	MasterKeyboard
	SlavePointer
	SlaveKeyboard
	FloatingSlave
)

// ScrollType is the orientation of a scroll class.
type ScrollType uint8

const (
	ScrollTypeVertical ScrollType = iota + 1
	ScrollTypeHorizontal
)

// DeviceInfo describes one device.
type DeviceInfo struct {
	ID         event.DeviceID
	Name       string
	Use        DeviceUse
	Attachment event.DeviceID
	Enabled    bool
	Valuators  []ValuatorClass
	Scrolls    []ScrollClass
}

// ValuatorClass is an axis of a device and its current value.
type ValuatorClass struct {
	Number int
	Min    float64
	Max    float64
	Value  float64
}

// ScrollClass marks the valuator Number as a scroll axis.
type ScrollClass struct {
	Number int
	Type   ScrollType
	// Increment is the valuator distance of one scroll step.
	Increment float64
	Flags     uint32
}

// Valuators are the axis values set in an XInput2 event. Values holds
// one entry per bit set in Mask, in bit order.
type Valuators struct {
	Mask   []byte
	Values []float64
}

// Each calls fn for every axis set in the mask.
func (v Valuators) Each(fn func(axis uint32, value float64)) {
	next := 0
	for i := 0; i < len(v.Mask)*8; i++ {
		if v.Mask[i>>3]&(1<<(i&7)) == 0 {
			continue
		}
		if next >= len(v.Values) {
			return
		}
		fn(uint32(i), v.Values[next])
		next++
	}
}

// XIDeviceEvent is the payload of button, motion, key and touch events.
type XIDeviceEvent struct {
	EvType    uint16
	Device    event.DeviceID
	Source    event.DeviceID
	Detail    uint32
	Root      event.WindowID
	Event     event.WindowID
	EventX    float64
	EventY    float64
	Flags     uint32
	Valuators Valuators
}

// XIEnterEvent is the payload of enter, leave and focus events.
type XIEnterEvent struct {
	EvType uint16
	Device event.DeviceID
	Source event.DeviceID
	Detail uint32
	Event  event.WindowID
	EventX float64
	EventY float64
}

// XIRawEvent is the payload of raw device events.
type XIRawEvent struct {
	EvType    uint16
	Device    event.DeviceID
	Source    event.DeviceID
	Detail    uint32
	Flags     uint32
	Valuators Valuators
}

// XIHierarchyEvent reports devices added, removed or reattached.
type XIHierarchyEvent struct {
	Flags uint32
	Info  []HierarchyInfo
}

type HierarchyInfo struct {
	Device     event.DeviceID
	Attachment event.DeviceID
	Use        DeviceUse
	Enabled    bool
	Flags      uint32
}

// XInput2 device selectors.
const (
	AllDevices       event.DeviceID = 0
	AllMasterDevices event.DeviceID = 1
	// CoreKeyboard is the id of the virtual core keyboard. Core key events
	// don't carry their device, so it is reported instead.
	CoreKeyboard event.DeviceID = 3
)

// XInput2 event types.
const (
	XI_DeviceChanged    = 1
	XI_KeyPress         = 2
	XI_KeyRelease       = 3
	XI_ButtonPress      = 4
	XI_ButtonRelease    = 5
	XI_Motion           = 6
	XI_Enter            = 7
	XI_Leave            = 8
	XI_FocusIn          = 9
	XI_FocusOut         = 10
	XI_HierarchyChanged = 11
	XI_PropertyEvent    = 12
	XI_RawKeyPress      = 13
	XI_RawKeyRelease    = 14
	XI_RawButtonPress   = 15
	XI_RawButtonRelease = 16
	XI_RawMotion        = 17
	XI_TouchBegin       = 18
	XI_TouchUpdate      = 19
	XI_TouchEnd         = 20
)

// XIMask returns the event mask bit of an XInput2 event type.
func XIMask(evtype int) uint32 {
	return 1 << evtype
}

// XInput2 event flags.
const (
	XIKeyRepeat       = 1 << 16
	XIPointerEmulated = 1 << 16
)

// XInput2 hierarchy change flags.
const (
	XIMasterAdded    = 1 << 0
	XIMasterRemoved  = 1 << 1
	XISlaveAdded     = 1 << 2
	XISlaveRemoved   = 1 << 3
	XISlaveAttached  = 1 << 4
	XISlaveDetached  = 1 << 5
	XIDeviceEnabled  = 1 << 6
	XIDeviceDisabled = 1 << 7
)
