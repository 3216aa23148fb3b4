// SPDX-License-Identifier: Unlicense OR MIT

// Package x11 translates X11 core and XInput2 events into normalized
// events. The native connection is reached through the Transport
// interface; see package xlib for the Xlib implementation.
package x11

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/charmbracelet/log"

	applog "xevloop.org/internal/log"
	"xevloop.org/io/event"
	"xevloop.org/io/key"
	"xevloop.org/io/system"
)

// Options configure a Loop. The zero value is valid.
type Options struct {
	Logger *log.Logger
	// TextBufferSize is the initial size of the buffer for composed
	// text. It defaults to 16 bytes.
	TextBufferSize int
	// XInputMajor and XInputMinor is the required XInput version. It
	// defaults to 2.2, the first version with touch events.
	XInputMajor, XInputMinor int
	// OnError is called with protocol errors detected while dispatching.
	// Dispatch continues after such errors.
	OnError func(error)
}

// ControlFlow is returned by the handler passed to Run.
type ControlFlow uint8

const (
	// Continue waits for the next event.
	Continue ControlFlow = iota
	// Stop makes Run return after the current native event.
	Stop
)

const defaultTextBufferSize = 16

// Loop owns the dispatch of one connection. Poll and Run must not be
// called concurrently; Proxy values may be used from any goroutine.
type Loop struct {
	t       Transport
	log     *log.Logger
	onError func(error)

	shared  *shared
	windows *windowTable
	devices *deviceRegistry

	xi2            Extension
	root           event.WindowID
	wmDeleteWindow xproto.Atom

	// text is the buffer for composed text. It grows when the input
	// method reports an overflow.
	text []byte
}

// shared is the loop state reachable from Proxy and Window handles.
// It never keeps the transport after the loop is closed.
type shared struct {
	mu     sync.RWMutex
	closed bool
	t      Transport

	pendingWakeup atomic.Bool
	// wakeupWindow is an invisible InputOnly window that receives the
	// client messages sent by Proxy.Wakeup.
	wakeupWindow event.WindowID
}

// acquire returns the transport of an open loop. The caller must call
// release when done; Close waits for outstanding acquisitions.
func (s *shared) acquire() (t Transport, release func(), err error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, nil, ErrLoopClosed
	}
	return s.t, s.mu.RUnlock, nil
}

// New creates a Loop that takes ownership of t. It fails if the server
// lacks the required XInput version.
func New(t Transport, opts Options) (*Loop, error) {
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.TextBufferSize <= 0 {
		opts.TextBufferSize = defaultTextBufferSize
	}
	if opts.XInputMajor == 0 {
		opts.XInputMajor, opts.XInputMinor = 2, 2
	}
	logger := opts.Logger.WithPrefix("x11")

	wmDeleteWindow := t.InternAtom("WM_DELETE_WINDOW", false)
	if err := check(t, "XInternAtom"); err != nil {
		return nil, err
	}
	xi2, ok := t.QueryExtension("XInputExtension")
	if !ok {
		return nil, ErrNoXInput
	}
	major, minor, err := t.QueryXInputVersion(opts.XInputMajor, opts.XInputMinor)
	if err != nil {
		return nil, &VersionError{
			Major: major, Minor: minor,
			WantMajor: opts.XInputMajor, WantMin: opts.XInputMinor,
			Err: err,
		}
	}
	root := t.RootWindow()
	wakeup, err := t.CreateInputOnlyWindow(root)
	if err != nil {
		return nil, fmt.Errorf("x11: create wakeup window: %w", err)
	}
	l := &Loop{
		t:              t,
		log:            logger,
		onError:        opts.OnError,
		shared:         &shared{t: t, wakeupWindow: wakeup},
		windows:        newWindowTable(),
		xi2:            xi2,
		root:           root,
		wmDeleteWindow: wmDeleteWindow,
		text:           make([]byte, opts.TextBufferSize),
	}
	l.devices = newDeviceRegistry(t, root, logger, l.report)

	// Device hot-plug.
	t.SelectXIEvents(root, AllDevices, XIMask(XI_HierarchyChanged))
	if err := check(t, "XISelectEvents"); err != nil {
		t.DestroyWindow(wakeup)
		return nil, err
	}
	if err := l.devices.register(AllDevices); err != nil {
		t.DestroyWindow(wakeup)
		return nil, err
	}
	logger.Debug("event loop ready",
		"xinput", fmt.Sprintf("%d.%d", major, minor),
		"opcode", xi2.Opcode,
		"devices", l.devices.len())
	return l, nil
}

// Proxy returns a handle for waking the loop from other goroutines.
func (l *Loop) Proxy() Proxy {
	return Proxy{s: l.shared}
}

// Devices returns a snapshot of the known devices, ordered by id.
func (l *Loop) Devices() []Device {
	return l.devices.snapshot()
}

// Poll dispatches every event that is already queued and returns
// without blocking.
func (l *Loop) Poll(fn func(event.Event)) error {
	if l.isClosed() {
		return ErrLoopClosed
	}
	for l.t.Pending() > 0 {
		ev, err := l.t.NextEvent()
		if err != nil {
			return err
		}
		l.process(ev, fn)
	}
	return nil
}

// Run dispatches events, blocking for each, until fn returns Stop.
// Proxy.Wakeup interrupts the wait with a system.WakeupEvent.
func (l *Loop) Run(fn func(event.Event) ControlFlow) error {
	if l.isClosed() {
		return ErrLoopClosed
	}
	for {
		ev, err := l.t.NextEvent()
		if err != nil {
			return err
		}
		flow := Continue
		l.process(ev, func(e event.Event) {
			if fn(e) == Stop {
				flow = Stop
			}
		})
		if flow == Stop {
			return nil
		}
	}
}

// Close destroys the input contexts of windows still registered, the
// wakeup window and the transport. Proxy and Window handles report
// ErrLoopClosed afterwards.
func (l *Loop) Close() error {
	s := l.shared
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.t = nil
	s.mu.Unlock()

	for _, w := range l.windows.drain() {
		w.destroyIME()
	}
	l.t.DestroyWindow(s.wakeupWindow)
	return l.t.Close()
}

func (l *Loop) isClosed() bool {
	l.shared.mu.RLock()
	defer l.shared.mu.RUnlock()
	return l.shared.closed
}

func (l *Loop) report(err error) {
	if err == nil {
		return
	}
	l.log.Warn("protocol error", "err", err)
	if l.onError != nil {
		l.onError(err)
	}
}

// process translates one native event. Table locks are never held
// while fn runs, because fn may register or close windows.
func (l *Loop) process(xev XEvent, fn func(event.Event)) {
	// Dead keys and other input method sequences.
	if l.t.FilterEvent(xev) {
		return
	}
	switch xev := xev.(type) {
	case *MappingEvent:
		l.t.RefreshKeyboardMapping(xev)
		l.report(check(l.t, "XRefreshKeyboardMapping"))
	case *ClientMessageEvent:
		if xproto.Atom(xev.Data[0]) == l.wmDeleteWindow {
			fn(system.CloseEvent{Window: xev.Window})
		} else if l.shared.pendingWakeup.CompareAndSwap(true, false) {
			fn(system.WakeupEvent{})
		}
	case *ConfigureEvent:
		l.configure(xev, fn)
	case *ExposeEvent:
		fn(system.RefreshEvent{Window: xev.Window})
	case *KeyEvent:
		l.key(xev, fn)
	case *GenericEvent:
		l.generic(xev, fn)
	}
}

func (l *Loop) configure(xev *ConfigureEvent, fn func(event.Event)) {
	size := image.Pt(xev.Width, xev.Height)
	pos := image.Pt(xev.X, xev.Y)
	resized, moved, ok := l.windows.configure(xev.Window, size, pos)
	if !ok {
		l.log.Debug("configure for unknown window", "window", xev.Window)
		return
	}
	if resized {
		fn(system.ResizeEvent{Window: xev.Window, Size: size})
	}
	if moved {
		fn(system.MoveEvent{Window: xev.Window, Position: pos})
	}
}

func (l *Loop) key(xev *KeyEvent, fn func(event.Event)) {
	state := key.Press
	if xev.Type == xproto.KeyRelease {
		state = key.Release
	}
	name, _ := keysymName(l.t.LookupKeysym(xev))
	fn(key.Event{
		Window:    xev.Window,
		Device:    CoreKeyboard,
		State:     state,
		ScanCode:  scanCode(uint32(xev.Keycode)),
		Name:      name,
		Modifiers: modifiers(xev.State),
	})
	if state != key.Press {
		return
	}
	var text string
	l.windows.withInputContext(xev.Window, func(ic InputContext) {
		text = l.compose(ic, xev)
	})
	for _, r := range text {
		fn(key.CharEvent{Window: xev.Window, Char: r})
	}
}

// compose looks up the text of a key press. It retries once with a
// buffer of the size reported on overflow. Invalid UTF-8 yields no text.
func (l *Loop) compose(ic InputContext, xev *KeyEvent) string {
	n, status := ic.LookupString(xev, l.text)
	if status == LookupBufferOverflow {
		l.text = make([]byte, n)
		n, status = ic.LookupString(xev, l.text)
	}
	if status == LookupBufferOverflow || n <= 0 || n > len(l.text) {
		return ""
	}
	text := l.text[:n]
	if !utf8.Valid(text) {
		return ""
	}
	return string(text)
}

func modifiers(state uint16) key.Modifiers {
	var m key.Modifiers
	if state&xproto.ModMask1 != 0 {
		m |= key.ModAlt
	}
	if state&xproto.ModMaskShift != 0 {
		m |= key.ModShift
	}
	if state&xproto.ModMaskControl != 0 {
		m |= key.ModCtrl
	}
	if state&xproto.ModMask4 != 0 {
		m |= key.ModSuper
	}
	return m
}

// scanCode converts an X keycode to a zero based hardware code.
func scanCode(keycode uint32) uint32 {
	const offset = 8
	if keycode < offset {
		return 0
	}
	return keycode - offset
}
