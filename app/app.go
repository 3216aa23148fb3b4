// SPDX-License-Identifier: Unlicense OR MIT

package app

import (
	"sync"

	"github.com/charmbracelet/log"

	"xevloop.org/app/internal/x11"
	"xevloop.org/io/event"
)

// Option configures an EventsLoop.
type Option func(*config)

type config struct {
	display string
	loop    x11.Options
}

// ControlFlow is returned by the handler passed to Run.
type ControlFlow = x11.ControlFlow

const (
	Continue = x11.Continue
	Stop     = x11.Stop
)

// Proxy wakes up an EventsLoop from any goroutine.
type Proxy = x11.Proxy

// Device describes an input device known to the loop.
type Device = x11.Device

// ErrLoopClosed is returned by operations on a closed EventsLoop.
var ErrLoopClosed = x11.ErrLoopClosed

// EventsLoop dispatches the events of one X server connection. Poll and
// Run must not be called concurrently.
type EventsLoop struct {
	disp display
	loop *x11.Loop

	mu     sync.Mutex
	closed bool
}

// display is the platform connection.
type display interface {
	x11.Transport
	createWindow(cnf windowConfig) (event.WindowID, error)
}

// Display selects the X server to connect to. The default is $DISPLAY.
func Display(name string) Option {
	return func(cnf *config) {
		cnf.display = name
	}
}

// Logger sets the logger for diagnostics. By default nothing is logged.
func Logger(l *log.Logger) Option {
	return func(cnf *config) {
		cnf.loop.Logger = l
	}
}

// TextBufferSize sets the initial size in bytes of the buffer for text
// composed by the input method.
func TextBufferSize(n int) Option {
	return func(cnf *config) {
		cnf.loop.TextBufferSize = n
	}
}

// XInputVersion sets the minimum XInput version the server must
// support. The default is 2.2.
func XInputVersion(major, minor int) Option {
	return func(cnf *config) {
		cnf.loop.XInputMajor = major
		cnf.loop.XInputMinor = minor
	}
}

// ErrorHandler sets a function called with protocol errors detected
// while dispatching events. Dispatch continues after such errors.
func ErrorHandler(fn func(error)) Option {
	return func(cnf *config) {
		cnf.loop.OnError = fn
	}
}

func (cnf *config) apply(options []Option) {
	for _, o := range options {
		o(cnf)
	}
}

// NewEventsLoop connects to the X server and prepares event dispatch.
func NewEventsLoop(options ...Option) (*EventsLoop, error) {
	var cnf config
	cnf.apply(options)
	disp, err := openDisplay(cnf.display)
	if err != nil {
		return nil, err
	}
	return newEventsLoop(disp, cnf)
}

func newEventsLoop(disp display, cnf config) (*EventsLoop, error) {
	loop, err := x11.New(disp, cnf.loop)
	if err != nil {
		disp.Close()
		return nil, err
	}
	return &EventsLoop{disp: disp, loop: loop}, nil
}

// Poll dispatches every queued event to fn and returns without
// blocking.
func (l *EventsLoop) Poll(fn func(event.Event)) error {
	return l.loop.Poll(fn)
}

// Run dispatches events to fn, blocking for each, until fn returns Stop.
func (l *EventsLoop) Run(fn func(event.Event) ControlFlow) error {
	return l.loop.Run(fn)
}

// Proxy returns a handle for waking the loop from other goroutines.
func (l *EventsLoop) Proxy() Proxy {
	return l.loop.Proxy()
}

// Devices returns the input devices known to the loop, ordered by id.
func (l *EventsLoop) Devices() []Device {
	return l.loop.Devices()
}

// Close releases the connection. Windows created by the loop are
// destroyed with it.
func (l *EventsLoop) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.loop.Close()
}
