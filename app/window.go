// SPDX-License-Identifier: Unlicense OR MIT

package app

import (
	"math"

	"xevloop.org/app/internal/x11"
	"xevloop.org/io/event"
)

// WindowOption configures a window.
type WindowOption func(*windowConfig)

type windowConfig struct {
	Width, Height int
	Title         string
	Multitouch    bool
}

// Window is a top-level window whose events are delivered by the
// EventsLoop that created it.
type Window struct {
	loop *EventsLoop
	w    *x11.Window
}

// Title sets the title of the window.
func Title(t string) WindowOption {
	return func(cnf *windowConfig) {
		cnf.Title = t
	}
}

// Size sets the size of the window in pixels.
func Size(w, h int) WindowOption {
	if w <= 0 {
		panic("width must be larger than zero")
	}
	if h <= 0 {
		panic("height must be larger than zero")
	}
	return func(cnf *windowConfig) {
		cnf.Width = w
		cnf.Height = h
	}
}

// Multitouch delivers touch events for the window instead of the
// pointer events emulated from them.
func Multitouch(enable bool) WindowOption {
	return func(cnf *windowConfig) {
		cnf.Multitouch = enable
	}
}

func (cnf *windowConfig) apply(options []WindowOption) {
	for _, o := range options {
		o(cnf)
	}
}

// NewWindow creates and shows a window.
func (l *EventsLoop) NewWindow(options ...WindowOption) (*Window, error) {
	cnf := windowConfig{Width: 800, Height: 600, Title: "xevloop"}
	cnf.apply(options)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLoopClosed
	}
	id, err := l.disp.createWindow(cnf)
	if err != nil {
		return nil, err
	}
	w, err := l.loop.RegisterWindow(id, x11.WindowOptions{Multitouch: cnf.Multitouch})
	if err != nil {
		l.disp.DestroyWindow(id)
		return nil, err
	}
	return &Window{loop: l, w: w}, nil
}

// ID returns the native window id carried by the window's events.
func (w *Window) ID() event.WindowID {
	return w.w.ID()
}

// SetIMESpot moves the input method composition window to the window
// coordinates (x, y).
func (w *Window) SetIMESpot(x, y int) error {
	return w.w.SetIMESpot(clamp16(x), clamp16(y))
}

// Close destroys the window. It is a no-op after the loop is closed.
func (w *Window) Close() {
	l := w.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	w.w.Close()
	l.disp.DestroyWindow(w.w.ID())
	l.disp.Flush()
}

func clamp16(v int) int16 {
	switch {
	case v < math.MinInt16:
		return math.MinInt16
	case v > math.MaxInt16:
		return math.MaxInt16
	default:
		return int16(v)
	}
}
