// SPDX-License-Identifier: Unlicense OR MIT

package x11

import (
	"image"
	"sync"

	"github.com/BurntSushi/xgb/xproto"

	"xevloop.org/io/event"
	"xevloop.org/io/pointer"
)

// openIMMu serializes creating and destroying input methods and
// contexts, because XOpenIM is not reentrant.
var openIMMu sync.Mutex

// WindowOptions describe a window registered with RegisterWindow.
type WindowOptions struct {
	// Multitouch delivers touch events instead of the button events
	// emulated from them.
	Multitouch bool
}

// Window is the loop's handle to a registered window. It doesn't keep
// the loop alive; after the loop is closed its methods report
// ErrLoopClosed or do nothing.
type Window struct {
	id      event.WindowID
	shared  *shared
	windows *windowTable
}

type windowTable struct {
	mu      sync.Mutex
	windows map[event.WindowID]*windowState
}

type windowState struct {
	geometry   *geometry
	im         InputMethod
	ic         InputContext
	spot       xproto.Point
	multitouch bool
	cursor     *pointer.Point
}

type geometry struct {
	size image.Point
	pos  image.Point
}

// RegisterWindow creates the input context of the native window id,
// selects its XInput2 events and starts translating them. The window
// must have been created on the same connection.
func (l *Loop) RegisterWindow(id event.WindowID, opts WindowOptions) (*Window, error) {
	t, release, err := l.shared.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	im, ic, err := openInputContext(t, id)
	if err != nil {
		return nil, err
	}
	ic.SetFocus()
	if err := check(t, "XSetICFocus"); err != nil {
		closeInputContext(im, ic)
		return nil, err
	}
	t.SelectXIEvents(id, AllMasterDevices, windowEventMask(opts))
	if err := check(t, "XISelectEvents"); err != nil {
		closeInputContext(im, ic)
		return nil, err
	}
	l.windows.insert(id, &windowState{
		im:         im,
		ic:         ic,
		multitouch: opts.Multitouch,
	})
	l.log.Debug("window registered", "window", id, "multitouch", opts.Multitouch)
	return &Window{id: id, shared: l.shared, windows: l.windows}, nil
}

// windowEventMask selects the pointer, focus and touch events of a
// window. Touch events are only selected for multi-touch windows; the
// others get the emulated pointer events instead.
func windowEventMask(opts WindowOptions) uint32 {
	mask := XIMask(XI_ButtonPress) | XIMask(XI_ButtonRelease) | XIMask(XI_Motion) |
		XIMask(XI_Enter) | XIMask(XI_Leave) |
		XIMask(XI_FocusIn) | XIMask(XI_FocusOut)
	if opts.Multitouch {
		mask |= XIMask(XI_TouchBegin) | XIMask(XI_TouchUpdate) | XIMask(XI_TouchEnd)
	}
	return mask
}

func openInputContext(t Transport, id event.WindowID) (InputMethod, InputContext, error) {
	openIMMu.Lock()
	defer openIMMu.Unlock()
	im, err := t.OpenIM()
	if err != nil {
		return nil, nil, &IMEError{Window: id, Step: "open input method", Err: err}
	}
	ic, err := im.CreateContext(id)
	if err != nil {
		im.Close()
		return nil, nil, &IMEError{Window: id, Step: "create input context", Err: err}
	}
	return im, ic, nil
}

func closeInputContext(im InputMethod, ic InputContext) {
	openIMMu.Lock()
	defer openIMMu.Unlock()
	ic.Destroy()
	im.Close()
}

// ID returns the native window id.
func (w *Window) ID() event.WindowID {
	return w.id
}

// SetIMESpot moves the anchor of the input method composition window.
// It is a no-op if the spot is unchanged.
func (w *Window) SetIMESpot(x, y int16) error {
	t, release, err := w.shared.acquire()
	if err != nil {
		return err
	}
	defer release()

	w.windows.mu.Lock()
	defer w.windows.mu.Unlock()
	st, ok := w.windows.windows[w.id]
	if !ok {
		return nil
	}
	spot := xproto.Point{X: x, Y: y}
	if st.spot == spot {
		return nil
	}
	st.spot = spot
	st.ic.SetSpot(spot)
	return check(t, "XSetICValues")
}

// Close stops event translation for the window and destroys its input
// context. The native window itself is left alone.
func (w *Window) Close() {
	_, release, err := w.shared.acquire()
	if err != nil {
		return
	}
	defer release()
	if st, ok := w.windows.remove(w.id); ok {
		st.destroyIME()
	}
}

func newWindowTable() *windowTable {
	return &windowTable{windows: make(map[event.WindowID]*windowState)}
}

func (t *windowTable) insert(id event.WindowID, st *windowState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows[id] = st
}

func (t *windowTable) remove(id event.WindowID) (*windowState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.windows[id]
	delete(t.windows, id)
	return st, ok
}

// drain removes and returns every window.
func (t *windowTable) drain() []*windowState {
	t.mu.Lock()
	defer t.mu.Unlock()
	states := make([]*windowState, 0, len(t.windows))
	for id, st := range t.windows {
		states = append(states, st)
		delete(t.windows, id)
	}
	return states
}

// configure records the geometry of window id and reports what changed.
// The first geometry of a window is reported as both resized and moved.
func (t *windowTable) configure(id event.WindowID, size, pos image.Point) (resized, moved, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.windows[id]
	if !ok {
		return false, false, false
	}
	if st.geometry == nil {
		st.geometry = &geometry{size: size, pos: pos}
		return true, true, true
	}
	if st.geometry.size != size {
		st.geometry.size = size
		resized = true
	}
	if st.geometry.pos != pos {
		st.geometry.pos = pos
		moved = true
	}
	return resized, moved, true
}

// moveCursor records the pointer position in window id and reports
// whether it changed.
func (t *windowTable) moveCursor(id event.WindowID, pos pointer.Point) (moved, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.windows[id]
	if !ok {
		return false, false
	}
	if st.cursor != nil && *st.cursor == pos {
		return false, true
	}
	st.cursor = &pos
	return true, true
}

func (t *windowTable) multitouch(id event.WindowID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.windows[id]
	return ok && st.multitouch
}

// withInputContext calls fn with the input context of window id, if
// the window is known. fn runs with the table locked and must not
// call back into the loop.
func (t *windowTable) withInputContext(id event.WindowID, fn func(ic InputContext)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.windows[id]; ok && st.ic != nil {
		fn(st.ic)
	}
}

func (st *windowState) destroyIME() {
	if st.ic == nil {
		return
	}
	closeInputContext(st.im, st.ic)
	st.ic, st.im = nil, nil
}
