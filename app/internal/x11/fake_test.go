// SPDX-License-Identifier: Unlicense OR MIT

package x11

import (
	"errors"
	"sync"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/stretchr/testify/require"

	"xevloop.org/io/event"
)

const (
	testOpcode         = 131
	testWMDeleteWindow = xproto.Atom(301)
	testRoot           = event.WindowID(0x100)
	testWakeupWindow   = event.WindowID(0x200)
	testWindow         = event.WindowID(0x400001)
)

// fakeTransport is an in-memory Transport. Events are queued with push
// and consumed by Poll or Run.
type fakeTransport struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue    []XEvent
	devices  []DeviceInfo
	keysyms  map[xproto.Keycode]xproto.Keysym
	filtered map[XEvent]bool
	errs     []error
	// sendErrs fail the next SendEvent requests.
	sendErrs []error
	requests map[Request]error
	serial   Request

	noXInput     bool
	versionErr   error
	openIMErr    error
	createICErr  error
	queryErr     error
	selections   []selection
	sent         []*ClientMessageEvent
	flushes      int
	refreshes    int
	queries      []event.DeviceID
	listsOut     int
	cookiesOut   int
	ims          []*fakeIM
	destroyed    []event.WindowID
	closed       bool
	keysymGroups []int
}

type selection struct {
	window event.WindowID
	device event.DeviceID
	mask   uint32
}

// payload is stored in GenericEvent.Raw.
type payload struct {
	ext    uint8
	evtype uint16
	data   any
}

type fakeIM struct {
	closed bool
	ics    []*fakeIC
	f      *fakeTransport
}

type fakeIC struct {
	window    event.WindowID
	focused   bool
	destroyed bool
	spots     []xproto.Point
	// lookup implements LookupString.
	lookup  func(ev *KeyEvent, buf []byte) (int, LookupStatus)
	lookups int
}

func newFakeTransport() *fakeTransport {
	f := &fakeTransport{
		keysyms:  make(map[xproto.Keycode]xproto.Keysym),
		filtered: make(map[XEvent]bool),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *fakeTransport) push(evs ...XEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, evs...)
	f.cond.Broadcast()
}

// pushXI queues an XInput2 event with the given payload.
func (f *fakeTransport) pushXI(evtype uint16, data any) *GenericEvent {
	return f.pushGeneric(testOpcode, evtype, data)
}

func (f *fakeTransport) pushGeneric(ext uint8, evtype uint16, data any) *GenericEvent {
	gev := &GenericEvent{
		Header:    Header{Type: xproto.GeGeneric, Raw: payload{ext: ext, evtype: evtype, data: data}},
		Extension: ext,
		EvType:    evtype,
	}
	f.push(gev)
	return gev
}

func (f *fakeTransport) setDevices(devs ...DeviceInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = devs
}

func (f *fakeTransport) failNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *fakeTransport) InternAtom(name string, onlyIfExists bool) xproto.Atom {
	if name == "WM_DELETE_WINDOW" {
		return testWMDeleteWindow
	}
	return xproto.AtomNone
}

func (f *fakeTransport) QueryExtension(name string) (Extension, bool) {
	if f.noXInput || name != "XInputExtension" {
		return Extension{}, false
	}
	return Extension{Opcode: testOpcode, FirstEvent: 66, FirstError: 129}, true
}

func (f *fakeTransport) QueryXInputVersion(major, minor int) (int, int, error) {
	if f.versionErr != nil {
		return 2, 0, f.versionErr
	}
	return major, minor, nil
}

func (f *fakeTransport) RootWindow() event.WindowID { return testRoot }

func (f *fakeTransport) CreateInputOnlyWindow(parent event.WindowID) (event.WindowID, error) {
	return testWakeupWindow, nil
}

func (f *fakeTransport) DestroyWindow(w event.WindowID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, w)
}

func (f *fakeTransport) SelectXIEvents(w event.WindowID, dev event.DeviceID, mask uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selections = append(f.selections, selection{window: w, device: dev, mask: mask})
}

func (f *fakeTransport) QueryDevices(sel event.DeviceID) (*DeviceList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, sel)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var devs []DeviceInfo
	for _, d := range f.devices {
		if sel == AllDevices || d.ID == sel {
			devs = append(devs, d)
		}
	}
	f.listsOut++
	return NewDeviceList(devs, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listsOut--
	}), nil
}

func (f *fakeTransport) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func (f *fakeTransport) NextEvent() (XEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.queue) == 0 {
		f.cond.Wait()
	}
	ev := f.queue[0]
	f.queue = f.queue[1:]
	return ev, nil
}

func (f *fakeTransport) FilterEvent(ev XEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filtered[ev]
}

func (f *fakeTransport) RefreshKeyboardMapping(ev *MappingEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func (f *fakeTransport) LookupKeysym(ev *KeyEvent) xproto.Keysym {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keysyms[ev.Keycode]
}

func (f *fakeTransport) KeycodeToKeysym(code xproto.Keycode, group int) xproto.Keysym {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keysymGroups = append(f.keysymGroups, group)
	return f.keysyms[code]
}

func (f *fakeTransport) EventData(ev *GenericEvent) (*Cookie, bool) {
	p, ok := ev.Raw.(payload)
	if !ok {
		return nil, false
	}
	f.mu.Lock()
	f.cookiesOut++
	f.mu.Unlock()
	return NewCookie(p.ext, p.evtype, p.data, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cookiesOut--
	}), true
}

func (f *fakeTransport) SendEvent(w event.WindowID, ev *ClientMessageEvent) Request {
	f.mu.Lock()
	f.serial++
	req := f.serial
	if len(f.sendErrs) > 0 {
		if f.requests == nil {
			f.requests = make(map[Request]error)
		}
		f.requests[req] = f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		f.mu.Unlock()
		return req
	}
	f.sent = append(f.sent, ev)
	f.mu.Unlock()
	f.push(ev)
	return req
}

func (f *fakeTransport) failSend(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErrs = append(f.sendErrs, err)
}

func (f *fakeTransport) CheckRequest(req Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.requests[req]
	delete(f.requests, req)
	return err
}

func (f *fakeTransport) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func (f *fakeTransport) CheckErrors() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeTransport) OpenIM() (InputMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openIMErr != nil {
		return nil, f.openIMErr
	}
	im := &fakeIM{f: f}
	f.ims = append(f.ims, im)
	return im, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (im *fakeIM) CreateContext(w event.WindowID) (InputContext, error) {
	if im.f.createICErr != nil {
		return nil, im.f.createICErr
	}
	ic := &fakeIC{window: w}
	im.ics = append(im.ics, ic)
	return ic, nil
}

func (im *fakeIM) Close() { im.closed = true }

func (ic *fakeIC) SetFocus()                 { ic.focused = true }
func (ic *fakeIC) UnsetFocus()               { ic.focused = false }
func (ic *fakeIC) SetSpot(spot xproto.Point) { ic.spots = append(ic.spots, spot) }
func (ic *fakeIC) Destroy()                  { ic.destroyed = true }

func (ic *fakeIC) LookupString(ev *KeyEvent, buf []byte) (int, LookupStatus) {
	ic.lookups++
	if ic.lookup == nil {
		return 0, LookupNone
	}
	return ic.lookup(ev, buf)
}

// lookupText returns a LookupString implementation that composes text,
// reporting an overflow when buf is too small.
func lookupText(text string) func(ev *KeyEvent, buf []byte) (int, LookupStatus) {
	return func(ev *KeyEvent, buf []byte) (int, LookupStatus) {
		if len(buf) < len(text) {
			return len(text), LookupBufferOverflow
		}
		return copy(buf, text), LookupBoth
	}
}

var errBadWindow = errors.New("BadWindow")

// newTestLoop returns a loop on a fake transport with testWindow
// registered.
func newTestLoop(t *testing.T, f *fakeTransport, opts Options) (*Loop, *Window) {
	t.Helper()
	l, err := New(f, opts)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	w, err := l.RegisterWindow(testWindow, WindowOptions{})
	require.NoError(t, err)
	return l, w
}

// poll dispatches the queued events and returns what was emitted.
func poll(t *testing.T, l *Loop) []event.Event {
	t.Helper()
	var evs []event.Event
	require.NoError(t, l.Poll(func(e event.Event) {
		evs = append(evs, e)
	}))
	return evs
}

// icOf returns the input context created for window w.
func (f *fakeTransport) icOf(w event.WindowID) *fakeIC {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.ims) - 1; i >= 0; i-- {
		for _, ic := range f.ims[i].ics {
			if ic.window == w {
				return ic
			}
		}
	}
	return nil
}

func valuators(mask []byte, values ...float64) Valuators {
	return Valuators{Mask: mask, Values: values}
}
