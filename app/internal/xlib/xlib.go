// SPDX-License-Identifier: Unlicense OR MIT

//go:build (linux && !android && !nox11) || freebsd || openbsd

// Package xlib implements the x11 Transport on top of Xlib and libXi.
package xlib

/*
#cgo LDFLAGS: -lX11 -lXi
#cgo freebsd CFLAGS: -I/usr/local/include
#cgo freebsd LDFLAGS: -L/usr/local/lib
#cgo openbsd CFLAGS: -I/usr/X11R6/include
#cgo openbsd LDFLAGS: -L/usr/X11R6/lib

#include <stdlib.h>
#include <string.h>
#include <locale.h>
#include <pthread.h>
#include <X11/Xlib.h>
#include <X11/Xutil.h>
#include <X11/XKBlib.h>
#include <X11/extensions/XInput2.h>

#define XEVLOOP_MAX_ERRORS 16
#define XEVLOOP_MAX_OWNED 8

static pthread_mutex_t xevloop_error_mu = PTHREAD_MUTEX_INITIALIZER;
static XErrorEvent xevloop_errors[XEVLOOP_MAX_ERRORS];
static int xevloop_nerrors;
// Serials of requests whose errors are collected by their sender.
static unsigned long xevloop_owned[XEVLOOP_MAX_OWNED];
static int xevloop_nowned;

static int xevloop_error_handler(Display *dpy, XErrorEvent *e) {
	pthread_mutex_lock(&xevloop_error_mu);
	if (xevloop_nerrors < XEVLOOP_MAX_ERRORS) {
		xevloop_errors[xevloop_nerrors++] = *e;
	}
	pthread_mutex_unlock(&xevloop_error_mu);
	return 0;
}

static void xevloop_set_error_handler(void) {
	XSetErrorHandler(xevloop_error_handler);
}

static int xevloop_is_owned(unsigned long serial) {
	for (int i = 0; i < xevloop_nowned; i++) {
		if (xevloop_owned[i] == serial) {
			return 1;
		}
	}
	return 0;
}

static void xevloop_own(unsigned long serial) {
	pthread_mutex_lock(&xevloop_error_mu);
	if (xevloop_nowned < XEVLOOP_MAX_OWNED) {
		xevloop_owned[xevloop_nowned++] = serial;
	}
	pthread_mutex_unlock(&xevloop_error_mu);
}

static void xevloop_disown(unsigned long serial) {
	pthread_mutex_lock(&xevloop_error_mu);
	for (int i = 0; i < xevloop_nowned; i++) {
		if (xevloop_owned[i] == serial) {
			xevloop_owned[i] = xevloop_owned[--xevloop_nowned];
			break;
		}
	}
	pthread_mutex_unlock(&xevloop_error_mu);
}

// xevloop_take_error removes the first error of request serial, or with
// serial 0 the first error of a request nobody owns.
static int xevloop_take_error(unsigned long serial, XErrorEvent *e) {
	int found = -1;
	pthread_mutex_lock(&xevloop_error_mu);
	for (int i = 0; i < xevloop_nerrors; i++) {
		unsigned long s = xevloop_errors[i].serial;
		if (serial != 0 ? s == serial : !xevloop_is_owned(s)) {
			found = i;
			break;
		}
	}
	if (found >= 0) {
		*e = xevloop_errors[found];
		memmove(&xevloop_errors[found], &xevloop_errors[found+1], (xevloop_nerrors-found-1)*sizeof(XErrorEvent));
		xevloop_nerrors--;
	}
	pthread_mutex_unlock(&xevloop_error_mu);
	return found >= 0;
}

static void xevloop_select_events(Display *dpy, Window win, int dev, unsigned int mask) {
	unsigned char bits[XIMaskLen(XI_LASTEVENT)];
	memset(bits, 0, sizeof(bits));
	for (int i = 0; i < 32 && i <= XI_LASTEVENT; i++) {
		if (mask & (1u << i)) {
			XISetMask(bits, i);
		}
	}
	XIEventMask em = {dev, sizeof(bits), bits};
	XISelectEvents(dpy, win, &em, 1);
}

static unsigned long xevloop_send_client_message(Display *dpy, Window win, int format, long *data) {
	XEvent ev;
	memset(&ev, 0, sizeof(ev));
	ev.xclient.type = ClientMessage;
	ev.xclient.window = win;
	ev.xclient.format = format;
	for (int i = 0; i < 5; i++) {
		ev.xclient.data.l[i] = data[i];
	}
	XLockDisplay(dpy);
	unsigned long serial = NextRequest(dpy);
	xevloop_own(serial);
	XSendEvent(dpy, win, False, NoEventMask, &ev);
	XUnlockDisplay(dpy);
	return serial;
}

static long xevloop_client_data(XEvent *ev, int i) {
	return ev->xclient.data.l[i];
}
*/
import "C"

import (
	"errors"
	"fmt"
	"math/bits"
	"os"
	"sync"
	"unsafe"

	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/sys/unix"

	"xevloop.org/app/internal/x11"
	"xevloop.org/io/event"
)

// ErrConnectionLost is returned by NextEvent when the server hangs up.
var ErrConnectionLost = errors.New("xlib: connection to the X server lost")

// XError is a protocol error reported through the Xlib error handler.
type XError struct {
	Serial   uint64
	Code     uint8
	Request  uint8
	Minor    uint8
	Resource uint32
	Text     string
}

func (e *XError) Error() string {
	return fmt.Sprintf("%s (request %d.%d, resource %#x)", e.Text, e.Request, e.Minor, e.Resource)
}

// Display is an Xlib connection. It implements x11.Transport.
type Display struct {
	dpy *C.Display
	fd  int
	// notify wakes NextEvent when events were moved into the Xlib queue
	// without the connection becoming readable.
	notify struct {
		read, write int
	}
	xiOpcode C.int
}

var _ x11.Transport = (*Display)(nil)

var (
	initOnce sync.Once
	initErr  error
)

var oneByte = []byte{0}

// Open connects to the X server name, or $DISPLAY if name is empty.
func Open(name string) (*Display, error) {
	initOnce.Do(func() {
		if C.XInitThreads() == 0 {
			initErr = errors.New("xlib: threads init failed")
			return
		}
		C.xevloop_set_error_handler()
	})
	if initErr != nil {
		return nil, initErr
	}
	var cname *C.char
	if name != "" {
		cname = C.CString(name)
		defer C.free(unsafe.Pointer(cname))
	}
	dpy := C.XOpenDisplay(cname)
	if dpy == nil {
		if name == "" {
			name = os.Getenv("DISPLAY")
		}
		return nil, fmt.Errorf("xlib: cannot connect to the X server %q", name)
	}
	pipe := make([]int, 2)
	if err := unix.Pipe2(pipe, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		C.XCloseDisplay(dpy)
		return nil, fmt.Errorf("xlib: failed to create pipe: %w", err)
	}
	d := &Display{
		dpy:      dpy,
		fd:       int(C.XConnectionNumber(dpy)),
		xiOpcode: -1,
	}
	d.notify.read, d.notify.write = pipe[0], pipe[1]
	return d, nil
}

func (d *Display) InternAtom(name string, onlyIfExists bool) xproto.Atom {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	flag := C.Bool(C.False)
	if onlyIfExists {
		flag = C.True
	}
	return xproto.Atom(C.XInternAtom(d.dpy, cname, flag))
}

func (d *Display) QueryExtension(name string) (x11.Extension, bool) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var opcode, firstEvent, firstError C.int
	if C.XQueryExtension(d.dpy, cname, &opcode, &firstEvent, &firstError) == C.False {
		return x11.Extension{}, false
	}
	if name == "XInputExtension" {
		d.xiOpcode = opcode
	}
	return x11.Extension{
		Opcode:     uint8(opcode),
		FirstEvent: uint8(firstEvent),
		FirstError: uint8(firstError),
	}, true
}

func (d *Display) QueryXInputVersion(major, minor int) (int, int, error) {
	cmajor, cminor := C.int(major), C.int(minor)
	if st := C.XIQueryVersion(d.dpy, &cmajor, &cminor); st != C.Success {
		return int(cmajor), int(cminor), fmt.Errorf("XIQueryVersion: status %d", int(st))
	}
	return int(cmajor), int(cminor), nil
}

func (d *Display) RootWindow() event.WindowID {
	return event.WindowID(C.XDefaultRootWindow(d.dpy))
}

func (d *Display) CreateInputOnlyWindow(parent event.WindowID) (event.WindowID, error) {
	w := C.XCreateWindow(d.dpy, C.Window(parent),
		0, 0, 1, 1, 0, C.CopyFromParent, C.InputOnly, nil, 0, nil)
	if err := d.CheckErrors(); err != nil {
		return 0, err
	}
	return event.WindowID(w), nil
}

func (d *Display) DestroyWindow(w event.WindowID) {
	C.XDestroyWindow(d.dpy, C.Window(w))
}

func (d *Display) SelectXIEvents(w event.WindowID, dev event.DeviceID, mask uint32) {
	C.xevloop_select_events(d.dpy, C.Window(w), C.int(dev), C.uint(mask))
}

func (d *Display) QueryDevices(sel event.DeviceID) (*x11.DeviceList, error) {
	var n C.int
	infos := C.XIQueryDevice(d.dpy, C.int(sel), &n)
	if infos == nil {
		// BadDevice for devices removed in the meantime.
		if err := d.CheckErrors(); err != nil {
			return nil, err
		}
		return x11.NewDeviceList(nil, nil), nil
	}
	devs := make([]x11.DeviceInfo, 0, int(n))
	for _, info := range unsafe.Slice(infos, int(n)) {
		devs = append(devs, deviceInfo(&info))
	}
	return x11.NewDeviceList(devs, func() {
		C.XIFreeDeviceInfo(infos)
	}), nil
}

func deviceInfo(info *C.XIDeviceInfo) x11.DeviceInfo {
	d := x11.DeviceInfo{
		ID:         event.DeviceID(info.deviceid),
		Name:       C.GoString(info.name),
		Use:        x11.DeviceUse(info.use),
		Attachment: event.DeviceID(info.attachment),
		Enabled:    info.enabled != 0,
	}
	for _, class := range unsafe.Slice(info.classes, int(info.num_classes)) {
		switch class._type {
		case C.XIValuatorClass:
			v := (*C.XIValuatorClassInfo)(unsafe.Pointer(class))
			d.Valuators = append(d.Valuators, x11.ValuatorClass{
				Number: int(v.number),
				Min:    float64(v.min),
				Max:    float64(v.max),
				Value:  float64(v.value),
			})
		case C.XIScrollClass:
			s := (*C.XIScrollClassInfo)(unsafe.Pointer(class))
			d.Scrolls = append(d.Scrolls, x11.ScrollClass{
				Number:    int(s.number),
				Type:      x11.ScrollType(s.scroll_type),
				Increment: float64(s.increment),
				Flags:     uint32(s.flags),
			})
		}
	}
	return d
}

func (d *Display) Pending() int {
	return int(C.XPending(d.dpy))
}

func (d *Display) NextEvent() (x11.XEvent, error) {
	for C.XPending(d.dpy) == 0 {
		if err := d.wait(); err != nil {
			return nil, err
		}
	}
	xev := new(C.XEvent)
	C.XNextEvent(d.dpy, xev)
	return decode(xev), nil
}

// wait blocks until the connection is readable or notify is written.
func (d *Display) wait() error {
	pollfds := []unix.PollFd{
		{Fd: int32(d.fd), Events: unix.POLLIN | unix.POLLERR},
		{Fd: int32(d.notify.read), Events: unix.POLLIN | unix.POLLERR},
	}
	for {
		_, err := unix.Poll(pollfds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("xlib: poll failed: %w", err)
		}
		break
	}
	if pollfds[0].Revents&(unix.POLLERR|unix.POLLHUP) != 0 {
		return ErrConnectionLost
	}
	// Clear notifications.
	buf := make([]byte, 100)
	for {
		_, err := unix.Read(d.notify.read, buf)
		if err == unix.EAGAIN {
			break
		}
		if err != nil {
			return fmt.Errorf("xlib: read from notify pipe failed: %w", err)
		}
	}
	return nil
}

func (d *Display) poke() {
	if _, err := unix.Write(d.notify.write, oneByte); err != nil && err != unix.EAGAIN {
		panic(fmt.Errorf("xlib: failed to write to pipe: %v", err))
	}
}

func decode(xev *C.XEvent) x11.XEvent {
	hdr := (*C.XAnyEvent)(unsafe.Pointer(xev))
	h := x11.Header{
		Type:   uint8(hdr._type),
		Window: event.WindowID(hdr.window),
		Raw:    xev,
	}
	switch hdr._type {
	case C.KeyPress, C.KeyRelease:
		kev := (*C.XKeyEvent)(unsafe.Pointer(xev))
		return &x11.KeyEvent{
			Header:  h,
			Keycode: xproto.Keycode(kev.keycode),
			State:   uint16(kev.state),
		}
	case C.ConfigureNotify:
		cev := (*C.XConfigureEvent)(unsafe.Pointer(xev))
		h.Window = event.WindowID(cev.window)
		return &x11.ConfigureEvent{
			Header: h,
			X:      int(cev.x), Y: int(cev.y),
			Width: int(cev.width), Height: int(cev.height),
		}
	case C.Expose:
		eev := (*C.XExposeEvent)(unsafe.Pointer(xev))
		return &x11.ExposeEvent{Header: h, Count: int(eev.count)}
	case C.ClientMessage:
		cev := (*C.XClientMessageEvent)(unsafe.Pointer(xev))
		msg := &x11.ClientMessageEvent{Header: h, Format: uint8(cev.format)}
		for i := range msg.Data {
			msg.Data[i] = uint32(C.xevloop_client_data(xev, C.int(i)))
		}
		return msg
	case C.MappingNotify:
		return &x11.MappingEvent{Header: h}
	case C.GenericEvent:
		cookie := (*C.XGenericEventCookie)(unsafe.Pointer(xev))
		// Generic events have no window.
		h.Window = 0
		return &x11.GenericEvent{
			Header:    h,
			Extension: uint8(cookie.extension),
			EvType:    uint16(cookie.evtype),
		}
	default:
		return &x11.AnyEvent{Header: h}
	}
}

func raw(ev x11.XEvent) (*C.XEvent, bool) {
	xev, ok := ev.Head().Raw.(*C.XEvent)
	return xev, ok
}

func (d *Display) FilterEvent(ev x11.XEvent) bool {
	xev, ok := raw(ev)
	return ok && C.XFilterEvent(xev, C.None) == C.True
}

func (d *Display) RefreshKeyboardMapping(ev *x11.MappingEvent) {
	if xev, ok := raw(ev); ok {
		C.XRefreshKeyboardMapping((*C.XMappingEvent)(unsafe.Pointer(xev)))
	}
}

func (d *Display) LookupKeysym(ev *x11.KeyEvent) xproto.Keysym {
	xev, ok := raw(ev)
	if !ok {
		return 0
	}
	var (
		sym C.KeySym
		buf [8]C.char
	)
	C.XLookupString((*C.XKeyEvent)(unsafe.Pointer(xev)), &buf[0], C.int(len(buf)), &sym, nil)
	return xproto.Keysym(sym)
}

func (d *Display) KeycodeToKeysym(code xproto.Keycode, group int) xproto.Keysym {
	return xproto.Keysym(C.XkbKeycodeToKeysym(d.dpy, C.KeyCode(code), C.int(group), 0))
}

func (d *Display) EventData(ev *x11.GenericEvent) (*x11.Cookie, bool) {
	xev, ok := raw(ev)
	if !ok {
		return nil, false
	}
	cookie := (*C.XGenericEventCookie)(unsafe.Pointer(xev))
	if C.XGetEventData(d.dpy, cookie) == C.False {
		return nil, false
	}
	var data any
	if cookie.extension == d.xiOpcode && cookie.data != nil {
		data = decodeXI(cookie)
	}
	return x11.NewCookie(uint8(cookie.extension), uint16(cookie.evtype), data, func() {
		C.XFreeEventData(d.dpy, cookie)
	}), true
}

// decodeXI copies an XInput2 payload out of cookie memory.
func decodeXI(cookie *C.XGenericEventCookie) any {
	switch cookie.evtype {
	case C.XI_KeyPress, C.XI_KeyRelease,
		C.XI_ButtonPress, C.XI_ButtonRelease, C.XI_Motion,
		C.XI_TouchBegin, C.XI_TouchUpdate, C.XI_TouchEnd:
		e := (*C.XIDeviceEvent)(cookie.data)
		return &x11.XIDeviceEvent{
			EvType:    uint16(e.evtype),
			Device:    event.DeviceID(e.deviceid),
			Source:    event.DeviceID(e.sourceid),
			Detail:    uint32(e.detail),
			Root:      event.WindowID(e.root),
			Event:     event.WindowID(e.event),
			EventX:    float64(e.event_x),
			EventY:    float64(e.event_y),
			Flags:     uint32(e.flags),
			Valuators: valuators(&e.valuators),
		}
	case C.XI_Enter, C.XI_Leave, C.XI_FocusIn, C.XI_FocusOut:
		e := (*C.XIEnterEvent)(cookie.data)
		return &x11.XIEnterEvent{
			EvType: uint16(e.evtype),
			Device: event.DeviceID(e.deviceid),
			Source: event.DeviceID(e.sourceid),
			Detail: uint32(e.detail),
			Event:  event.WindowID(e.event),
			EventX: float64(e.event_x),
			EventY: float64(e.event_y),
		}
	case C.XI_RawKeyPress, C.XI_RawKeyRelease,
		C.XI_RawButtonPress, C.XI_RawButtonRelease, C.XI_RawMotion:
		e := (*C.XIRawEvent)(cookie.data)
		return &x11.XIRawEvent{
			EvType:    uint16(e.evtype),
			Device:    event.DeviceID(e.deviceid),
			Source:    event.DeviceID(e.sourceid),
			Detail:    uint32(e.detail),
			Flags:     uint32(e.flags),
			Valuators: valuators(&e.valuators),
		}
	case C.XI_HierarchyChanged:
		e := (*C.XIHierarchyEvent)(cookie.data)
		hev := &x11.XIHierarchyEvent{Flags: uint32(e.flags)}
		for _, info := range unsafe.Slice(e.info, int(e.num_info)) {
			hev.Info = append(hev.Info, x11.HierarchyInfo{
				Device:     event.DeviceID(info.deviceid),
				Attachment: event.DeviceID(info.attachment),
				Use:        x11.DeviceUse(info.use),
				Enabled:    info.enabled != 0,
				Flags:      uint32(info.flags),
			})
		}
		return hev
	default:
		return nil
	}
}

func valuators(v *C.XIValuatorState) x11.Valuators {
	if v.mask_len == 0 || v.mask == nil {
		return x11.Valuators{}
	}
	mask := C.GoBytes(unsafe.Pointer(v.mask), v.mask_len)
	n := 0
	for _, b := range mask {
		n += bits.OnesCount8(b)
	}
	values := make([]float64, n)
	if n > 0 && v.values != nil {
		copy(values, unsafe.Slice((*float64)(unsafe.Pointer(v.values)), n))
	}
	return x11.Valuators{Mask: mask, Values: values}
}

func (d *Display) SendEvent(w event.WindowID, ev *x11.ClientMessageEvent) x11.Request {
	var data [5]C.long
	for i, v := range ev.Data {
		data[i] = C.long(v)
	}
	serial := C.xevloop_send_client_message(d.dpy, C.Window(w), C.int(ev.Format), &data[0])
	return x11.Request(serial)
}

func (d *Display) Flush() {
	C.XFlush(d.dpy)
}

// CheckErrors waits for the server to process every request and
// returns the first error it reported for a request not awaited by
// CheckRequest.
func (d *Display) CheckErrors() error {
	return d.sync(0)
}

// CheckRequest waits for the server to process req and returns its error.
func (d *Display) CheckRequest(req x11.Request) error {
	defer C.xevloop_disown(C.ulong(req))
	return d.sync(C.ulong(req))
}

func (d *Display) sync(serial C.ulong) error {
	C.XSync(d.dpy, C.False)
	// XSync may have queued events without leaving the connection
	// readable.
	d.poke()
	var e C.XErrorEvent
	if C.xevloop_take_error(serial, &e) == 0 {
		return nil
	}
	buf := make([]byte, 256)
	C.XGetErrorText(d.dpy, C.int(e.error_code), (*C.char)(unsafe.Pointer(&buf[0])), C.int(len(buf)))
	return &XError{
		Serial:   uint64(e.serial),
		Code:     uint8(e.error_code),
		Request:  uint8(e.request_code),
		Minor:    uint8(e.minor_code),
		Resource: uint32(e.resourceid),
		Text:     C.GoString((*C.char)(unsafe.Pointer(&buf[0]))),
	}
}

func (d *Display) Close() error {
	unix.Close(d.notify.write)
	unix.Close(d.notify.read)
	C.XCloseDisplay(d.dpy)
	return nil
}
