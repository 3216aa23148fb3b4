// SPDX-License-Identifier: Unlicense OR MIT

//go:build (linux && !android && !nox11) || freebsd || openbsd

package xlib

/*
#include <stdlib.h>
#include <string.h>
#include <locale.h>
#include <X11/Xlib.h>
#include <X11/Xutil.h>

static XIM xevloop_open_im(Display *dpy) {
	// adjust locale temporarily for XOpenIM
	char *lc = strdup(setlocale(LC_CTYPE, NULL));
	setlocale(LC_CTYPE, "");
	XSetLocaleModifiers("");

	XIM xim = XOpenIM(dpy, 0, 0, 0);
	if (!xim) {
		// fallback to internal input method
		XSetLocaleModifiers("@im=none");
		xim = XOpenIM(dpy, 0, 0, 0);
	}

	// revert locale to prevent any unexpected side effects
	setlocale(LC_CTYPE, lc);
	free(lc);
	return xim;
}

static XIC xevloop_create_ic(XIM xim, Window win) {
	return XCreateIC(xim,
		XNInputStyle, XIMPreeditNothing | XIMStatusNothing,
		XNClientWindow, win,
		XNFocusWindow, win,
		NULL);
}

static void xevloop_set_spot(XIC xic, short x, short y) {
	XPoint spot = {x, y};
	XVaNestedList attr = XVaCreateNestedList(0, XNSpotLocation, &spot, NULL);
	XSetICValues(xic, XNPreeditAttributes, attr, NULL);
	XFree(attr);
}
*/
import "C"

import (
	"errors"
	"unsafe"

	"github.com/BurntSushi/xgb/xproto"

	"xevloop.org/app/internal/x11"
	"xevloop.org/io/event"
)

type inputMethod struct {
	xim C.XIM
}

type inputContext struct {
	xic C.XIC
}

// OpenIM opens the input method of the user locale, falling back to
// the internal one.
func (d *Display) OpenIM() (x11.InputMethod, error) {
	xim := C.xevloop_open_im(d.dpy)
	if xim == nil {
		return nil, errors.New("XOpenIM failed")
	}
	return &inputMethod{xim: xim}, nil
}

func (im *inputMethod) CreateContext(w event.WindowID) (x11.InputContext, error) {
	xic := C.xevloop_create_ic(im.xim, C.Window(w))
	if xic == nil {
		return nil, errors.New("XCreateIC failed")
	}
	return &inputContext{xic: xic}, nil
}

func (im *inputMethod) Close() {
	C.XCloseIM(im.xim)
}

func (ic *inputContext) SetFocus() {
	C.XSetICFocus(ic.xic)
}

func (ic *inputContext) UnsetFocus() {
	C.XUnsetICFocus(ic.xic)
}

func (ic *inputContext) SetSpot(spot xproto.Point) {
	C.xevloop_set_spot(ic.xic, C.short(spot.X), C.short(spot.Y))
}

func (ic *inputContext) LookupString(ev *x11.KeyEvent, buf []byte) (int, x11.LookupStatus) {
	xev, ok := raw(ev)
	if !ok || len(buf) == 0 {
		return 0, x11.LookupNone
	}
	var (
		keysym C.KeySym
		status C.Status
	)
	n := C.Xutf8LookupString(ic.xic, (*C.XKeyPressedEvent)(unsafe.Pointer(xev)),
		(*C.char)(unsafe.Pointer(&buf[0])), C.int(len(buf)),
		&keysym, &status)
	switch status {
	case C.XBufferOverflow:
		return int(n), x11.LookupBufferOverflow
	case C.XLookupChars:
		return int(n), x11.LookupChars
	case C.XLookupKeySym:
		return 0, x11.LookupKeySym
	case C.XLookupBoth:
		return int(n), x11.LookupBoth
	default:
		return 0, x11.LookupNone
	}
}

func (ic *inputContext) Destroy() {
	C.XDestroyIC(ic.xic)
}
