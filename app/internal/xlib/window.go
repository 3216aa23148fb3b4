// SPDX-License-Identifier: Unlicense OR MIT

//go:build (linux && !android && !nox11) || freebsd || openbsd

package xlib

/*
#include <stdlib.h>
#include <X11/Xlib.h>
#include <X11/Xatom.h>
#include <X11/Xutil.h>
*/
import "C"

import (
	"unsafe"

	"xevloop.org/io/event"
)

// WindowOptions describe a top-level window.
type WindowOptions struct {
	Width, Height int
	Title         string
}

// CreateWindow creates and maps a top-level window that reports the
// core events the x11 loop translates. Pointer and touch events are
// selected separately through XInput2.
func (d *Display) CreateWindow(opts WindowOptions) (event.WindowID, error) {
	swa := C.XSetWindowAttributes{
		event_mask: C.ExposureMask | // update
			C.KeyPressMask | C.KeyReleaseMask | // keyboard
			C.StructureNotifyMask, // resize and move
		background_pixmap: C.None,
		override_redirect: C.False,
	}
	win := C.XCreateWindow(d.dpy, C.XDefaultRootWindow(d.dpy),
		0, 0, C.uint(opts.Width), C.uint(opts.Height),
		0, C.CopyFromParent, C.InputOutput, nil,
		C.CWEventMask|C.CWBackPixmap|C.CWOverrideRedirect, &swa)

	var hints C.XWMHints
	hints.input = C.True
	hints.flags = C.InputHint
	C.XSetWMHints(d.dpy, win, &hints)

	ctitle := C.CString(opts.Title)
	defer C.free(unsafe.Pointer(ctitle))
	C.XStoreName(d.dpy, win, ctitle)
	// set _NET_WM_NAME as well for UTF-8 support in window title.
	C.XSetTextProperty(d.dpy, win,
		&C.XTextProperty{
			value:    (*C.uchar)(unsafe.Pointer(ctitle)),
			encoding: C.Atom(d.InternAtom("UTF8_STRING", false)),
			format:   8,
			nitems:   C.ulong(len(opts.Title)),
		},
		C.Atom(d.InternAtom("_NET_WM_NAME", false)))

	delWindow := C.Atom(d.InternAtom("WM_DELETE_WINDOW", false))
	C.XSetWMProtocols(d.dpy, win, &delWindow, 1)

	C.XMapWindow(d.dpy, win)
	if err := d.CheckErrors(); err != nil {
		C.XDestroyWindow(d.dpy, win)
		return 0, err
	}
	return event.WindowID(win), nil
}
