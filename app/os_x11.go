// SPDX-License-Identifier: Unlicense OR MIT

//go:build (linux && !android && !nox11) || freebsd || openbsd

package app

import (
	"xevloop.org/app/internal/xlib"
	"xevloop.org/io/event"
)

type xlibDisplay struct {
	*xlib.Display
}

func openDisplay(name string) (display, error) {
	d, err := xlib.Open(name)
	if err != nil {
		return nil, err
	}
	return xlibDisplay{d}, nil
}

func (d xlibDisplay) createWindow(cnf windowConfig) (event.WindowID, error) {
	return d.CreateWindow(xlib.WindowOptions{
		Width:  cnf.Width,
		Height: cnf.Height,
		Title:  cnf.Title,
	})
}
