// SPDX-License-Identifier: Unlicense OR MIT

//go:build !((linux && !android && !nox11) || freebsd || openbsd)

package app

import "errors"

func openDisplay(name string) (display, error) {
	return nil, errors.New("app: X11 is not supported on this platform")
}
