// SPDX-License-Identifier: Unlicense OR MIT

package x11

import (
	"errors"
	"fmt"

	"xevloop.org/io/event"
)

var (
	// ErrLoopClosed is returned by operations on a Loop that has been closed.
	ErrLoopClosed = errors.New("x11: event loop closed")
	// ErrNoXInput is returned by New when the server lacks the XInput extension.
	ErrNoXInput = errors.New("x11: X server missing XInput extension")
)

// VersionError is returned by New when the server doesn't support the
// requested XInput version.
type VersionError struct {
	Major, Minor       int
	WantMajor, WantMin int
	Err                error
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("x11: X server has XInput extension %d.%d but does not support XInput %d.%d: %v",
		e.Major, e.Minor, e.WantMajor, e.WantMin, e.Err)
}

func (e *VersionError) Unwrap() error { return e.Err }

// ProtocolError is a protocol error reported by the server after the
// operation Op.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("x11: %s failed: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IMEError is returned when the input method or input context of a
// window can't be created.
type IMEError struct {
	Window event.WindowID
	Step   string
	Err    error
}

func (e *IMEError) Error() string {
	return fmt.Sprintf("x11: %s for window %v: %v", e.Step, e.Window, e.Err)
}

func (e *IMEError) Unwrap() error { return e.Err }

// check wraps the pending protocol error of t, if any.
func check(t Transport, op string) error {
	return protocolError(op, t.CheckErrors())
}

func protocolError(op string, err error) error {
	if err != nil {
		return &ProtocolError{Op: op, Err: err}
	}
	return nil
}
