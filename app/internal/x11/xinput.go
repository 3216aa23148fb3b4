// SPDX-License-Identifier: Unlicense OR MIT

package x11

import (
	"github.com/BurntSushi/xgb/xproto"

	"xevloop.org/io/device"
	"xevloop.org/io/event"
	"xevloop.org/io/key"
	"xevloop.org/io/pointer"
)

// rawEventsMask selects the device scoped events of physical devices.
var rawEventsMask = XIMask(XI_RawMotion) |
	XIMask(XI_RawButtonPress) | XIMask(XI_RawButtonRelease) |
	XIMask(XI_RawKeyPress) | XIMask(XI_RawKeyRelease)

func (l *Loop) generic(gev *GenericEvent, fn func(event.Event)) {
	cookie, ok := l.t.EventData(gev)
	if !ok {
		return
	}
	defer cookie.Release()
	if cookie.Extension != l.xi2.Opcode {
		return
	}
	switch xev := cookie.Data.(type) {
	case *XIDeviceEvent:
		switch cookie.EvType {
		case XI_ButtonPress, XI_ButtonRelease:
			l.button(xev, fn)
		case XI_Motion:
			l.motion(xev, fn)
		case XI_TouchBegin, XI_TouchUpdate, XI_TouchEnd:
			l.touch(xev, fn)
		}
	case *XIEnterEvent:
		switch cookie.EvType {
		case XI_Enter:
			// The scroll position may have changed while the pointer
			// was outside our windows.
			l.devices.resync(xev.Source)
			fn(pointer.EnterEvent{Window: xev.Event, Device: xev.Device})
		case XI_Leave:
			fn(pointer.LeaveEvent{Window: xev.Event, Device: xev.Device})
		case XI_FocusIn, XI_FocusOut:
			focus := cookie.EvType == XI_FocusIn
			l.windows.withInputContext(xev.Event, func(ic InputContext) {
				if focus {
					ic.SetFocus()
				} else {
					ic.UnsetFocus()
				}
			})
			fn(key.FocusEvent{Window: xev.Event, Focus: focus})
		}
	case *XIRawEvent:
		switch cookie.EvType {
		case XI_RawButtonPress, XI_RawButtonRelease:
			if xev.Flags&XIPointerEmulated != 0 {
				return
			}
			state := key.Press
			if cookie.EvType == XI_RawButtonRelease {
				state = key.Release
			}
			fn(device.ButtonEvent{Device: xev.Device, Button: xev.Detail, State: state})
		case XI_RawMotion:
			xev.Valuators.Each(func(axis uint32, value float64) {
				fn(device.MotionEvent{Device: xev.Device, Axis: axis, Value: value})
			})
		case XI_RawKeyPress, XI_RawKeyRelease:
			state := key.Press
			if cookie.EvType == XI_RawKeyRelease {
				state = key.Release
			}
			// Only the first layout group is considered.
			// TODO: resolve raw keys through XKB to honor the active group.
			name, _ := keysymName(l.t.KeycodeToKeysym(xproto.Keycode(xev.Detail), 0))
			fn(device.KeyEvent{
				Device:   xev.Device,
				ScanCode: scanCode(xev.Detail),
				Name:     name,
				State:    state,
			})
		}
	case *XIHierarchyEvent:
		l.hierarchy(xev, fn)
	}
}

func (l *Loop) button(xev *XIDeviceEvent, fn func(event.Event)) {
	emulated := xev.Flags&XIPointerEmulated != 0
	// Multi-touch windows get the touch events instead.
	if emulated && l.windows.multitouch(xev.Event) {
		return
	}
	state := key.Press
	if xev.EvType == XI_ButtonRelease {
		state = key.Release
	}
	switch xev.Detail {
	case 4, 5, 6, 7:
		// Emulated wheel clicks are also reported as scroll axis motion.
		if emulated {
			return
		}
		fn(pointer.ScrollEvent{
			Window: xev.Event,
			Device: xev.Device,
			Lines:  wheelDelta(xev.Detail),
			Phase:  pointer.Moved,
		})
	default:
		fn(pointer.ButtonEvent{
			Window: xev.Event,
			Device: xev.Device,
			State:  state,
			Button: pointer.Button(xev.Detail),
		})
	}
}

// wheelDelta maps the wheel buttons 4-7 to a line delta.
func wheelDelta(btn uint32) pointer.Delta {
	switch btn {
	case 4:
		return pointer.Delta{Y: 1}
	case 5:
		return pointer.Delta{Y: -1}
	case 6:
		return pointer.Delta{X: -1}
	case 7:
		return pointer.Delta{X: 1}
	default:
		return pointer.Delta{}
	}
}

func (l *Loop) motion(xev *XIDeviceEvent, fn func(event.Event)) {
	pos := pointer.Point{X: xev.EventX, Y: xev.EventY}
	moved, ok := l.windows.moveCursor(xev.Event, pos)
	if !ok {
		l.log.Debug("motion for unknown window", "window", xev.Event)
		return
	}
	if moved {
		fn(pointer.MoveEvent{Window: xev.Event, Device: xev.Device, Position: pos})
	}
	for _, e := range l.devices.motion(xev) {
		fn(e)
	}
}

func (l *Loop) touch(xev *XIDeviceEvent, fn func(event.Event)) {
	var phase pointer.Phase
	switch xev.EvType {
	case XI_TouchBegin:
		phase = pointer.Started
	case XI_TouchUpdate:
		phase = pointer.Moved
	case XI_TouchEnd:
		phase = pointer.Ended
	}
	fn(pointer.TouchEvent{
		Window:   xev.Event,
		Device:   xev.Device,
		Phase:    phase,
		Position: pointer.Point{X: xev.EventX, Y: xev.EventY},
		ID:       uint64(xev.Detail),
	})
}

func (l *Loop) hierarchy(xev *XIHierarchyEvent, fn func(event.Event)) {
	for _, info := range xev.Info {
		switch {
		case info.Flags&(XISlaveAdded|XIMasterAdded) != 0:
			if err := l.devices.register(info.Device); err != nil {
				l.report(err)
			}
			l.log.Info("device added", "device", info.Device)
			fn(device.AddedEvent{Device: info.Device})
		case info.Flags&(XISlaveRemoved|XIMasterRemoved) != 0:
			l.log.Info("device removed", "device", info.Device)
			fn(device.RemovedEvent{Device: info.Device})
			l.devices.remove(info.Device)
		}
	}
}
