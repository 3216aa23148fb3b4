// SPDX-License-Identifier: Unlicense OR MIT

package x11

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xevloop.org/io/device"
	"xevloop.org/io/event"
	"xevloop.org/io/key"
	"xevloop.org/io/pointer"
)

const (
	testMaster = event.DeviceID(2)
	testMouse  = event.DeviceID(10)
)

// mouse is a physical pointer with a vertical scroll axis on valuator
// 2 and a horizontal one on valuator 3.
func mouse(vert, horiz float64) DeviceInfo {
	return DeviceInfo{
		ID:         testMouse,
		Name:       "Test Mouse",
		Use:        SlavePointer,
		Attachment: testMaster,
		Enabled:    true,
		Valuators: []ValuatorClass{
			{Number: 0}, {Number: 1},
			{Number: 2, Value: vert},
			{Number: 3, Value: horiz},
		},
		Scrolls: []ScrollClass{
			{Number: 2, Type: ScrollTypeVertical, Increment: 15},
			{Number: 3, Type: ScrollTypeHorizontal, Increment: 10},
		},
	}
}

func deviceEvent(evtype uint16, detail uint32) *XIDeviceEvent {
	return &XIDeviceEvent{
		EvType: evtype,
		Device: testMaster,
		Source: testMouse,
		Detail: detail,
		Event:  testWindow,
	}
}

func TestButtons(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})

	for _, btn := range []uint32{1, 2, 3, 8} {
		f.pushXI(XI_ButtonPress, deviceEvent(XI_ButtonPress, btn))
		f.pushXI(XI_ButtonRelease, deviceEvent(XI_ButtonRelease, btn))
		assert.Equal(t, []event.Event{
			pointer.ButtonEvent{Window: testWindow, Device: testMaster, State: key.Press, Button: pointer.Button(btn)},
			pointer.ButtonEvent{Window: testWindow, Device: testMaster, State: key.Release, Button: pointer.Button(btn)},
		}, poll(t, l), "button %d", btn)
	}
	assert.Zero(t, f.cookiesOut)
}

func TestWheelButtons(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})

	tests := []struct {
		button uint32
		lines  pointer.Delta
	}{
		{4, pointer.Delta{Y: 1}},
		{5, pointer.Delta{Y: -1}},
		{6, pointer.Delta{X: -1}},
		{7, pointer.Delta{X: 1}},
	}
	for _, tst := range tests {
		f.pushXI(XI_ButtonPress, deviceEvent(XI_ButtonPress, tst.button))
		f.pushXI(XI_ButtonRelease, deviceEvent(XI_ButtonRelease, tst.button))
		scroll := pointer.ScrollEvent{Window: testWindow, Device: testMaster, Lines: tst.lines, Phase: pointer.Moved}
		assert.Equal(t, []event.Event{scroll, scroll}, poll(t, l), "button %d", tst.button)
	}
}

func TestEmulatedButtons(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})
	const touchWindow = event.WindowID(0x500001)
	_, err := l.RegisterWindow(touchWindow, WindowOptions{Multitouch: true})
	require.NoError(t, err)

	emulated := func(w event.WindowID, detail uint32) *XIDeviceEvent {
		ev := deviceEvent(XI_ButtonPress, detail)
		ev.Event = w
		ev.Flags = XIPointerEmulated
		return ev
	}
	f.pushXI(XI_ButtonPress, emulated(touchWindow, 1))
	f.pushXI(XI_ButtonPress, emulated(testWindow, 4))
	release := emulated(testWindow, 5)
	release.EvType = XI_ButtonRelease
	f.pushXI(XI_ButtonRelease, release)
	f.pushXI(XI_ButtonPress, emulated(testWindow, 1))
	assert.Equal(t, []event.Event{
		pointer.ButtonEvent{Window: testWindow, Device: testMaster, State: key.Press, Button: pointer.ButtonLeft},
	}, poll(t, l))
}

func TestMotionScrollAxes(t *testing.T) {
	f := newFakeTransport()
	f.setDevices(mouse(100, 0))
	l, _ := newTestLoop(t, f, Options{})

	ev := deviceEvent(XI_Motion, 0)
	ev.EventX, ev.EventY = 20, 30
	// Valuators 0 and 2.
	ev.Valuators = valuators([]byte{0x05}, 5, 130)
	f.pushXI(XI_Motion, ev)
	assert.Equal(t, []event.Event{
		pointer.MoveEvent{Window: testWindow, Device: testMaster, Position: pointer.Point{X: 20, Y: 30}},
		pointer.AxisEvent{Window: testWindow, Device: testMaster, Axis: 0, Value: 5},
		pointer.ScrollEvent{Window: testWindow, Device: testMaster, Lines: pointer.Delta{Y: -2}, Phase: pointer.Moved},
	}, poll(t, l))

	ev = deviceEvent(XI_Motion, 0)
	ev.EventX, ev.EventY = 20, 30
	// Valuators 2 and 3.
	ev.Valuators = valuators([]byte{0x0c}, 115, -20)
	f.pushXI(XI_Motion, ev)
	assert.Equal(t, []event.Event{
		pointer.ScrollEvent{Window: testWindow, Device: testMaster, Lines: pointer.Delta{Y: 1}, Phase: pointer.Moved},
		pointer.ScrollEvent{Window: testWindow, Device: testMaster, Lines: pointer.Delta{X: -2}, Phase: pointer.Moved},
	}, poll(t, l))

	devs := l.Devices()
	require.Len(t, devs, 1)
	assert.Equal(t, 115.0, devs[0].ScrollAxes[0].Position)
	assert.Equal(t, -20.0, devs[0].ScrollAxes[1].Position)
}

func TestMotionUnknownSource(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})
	ev := deviceEvent(XI_Motion, 0)
	ev.Valuators = valuators([]byte{0x04}, 42)
	f.pushXI(XI_Motion, ev)
	assert.Equal(t, []event.Event{
		pointer.MoveEvent{Window: testWindow, Device: testMaster},
		pointer.AxisEvent{Window: testWindow, Device: testMaster, Axis: 2, Value: 42},
	}, poll(t, l))
}

func TestMotionUnknownWindow(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})
	ev := deviceEvent(XI_Motion, 0)
	ev.Event = 0xdead
	f.pushXI(XI_Motion, ev)
	assert.Empty(t, poll(t, l))
	assert.Zero(t, f.cookiesOut)
}

func TestEnterResyncsScrollPosition(t *testing.T) {
	f := newFakeTransport()
	f.setDevices(mouse(100, 0))
	l, _ := newTestLoop(t, f, Options{})

	// The wheel was used while the pointer was elsewhere.
	f.setDevices(mouse(400, 0))
	f.pushXI(XI_Enter, &XIEnterEvent{EvType: XI_Enter, Device: testMaster, Source: testMouse, Event: testWindow})
	ev := deviceEvent(XI_Motion, 0)
	ev.Valuators = valuators([]byte{0x04}, 415)
	f.pushXI(XI_Motion, ev)

	assert.Equal(t, []event.Event{
		pointer.EnterEvent{Window: testWindow, Device: testMaster},
		pointer.MoveEvent{Window: testWindow, Device: testMaster},
		pointer.ScrollEvent{Window: testWindow, Device: testMaster, Lines: pointer.Delta{Y: -1}, Phase: pointer.Moved},
	}, poll(t, l))
	assert.Zero(t, f.listsOut)
}

func TestLeave(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})
	f.pushXI(XI_Leave, &XIEnterEvent{EvType: XI_Leave, Device: testMaster, Source: testMouse, Event: testWindow})
	assert.Equal(t, []event.Event{
		pointer.LeaveEvent{Window: testWindow, Device: testMaster},
	}, poll(t, l))
}

func TestFocus(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})
	ic := f.icOf(testWindow)
	require.True(t, ic.focused)

	f.pushXI(XI_FocusOut, &XIEnterEvent{EvType: XI_FocusOut, Device: 3, Event: testWindow})
	assert.Equal(t, []event.Event{key.FocusEvent{Window: testWindow, Focus: false}}, poll(t, l))
	assert.False(t, ic.focused)

	f.pushXI(XI_FocusIn, &XIEnterEvent{EvType: XI_FocusIn, Device: 3, Event: testWindow})
	assert.Equal(t, []event.Event{key.FocusEvent{Window: testWindow, Focus: true}}, poll(t, l))
	assert.True(t, ic.focused)
}

func TestTouch(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})
	for _, typ := range []uint16{XI_TouchBegin, XI_TouchUpdate, XI_TouchEnd} {
		ev := deviceEvent(typ, 7)
		ev.EventX, ev.EventY = 1.5, 2.5
		f.pushXI(typ, ev)
	}
	pos := pointer.Point{X: 1.5, Y: 2.5}
	assert.Equal(t, []event.Event{
		pointer.TouchEvent{Window: testWindow, Device: testMaster, Phase: pointer.Started, Position: pos, ID: 7},
		pointer.TouchEvent{Window: testWindow, Device: testMaster, Phase: pointer.Moved, Position: pos, ID: 7},
		pointer.TouchEvent{Window: testWindow, Device: testMaster, Phase: pointer.Ended, Position: pos, ID: 7},
	}, poll(t, l))
}

func TestRawEvents(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})
	f.keysyms[38] = 'a'

	f.pushXI(XI_RawButtonPress, &XIRawEvent{EvType: XI_RawButtonPress, Device: testMouse, Detail: 1})
	f.pushXI(XI_RawButtonRelease, &XIRawEvent{EvType: XI_RawButtonRelease, Device: testMouse, Detail: 1})
	f.pushXI(XI_RawButtonPress, &XIRawEvent{EvType: XI_RawButtonPress, Device: testMouse, Detail: 1, Flags: XIPointerEmulated})
	f.pushXI(XI_RawMotion, &XIRawEvent{EvType: XI_RawMotion, Device: testMouse, Valuators: valuators([]byte{0x03}, 1, -2)})
	f.pushXI(XI_RawKeyPress, &XIRawEvent{EvType: XI_RawKeyPress, Device: 12, Detail: 38})
	f.pushXI(XI_RawKeyRelease, &XIRawEvent{EvType: XI_RawKeyRelease, Device: 12, Detail: 38})

	assert.Equal(t, []event.Event{
		device.ButtonEvent{Device: testMouse, Button: 1, State: key.Press},
		device.ButtonEvent{Device: testMouse, Button: 1, State: key.Release},
		device.MotionEvent{Device: testMouse, Axis: 0, Value: 1},
		device.MotionEvent{Device: testMouse, Axis: 1, Value: -2},
		device.KeyEvent{Device: 12, ScanCode: 30, Name: "A", State: key.Press},
		device.KeyEvent{Device: 12, ScanCode: 30, Name: "A", State: key.Release},
	}, poll(t, l))
	assert.Equal(t, []int{0, 0}, f.keysymGroups)
	assert.Zero(t, f.cookiesOut)
}

func TestHierarchyChanges(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})
	require.Empty(t, l.Devices())

	f.setDevices(mouse(0, 0))
	f.pushXI(XI_HierarchyChanged, &XIHierarchyEvent{
		Flags: XISlaveAdded,
		Info:  []HierarchyInfo{{Device: testMouse, Use: SlavePointer, Flags: XISlaveAdded}},
	})
	assert.Equal(t, []event.Event{device.AddedEvent{Device: testMouse}}, poll(t, l))
	devs := l.Devices()
	require.Len(t, devs, 1)
	assert.Equal(t, "Test Mouse", devs[0].Name)
	assert.Len(t, devs[0].ScrollAxes, 2)
	assert.Contains(t, f.selections, selection{window: testRoot, device: testMouse, mask: rawEventsMask})

	removed := &XIHierarchyEvent{
		Flags: XISlaveRemoved,
		Info:  []HierarchyInfo{{Device: testMouse, Flags: XISlaveRemoved}},
	}
	f.pushXI(XI_HierarchyChanged, removed)
	f.pushXI(XI_HierarchyChanged, removed)
	assert.Equal(t, []event.Event{
		device.RemovedEvent{Device: testMouse},
		device.RemovedEvent{Device: testMouse},
	}, poll(t, l))
	assert.Empty(t, l.Devices())
	assert.Zero(t, f.listsOut)
}

func TestHierarchyAttachIgnored(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})
	f.pushXI(XI_HierarchyChanged, &XIHierarchyEvent{
		Flags: XISlaveAttached,
		Info:  []HierarchyInfo{{Device: testMouse, Flags: XISlaveAttached}},
	})
	assert.Empty(t, poll(t, l))
}

func TestHierarchyQueryFailure(t *testing.T) {
	f := newFakeTransport()
	var reported []error
	l, _ := newTestLoop(t, f, Options{OnError: func(err error) { reported = append(reported, err) }})
	f.queryErr = errBadWindow
	f.pushXI(XI_HierarchyChanged, &XIHierarchyEvent{
		Info: []HierarchyInfo{{Device: testMouse, Flags: XISlaveAdded}},
	})
	assert.Equal(t, []event.Event{device.AddedEvent{Device: testMouse}}, poll(t, l))
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], errBadWindow)
	d, ok := l.devices.lookup(testMouse)
	require.True(t, ok)
	assert.Equal(t, Device{ID: testMouse}, d)
}

func TestForeignCookiesAreReleased(t *testing.T) {
	f := newFakeTransport()
	l, _ := newTestLoop(t, f, Options{})
	f.pushGeneric(99, XI_ButtonPress, deviceEvent(XI_ButtonPress, 1))
	// Sub-types the transport doesn't decode.
	f.pushXI(XI_PropertyEvent, nil)
	assert.Empty(t, poll(t, l))
	assert.Zero(t, f.cookiesOut)
}
