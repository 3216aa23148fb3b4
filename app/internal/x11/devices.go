// SPDX-License-Identifier: Unlicense OR MIT

package x11

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"

	"xevloop.org/io/event"
	"xevloop.org/io/pointer"
)

// Orientation of a scroll axis.
type Orientation uint8

const (
	Vertical Orientation = iota
	Horizontal
)

// Device is the state kept for an input device.
type Device struct {
	ID   event.DeviceID
	Name string
	// ScrollAxes are the valuators of the device that scroll, in the
	// order the server reported them.
	ScrollAxes []ScrollAxis
}

// ScrollAxis converts valuator motion into scroll steps.
type ScrollAxis struct {
	// Number is the valuator index.
	Number int
	// Increment is the valuator distance of one scroll step.
	Increment   float64
	Orientation Orientation
	// Position is the last observed valuator value.
	Position float64
}

type deviceRegistry struct {
	t      Transport
	root   event.WindowID
	log    *log.Logger
	report func(error)

	mu      sync.Mutex
	devices map[event.DeviceID]*Device
}

func newDeviceRegistry(t Transport, root event.WindowID, logger *log.Logger, report func(error)) *deviceRegistry {
	return &deviceRegistry{
		t:       t,
		root:    root,
		log:     logger,
		report:  report,
		devices: make(map[event.DeviceID]*Device),
	}
}

// register queries the devices matching sel, selects raw events for the
// physical ones and replaces their entries. A specific sel always has an
// entry afterwards, even if the query fails or the server no longer
// knows the device.
func (r *deviceRegistry) register(sel event.DeviceID) error {
	list, err := r.t.QueryDevices(sel)
	if err != nil {
		if sel != AllDevices {
			r.mu.Lock()
			r.devices[sel] = &Device{ID: sel}
			r.mu.Unlock()
		}
		return fmt.Errorf("x11: query input device %v: %w", sel, err)
	}
	defer list.Release()

	devs := make([]*Device, 0, len(list.Devices))
	for i := range list.Devices {
		info := &list.Devices[i]
		if isPhysical(info) {
			r.t.SelectXIEvents(r.root, info.ID, rawEventsMask)
			r.report(check(r.t, "XISelectEvents"))
		}
		devs = append(devs, newDevice(info))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range devs {
		r.log.Debug("device", "id", d.ID, "name", d.Name, "scroll_axes", len(d.ScrollAxes))
		r.devices[d.ID] = d
	}
	if _, ok := r.devices[sel]; sel != AllDevices && !ok {
		r.devices[sel] = &Device{ID: sel}
	}
	return nil
}

// resync re-reads the scroll positions of device id, so that the next
// motion is measured from where the device is now.
func (r *deviceRegistry) resync(id event.DeviceID) {
	list, err := r.t.QueryDevices(id)
	if err != nil {
		r.log.Debug("resync failed", "device", id, "err", err)
		return
	}
	defer list.Release()

	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return
	}
	for i := range list.Devices {
		if info := &list.Devices[i]; info.ID == id {
			d.resetScrollPositions(info)
		}
	}
}

// remove forgets device id. Removing an unknown device is a no-op.
func (r *deviceRegistry) remove(id event.DeviceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, id)
}

// motion converts the valuators of a window motion event into scroll
// events for the scroll axes of the source device, and axis events
// for any other valuator.
func (r *deviceRegistry) motion(xev *XIDeviceEvent) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.devices[xev.Source]
	var evs []event.Event
	xev.Valuators.Each(func(axis uint32, value float64) {
		if a := d.scrollAxis(int(axis)); a != nil {
			delta := (value - a.Position) / a.Increment
			a.Position = value
			var lines pointer.Delta
			switch a.Orientation {
			case Horizontal:
				lines.X = delta
			case Vertical:
				// X11 vertical coordinates grow downwards.
				lines.Y = -delta
			}
			evs = append(evs, pointer.ScrollEvent{
				Window: xev.Event,
				Device: xev.Device,
				Lines:  lines,
				Phase:  pointer.Moved,
			})
			return
		}
		evs = append(evs, pointer.AxisEvent{
			Window: xev.Event,
			Device: xev.Device,
			Axis:   axis,
			Value:  value,
		})
	})
	return evs
}

func (r *deviceRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

func (r *deviceRegistry) lookup(id event.DeviceID) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return d.clone(), true
}

func (r *deviceRegistry) snapshot() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]event.DeviceID, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	devs := make([]Device, 0, len(ids))
	for _, id := range ids {
		devs = append(devs, r.devices[id].clone())
	}
	return devs
}

func newDevice(info *DeviceInfo) *Device {
	d := &Device{ID: info.ID, Name: info.Name}
	if isPhysical(info) {
		for _, sc := range info.Scrolls {
			if sc.Increment == 0 {
				continue
			}
			a := ScrollAxis{Number: sc.Number, Increment: sc.Increment}
			switch sc.Type {
			case ScrollTypeVertical:
				a.Orientation = Vertical
			case ScrollTypeHorizontal:
				a.Orientation = Horizontal
			default:
				continue
			}
			d.ScrollAxes = append(d.ScrollAxes, a)
		}
	}
	d.resetScrollPositions(info)
	return d
}

func (d *Device) resetScrollPositions(info *DeviceInfo) {
	if !isPhysical(info) {
		return
	}
	for _, v := range info.Valuators {
		if a := d.scrollAxis(v.Number); a != nil {
			a.Position = v.Value
		}
	}
}

// scrollAxis returns the scroll axis for valuator n, or nil. d may be nil.
func (d *Device) scrollAxis(n int) *ScrollAxis {
	if d == nil {
		return nil
	}
	i := slices.IndexFunc(d.ScrollAxes, func(a ScrollAxis) bool {
		return a.Number == n
	})
	if i == -1 {
		return nil
	}
	return &d.ScrollAxes[i]
}

func (d *Device) clone() Device {
	c := *d
	c.ScrollAxes = slices.Clone(d.ScrollAxes)
	return c
}

func isPhysical(info *DeviceInfo) bool {
	switch info.Use {
	case SlaveKeyboard, SlavePointer, FloatingSlave:
		return true
	default:
		return false
	}
}

func (o Orientation) String() string {
	switch o {
	case Vertical:
		return "Vertical"
	case Horizontal:
		return "Horizontal"
	default:
		panic("unknown Orientation")
	}
}
