// SPDX-License-Identifier: Unlicense OR MIT

/*
Package app connects to the X server and delivers its input and window
events in a normalized form.

# Event loop

An EventsLoop owns one connection. Events are dispatched either by Poll,
which handles what is already queued and returns, or by Run, which blocks
for each event until the handler returns Stop:

	loop, err := app.NewEventsLoop()
	if err != nil {
		log.Fatal(err)
	}
	defer loop.Close()
	w, err := loop.NewWindow(app.Title("Hello"))
	if err != nil {
		log.Fatal(err)
	}
	loop.Run(func(e event.Event) app.ControlFlow {
		if e, ok := e.(system.CloseEvent); ok && e.Window == w.ID() {
			return app.Stop
		}
		return app.Continue
	})

# Wakeup

Other goroutines interrupt a blocked Run through a Proxy. Wakeups
requested before the loop observes the first one are delivered as a
single system.WakeupEvent. After the loop is closed, Proxy.Wakeup
returns ErrLoopClosed.

# Events

Window events are in package io/system, keyboard events in io/key,
pointer, scroll and touch events in io/pointer and device scoped raw
events in io/device.
*/
package app
