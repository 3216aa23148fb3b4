// SPDX-License-Identifier: Unlicense OR MIT

package x11

import (
	"github.com/BurntSushi/xgb/xproto"
)

// Proxy wakes up a Loop from any goroutine. Proxy values are cheap to
// copy and don't keep the loop alive.
type Proxy struct {
	s *shared
}

// Wakeup makes the loop deliver a system.WakeupEvent. Calls made before
// the loop observes the first one are merged into a single event. It
// returns ErrLoopClosed if the loop has been closed.
func (p Proxy) Wakeup() error {
	if p.s == nil {
		return ErrLoopClosed
	}
	t, release, err := p.s.acquire()
	if err != nil {
		return err
	}
	defer release()

	p.s.pendingWakeup.Store(true)
	// The message is only needed to interrupt a blocking NextEvent.
	req := t.SendEvent(p.s.wakeupWindow, &ClientMessageEvent{
		Header: Header{Type: xproto.ClientMessage, Window: p.s.wakeupWindow},
		Format: 32,
	})
	t.Flush()
	return protocolError("XSendEvent", t.CheckRequest(req))
}
