package notify

import (
	"time"
)

const defaultHeartbeatTimeout = 90000 * time.Millisecond

// heartbeatMonitor detects a stream that is still open at the transport
// level but has stopped producing frames. Every frame pushes the deadline
// out by timeout; when the deadline passes, expired is called with the
// generation the timer was armed with. It is owned by the client goroutine
// and must not be touched from anywhere else.
type heartbeatMonitor struct {
	timeout  time.Duration
	deadline time.Time
	timer    *time.Timer
	gen      uint64
	armed    bool
	expired  func(gen uint64)
}

func newHeartbeatMonitor(timeout time.Duration, expired func(gen uint64)) *heartbeatMonitor {
	if timeout <= 0 {
		timeout = defaultHeartbeatTimeout
	}
	return &heartbeatMonitor{timeout: timeout, expired: expired}
}

// reset arms the monitor (if it was not) and moves the deadline to now + timeout
func (h *heartbeatMonitor) reset() {
	h.stopTimer()
	h.gen++
	gen := h.gen
	h.armed = true
	h.deadline = time.Now().Add(h.timeout)
	h.timer = time.AfterFunc(h.timeout, func() {
		h.expired(gen)
	})
}

// disarm cancels the pending deadline, a timer that already fired
// is invalidated through the generation
func (h *heartbeatMonitor) disarm() {
	h.stopTimer()
	h.gen++
	h.armed = false
	h.deadline = time.Time{}
}

// isCurrent reports whether an expiry for gen is still meaningful
func (h *heartbeatMonitor) isCurrent(gen uint64) bool {
	return h.armed && gen == h.gen
}

func (h *heartbeatMonitor) Deadline() time.Time {
	return h.deadline
}

func (h *heartbeatMonitor) Armed() bool {
	return h.armed
}

func (h *heartbeatMonitor) stopTimer() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
