package service

import (
	"time"

	"timeblocks/internal/platform/clock"
)

// genTimer is a cancellable one-shot timer owned by the event loop. Its
// callback only receives the generation it was armed with; the loop accepts
// a firing only if that generation is still current, so a stopped or
// re-armed timer can never act on state.
type genTimer struct {
	clock clock.Clock
	timer clock.Timer
	gen   uint64
}

func (t *genTimer) Arm(d time.Duration, fire func(gen uint64)) {
	t.Stop()
	gen := t.gen
	t.timer = t.clock.AfterFunc(d, func() { fire(gen) })
}

func (t *genTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func (t *genTimer) Armed() bool { return t.timer != nil }

// Accept consumes a firing of generation gen.
func (t *genTimer) Accept(gen uint64) bool {
	if t.timer == nil || gen != t.gen {
		return false
	}
	t.timer = nil
	t.gen++
	return true
}

// ConnectivityMonitor is the one-shot bootstrap deadline.
type ConnectivityMonitor struct {
	timeout time.Duration
	timer   genTimer
}

func NewConnectivityMonitor(clk clock.Clock, timeout time.Duration) *ConnectivityMonitor {
	return &ConnectivityMonitor{timeout: timeout, timer: genTimer{clock: clk}}
}

func (m *ConnectivityMonitor) Arm(fire func(gen uint64)) { m.timer.Arm(m.timeout, fire) }
func (m *ConnectivityMonitor) Cancel()                   { m.timer.Stop() }
func (m *ConnectivityMonitor) Armed() bool               { return m.timer.Armed() }
func (m *ConnectivityMonitor) Expired(gen uint64) bool   { return m.timer.Accept(gen) }
