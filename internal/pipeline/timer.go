package pipeline

import "time"

// intervalTimer wraps time.Timer with the drain-then-reset dance so the
// monitor loop cannot double-fire after an early event-driven pass.
type intervalTimer struct {
	C        <-chan time.Time
	t        *time.Timer
	interval time.Duration
}

func newIntervalTimer(interval time.Duration) *intervalTimer {
	t := time.NewTimer(interval)
	return &intervalTimer{C: t.C, t: t, interval: interval}
}

func (it *intervalTimer) Reset() {
	if !it.t.Stop() {
		select {
		case <-it.t.C:
		default:
		}
	}
	it.t.Reset(it.interval)
}

func (it *intervalTimer) Stop() {
	it.t.Stop()
}
