package net

import "time"

// lockTimer fires once when the clear lock it was last armed with runs
// out, so the View flips to unlocked without any traffic.
type lockTimer struct {
	t     *time.Timer
	until int64
}

func newLockTimer() *lockTimer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return &lockTimer{t: t}
}

func (l *lockTimer) C() <-chan time.Time { return l.t.C }

// arm re-schedules the timer when until changed since the last call.
func (l *lockTimer) arm(now time.Time, until int64) {
	if until == l.until {
		return
	}
	l.until = until
	l.t.Stop()
	if d := time.UnixMilli(until).Sub(now); d > 0 {
		l.t.Reset(d + time.Millisecond)
	}
}

func (l *lockTimer) stop() { l.t.Stop() }
