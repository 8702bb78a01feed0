package state

import "time"

// DefaultLockDuration is how long clearing stays locked after the first
// stroke on a fresh canvas.
const DefaultLockDuration = 90 * time.Second

// ClearLock is the shared belief about when clearing becomes permitted.
// There is no owner or version: whichever clear-lock arrives last wins.
// A lost race costs a few seconds of drift, never data.
type ClearLock struct {
	until int64
}

// Apply overwrites the lock and reports whether the value changed.
func (l *ClearLock) Apply(until int64) bool {
	changed := l.until != until
	l.until = until
	return changed
}

// Until returns the unix-millisecond instant the lock expires at.
func (l *ClearLock) Until() int64 { return l.until }

// Active reports whether clearing is still locked at now.
func (l *ClearLock) Active(now time.Time) bool { return millis(now) < l.until }

// Remaining returns how long the lock still holds, zero once expired.
func (l *ClearLock) Remaining(now time.Time) time.Duration {
	left := time.Duration(l.until-millis(now)) * time.Millisecond
	return max(left, 0)
}
