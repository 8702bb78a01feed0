package state

import (
	"strconv"
	"time"

	"LiveBoard/internal/protocol"
)

// View is an immutable picture of a replica for renderers and exporters.
// Strokes are already in render order.
type View struct {
	Self        protocol.ParticipantID
	Count       int
	Joined      bool
	Connected   bool
	Strokes     []Stroke
	Chat        []string
	LockedUntil time.Time
	Locked      bool
	CanClear    bool
	Drawing     bool
}

// LockRemaining returns the time left on the clear lock at now.
func (v View) LockRemaining(now time.Time) time.Duration {
	if v.LockedUntil.IsZero() {
		return 0
	}
	return max(v.LockedUntil.Sub(now), 0)
}

// Indicator renders the "#self/count" badge.
func (v View) Indicator() string {
	return v.Self.String() + "/" + strconv.Itoa(v.Count)
}
