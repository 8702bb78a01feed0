package state

import (
	"time"

	"github.com/google/uuid"
)

// millis is the wire representation of every timestamp in the protocol.
func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// SessionID returns a fresh identifier for one connection lifetime. Ids
// assigned by the relay are reused across sessions, this one is not, so
// logs of several participants on one machine stay apart.
func SessionID() string { return uuid.NewString() }
