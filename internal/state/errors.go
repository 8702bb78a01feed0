package state

import (
	"errors"
	"fmt"

	"LiveBoard/internal/protocol"
)

var (
	// ErrStaleReference marks a move or end for an owner with no strokes.
	// It is expected under reordering and never fatal.
	ErrStaleReference = errors.New("stale stroke reference")
	// ErrNotJoined is returned for local actions before the relay assigned an id.
	ErrNotJoined = errors.New("not joined")
	// ErrClearLocked is returned when a local clear is asked for while locked.
	ErrClearLocked = errors.New("clear is locked")
)

// StaleReferenceError carries which message referenced an unknown stroke.
type StaleReferenceError struct {
	Tag   string
	Owner protocol.ParticipantID
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("%s from %s: %v", e.Tag, e.Owner, ErrStaleReference)
}

func (e *StaleReferenceError) Is(target error) bool { return target == ErrStaleReference }
