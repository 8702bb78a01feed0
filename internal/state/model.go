package state

import (
	"slices"

	"LiveBoard/internal/protocol"
)

// Stroke is one pointer-down to pointer-up gesture of a single owner.
// Points only ever grow; nothing edits a point once appended.
type Stroke struct {
	Owner     protocol.ParticipantID
	Points    []protocol.Point
	Color     string
	Size      float64
	CreatedAt int64 // unix milliseconds
}

// Visible reports whether the stroke has enough points to paint a segment.
func (s Stroke) Visible() bool { return len(s.Points) > 1 }

func (s Stroke) clone() Stroke {
	s.Points = slices.Clone(s.Points)
	return s
}

// Record converts the stroke into its canvas-data form.
func (s Stroke) Record() protocol.StrokeRecord {
	return protocol.StrokeRecord{
		ID:        s.Owner,
		Points:    slices.Clone(s.Points),
		Color:     s.Color,
		Size:      s.Size,
		CreatedAt: s.CreatedAt,
	}
}

func strokeFromRecord(r protocol.StrokeRecord) Stroke {
	return Stroke{
		Owner:     r.ID,
		Points:    slices.Clone(r.Points),
		Color:     r.Color,
		Size:      r.Size,
		CreatedAt: r.CreatedAt,
	}
}
