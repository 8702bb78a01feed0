package state

import (
	"cmp"
	"slices"

	"LiveBoard/internal/protocol"
)

// activeStroke is the local stroke being drawn. The zero value means no
// stroke is active; Drawing only moves between none and active.
type activeStroke struct {
	index int
	live  bool
}

// Drawing is a participant's replica of every owner's strokes.
type Drawing struct {
	strokes         map[protocol.ParticipantID][]Stroke
	active          activeStroke
	drawnSinceClear bool
}

func NewDrawing() *Drawing {
	return &Drawing{strokes: make(map[protocol.ParticipantID][]Stroke)}
}

// Active reports whether a local stroke is in progress.
func (d *Drawing) Active() bool { return d.active.live }

// DrawnSinceClear reports whether this participant proposed a lock since
// the canvas was last cleared.
func (d *Drawing) DrawnSinceClear() bool { return d.drawnSinceClear }

func (d *Drawing) markDrawn() { d.drawnSinceClear = true }

// Empty reports whether no owner has any stroke.
func (d *Drawing) Empty() bool {
	for _, strokes := range d.strokes {
		if len(strokes) > 0 {
			return false
		}
	}
	return true
}

// Len returns the total number of strokes across owners.
func (d *Drawing) Len() int {
	n := 0
	for _, strokes := range d.strokes {
		n += len(strokes)
	}
	return n
}

// StartLocal begins a stroke owned by self. It returns false, and does
// nothing, while another local stroke is still active.
func (d *Drawing) StartLocal(self protocol.ParticipantID, p protocol.Point, color string, size float64, createdAt int64) (protocol.Start, bool) {
	if d.active.live {
		return protocol.Start{}, false
	}
	d.strokes[self] = append(d.strokes[self], Stroke{
		Owner:     self,
		Points:    []protocol.Point{p},
		Color:     color,
		Size:      size,
		CreatedAt: createdAt,
	})
	d.active = activeStroke{index: len(d.strokes[self]) - 1, live: true}
	return protocol.Start{Owner: self, Point: p, Color: color, Size: size, CreatedAt: createdAt}, true
}

// PointLocal extends the active local stroke.
func (d *Drawing) PointLocal(self protocol.ParticipantID, p protocol.Point) (protocol.Move, bool) {
	if !d.active.live {
		return protocol.Move{}, false
	}
	strokes := d.strokes[self]
	if d.active.index >= len(strokes) {
		d.active = activeStroke{}
		return protocol.Move{}, false
	}
	strokes[d.active.index].Points = append(strokes[d.active.index].Points, p)
	return protocol.Move{Owner: self, Point: p}, true
}

// EndLocal freezes the active local stroke.
func (d *Drawing) EndLocal(self protocol.ParticipantID) (protocol.End, bool) {
	if !d.active.live {
		return protocol.End{}, false
	}
	d.active = activeStroke{}
	return protocol.End{Owner: self}, true
}

// ApplyStart appends a stroke announced by its owner.
func (d *Drawing) ApplyStart(m protocol.Start) {
	d.strokes[m.Owner] = append(d.strokes[m.Owner], Stroke{
		Owner:     m.Owner,
		Points:    []protocol.Point{m.Point},
		Color:     m.Color,
		Size:      m.Size,
		CreatedAt: m.CreatedAt,
	})
}

// ApplyMove extends the owner's most recent stroke.
func (d *Drawing) ApplyMove(m protocol.Move) error {
	strokes := d.strokes[m.Owner]
	if len(strokes) == 0 {
		return &StaleReferenceError{Tag: protocol.TagMove, Owner: m.Owner}
	}
	last := len(strokes) - 1
	strokes[last].Points = append(strokes[last].Points, m.Point)
	return nil
}

// ApplyEnd has no effect on geometry; start and move already carry it.
func (d *Drawing) ApplyEnd(m protocol.End) error {
	if len(d.strokes[m.Owner]) == 0 {
		return &StaleReferenceError{Tag: protocol.TagEnd, Owner: m.Owner}
	}
	return nil
}

// Clear empties every owner's strokes. An active local stroke is dropped
// with them, so later pointer moves are ignored until the next start.
func (d *Drawing) Clear() {
	clear(d.strokes)
	d.active = activeStroke{}
	d.drawnSinceClear = false
}

// Strokes returns a copy of owner's strokes in creation order.
func (d *Drawing) Strokes(owner protocol.ParticipantID) []Stroke {
	strokes := d.strokes[owner]
	out := make([]Stroke, len(strokes))
	for i, s := range strokes {
		out[i] = s.clone()
	}
	return out
}

func (d *Drawing) owners() []protocol.ParticipantID {
	owners := make([]protocol.ParticipantID, 0, len(d.strokes))
	for owner, strokes := range d.strokes {
		if len(strokes) > 0 {
			owners = append(owners, owner)
		}
	}
	slices.Sort(owners)
	return owners
}

// Snapshot flattens the replica into canvas-data records, owners ascending
// and each owner's strokes in creation order.
func (d *Drawing) Snapshot() []protocol.StrokeRecord {
	out := make([]protocol.StrokeRecord, 0, d.Len())
	for _, owner := range d.owners() {
		for _, s := range d.strokes[owner] {
			out = append(out, s.Record())
		}
	}
	return out
}

// Restore replaces the whole replica with records. Records without a
// creation time are stamped with now. Strokes self drew after asking for
// the snapshot are not in it, so they are kept after the restored ones and
// an active stroke stays active.
func (d *Drawing) Restore(self protocol.ParticipantID, records []protocol.StrokeRecord, now int64) {
	local := d.strokes[self]
	clear(d.strokes)
	for _, r := range records {
		s := strokeFromRecord(r)
		if s.CreatedAt == 0 {
			s.CreatedAt = now
		}
		d.strokes[s.Owner] = append(d.strokes[s.Owner], s)
	}
	if len(local) == 0 {
		d.active = activeStroke{}
		return
	}
	offset := len(d.strokes[self])
	d.strokes[self] = append(d.strokes[self], local...)
	if d.active.live {
		d.active.index += offset
	}
}

// RenderOrder flattens all strokes and sorts them by creation time. Ties
// fall back to owner and then creation order within the owner, so every
// replica paints the same sequence regardless of arrival order.
func (d *Drawing) RenderOrder() []Stroke {
	type ranked struct {
		stroke Stroke
		index  int
	}
	all := make([]ranked, 0, d.Len())
	for owner, strokes := range d.strokes {
		for i, s := range strokes {
			s.Owner = owner
			all = append(all, ranked{stroke: s.clone(), index: i})
		}
	}
	slices.SortFunc(all, func(a, b ranked) int {
		return cmp.Or(
			cmp.Compare(a.stroke.CreatedAt, b.stroke.CreatedAt),
			cmp.Compare(a.stroke.Owner, b.stroke.Owner),
			cmp.Compare(a.index, b.index),
		)
	})
	out := make([]Stroke, len(all))
	for i, r := range all {
		out[i] = r.stroke
	}
	return out
}
