package state

import (
	"time"

	"LiveBoard/internal/protocol"
)

// joinRequests are broadcast once right after the relay assigns an id.
// request-clear-lock needs no addressee since anyone holding a lock may
// answer; canvas and chat requests carry self so only self applies replies.
func joinRequests(self protocol.ParticipantID) []protocol.Message {
	return []protocol.Message{
		protocol.RequestClearLock{},
		protocol.RequestCanvas{Target: self},
		protocol.RequestChat{Target: self},
	}
}

// answerClearLock re-broadcasts a lock that is still holding. Every locked
// participant answers; duplicates are harmless under last-write-wins.
func (r *Replica) answerClearLock(now time.Time) []protocol.Message {
	if !r.lock.Active(now) {
		return nil
	}
	return []protocol.Message{protocol.ClearLock{Until: r.lock.Until()}}
}

// answerCanvas serves a stroke snapshot when this participant is primary
// and has anything to serve.
func (r *Replica) answerCanvas(m protocol.RequestCanvas) []protocol.Message {
	if !r.identity.Primary() || m.Target == r.identity.Self() || r.drawing.Empty() {
		return nil
	}
	return []protocol.Message{protocol.CanvasData{Target: m.Target, Strokes: r.drawing.Snapshot()}}
}

func (r *Replica) answerChat(m protocol.RequestChat) []protocol.Message {
	if !r.identity.Primary() || m.Target == r.identity.Self() || r.chat.Len() == 0 {
		return nil
	}
	return []protocol.Message{protocol.ChatHistory{Target: m.Target, Entries: r.chat.Entries()}}
}

// applyCanvas replaces the drawing when the snapshot is addressed here.
func (r *Replica) applyCanvas(now time.Time, m protocol.CanvasData) bool {
	if !r.addressed(m.Target) {
		return false
	}
	r.drawing.Restore(r.identity.Self(), m.Strokes, millis(now))
	return true
}

func (r *Replica) applyChatHistory(m protocol.ChatHistory) bool {
	if !r.addressed(m.Target) {
		return false
	}
	r.chat.ReplaceAll(m.Entries)
	return true
}

func (r *Replica) addressed(target protocol.ParticipantID) bool {
	return r.identity.Joined() && target == r.identity.Self()
}
