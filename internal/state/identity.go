package state

import "LiveBoard/internal/protocol"

// PrimaryID is the participant that answers canvas and chat catch-up
// requests. Nobody takes over when it leaves.
const PrimaryID protocol.ParticipantID = 1

// Identity tracks who this participant is and how many are connected.
type Identity struct {
	self  protocol.ParticipantID
	count int
}

// Assign records the id the relay handed out and returns its local form.
func (i *Identity) Assign(m protocol.ClientID) protocol.ParticipantID {
	i.self = m.Local()
	return i.self
}

// SetCount stores the announced membership count. It is display only.
func (i *Identity) SetCount(n int) { i.count = max(n, 0) }

// Reset forgets the assigned id; it is the only teardown there is.
func (i *Identity) Reset() { i.self = 0 }

func (i *Identity) Self() protocol.ParticipantID { return i.self }

func (i *Identity) Count() int { return i.count }

func (i *Identity) Joined() bool { return i.self > 0 }

func (i *Identity) Primary() bool { return i.self == PrimaryID }
