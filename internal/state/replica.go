package state

import (
	"log/slog"
	"time"

	"LiveBoard/internal/protocol"
)

const (
	DefaultColor = "#000"
	DefaultSize  = 3
)

type Options struct {
	// LockDuration is how long a freshly proposed clear lock holds.
	LockDuration time.Duration
	// SelfLabel prefixes locally written chat lines.
	SelfLabel string
}

// Replica is one participant's copy of the shared board: identity, strokes,
// the clear lock and the chat log. It is not safe for concurrent use; the
// session loop owns it and feeds it one message at a time.
type Replica struct {
	opts     Options
	log      *slog.Logger
	identity Identity
	drawing  *Drawing
	lock     ClearLock
	chat     *ChatLog
}

func NewReplica(opts Options, logger *slog.Logger) *Replica {
	if opts.LockDuration <= 0 {
		opts.LockDuration = DefaultLockDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Replica{
		opts:    opts,
		log:     logger,
		drawing: NewDrawing(),
		chat:    NewChatLog(opts.SelfLabel),
	}
}

func (r *Replica) Identity() *Identity { return &r.identity }
func (r *Replica) Drawing() *Drawing   { return r.drawing }
func (r *Replica) Lock() *ClearLock    { return &r.lock }
func (r *Replica) Chat() *ChatLog      { return r.chat }

// Handle routes one decoded inbound message and returns what has to be
// broadcast in response. Errors are never fatal: the message is dropped
// and the replica stays as it was.
func (r *Replica) Handle(now time.Time, m protocol.Message) ([]protocol.Message, error) {
	switch m := m.(type) {
	case protocol.Heartbeat:
		return nil, nil
	case protocol.ClientID:
		self := r.identity.Assign(m)
		r.log.Info("joined", "self", self)
		return joinRequests(self), nil
	case protocol.ClientCount:
		r.identity.SetCount(m.Count)
		return nil, nil
	case protocol.RelayError:
		r.log.Warn("relay error", "parts", m.Parts)
		return nil, nil
	case protocol.Start:
		if r.fromSelf(m.Owner) {
			return nil, nil
		}
		if m.Color == "" {
			m.Color = DefaultColor
		}
		if m.Size <= 0 {
			m.Size = DefaultSize
		}
		if m.CreatedAt == 0 {
			m.CreatedAt = millis(now)
		}
		r.drawing.ApplyStart(m)
		return nil, nil
	case protocol.Move:
		if r.fromSelf(m.Owner) {
			return nil, nil
		}
		return nil, r.drawing.ApplyMove(m)
	case protocol.End:
		if r.fromSelf(m.Owner) {
			return nil, nil
		}
		return nil, r.drawing.ApplyEnd(m)
	case protocol.Clear:
		r.drawing.Clear()
		return nil, nil
	case protocol.ClearLock:
		r.lock.Apply(m.Until)
		return nil, nil
	case protocol.RequestClearLock:
		return r.answerClearLock(now), nil
	case protocol.RequestCanvas:
		return r.answerCanvas(m), nil
	case protocol.CanvasData:
		if r.applyCanvas(now, m) {
			r.log.Info("canvas restored", "self", r.identity.Self(), "strokes", len(m.Strokes))
		}
		return nil, nil
	case protocol.RequestChat:
		return r.answerChat(m), nil
	case protocol.ChatHistory:
		if r.applyChatHistory(m) {
			r.log.Info("chat restored", "self", r.identity.Self(), "entries", len(m.Entries))
		}
		return nil, nil
	case protocol.Chat:
		if r.fromSelf(m.Sender) {
			return nil, nil
		}
		r.chat.AppendRemote(m.Sender, m.Text)
		return nil, nil
	default:
		return nil, &protocol.ProtocolError{Tag: m.Tag(), Reason: "not handled by participants"}
	}
}

// fromSelf filters the relay's echo of our own broadcasts; they were
// applied locally when they were sent.
func (r *Replica) fromSelf(owner protocol.ParticipantID) bool {
	return r.identity.Joined() && owner == r.identity.Self()
}

// StartStroke begins a local stroke. The first stroke on a fresh canvas
// also proposes a clear lock unless one is already holding.
func (r *Replica) StartStroke(now time.Time, p protocol.Point, color string, size float64) ([]protocol.Message, error) {
	if !r.identity.Joined() {
		return nil, ErrNotJoined
	}
	if color == "" {
		color = DefaultColor
	}
	if size <= 0 {
		size = DefaultSize
	}
	start, ok := r.drawing.StartLocal(r.identity.Self(), p, color, size, millis(now))
	if !ok {
		return nil, nil
	}
	out := []protocol.Message{start}
	if !r.drawing.DrawnSinceClear() && !r.lock.Active(now) {
		r.drawing.markDrawn()
		until := millis(now.Add(r.opts.LockDuration))
		r.lock.Apply(until)
		out = append(out, protocol.ClearLock{Until: until})
		r.log.Debug("clear lock proposed", "self", r.identity.Self(), "until", until)
	}
	return out, nil
}

// ExtendStroke appends a point to the active local stroke, if any.
func (r *Replica) ExtendStroke(p protocol.Point) ([]protocol.Message, error) {
	if !r.identity.Joined() {
		return nil, ErrNotJoined
	}
	move, ok := r.drawing.PointLocal(r.identity.Self(), p)
	if !ok {
		return nil, nil
	}
	return []protocol.Message{move}, nil
}

// EndStroke finishes the active local stroke, if any.
func (r *Replica) EndStroke() ([]protocol.Message, error) {
	if !r.identity.Joined() {
		return nil, ErrNotJoined
	}
	end, ok := r.drawing.EndLocal(r.identity.Self())
	if !ok {
		return nil, nil
	}
	return []protocol.Message{end}, nil
}

// RequestClear wipes the canvas everywhere unless the lock still holds.
func (r *Replica) RequestClear(now time.Time) ([]protocol.Message, error) {
	if !r.identity.Joined() {
		return nil, ErrNotJoined
	}
	if r.lock.Active(now) {
		return nil, ErrClearLocked
	}
	r.drawing.Clear()
	return []protocol.Message{protocol.Clear{}}, nil
}

// SendChat records and broadcasts one chat line.
func (r *Replica) SendChat(text string) ([]protocol.Message, error) {
	if !r.identity.Joined() {
		return nil, ErrNotJoined
	}
	chat, ok := r.chat.AppendLocal(r.identity.Self(), text)
	if !ok {
		return nil, nil
	}
	return []protocol.Message{chat}, nil
}

// Disconnect forgets the assigned id after the transport closed.
func (r *Replica) Disconnect() {
	r.identity.Reset()
	r.drawing.active = activeStroke{}
}

// View captures everything a renderer needs at now. The returned value
// shares nothing with the replica.
func (r *Replica) View(now time.Time) View {
	locked := r.lock.Active(now)
	return View{
		Self:        r.identity.Self(),
		Count:       r.identity.Count(),
		Joined:      r.identity.Joined(),
		Strokes:     r.drawing.RenderOrder(),
		Chat:        r.chat.Entries(),
		LockedUntil: fromMillis(r.lock.Until()),
		Locked:      locked,
		CanClear:    r.identity.Joined() && !locked && !r.drawing.Empty(),
		Drawing:     r.drawing.Active(),
	}
}
