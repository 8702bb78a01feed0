package protocol

import (
	"encoding/json"
	"strconv"
)

// Relay control tags.
const (
	TagEnterRoom        = "*enter-room*"
	TagExitRoom         = "*exit-room*"
	TagSubscribeCount   = "*subscribe-client-count*"
	TagUnsubscribeCount = "*unsubscribe-client-count*"
	TagBroadcast        = "*broadcast-message*"
	TagClientID         = "*client-id*"
	TagClientCount      = "*client-count*"
	TagError            = "*error*"
)

// Replication tags, exchanged between participants through the relay.
const (
	TagStart            = "start"
	TagMove             = "move"
	TagEnd              = "end"
	TagClear            = "clear"
	TagClearLock        = "clear-lock"
	TagRequestClearLock = "request-clear-lock"
	TagRequestCanvas    = "request-canvas"
	TagCanvasData       = "canvas-data"
	TagRequestChat      = "request-chat"
	TagChatHistory      = "chat-history"
	TagChat             = "chat"
)

// ParticipantID is the one-based local id of a participant. Zero means
// unassigned.
type ParticipantID int

func (id ParticipantID) String() string {
	if id <= 0 {
		return "-"
	}
	return "#" + strconv.Itoa(int(id))
}

// Point is a position in the unit square, independent of canvas size.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StrokeRecord is the snapshot form of one stroke inside canvas-data.
type StrokeRecord struct {
	ID        ParticipantID `json:"id"`
	Points    []Point       `json:"points"`
	Color     string        `json:"color"`
	Size      float64       `json:"size"`
	CreatedAt int64         `json:"createdAt"`
}

// Heartbeat is the empty keep-alive frame.
type Heartbeat struct{}

func (Heartbeat) Tag() string   { return "" }
func (Heartbeat) Fields() []any { return nil }

type EnterRoom struct{ Room string }

func (EnterRoom) Tag() string     { return TagEnterRoom }
func (m EnterRoom) Fields() []any { return []any{m.Room} }

type ExitRoom struct{}

func (ExitRoom) Tag() string   { return TagExitRoom }
func (ExitRoom) Fields() []any { return nil }

type SubscribeCount struct{}

func (SubscribeCount) Tag() string   { return TagSubscribeCount }
func (SubscribeCount) Fields() []any { return nil }

type UnsubscribeCount struct{}

func (UnsubscribeCount) Tag() string   { return TagUnsubscribeCount }
func (UnsubscribeCount) Fields() []any { return nil }

// Broadcast asks the relay to deliver Payload to every room member,
// the sender included. The relay never looks inside Payload.
type Broadcast struct{ Payload json.RawMessage }

func (Broadcast) Tag() string     { return TagBroadcast }
func (m Broadcast) Fields() []any { return []any{m.Payload} }

// ClientID carries the zero-based id the relay assigned to this connection.
type ClientID struct{ Wire int }

func (ClientID) Tag() string     { return TagClientID }
func (m ClientID) Fields() []any { return []any{m.Wire} }

// Local converts the wire id to the participant id used everywhere else.
func (m ClientID) Local() ParticipantID { return ParticipantID(m.Wire + 1) }

type ClientCount struct{ Count int }

func (ClientCount) Tag() string     { return TagClientCount }
func (m ClientCount) Fields() []any { return []any{m.Count} }

// RelayError is reported by the relay; it is only ever logged.
type RelayError struct{ Parts []any }

func (RelayError) Tag() string     { return TagError }
func (m RelayError) Fields() []any { return []any{m.Parts} }

type Start struct {
	Owner     ParticipantID
	Point     Point
	Color     string
	Size      float64
	CreatedAt int64
}

func (Start) Tag() string { return TagStart }
func (m Start) Fields() []any {
	return []any{m.Owner, m.Point.X, m.Point.Y, m.Color, m.Size, m.CreatedAt}
}

type Move struct {
	Owner ParticipantID
	Point Point
}

func (Move) Tag() string     { return TagMove }
func (m Move) Fields() []any { return []any{m.Owner, m.Point.X, m.Point.Y} }

type End struct{ Owner ParticipantID }

func (End) Tag() string     { return TagEnd }
func (m End) Fields() []any { return []any{m.Owner} }

type Clear struct{}

func (Clear) Tag() string   { return TagClear }
func (Clear) Fields() []any { return nil }

// ClearLock carries the unix-millisecond instant before which clearing is
// discouraged.
type ClearLock struct{ Until int64 }

func (ClearLock) Tag() string     { return TagClearLock }
func (m ClearLock) Fields() []any { return []any{m.Until} }

type RequestClearLock struct{}

func (RequestClearLock) Tag() string   { return TagRequestClearLock }
func (RequestClearLock) Fields() []any { return nil }

type RequestCanvas struct{ Target ParticipantID }

func (RequestCanvas) Tag() string     { return TagRequestCanvas }
func (m RequestCanvas) Fields() []any { return []any{m.Target} }

type CanvasData struct {
	Target  ParticipantID
	Strokes []StrokeRecord
}

func (CanvasData) Tag() string { return TagCanvasData }
func (m CanvasData) Fields() []any {
	strokes := m.Strokes
	if strokes == nil {
		strokes = []StrokeRecord{}
	}
	return []any{m.Target, strokes}
}

type RequestChat struct{ Target ParticipantID }

func (RequestChat) Tag() string     { return TagRequestChat }
func (m RequestChat) Fields() []any { return []any{m.Target} }

type ChatHistory struct {
	Target  ParticipantID
	Entries []string
}

func (ChatHistory) Tag() string { return TagChatHistory }
func (m ChatHistory) Fields() []any {
	entries := m.Entries
	if entries == nil {
		entries = []string{}
	}
	return []any{m.Target, entries}
}

type Chat struct {
	Sender ParticipantID
	Text   string
}

func (Chat) Tag() string     { return TagChat }
func (m Chat) Fields() []any { return []any{m.Sender, m.Text} }

var parsers = map[string]func(fields) (Message, error){
	TagEnterRoom:        single(func(room string) Message { return EnterRoom{Room: room} }),
	TagExitRoom:         func(fields) (Message, error) { return ExitRoom{}, nil },
	TagSubscribeCount:   func(fields) (Message, error) { return SubscribeCount{}, nil },
	TagUnsubscribeCount: func(fields) (Message, error) { return UnsubscribeCount{}, nil },
	TagBroadcast: func(f fields) (Message, error) {
		if len(f.raw) == 0 {
			return nil, &ProtocolError{Tag: f.tag, Reason: "missing payload"}
		}
		return Broadcast{Payload: f.raw[0]}, nil
	},
	TagClientID:    single(func(wire int) Message { return ClientID{Wire: wire} }),
	TagClientCount: single(func(n int) Message { return ClientCount{Count: n} }),
	TagError: func(f fields) (Message, error) {
		var m RelayError
		if _, err := f.optional(0, &m.Parts); err != nil {
			// Some relays report a bare string; keep whatever was sent.
			var s any
			if _, err := f.optional(0, &s); err != nil {
				return nil, err
			}
			m.Parts = []any{s}
		}
		return m, nil
	},
	TagStart: func(f fields) (Message, error) {
		var m Start
		var err error
		if err = f.required(0, &m.Owner); err != nil {
			return nil, err
		}
		if m.Point, err = f.point(1); err != nil {
			return nil, err
		}
		if _, err = f.optional(3, &m.Color); err != nil {
			return nil, err
		}
		if _, err = f.optional(4, &m.Size); err != nil {
			return nil, err
		}
		if _, err = f.optional(5, &m.CreatedAt); err != nil {
			return nil, err
		}
		return m, nil
	},
	TagMove: func(f fields) (Message, error) {
		var m Move
		var err error
		if err = f.required(0, &m.Owner); err != nil {
			return nil, err
		}
		if m.Point, err = f.point(1); err != nil {
			return nil, err
		}
		return m, nil
	},
	TagEnd:              single(func(owner ParticipantID) Message { return End{Owner: owner} }),
	TagClear:            func(fields) (Message, error) { return Clear{}, nil },
	TagClearLock:        single(func(until int64) Message { return ClearLock{Until: until} }),
	TagRequestClearLock: func(fields) (Message, error) { return RequestClearLock{}, nil },
	TagRequestCanvas:    single(func(target ParticipantID) Message { return RequestCanvas{Target: target} }),
	TagCanvasData: func(f fields) (Message, error) {
		var m CanvasData
		if err := f.required(0, &m.Target); err != nil {
			return nil, err
		}
		if err := f.required(1, &m.Strokes); err != nil {
			return nil, err
		}
		return m, nil
	},
	TagRequestChat: single(func(target ParticipantID) Message { return RequestChat{Target: target} }),
	TagChatHistory: func(f fields) (Message, error) {
		var m ChatHistory
		if err := f.required(0, &m.Target); err != nil {
			return nil, err
		}
		if err := f.required(1, &m.Entries); err != nil {
			return nil, err
		}
		return m, nil
	},
	TagChat: func(f fields) (Message, error) {
		var m Chat
		if err := f.required(0, &m.Sender); err != nil {
			return nil, err
		}
		if err := f.required(1, &m.Text); err != nil {
			return nil, err
		}
		return m, nil
	},
}

// single builds a parser for tags carrying exactly one required field.
func single[T any](build func(T) Message) func(fields) (Message, error) {
	return func(f fields) (Message, error) {
		var v T
		if err := f.required(0, &v); err != nil {
			return nil, err
		}
		return build(v), nil
	}
}
