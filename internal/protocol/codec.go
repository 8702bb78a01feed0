package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolError reports a payload that could not be turned into a Message.
// The dispatcher drops such payloads; they never end a session.
type ProtocolError struct {
	Tag    string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := "protocol: " + e.Reason
	if e.Tag != "" {
		msg = fmt.Sprintf("protocol: %s: %s", e.Tag, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsProtocolError reports whether err is, or wraps, a *ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// Message is one application or relay envelope. On the wire it is a JSON
// array: the tag first, then the positional fields.
type Message interface {
	Tag() string
	Fields() []any
}

// Encode turns m into a relay payload. A Heartbeat encodes to an empty frame.
func Encode(m Message) ([]byte, error) {
	if _, ok := m.(Heartbeat); ok {
		return []byte{}, nil
	}
	parts := append([]any{m.Tag()}, m.Fields()...)
	data, err := json.Marshal(parts)
	if err != nil {
		return nil, &ProtocolError{Tag: m.Tag(), Reason: "encode", Err: err}
	}
	return data, nil
}

// EncodeBroadcast wraps m in the relay's broadcast envelope.
func EncodeBroadcast(m Message) ([]byte, error) {
	inner, err := Encode(m)
	if err != nil {
		return nil, err
	}
	return Encode(Broadcast{Payload: inner})
}

// Decode parses a relay payload. An empty payload is a Heartbeat, not an
// error. Anything that is not a tagged JSON array with the fields its tag
// requires yields a *ProtocolError.
func Decode(data []byte) (Message, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Heartbeat{}, nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, &ProtocolError{Reason: "not a json array", Err: err}
	}
	if len(parts) == 0 {
		return nil, &ProtocolError{Reason: "missing tag"}
	}
	var tag string
	if err := json.Unmarshal(parts[0], &tag); err != nil {
		return nil, &ProtocolError{Reason: "tag is not a string", Err: err}
	}
	parse, ok := parsers[tag]
	if !ok {
		return nil, &ProtocolError{Tag: tag, Reason: "unknown tag"}
	}
	f := fields{tag: tag, raw: parts[1:]}
	m, err := parse(f)
	if err != nil {
		return nil, err
	}
	return m, nil
}

type fields struct {
	tag string
	raw []json.RawMessage
}

// required decodes field i into dst, failing when it is absent or null.
func (f fields) required(i int, dst any) error {
	ok, err := f.optional(i, dst)
	if err != nil {
		return err
	}
	if !ok {
		return &ProtocolError{Tag: f.tag, Reason: fmt.Sprintf("missing field %d", i)}
	}
	return nil
}

// optional decodes field i into dst and reports whether it was present.
// A JSON null counts as absent.
func (f fields) optional(i int, dst any) (bool, error) {
	if i >= len(f.raw) {
		return false, nil
	}
	raw := bytes.TrimSpace(f.raw[i])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, &ProtocolError{Tag: f.tag, Reason: fmt.Sprintf("field %d", i), Err: err}
	}
	return true, nil
}

func (f fields) point(i int) (Point, error) {
	var p Point
	if err := f.required(i, &p.X); err != nil {
		return p, err
	}
	if err := f.required(i+1, &p.Y); err != nil {
		return p, err
	}
	return p, nil
}
