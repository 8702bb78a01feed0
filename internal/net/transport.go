package net

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"LiveBoard/internal/protocol"
)

// ErrTransportClosed is returned once the relay connection is gone. The
// session does not reconnect.
var ErrTransportClosed = errors.New("transport closed")

const writeTimeout = 10 * time.Second

// Transport is a websocket connection to the relay. Send and its wrappers
// must be called from one goroutine; Receive from another.
type Transport struct {
	conn *websocket.Conn
}

// NormalizeURL turns host:port, http and https addresses into websocket
// URLs.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty relay url")
	}
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported relay scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("relay url %q has no host", raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

func Dial(ctx context.Context, rawURL string, timeout time.Duration) (*Transport, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = timeout
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Transport{conn: conn}, nil
}

// Send writes a relay command as is.
func (t *Transport) Send(m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	return t.write(data)
}

// Broadcast wraps m for delivery to the whole room.
func (t *Transport) Broadcast(m protocol.Message) error {
	data, err := protocol.EncodeBroadcast(m)
	if err != nil {
		return err
	}
	return t.write(data)
}

// Heartbeat writes the empty keep-alive frame.
func (t *Transport) Heartbeat() error { return t.write(nil) }

func (t *Transport) write(data []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	return nil
}

// Receive blocks for the next frame. Undecodable frames come back as a
// protocol error and the transport stays usable; any other error means
// the connection is closed.
func (t *Transport) Receive() (protocol.Message, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	return protocol.Decode(data)
}

func (t *Transport) Close() error { return t.conn.Close() }
