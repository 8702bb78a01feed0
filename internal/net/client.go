package net

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

const (
	DefaultRoom      = "interactive-chat"
	DefaultKeepalive = 30 * time.Second
)

type Config struct {
	// URL of the relay. Empty means browse the local network for one.
	URL             string
	Room            string
	Keepalive       time.Duration
	DialTimeout     time.Duration
	DiscoverTimeout time.Duration
	Replica         state.Options
}

// Client is one participant session: it owns the transport and the replica
// and runs every inbound frame, local action, keep-alive and lock expiry
// through a single loop. Renderers read the latest View, which is replaced
// after every change.
type Client struct {
	cfg     Config
	log     *slog.Logger
	replica *state.Replica

	actions chan action
	ready   chan struct{}
	stopped chan struct{}
	view    atomic.Pointer[state.View]

	// OnChange, when set before Run, is called from the loop with every
	// new View. It must not block.
	OnChange func(state.View)

	now func() time.Time
}

type action struct {
	apply  func(now time.Time) ([]protocol.Message, error)
	result chan error
}

type inbound struct {
	msg protocol.Message
	err error
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Room == "" {
		cfg.Room = DefaultRoom
	}
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = DefaultKeepalive
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.DiscoverTimeout <= 0 {
		cfg.DiscoverTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", state.SessionID())
	c := &Client{
		cfg:     cfg,
		log:     logger,
		replica: state.NewReplica(cfg.Replica, logger),
		actions: make(chan action),
		ready:   make(chan struct{}),
		stopped: make(chan struct{}),
		now:     time.Now,
	}
	c.view.Store(&state.View{})
	return c
}

// View returns the most recently published View.
func (c *Client) View() state.View { return *c.view.Load() }

// Done is closed when Run has returned.
func (c *Client) Done() <-chan struct{} { return c.stopped }

// Run connects to the relay and serves the session until ctx is cancelled
// or the connection drops. A dropped connection returns an error wrapping
// ErrTransportClosed.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.stopped)

	addr := c.cfg.URL
	if addr == "" {
		c.log.Info("browsing for relay", "timeout", c.cfg.DiscoverTimeout)
		found, err := Browse(ctx, c.cfg.DiscoverTimeout)
		if err != nil {
			return fmt.Errorf("discover relay: %w", err)
		}
		addr = found
	}
	t, err := Dial(ctx, addr, c.cfg.DialTimeout)
	if err != nil {
		return err
	}
	defer t.Close()
	c.log.Info("connected", "relay", addr, "room", c.cfg.Room)

	if err := t.Send(protocol.EnterRoom{Room: c.cfg.Room}); err != nil {
		return err
	}
	if err := t.Send(protocol.SubscribeCount{}); err != nil {
		return err
	}
	c.publish(true)

	frames := make(chan inbound)
	readerDone := make(chan struct{})
	defer close(readerDone)
	go func() {
		for {
			m, err := t.Receive()
			select {
			case frames <- inbound{msg: m, err: err}:
			case <-readerDone:
				return
			}
			if errors.Is(err, ErrTransportClosed) {
				return
			}
		}
	}()

	keepalive := time.NewTicker(c.cfg.Keepalive)
	defer keepalive.Stop()
	expiry := newLockTimer()
	defer expiry.stop()

	close(c.ready)
	for {
		select {
		case <-ctx.Done():
			_ = t.Send(protocol.ExitRoom{})
			c.disconnect()
			return nil
		case in := <-frames:
			if in.err != nil {
				if errors.Is(in.err, ErrTransportClosed) {
					c.log.Warn("relay connection lost", "err", in.err)
					c.disconnect()
					return in.err
				}
				c.log.Warn("dropped frame", "err", in.err)
				continue
			}
			out, err := c.replica.Handle(c.now(), in.msg)
			c.logHandleError(in.msg, err)
			if err := c.broadcast(t, out); err != nil {
				c.disconnect()
				return err
			}
		case a := <-c.actions:
			out, err := a.apply(c.now())
			a.result <- err
			if err := c.broadcast(t, out); err != nil {
				c.disconnect()
				return err
			}
		case <-keepalive.C:
			if err := t.Heartbeat(); err != nil {
				c.disconnect()
				return err
			}
			continue
		case <-expiry.C():
			c.log.Debug("clear lock expired")
		}
		expiry.arm(c.now(), c.replica.Lock().Until())
		c.publish(true)
	}
}

func (c *Client) logHandleError(m protocol.Message, err error) {
	switch {
	case err == nil:
	case errors.Is(err, state.ErrStaleReference):
		c.log.Debug("ignored stale reference", "tag", m.Tag(), "err", err)
	default:
		c.log.Warn("dropped message", "tag", m.Tag(), "err", err)
	}
}

func (c *Client) broadcast(t *Transport, out []protocol.Message) error {
	for _, m := range out {
		if err := t.Broadcast(m); err != nil {
			c.log.Warn("broadcast failed", "tag", m.Tag(), "err", err)
			return err
		}
	}
	return nil
}

func (c *Client) disconnect() {
	c.replica.Disconnect()
	c.publish(false)
}

func (c *Client) publish(connected bool) {
	v := c.replica.View(c.now())
	v.Connected = connected
	c.view.Store(&v)
	if c.OnChange != nil {
		c.OnChange(v)
	}
}

// do runs apply on the session loop and returns its error. Until the
// loop is running it fails fast with state.ErrNotJoined.
func (c *Client) do(apply func(now time.Time) ([]protocol.Message, error)) error {
	select {
	case <-c.stopped:
		return ErrTransportClosed
	default:
	}
	select {
	case <-c.ready:
	default:
		return state.ErrNotJoined
	}
	a := action{apply: apply, result: make(chan error, 1)}
	select {
	case c.actions <- a:
		return <-a.result
	case <-c.stopped:
		return ErrTransportClosed
	}
}

// StartStroke begins a local stroke at p, a point in the unit square.
func (c *Client) StartStroke(p protocol.Point, color string, size float64) error {
	return c.do(func(now time.Time) ([]protocol.Message, error) {
		return c.replica.StartStroke(now, p, color, size)
	})
}

func (c *Client) ExtendStroke(p protocol.Point) error {
	return c.do(func(time.Time) ([]protocol.Message, error) {
		return c.replica.ExtendStroke(p)
	})
}

func (c *Client) EndStroke() error {
	return c.do(func(time.Time) ([]protocol.Message, error) {
		return c.replica.EndStroke()
	})
}

// Clear wipes the board for everyone. It fails with state.ErrClearLocked
// while the clear lock holds.
func (c *Client) Clear() error {
	return c.do(c.replica.RequestClear)
}

func (c *Client) Chat(text string) error {
	return c.do(func(time.Time) ([]protocol.Message, error) {
		return c.replica.SendChat(text)
	})
}
