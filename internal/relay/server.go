package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"LiveBoard/internal/protocol"
)

const (
	defaultSendBuffer   = 256
	defaultWriteTimeout = 10 * time.Second
	busTimeout          = 5 * time.Second
)

type Options struct {
	Bus     Bus
	Logger  *slog.Logger
	Metrics *Metrics
	// SendBuffer is the number of frames queued per client before the
	// client is considered too slow and disconnected.
	SendBuffer   int
	WriteTimeout time.Duration
}

// Server is a room relay. Clients enter a room, get a zero-based id, and
// every frame one of them broadcasts is delivered to all members of the
// room, the sender included. The relay never looks inside broadcast
// payloads.
type Server struct {
	bus      Bus
	log      *slog.Logger
	metrics  *Metrics
	buffer   int
	timeout  time.Duration
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]*room
	peers map[*peer]struct{}
}

// room holds the members of one room connected to this node.
type room struct {
	peers       map[*peer]struct{}
	unsubscribe func()
}

func NewServer(opts Options) *Server {
	if opts.Bus == nil {
		opts.Bus = NewMemoryBus()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	return &Server{
		bus:     opts.Bus,
		log:     opts.Logger,
		metrics: opts.Metrics,
		buffer:  opts.SendBuffer,
		timeout: opts.WriteTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rooms: make(map[string]*room),
		peers: make(map[*peer]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the client until it goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	p := newPeer(conn, s.buffer, s.timeout, s.metrics)
	s.track(p, true)
	defer s.track(p, false)

	go p.writeLoop()
	defer p.close()
	defer s.leave(p)

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !p.closed() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read failed", "remote", r.RemoteAddr, "err", err)
			}
			return
		}
		s.dispatch(ctx, p, data)
	}
}

func (s *Server) dispatch(ctx context.Context, p *peer, data []byte) {
	m, err := protocol.Decode(data)
	if err != nil {
		s.metrics.frame("invalid")
		var perr *protocol.ProtocolError
		if errors.As(err, &perr) {
			p.enqueueMessage(protocol.RelayError{Parts: []any{perr.Tag, perr.Reason}})
		}
		return
	}
	switch m := m.(type) {
	case protocol.Heartbeat:
		s.metrics.frame("heartbeat")
		return
	case protocol.EnterRoom:
		s.metrics.frame(m.Tag())
		if err := s.enter(ctx, p, m.Room); err != nil {
			s.log.Error("enter room failed", "room", m.Room, "err", err)
			p.enqueueMessage(protocol.RelayError{Parts: []any{m.Tag(), err.Error()}})
		}
	case protocol.ExitRoom:
		s.metrics.frame(m.Tag())
		s.leave(p)
	case protocol.SubscribeCount:
		s.metrics.frame(m.Tag())
		s.subscribeCount(ctx, p, true)
	case protocol.UnsubscribeCount:
		s.metrics.frame(m.Tag())
		s.subscribeCount(ctx, p, false)
	case protocol.Broadcast:
		s.metrics.frame(m.Tag())
		s.broadcast(ctx, p, m)
	default:
		s.metrics.frame("unknown")
		p.enqueueMessage(protocol.RelayError{Parts: []any{m.Tag(), "unknown command"}})
	}
}

func (s *Server) enter(ctx context.Context, p *peer, name string) error {
	s.leave(p)

	id, err := s.bus.Join(ctx, name)
	if err != nil {
		return err
	}
	if err := s.attach(ctx, p, name, id); err != nil {
		_ = s.bus.Leave(ctx, name, id)
		return err
	}
	p.enqueueMessage(protocol.ClientID{Wire: id})
	s.log.Info("entered room", "room", name, "id", id)
	s.publishCount(ctx, name)
	return nil
}

// attach adds p to the local members of name, subscribing this node to
// the room on its first local member.
func (s *Server) attach(ctx context.Context, p *peer, name string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		unsubscribe, err := s.bus.Subscribe(ctx, name, func(ev Event) { s.deliver(name, ev) })
		if err != nil {
			return err
		}
		r = &room{peers: make(map[*peer]struct{}), unsubscribe: unsubscribe}
		s.rooms[name] = r
		s.metrics.roomOpened(1)
	}
	r.peers[p] = struct{}{}
	p.room, p.id, p.joined = name, id, true
	return nil
}

// leave removes p from its room, if it is in one.
func (s *Server) leave(p *peer) {
	s.mu.Lock()
	if !p.joined {
		s.mu.Unlock()
		return
	}
	name, id := p.room, p.id
	p.room, p.id, p.joined = "", 0, false
	var unsubscribe func()
	if r, ok := s.rooms[name]; ok {
		delete(r.peers, p)
		if len(r.peers) == 0 {
			delete(s.rooms, name)
			unsubscribe = r.unsubscribe
			s.metrics.roomOpened(-1)
		}
	}
	s.mu.Unlock()

	// Unsubscribe waits for in-flight deliveries, which take s.mu.
	if unsubscribe != nil {
		unsubscribe()
	}
	ctx, cancel := context.WithTimeout(context.Background(), busTimeout)
	defer cancel()
	if err := s.bus.Leave(ctx, name, id); err != nil {
		s.log.Error("leave room failed", "room", name, "id", id, "err", err)
	}
	s.log.Info("left room", "room", name, "id", id)
	s.publishCount(ctx, name)
}

func (s *Server) subscribeCount(ctx context.Context, p *peer, on bool) {
	s.mu.Lock()
	p.counting = on
	name, joined := p.room, p.joined
	s.mu.Unlock()
	if !on || !joined {
		return
	}
	n, err := s.bus.Count(ctx, name)
	if err != nil {
		s.log.Error("count failed", "room", name, "err", err)
		return
	}
	p.enqueueMessage(protocol.ClientCount{Count: n})
}

func (s *Server) broadcast(ctx context.Context, p *peer, m protocol.Broadcast) {
	s.mu.Lock()
	name, joined := p.room, p.joined
	s.mu.Unlock()
	if !joined {
		p.enqueueMessage(protocol.RelayError{Parts: []any{m.Tag(), "not in a room"}})
		return
	}
	if err := s.bus.Publish(ctx, name, Event{Kind: EventBroadcast, Payload: m.Payload}); err != nil {
		s.log.Error("publish failed", "room", name, "err", err)
	}
}

func (s *Server) publishCount(ctx context.Context, name string) {
	n, err := s.bus.Count(ctx, name)
	if err != nil {
		s.log.Error("count failed", "room", name, "err", err)
		return
	}
	if err := s.bus.Publish(ctx, name, Event{Kind: EventCount, Count: n}); err != nil {
		s.log.Error("publish count failed", "room", name, "err", err)
	}
}

// deliver hands a room event to the local members it concerns.
func (s *Server) deliver(name string, ev Event) {
	var data []byte
	switch ev.Kind {
	case EventBroadcast:
		data = ev.Payload
	case EventCount:
		var err error
		if data, err = protocol.Encode(protocol.ClientCount{Count: ev.Count}); err != nil {
			return
		}
	default:
		s.log.Warn("unknown bus event", "room", name, "kind", ev.Kind)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return
	}
	for p := range r.peers {
		if ev.Kind == EventCount && !p.counting {
			continue
		}
		p.enqueue(data)
	}
}

func (s *Server) track(p *peer, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.peers[p] = struct{}{}
		s.metrics.clientConnected(1)
		return
	}
	delete(s.peers, p)
	s.metrics.clientConnected(-1)
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()
	for _, p := range peers {
		p.close()
	}
}
