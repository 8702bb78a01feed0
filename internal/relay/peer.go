package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"LiveBoard/internal/protocol"
)

// peer is one websocket client of the relay. Only the write loop writes
// to conn; everyone else goes through enqueue.
type peer struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	timeout time.Duration
	metrics *Metrics

	// Guarded by Server.mu.
	room     string
	id       int
	joined   bool
	counting bool
}

func newPeer(conn *websocket.Conn, buffer int, timeout time.Duration, metrics *Metrics) *peer {
	return &peer{
		conn:    conn,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
		timeout: timeout,
		metrics: metrics,
	}
}

// enqueue queues data for the write loop. A peer whose buffer is full is
// closed instead of blocking the room.
func (p *peer) enqueue(data []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.send <- data:
		return true
	default:
		p.metrics.slowClient()
		p.close()
		return false
	}
}

func (p *peer) enqueueMessage(m protocol.Message) bool {
	data, err := protocol.Encode(m)
	if err != nil {
		return false
	}
	return p.enqueue(data)
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

func (p *peer) closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case data := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(p.timeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				p.close()
				return
			}
		}
	}
}
