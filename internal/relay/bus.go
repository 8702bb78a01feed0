package relay

import (
	"context"
	"encoding/json"
	"sync"
)

const (
	EventBroadcast = "broadcast"
	EventCount     = "count"
)

// Event is room traffic exchanged between relay nodes.
type Event struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Count   int             `json:"count,omitempty"`
	Node    string          `json:"node,omitempty"`
}

// Bus owns room membership and carries room events to every relay node
// that has members in the room. Events of one publisher arrive in the
// order they were published.
type Bus interface {
	// Join allocates the lowest free zero-based id in room.
	Join(ctx context.Context, room string) (int, error)
	Leave(ctx context.Context, room string, id int) error
	Count(ctx context.Context, room string) (int, error)
	Publish(ctx context.Context, room string, ev Event) error
	// Subscribe calls fn for every event published to room until the
	// returned function is called.
	Subscribe(ctx context.Context, room string, fn func(Event)) (func(), error)
	Close() error
}

// MemoryBus is a single-node Bus.
type MemoryBus struct {
	mu     sync.Mutex
	rooms  map[string]*memoryRoom
	nextID int
}

type memoryRoom struct {
	ids  map[int]struct{}
	subs map[int]func(Event)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{rooms: make(map[string]*memoryRoom)}
}

func (b *MemoryBus) room(name string) *memoryRoom {
	r, ok := b.rooms[name]
	if !ok {
		r = &memoryRoom{ids: make(map[int]struct{}), subs: make(map[int]func(Event))}
		b.rooms[name] = r
	}
	return r
}

func (b *MemoryBus) gc(name string) {
	if r, ok := b.rooms[name]; ok && len(r.ids) == 0 && len(r.subs) == 0 {
		delete(b.rooms, name)
	}
}

func (b *MemoryBus) Join(_ context.Context, room string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.room(room)
	id := 0
	for {
		if _, taken := r.ids[id]; !taken {
			break
		}
		id++
	}
	r.ids[id] = struct{}{}
	return id, nil
}

func (b *MemoryBus) Leave(_ context.Context, room string, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.rooms[room]; ok {
		delete(r.ids, id)
		b.gc(room)
	}
	return nil
}

func (b *MemoryBus) Count(_ context.Context, room string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.rooms[room]; ok {
		return len(r.ids), nil
	}
	return 0, nil
}

// Publish delivers ev synchronously, so a publisher's events keep their order.
func (b *MemoryBus) Publish(_ context.Context, room string, ev Event) error {
	b.mu.Lock()
	r, ok := b.rooms[room]
	var subs []func(Event)
	if ok {
		subs = make([]func(Event), 0, len(r.subs))
		for _, fn := range r.subs {
			subs = append(subs, fn)
		}
	}
	b.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, room string, fn func(Event)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	key := b.nextID
	b.room(room).subs[key] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r, ok := b.rooms[room]; ok {
			delete(r.subs, key)
			b.gc(room)
		}
	}, nil
}

func (b *MemoryBus) Close() error { return nil }
