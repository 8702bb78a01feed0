package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBus shares rooms between relay nodes through Redis: membership in
// a set per room, events over a pub/sub channel per room. Ids held by a
// node are released when the node closes the bus.
type RedisBus struct {
	rdb  redis.UniversalClient
	node string
	log  *slog.Logger

	mu   sync.Mutex
	held map[string]map[int]struct{}
}

func NewRedisBus(rdb redis.UniversalClient, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	node := uuid.NewString()
	return &RedisBus{
		rdb:  rdb,
		node: node,
		log:  logger.With("node", node),
		held: make(map[string]map[int]struct{}),
	}
}

// Node identifies this relay node on the bus.
func (b *RedisBus) Node() string { return b.node }

func (b *RedisBus) Join(ctx context.Context, room string) (int, error) {
	// SADD is atomic, so the first id it reports as newly added is ours
	// even with other nodes allocating concurrently.
	for id := 0; ; id++ {
		added, err := b.rdb.SAdd(ctx, membersKey(room), id).Result()
		if err != nil {
			return 0, fmt.Errorf("allocate id in %q: %w", room, err)
		}
		if added == 1 {
			b.hold(room, id, true)
			return id, nil
		}
	}
}

func (b *RedisBus) Leave(ctx context.Context, room string, id int) error {
	b.hold(room, id, false)
	if err := b.rdb.SRem(ctx, membersKey(room), id).Err(); err != nil {
		return fmt.Errorf("release id %d in %q: %w", id, room, err)
	}
	return nil
}

func (b *RedisBus) hold(room string, id int, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := b.held[room]
	if on {
		if ids == nil {
			ids = make(map[int]struct{})
			b.held[room] = ids
		}
		ids[id] = struct{}{}
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(b.held, room)
	}
}

func (b *RedisBus) Count(ctx context.Context, room string) (int, error) {
	n, err := b.rdb.SCard(ctx, membersKey(room)).Result()
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", room, err)
	}
	return int(n), nil
}

func (b *RedisBus) Publish(ctx context.Context, room string, ev Event) error {
	ev.Node = b.node
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.rdb.Publish(ctx, eventsKey(room), data).Err(); err != nil {
		return fmt.Errorf("publish to %q: %w", room, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, room string, fn func(Event)) (func(), error) {
	pubsub := b.rdb.Subscribe(ctx, eventsKey(room))
	// Wait for the subscription to be confirmed so nothing published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %q: %w", room, err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("dropped bus event", "room", room, "err", err)
				continue
			}
			fn(ev)
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}, nil
}

// Close releases every id this node still holds.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	held := b.held
	b.held = make(map[string]map[int]struct{})
	b.mu.Unlock()

	ctx := context.Background()
	for room, ids := range held {
		members := make([]any, 0, len(ids))
		for id := range ids {
			members = append(members, id)
		}
		if err := b.rdb.SRem(ctx, membersKey(room), members...).Err(); err != nil {
			b.log.Warn("release ids failed", "room", room, "err", err)
		}
	}
	return nil
}
