package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusReusesLowestFreeID(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	for want := range 3 {
		id, err := bus.Join(ctx, "r")
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	require.NoError(t, bus.Leave(ctx, "r", 1))
	id, err := bus.Join(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	n, err := bus.Count(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	var got []Event
	unsubscribe, err := bus.Subscribe(ctx, "r", func(ev Event) { got = append(got, ev) })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "r", Event{Kind: EventCount, Count: 1}))
	require.NoError(t, bus.Publish(ctx, "other", Event{Kind: EventCount, Count: 9}))
	unsubscribe()
	require.NoError(t, bus.Publish(ctx, "r", Event{Kind: EventCount, Count: 2}))

	assert.Equal(t, []Event{{Kind: EventCount, Count: 1}}, got)
	assert.Empty(t, bus.rooms)
}
