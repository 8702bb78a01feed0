package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveBoard/internal/protocol"
)

type testRelay struct {
	*httptest.Server
	bus *MemoryBus
	srv *Server
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()
	bus := NewMemoryBus()
	reg := prometheus.NewRegistry()
	srv := NewServer(Options{Bus: bus, Metrics: NewMetrics(reg)})
	ts := httptest.NewServer(srv.Router(reg))
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return &testRelay{Server: ts, bus: bus, srv: srv}
}

func (r *testRelay) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(r.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (r *testRelay) enter(t *testing.T, room string) (*websocket.Conn, int) {
	t.Helper()
	conn := r.dial(t)
	send(t, conn, protocol.EnterRoom{Room: room})
	id, ok := read(t, conn).(protocol.ClientID)
	require.True(t, ok)
	return conn, id.Wire
}

func send(t *testing.T, conn *websocket.Conn, m protocol.Message) {
	t.Helper()
	data, err := protocol.Encode(m)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func broadcast(t *testing.T, conn *websocket.Conn, m protocol.Message) {
	t.Helper()
	data, err := protocol.EncodeBroadcast(m)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func read(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	m, err := protocol.Decode(data)
	require.NoError(t, err)
	return m
}

func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	assert.Error(t, err, "unexpected frame %s", data)
}

func TestEnterRoomAssignsLowestFreeID(t *testing.T) {
	r := newTestRelay(t)
	a, idA := r.enter(t, "board")
	_, idB := r.enter(t, "board")
	assert.Equal(t, 0, idA)
	assert.Equal(t, 1, idB)

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool {
		n, _ := r.bus.Count(context.Background(), "board")
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, idC := r.enter(t, "board")
	assert.Equal(t, 0, idC)
}

func TestRoomsAreNumberedIndependently(t *testing.T) {
	r := newTestRelay(t)
	_, idA := r.enter(t, "one")
	_, idB := r.enter(t, "two")
	assert.Equal(t, 0, idA)
	assert.Equal(t, 0, idB)
}

func TestBroadcastReachesEveryMemberIncludingSender(t *testing.T) {
	r := newTestRelay(t)
	a, _ := r.enter(t, "board")
	b, _ := r.enter(t, "board")
	other, _ := r.enter(t, "elsewhere")

	msg := protocol.Chat{Sender: 1, Text: "hallo"}
	broadcast(t, a, msg)

	assert.Equal(t, msg, read(t, a))
	assert.Equal(t, msg, read(t, b))
	assertSilent(t, other)
}

func TestBroadcastKeepsSenderOrder(t *testing.T) {
	r := newTestRelay(t)
	a, _ := r.enter(t, "board")
	b, _ := r.enter(t, "board")

	sent := []protocol.Message{
		protocol.Start{Owner: 1, Point: protocol.Point{X: 0.1, Y: 0.1}, Color: "#000", Size: 3, CreatedAt: 5},
		protocol.Move{Owner: 1, Point: protocol.Point{X: 0.2, Y: 0.2}},
		protocol.Move{Owner: 1, Point: protocol.Point{X: 0.3, Y: 0.3}},
		protocol.End{Owner: 1},
	}
	for _, m := range sent {
		broadcast(t, a, m)
	}
	for _, want := range sent {
		assert.Equal(t, want, read(t, b))
	}
}

func TestClientCountSubscription(t *testing.T) {
	r := newTestRelay(t)
	a, _ := r.enter(t, "board")
	send(t, a, protocol.SubscribeCount{})
	assert.Equal(t, protocol.ClientCount{Count: 1}, read(t, a))

	b, _ := r.enter(t, "board")
	assert.Equal(t, protocol.ClientCount{Count: 2}, read(t, a))

	require.NoError(t, b.Close())
	assert.Equal(t, protocol.ClientCount{Count: 1}, read(t, a))

	send(t, a, protocol.UnsubscribeCount{})
	broadcast(t, a, protocol.Clear{})
	require.Equal(t, protocol.Clear{}, read(t, a))
	r.enter(t, "board")
	assertSilent(t, a)
}

func TestExitRoomReleasesID(t *testing.T) {
	r := newTestRelay(t)
	a, _ := r.enter(t, "board")
	send(t, a, protocol.ExitRoom{})
	require.Eventually(t, func() bool {
		n, _ := r.bus.Count(context.Background(), "board")
		return n == 0
	}, 2*time.Second, 10*time.Millisecond)

	broadcast(t, a, protocol.Clear{})
	_, ok := read(t, a).(protocol.RelayError)
	assert.True(t, ok)
}

func TestRelayErrors(t *testing.T) {
	r := newTestRelay(t)

	t.Run("broadcast outside a room", func(t *testing.T) {
		conn := r.dial(t)
		broadcast(t, conn, protocol.Clear{})
		m, ok := read(t, conn).(protocol.RelayError)
		require.True(t, ok)
		assert.Equal(t, protocol.TagBroadcast, m.Parts[0])
	})

	t.Run("unknown command", func(t *testing.T) {
		conn := r.dial(t)
		send(t, conn, protocol.Clear{})
		m, ok := read(t, conn).(protocol.RelayError)
		require.True(t, ok)
		assert.Equal(t, protocol.TagClear, m.Parts[0])
	})

	t.Run("malformed frame", func(t *testing.T) {
		conn := r.dial(t)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"nope": 1}`)))
		_, ok := read(t, conn).(protocol.RelayError)
		assert.True(t, ok)
	})
}

func TestHeartbeatIsIgnored(t *testing.T) {
	r := newTestRelay(t)
	a, _ := r.enter(t, "board")
	send(t, a, protocol.Heartbeat{})
	broadcast(t, a, protocol.Clear{})
	assert.Equal(t, protocol.Clear{}, read(t, a))
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRelay(t)
	r.enter(t, "board")

	resp, err := http.Get(r.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(r.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "liveboard_relay_clients 1")
	assert.Contains(t, string(body), `liveboard_relay_frames_total{command="*enter-room*"} 1`)
}
