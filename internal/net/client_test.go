package net

import (
	"context"
	"io"
	"log/slog"
	stdnet "net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveBoard/internal/protocol"
	"LiveBoard/internal/relay"
	"LiveBoard/internal/state"
)

const waitFor = 3 * time.Second

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func startRelay(t *testing.T) (*relay.Server, string) {
	t.Helper()
	srv := relay.NewServer(relay.Options{Logger: quietLogger()})
	ts := httptest.NewServer(srv.Router(nil))
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts.URL
}

type session struct {
	*Client
	cancel context.CancelFunc
	errc   chan error
}

func join(t *testing.T, url string, lock time.Duration) *session {
	t.Helper()
	return joinWith(t, Config{URL: url, Room: "test", Replica: state.Options{LockDuration: lock}})
}

func joinWith(t *testing.T, cfg Config) *session {
	t.Helper()
	c := NewClient(cfg, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{Client: c, cancel: cancel, errc: make(chan error, 1)}
	go func() { s.errc <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	require.Eventually(t, func() bool { return c.View().Joined }, waitFor, 10*time.Millisecond)
	return s
}

func pt(x, y float64) protocol.Point { return protocol.Point{X: x, Y: y} }

func TestSessionsConvergeThroughRelay(t *testing.T) {
	_, url := startRelay(t)

	a := join(t, url, 0)
	assert.Equal(t, state.PrimaryID, a.View().Self)

	require.NoError(t, a.StartStroke(pt(0.1, 0.1), "#ff0000", 4))
	require.NoError(t, a.ExtendStroke(pt(0.2, 0.2)))
	require.NoError(t, a.EndStroke())
	require.NoError(t, a.Chat("hallo"))

	b := join(t, url, 0)
	assert.Equal(t, protocol.ParticipantID(2), b.View().Self)

	// Catch-up: strokes, chat and the lock proposed by a's first stroke.
	require.Eventually(t, func() bool {
		v := b.View()
		return len(v.Strokes) == 1 && len(v.Chat) == 1 && v.Locked && v.Count == 2
	}, waitFor, 10*time.Millisecond)
	v := b.View()
	assert.Equal(t, []protocol.Point{pt(0.1, 0.1), pt(0.2, 0.2)}, v.Strokes[0].Points)
	assert.Equal(t, "#ff0000", v.Strokes[0].Color)
	assert.Equal(t, []string{"Du: hallo"}, v.Chat)
	assert.Equal(t, a.View().LockedUntil, v.LockedUntil)

	require.NoError(t, b.StartStroke(pt(0.5, 0.5), "", 0))
	require.NoError(t, b.ExtendStroke(pt(0.6, 0.6)))
	require.NoError(t, b.EndStroke())
	require.NoError(t, b.Chat("servus"))

	require.Eventually(t, func() bool {
		v := a.View()
		return len(v.Strokes) == 2 && len(v.Chat) == 2
	}, waitFor, 10*time.Millisecond)
	assert.Equal(t, []string{"Du: hallo", "#2: servus"}, a.View().Chat)
	assert.Equal(t, a.View().Strokes, b.View().Strokes)

	assert.ErrorIs(t, b.Clear(), state.ErrClearLocked)
	assert.False(t, b.View().CanClear)

	a.cancel()
	require.NoError(t, <-a.errc)
	require.Eventually(t, func() bool { return b.View().Count == 1 }, waitFor, 10*time.Millisecond)
}

func TestClearAfterRemoteLockExpires(t *testing.T) {
	const lock = 300 * time.Millisecond
	_, url := startRelay(t)
	a := join(t, url, lock)
	b := join(t, url, lock)

	require.NoError(t, b.StartStroke(pt(0.1, 0.1), "", 0))
	require.NoError(t, b.ExtendStroke(pt(0.3, 0.3)))
	require.NoError(t, b.EndStroke())
	require.Eventually(t, func() bool {
		v := a.View()
		return len(v.Strokes) == 1 && v.Locked
	}, waitFor, 10*time.Millisecond)

	// The lock b proposed holds for a too.
	assert.ErrorIs(t, a.Clear(), state.ErrClearLocked)

	require.Eventually(t, func() bool { return a.View().CanClear }, waitFor, 10*time.Millisecond)
	require.NoError(t, a.Clear())
	require.Eventually(t, func() bool {
		return len(a.View().Strokes) == 0 && len(b.View().Strokes) == 0
	}, waitFor, 10*time.Millisecond)
}

func TestRelayShutdownEndsSession(t *testing.T) {
	srv, url := startRelay(t)
	a := join(t, url, 0)

	srv.Close()

	select {
	case err := <-a.errc:
		assert.ErrorIs(t, err, ErrTransportClosed)
	case <-time.After(waitFor):
		t.Fatal("session did not notice the relay going away")
	}
	v := a.View()
	assert.False(t, v.Connected)
	assert.False(t, v.Joined)
	assert.ErrorIs(t, a.Chat("anyone?"), ErrTransportClosed)
}

func TestActionsAfterFailedDial(t *testing.T) {
	c := NewClient(Config{URL: "ws://127.0.0.1:1"}, quietLogger())
	err := c.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, c.StartStroke(pt(0, 0), "", 0), ErrTransportClosed)
}

func TestActionsBeforeSessionStartsAreRejected(t *testing.T) {
	// Accepts the TCP connection but never answers the handshake.
	ln, err := stdnet.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	c := NewClient(Config{URL: ln.Addr().String(), DialTimeout: waitFor}, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	began := time.Now()
	assert.ErrorIs(t, c.StartStroke(pt(0.1, 0.1), "", 0), state.ErrNotJoined)
	assert.ErrorIs(t, c.Chat("too early"), state.ErrNotJoined)
	assert.Less(t, time.Since(began), time.Second)

	cancel()
	require.Error(t, <-errc)
	assert.ErrorIs(t, c.Chat("too late"), ErrTransportClosed)
}

// heartbeats reads how many empty frames the relay has counted.
func heartbeats(reg *prometheus.Registry) float64 {
	families, err := reg.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range families {
		if mf.GetName() != "liveboard_relay_frames_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "command" && l.GetValue() == "heartbeat" {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestKeepaliveKeepsSessionOpen(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := relay.NewServer(relay.Options{Logger: quietLogger(), Metrics: relay.NewMetrics(reg)})
	ts := httptest.NewServer(srv.Router(reg))
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	s := joinWith(t, Config{URL: ts.URL, Room: "test", Keepalive: 20 * time.Millisecond})
	require.Eventually(t, func() bool { return heartbeats(reg) >= 3 }, waitFor, 10*time.Millisecond)

	v := s.View()
	assert.True(t, v.Connected)
	assert.True(t, v.Joined)
	require.NoError(t, s.Chat("still here"))
	select {
	case err := <-s.errc:
		t.Fatalf("session ended: %v", err)
	default:
	}
}
