package net

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"localhost:8080":         "ws://localhost:8080/",
		"ws://relay.local/":      "ws://relay.local/",
		"http://10.0.0.2:8080":   "ws://10.0.0.2:8080/",
		"https://board.example":  "wss://board.example/",
		"wss://board.example/ws": "wss://board.example/ws",
		"  ws://spaced:1/  ":     "ws://spaced:1/",
	}
	for in, want := range cases {
		got, err := NormalizeURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "ftp://x", "ws://"} {
		_, err := NormalizeURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestLockTimerFiresOnceUntilPasses(t *testing.T) {
	lt := newLockTimer()
	defer lt.stop()
	now := time.Now()

	lt.arm(now, now.Add(20*time.Millisecond).UnixMilli())
	select {
	case <-lt.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	// Same deadline again: not re-armed.
	lt.arm(time.Now(), lt.until)
	select {
	case <-lt.C():
		t.Fatal("timer fired twice for one deadline")
	case <-time.After(50 * time.Millisecond):
	}

	// A deadline in the past is not scheduled.
	lt.arm(time.Now(), 1)
	select {
	case <-lt.C():
		t.Fatal("timer fired for an expired deadline")
	case <-time.After(50 * time.Millisecond):
	}
}
