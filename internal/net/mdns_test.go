package net

import (
	stdnet "net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
)

func TestFirstRelayKeepsAnEntrySeenJustBeforeTheLookupEnds(t *testing.T) {
	entries := make(chan *mdns.ServiceEntry, 4)
	entries <- &mdns.ServiceEntry{Port: 8080}
	entries <- &mdns.ServiceEntry{AddrV4: stdnet.IPv4(192, 168, 1, 20), Port: 8080}
	entries <- &mdns.ServiceEntry{AddrV4: stdnet.IPv4(192, 168, 1, 21), Port: 9090}
	close(entries)

	found := firstRelay(entries)
	addr, ok := <-found
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.20:8080", addr)
	_, ok = <-found
	assert.False(t, ok)
}

func TestFirstRelayClosesWithoutAnswers(t *testing.T) {
	entries := make(chan *mdns.ServiceEntry)
	close(entries)
	_, ok := <-firstRelay(entries)
	assert.False(t, ok)
}
