package net

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_liveboard._tcp"

// Advertise announces a relay listening on port to the local network.
// The caller shuts the returned server down.
func Advertise(port int, room string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, nil, []string{"LiveBoard", "room=" + room})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse looks for an advertised relay and returns the address of the
// first one that answers within timeout.
func Browse(ctx context.Context, timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := firstRelay(entries)

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	lookupErr := make(chan error, 1)
	go func() {
		lookupErr <- mdns.Query(params)
		close(entries)
	}()

	select {
	case addr, ok := <-found:
		if ok {
			return addr, nil
		}
		if err := <-lookupErr; err != nil {
			return "", fmt.Errorf("mdns lookup: %w", err)
		}
		return "", errNoRelay
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var errNoRelay = errors.New("no relay found on the local network")

// firstRelay forwards the address of the first usable entry. The returned
// channel is closed once entries is closed and drained.
func firstRelay(entries <-chan *mdns.ServiceEntry) <-chan string {
	found := make(chan string, 1)
	go func() {
		defer close(found)
		sent := false
		for e := range entries {
			if sent || e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found <- fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port)
			sent = true
		}
	}()
	return found
}
