// Package discovery
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// mDNS/DNS-SD advertisement and lookup of relay servers on the local link,
// so clients can find a server without knowing its address.

package discovery

import (
	"context"
	"fmt"
	"net"

	"github.com/grandcat/zeroconf"
	"github.com/momentics/hioload-relay/api"
)

const (
	// ServiceType is the DNS-SD service the relay registers under.
	ServiceType = "_hioload-relay._tcp"
	// Domain is the mDNS domain.
	Domain = "local."
)

// Endpoint is a resolved relay server.
type Endpoint struct {
	Instance string
	Host     string
	IP       net.IP
	Port     int
}

// Advertisement is a running service registration.
type Advertisement struct {
	srv *zeroconf.Server
}

// Advertise registers instance on port until Close is called.
func Advertise(instance string, port int) (*Advertisement, error) {
	if instance == "" || port <= 0 {
		return nil, fmt.Errorf("advertise %q:%d: %w", instance, port, api.ErrInvalidArgument)
	}
	srv, err := zeroconf.Register(instance, ServiceType, Domain, port, []string{"proto=raw"}, nil)
	if err != nil {
		return nil, fmt.Errorf("advertise: %w", err)
	}
	return &Advertisement{srv: srv}, nil
}

// Close withdraws the registration.
func (a *Advertisement) Close() {
	a.srv.Shutdown()
}

// Lookup browses until a server matching instance is seen or ctx ends.
// An empty instance accepts the first server found.
func Lookup(ctx context.Context, instance string) (Endpoint, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return Endpoint{}, fmt.Errorf("resolver: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return Endpoint{}, fmt.Errorf("browse: %w", err)
	}
	// The resolver closes entries once ctx is done; keep draining so it
	// never blocks on a send after we stop listening.
	defer func() {
		cancel()
		go func() {
			for range entries {
			}
		}()
	}()

	for {
		select {
		case <-ctx.Done():
			return Endpoint{}, fmt.Errorf("no relay %q found: %w", instance, api.ErrConnect)
		case e, ok := <-entries:
			if !ok {
				return Endpoint{}, fmt.Errorf("no relay %q found: %w", instance, api.ErrConnect)
			}
			if ep, match := pick(e, instance); match {
				return ep, nil
			}
		}
	}
}

// pick converts e when it names instance and carries an IPv4 address.
func pick(e *zeroconf.ServiceEntry, instance string) (Endpoint, bool) {
	if e == nil || len(e.AddrIPv4) == 0 || e.Port <= 0 {
		return Endpoint{}, false
	}
	if instance != "" && e.Instance != instance {
		return Endpoint{}, false
	}
	return Endpoint{
		Instance: e.Instance,
		Host:     e.HostName,
		IP:       e.AddrIPv4[0],
		Port:     e.Port,
	}, true
}
