// File: server/server.go
// Package server implements the relay server: one goroutine multiplexing the
// listening socket and every client connection over a readiness reactor,
// forwarding each received chunk to all other clients.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-relay/adapters"
	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/internal/slots"
	"github.com/momentics/hioload-relay/internal/transport"
	"github.com/momentics/hioload-relay/pool"
	"github.com/momentics/hioload-relay/protocol"
	"github.com/momentics/hioload-relay/reactor"
)

var ErrAlreadyRunning = errors.New("server already running")

// acceptRetry bounds how long the listener stays unwatched after a hard
// accept failure when no slot frees up in the meantime.
const acceptRetry = time.Second

// Server owns the listening socket, the reactor and the slot table.
// Everything except Shutdown, Done, Addr and Stats must be called from the
// goroutine running Run.
type Server struct {
	cfg     *Config
	log     api.Logger
	control api.Control

	reactor  api.Reactor
	listener *transport.Listener
	waker    *transport.Waker
	reserve  *transport.Reserve
	table    *slots.Table
	backlogs []*queue.Queue // per slot index, FIFO of *pending

	rx *pool.FramePool // inbound chunks
	tx *pool.FramePool // forward frames

	events []api.Event
	active map[int]api.EventMask
	broken []slots.Slot

	// acceptPaused is set while the listener is unregistered after a hard
	// accept failure. It is re-registered when a slot frees or after
	// acceptRetryMs without events.
	acceptPaused bool
	pausedAt     time.Time

	running   atomic.Bool
	closing   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex // guards the waker against use after release
	released bool
}

// pending is the unsent tail of a forward frame.
type pending struct {
	buf  []byte // pool frame to return
	data []byte // remaining bytes
}

// New sets up the listening socket and reactor. Any failure here is a
// fatal setup error and is reported wrapping api.ErrSetup.
func New(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	s := &Server{
		cfg:  &c,
		log:  log.New(os.Stderr, "", log.LstdFlags),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.control == nil {
		s.control = adapters.NewControlAdapter()
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrSetup, err)
	}

	table, err := slots.NewTable(s.cfg.MaxClients)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrSetup, err)
	}
	s.table = table
	s.backlogs = make([]*queue.Queue, s.cfg.MaxClients)
	s.rx = pool.NewFramePool(protocol.ClientFrameSize)
	s.tx = pool.NewFramePool(protocol.ServerFrameSize)
	s.events = make([]api.Event, s.cfg.EventBatch)
	s.active = make(map[int]api.EventMask, s.cfg.EventBatch)

	if err := s.setup(); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: %w", api.ErrSetup, err)
	}

	s.control.SetConfig(s.cfg.snapshot())
	s.control.SetConfig(map[string]any{"addr": s.listener.Addr.String()})
	s.control.RegisterDebugProbe("pool.rx", func() any { return s.rx.Stats() })
	s.control.RegisterDebugProbe("pool.tx", func() any { return s.tx.Stats() })
	s.publishSlots()
	return s, nil
}

func (s *Server) setup() error {
	var ip net.IP
	if s.cfg.ListenIP != "" {
		ip = net.ParseIP(s.cfg.ListenIP)
	}
	ln, err := transport.Listen(transport.ListenConfig{
		IP:        ip,
		Port:      s.cfg.Port,
		Backlog:   s.cfg.ListenQueue,
		ReuseAddr: s.cfg.ReuseAddr,
	})
	if err != nil {
		return err
	}
	s.listener = ln

	if s.reactor, err = reactor.New(); err != nil {
		return err
	}
	if s.waker, err = transport.NewWaker(); err != nil {
		return err
	}
	if s.reserve, err = transport.NewReserve(); err != nil {
		return err
	}
	if err := s.reactor.Add(s.listener.Fd, api.EventRead); err != nil {
		return err
	}
	return s.reactor.Add(s.waker.Fd(), api.EventRead)
}

// release closes whatever setup or Run left open.
func (s *Server) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	if s.reactor != nil {
		s.reactor.Close()
	}
	if s.waker != nil {
		s.waker.Close()
	}
	if s.reserve != nil {
		s.reserve.Close()
	}
	if s.listener != nil {
		transport.Close(s.listener.Fd)
	}
}

// Addr returns the bound listening address.
func (s *Server) Addr() *net.TCPAddr {
	return s.listener.Addr
}

// Control returns the control adapter holding config, metrics and probes.
func (s *Server) Control() api.Control {
	return s.control
}

// Stats returns a metrics snapshot. Safe for concurrent use.
func (s *Server) Stats() map[string]any {
	return s.control.Stats()
}

// Shutdown asks Run to close every connection and return nil.
// It does not wait; use Done for that. Safe for concurrent use.
func (s *Server) Shutdown() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	return s.waker.Wake()
}

// Done is closed once Run has returned and released all descriptors.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) publishSlots() {
	s.control.SetMetric("slots.active", s.table.Len())
	s.control.SetMetric("slots.highwater", s.table.HighWater())
}
