// File: server/run.go
// Package server implements the readiness multiplexer loop, connection
// acceptor and slot teardown.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/internal/slots"
	"github.com/momentics/hioload-relay/internal/transport"
)

// Run is the server's single control loop. It blocks until Shutdown is
// called (nil), the reactor fails, or the table overflows under OnFullExit
// (api.ErrTableFull). All descriptors are closed before it returns.
func (s *Server) Run() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	s.control.SetMetric("server.running", true)
	defer s.closeOnce.Do(func() {
		s.closeAll()
		s.control.SetMetric("server.running", false)
		close(s.done)
	})

	for {
		if s.closing.Load() {
			return nil
		}
		n, err := s.reactor.Wait(s.events, s.waitTimeout())
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		if n == 0 {
			continue
		}

		// activeSet: this pass's snapshot of ready descriptors
		clear(s.active)
		for _, ev := range s.events[:n] {
			s.active[ev.Fd] |= ev.Mask
		}
		nready := len(s.active)

		if _, ok := s.active[s.waker.Fd()]; ok {
			s.waker.Drain()
			nready--
			if s.closing.Load() {
				return nil
			}
		}
		if _, ok := s.active[s.listener.Fd]; ok {
			nready--
			if err := s.acceptOne(); err != nil {
				return err
			}
		}
		if nready > 0 {
			s.scan(nready)
		}
	}
}

// acceptOne takes exactly one pending connection and gives it a slot.
func (s *Server) acceptOne() error {
	fd, peer, err := transport.Accept(s.listener.Fd)
	switch {
	case errors.Is(err, transport.ErrWouldBlock):
		return nil
	case errors.Is(err, transport.ErrNoDescriptors):
		s.shed(err)
		return nil
	case err != nil:
		s.log.Printf("%v", err)
		s.pauseAccept()
		return nil
	}
	s.log.Printf(" Remote Address:  %s, port: %d", peer.IP, peer.Port)
	if s.cfg.SendBuffer > 0 {
		if err := transport.SetSendBuffer(fd, s.cfg.SendBuffer); err != nil {
			s.log.Printf("client %s: %v", peer, err)
		}
	}

	idx, err := s.table.Insert(fd, peer.IP.String())
	if err != nil {
		transport.Close(fd)
		s.control.AddMetric("connections.rejected", 1)
		if !errors.Is(err, api.ErrTableFull) {
			s.log.Printf("register %s: %v", peer, err)
			return nil
		}
		s.log.Printf("Too many clients")
		if s.cfg.OnFull == OnFullExit {
			return api.Wrap(api.ErrCodeResourceExhausted, "accept", api.ErrTableFull).
				WithContext("peer", peer.String()).
				WithContext("capacity", s.table.Cap())
		}
		return nil
	}
	if err := s.reactor.Add(fd, api.EventRead); err != nil {
		s.table.Release(idx)
		transport.Close(fd)
		s.log.Printf("register %s: %v", peer, err)
		return nil
	}
	s.control.AddMetric("connections.accepted", 1)
	s.publishSlots()
	return nil
}

// shed drops one pending connection while the process is out of
// descriptors. The listener is level-triggered, so leaving the connection
// queued would wake Run again immediately.
func (s *Server) shed(cause error) {
	peer, err := s.reserve.Shed(s.listener.Fd)
	if peer != nil {
		s.log.Printf("%v, dropped %s", cause, peer)
		s.control.AddMetric("connections.rejected", 1)
	}
	if err != nil {
		s.log.Printf("%v", err)
		s.pauseAccept()
	}
}

// pauseAccept stops watching the listener until a slot frees or
// acceptRetry passes.
func (s *Server) pauseAccept() {
	if s.acceptPaused {
		return
	}
	if err := s.reactor.Remove(s.listener.Fd); err != nil {
		s.log.Printf("unwatch listener: %v", err)
	}
	s.acceptPaused = true
	s.pausedAt = time.Now()
	s.control.SetMetric("accept.paused", true)
}

func (s *Server) resumeAccept() {
	if !s.acceptPaused {
		return
	}
	if err := s.reactor.Add(s.listener.Fd, api.EventRead); err != nil {
		s.log.Printf("watch listener: %v", err)
		s.pausedAt = time.Now()
		return
	}
	s.acceptPaused = false
	s.control.SetMetric("accept.paused", false)
}

// waitTimeout is infinite unless accepting is paused, in which case Wait
// wakes in time to re-arm the listener.
func (s *Server) waitTimeout() int {
	if !s.acceptPaused {
		return -1
	}
	left := acceptRetry - time.Since(s.pausedAt)
	if left <= 0 {
		s.resumeAccept()
		if !s.acceptPaused {
			return -1
		}
		left = acceptRetry
	}
	return int(left/time.Millisecond) + 1
}

// scan visits occupied slots in index order and serves the ready ones.
// nready only shortens the scan; every ready slot is still reached
// because the counter covers exactly the descriptors left in activeSet.
func (s *Server) scan(nready int) {
	for i := 0; i <= s.table.HighWater(); i++ {
		slot, ok := s.table.Get(i)
		if !ok {
			continue
		}
		mask, ready := s.active[slot.Fd]
		if !ready {
			continue
		}
		if mask&api.EventWrite != 0 {
			s.flush(slot)
			s.reapBroken()
		}
		if mask&(api.EventRead|api.EventError) != 0 && s.holds(slot) {
			s.readSlot(slot)
		}
		s.reapBroken()
		if nready--; nready <= 0 {
			break
		}
	}
}

// holds reports whether slot still describes the live entry at its index.
func (s *Server) holds(slot slots.Slot) bool {
	cur, ok := s.table.Get(slot.Index)
	return ok && cur.Fd == slot.Fd
}

// readSlot reads one chunk. Zero bytes or an error tears the slot down.
func (s *Server) readSlot(slot slots.Slot) {
	buf := s.rx.Get()
	defer s.rx.Put(buf)

	n, err := transport.Read(slot.Fd, buf)
	switch {
	case errors.Is(err, transport.ErrWouldBlock):
		return
	case err != nil:
		s.log.Printf("read client %d: %v", slot.Index, err)
		s.closeSlot(slot)
	case n == 0:
		s.closeSlot(slot)
	default:
		s.dispatch(slot.Index, buf[:n])
	}
}

// closeSlot unregisters, closes and frees slot. The descriptor is closed
// exactly once because the entry is freed in the same step.
func (s *Server) closeSlot(slot slots.Slot) {
	if !s.holds(slot) {
		return
	}
	if err := s.reactor.Remove(slot.Fd); err != nil {
		s.log.Printf("unregister client %d: %v", slot.Index, err)
	}
	transport.Close(slot.Fd)
	s.table.Release(slot.Index)
	s.dropBacklog(slot.Index)
	s.log.Printf(" Remote Address:  %s closed connection", slot.Peer)
	s.control.AddMetric("connections.closed", 1)
	s.publishSlots()
	s.resumeAccept()
}

// reapBroken tears down peers whose send failed during dispatch.
func (s *Server) reapBroken() {
	for _, slot := range s.broken {
		s.closeSlot(slot)
	}
	s.broken = s.broken[:0]
}

func (s *Server) closeAll() {
	s.table.Range(func(slot slots.Slot) bool {
		s.closeSlot(slot)
		return true
	})
	s.release()
}
