// File: server/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Broadcast dispatcher and per-peer write backlog.

package server

import (
	"errors"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/internal/slots"
	"github.com/momentics/hioload-relay/internal/transport"
	"github.com/momentics/hioload-relay/protocol"
)

// dispatch splits a received chunk into its NUL-separated text runs and
// forwards each one. A chunk is normally one zero-padded client frame, but
// a read may straddle two frames; splitting keeps both texts.
func (s *Server) dispatch(origin int, chunk []byte) {
	for len(chunk) > 0 {
		if chunk[0] == 0 {
			chunk = chunk[1:]
			continue
		}
		text := protocol.Text(chunk)
		s.forward(origin, text)
		chunk = chunk[len(text):]
	}
}

// forward sends text, labelled with origin, to every other occupied slot.
// Each send is independent: a failing peer is torn down after the scan and
// the others still get the frame.
func (s *Server) forward(origin int, text []byte) {
	s.control.AddMetric("messages.received", 1)

	frame := s.tx.Get()
	defer s.tx.Put(frame)
	n, err := protocol.EncodeForward(frame, origin, text)
	if err != nil {
		s.log.Printf("encode client %d: %v", origin, err)
		return
	}

	s.table.Range(func(peer slots.Slot) bool {
		if peer.Index != origin {
			s.send(peer, frame[:n])
		}
		return true
	})
	s.reapBroken()
}

// send writes frame to peer, queueing whatever the socket does not take.
func (s *Server) send(peer slots.Slot, frame []byte) {
	if q := s.backlogs[peer.Index]; q != nil && q.Length() > 0 {
		s.enqueue(peer, frame)
		return
	}
	n, err := transport.Write(peer.Fd, frame)
	switch {
	case err == nil:
		s.control.AddMetric("frames.forwarded", 1)
	case errors.Is(err, transport.ErrWouldBlock):
		s.enqueue(peer, frame[n:])
	default:
		s.log.Printf("send client %d: %v", peer.Index, err)
		s.broken = append(s.broken, peer)
	}
}

// enqueue appends data to the peer's backlog and asks for writability.
func (s *Server) enqueue(peer slots.Slot, data []byte) {
	q := s.backlogs[peer.Index]
	if q == nil {
		q = queue.New()
		s.backlogs[peer.Index] = q
	}
	if q.Length() >= s.cfg.MaxBacklog {
		s.log.Printf("client %d stopped reading, dropping", peer.Index)
		s.control.AddMetric("peers.dropped", 1)
		s.broken = append(s.broken, peer)
		return
	}
	buf := s.tx.Get()
	n := copy(buf, data)
	q.Add(&pending{buf: buf, data: buf[:n]})
	s.control.AddMetric("frames.queued", 1)

	if q.Length() == 1 {
		if err := s.reactor.Modify(peer.Fd, api.EventRead|api.EventWrite); err != nil {
			s.log.Printf("watch client %d: %v", peer.Index, err)
			s.broken = append(s.broken, peer)
		}
	}
}

// flush drains the backlog in FIFO order until the socket is full.
func (s *Server) flush(peer slots.Slot) {
	q := s.backlogs[peer.Index]
	for q != nil && q.Length() > 0 {
		p := q.Peek().(*pending)
		n, err := transport.Write(peer.Fd, p.data)
		p.data = p.data[n:]
		if errors.Is(err, transport.ErrWouldBlock) {
			return
		}
		if err != nil {
			s.log.Printf("send client %d: %v", peer.Index, err)
			s.broken = append(s.broken, peer)
			return
		}
		q.Remove()
		s.tx.Put(p.buf)
		s.control.AddMetric("frames.forwarded", 1)
	}
	if err := s.reactor.Modify(peer.Fd, api.EventRead); err != nil {
		s.log.Printf("watch client %d: %v", peer.Index, err)
		s.broken = append(s.broken, peer)
	}
}

// dropBacklog returns queued frames of a freed slot to the pool.
func (s *Server) dropBacklog(index int) {
	q := s.backlogs[index]
	if q == nil {
		return
	}
	for q.Length() > 0 {
		s.tx.Put(q.Remove().(*pending).buf)
	}
}
