//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// File: server/backlog_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Write backlog of a peer that falls behind and then catches up.

package server_test

import (
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/momentics/hioload-relay/server"
	"golang.org/x/sys/unix"
)

// dialSmallWindow connects with a tiny receive buffer so the server hits
// EAGAIN after a few frames.
func (r *running) dialSmallWindow(t *testing.T) net.Conn {
	t.Helper()
	d := net.Dialer{Control: func(_, _ string, c syscall.RawConn) error {
		var serr error
		if err := c.Control(func(fd uintptr) {
			serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, 2048)
		}); err != nil {
			return err
		}
		return serr
	}}
	conn, err := d.Dial("tcp4", r.srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBacklogFlushKeepsOrder(t *testing.T) {
	const total = 300
	r := start(t, server.WithSendBuffer(4096), server.WithMaxBacklog(total+1))
	sender := r.dial(t)
	r.waitStat(t, "slots.active", 1)
	slow := r.dialSmallWindow(t)
	r.waitStat(t, "slots.active", 2)

	for i := 0; i < total; i++ {
		sendLine(t, sender, fmt.Sprintf("m%04d\n", i))
		if i%8 == 7 {
			time.Sleep(time.Millisecond)
		}
	}

	// Nothing has been read yet, so the tail must sit in the backlog.
	deadline := time.Now().Add(waitTimeout)
	for {
		if q, ok := r.srv.Stats()["frames.queued"].(int64); ok && q > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("frames.queued = %v, backlog never used", r.srv.Stats()["frames.queued"])
		}
		time.Sleep(5 * time.Millisecond)
	}

	for i := 0; i < total; i++ {
		expectText(t, slow, fmt.Sprintf("Client 0: m%04d\n", i))
	}
	r.waitStat(t, "frames.forwarded", int64(total))

	// Backlog drained: direct sends resume.
	sendLine(t, sender, "after\n")
	expectText(t, slow, "Client 0: after\n")
	r.waitStat(t, "frames.forwarded", int64(total+1))

	if d := r.srv.Stats()["peers.dropped"]; d != nil {
		t.Fatalf("peers.dropped = %v, slow peer must survive", d)
	}
	r.waitStat(t, "slots.active", 2)
	expectSilence(t, sender)
}
