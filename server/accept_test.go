//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// File: server/accept_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Accept path behaviour when the process runs out of descriptors.

package server_test

import (
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-relay/server"
	"golang.org/x/sys/unix"
)

type countingLogger struct {
	lines atomic.Int64
}

func (l *countingLogger) Printf(string, ...any) {
	l.lines.Add(1)
}

// exhaustDescriptors lowers RLIMIT_NOFILE and duplicates descriptors until
// the table is full. The returned func undoes both.
func exhaustDescriptors(t *testing.T) (dups []int, restore func()) {
	t.Helper()
	var saved unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &saved); err != nil {
		t.Skipf("getrlimit: %v", err)
	}
	limited := saved
	if limited.Cur > 512 {
		limited.Cur = 512
	}
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &limited); err != nil {
		t.Skipf("setrlimit: %v", err)
	}
	devnull, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Setrlimit(unix.RLIMIT_NOFILE, &saved)
		t.Skipf("open /dev/null: %v", err)
	}
	dups = append(dups, devnull)
	for len(dups) < 1<<16 {
		fd, err := unix.Dup(devnull)
		if errors.Is(err, unix.EMFILE) {
			break
		}
		if err != nil {
			t.Fatalf("dup: %v", err)
		}
		dups = append(dups, fd)
	}
	restore = func() {
		for _, fd := range dups {
			unix.Close(fd)
		}
		unix.Setrlimit(unix.RLIMIT_NOFILE, &saved)
	}
	return dups, restore
}

func TestDescriptorExhaustionDropsPendingWithoutSpinning(t *testing.T) {
	logs := &countingLogger{}
	r := start(t, server.WithLogger(logs))
	x := r.dial(t)
	r.waitStat(t, "slots.active", 1)
	addr := r.srv.Addr().String()

	dups, restore := exhaustDescriptors(t)
	restored := false
	defer func() {
		if !restored {
			restore()
		}
	}()
	if len(dups) < 2 {
		t.Skip("descriptor table already full")
	}
	// one descriptor for the dialling side, none left for accept
	last := len(dups) - 1
	unix.Close(dups[last])
	dups = dups[:last]

	before := logs.lines.Load()
	conn, err := net.DialTimeout("tcp4", addr, time.Second)
	if err != nil {
		t.Fatalf("dial while descriptors are exhausted: %v", err)
	}
	defer conn.Close()

	time.Sleep(300 * time.Millisecond)
	if n := logs.lines.Load() - before; n > 10 {
		t.Fatalf("%d log lines in 300ms while out of descriptors", n)
	}

	conn.SetReadDeadline(time.Now().Add(waitTimeout))
	_, err = conn.Read(make([]byte, 1))
	var nerr net.Error
	if err == nil || (errors.As(err, &nerr) && nerr.Timeout()) {
		t.Fatalf("pending connection was not dropped: %v", err)
	}

	restore()
	restored = true
	r.waitStat(t, "connections.rejected", int64(1))

	y := r.dial(t)
	r.waitStat(t, "slots.active", 2)
	sendLine(t, x, "still serving\n")
	expectText(t, y, "Client 0: still serving\n")
}
