// Package transport
// Author: momentics <momentics@gmail.com>
//
// Platform-independent declarations shared by the platform files.

package transport

import (
	"errors"
	"net"
)

var (
	// ErrWouldBlock reports that a non-blocking operation has nothing to do yet.
	ErrWouldBlock = errors.New("operation would block")
	// ErrNoDescriptors reports that accept failed with EMFILE or ENFILE.
	// The pending connection stays queued and the listener stays readable.
	ErrNoDescriptors = errors.New("descriptor table full")
)

// ListenConfig describes the listening socket.
type ListenConfig struct {
	IP        net.IP // nil or unspecified binds INADDR_ANY
	Port      int    // 0 picks an ephemeral port
	Backlog   int    // pending connection queue
	ReuseAddr bool   // SO_REUSEADDR, so the port is reusable right after exit
}

// Listener is a bound, listening, non-blocking socket.
type Listener struct {
	Fd   int
	Addr *net.TCPAddr
}

// Waker wakes a reactor blocked in Wait. Fd is the read end to register.
type Waker struct {
	r, w int
}

// Fd returns the descriptor to watch for EventRead.
func (w *Waker) Fd() int {
	return w.r
}

// Reserve holds one spare descriptor. Giving it up lets a process that ran
// out of descriptors still accept, and close, a pending connection.
type Reserve struct {
	fd int
}
