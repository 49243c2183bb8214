// File: client/liveness.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import "sync/atomic"

// Liveness is a one-shot latch shared by the send and receive paths.
// It starts alive and goes down exactly once; it never comes back.
type Liveness struct {
	alive atomic.Bool
	done  chan struct{}
}

// NewLiveness returns a latch in the alive state.
func NewLiveness() *Liveness {
	l := &Liveness{done: make(chan struct{})}
	l.alive.Store(true)
	return l
}

// Alive reports whether the connection is still usable.
func (l *Liveness) Alive() bool {
	return l.alive.Load()
}

// Down marks the connection dead. Only the call that performed the
// transition returns true.
func (l *Liveness) Down() bool {
	if !l.alive.CompareAndSwap(true, false) {
		return false
	}
	close(l.done)
	return true
}

// Done is closed when the latch goes down.
func (l *Liveness) Done() <-chan struct{} {
	return l.done
}
