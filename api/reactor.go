// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for readiness reactors
// used to multiplex connections across poll-mode backends (epoll, poll).

package api

// EventMask is a set of readiness conditions.
type EventMask uint8

const (
	EventRead EventMask = 1 << iota
	EventWrite
	EventError
)

// Has reports whether all bits of m are set.
func (e EventMask) Has(m EventMask) bool {
	return e&m == m
}

// Event encapsulates the result of an OS-level readiness notification.
type Event struct {
	Fd   int
	Mask EventMask
}

// Reactor waits on a set of registered descriptors for readiness.
// Implementations are not safe for concurrent use; the owning event loop
// is the only caller.
type Reactor interface {
	// Add starts watching fd for the given conditions.
	Add(fd int, mask EventMask) error

	// Modify replaces the watched conditions of an already added fd.
	Modify(fd int, mask EventMask) error

	// Remove stops watching fd. Removing an unknown fd is not an error.
	Remove(fd int) error

	// Wait blocks until at least one fd is ready or timeoutMs elapses
	// (timeoutMs < 0 blocks indefinitely) and fills events.
	// An interrupted wait returns (0, nil).
	Wait(events []Event, timeoutMs int) (int, error)

	// Close releases the backend.
	Close() error
}
