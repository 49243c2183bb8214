// File: internal/slots/table.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package slots

import (
	"fmt"

	"github.com/momentics/hioload-relay/api"
)

// Free marks an unoccupied entry. No valid descriptor is negative.
const Free = -1

// Slot is one table entry.
type Slot struct {
	Index int
	Fd    int
	Peer  string
}

// Occupied reports whether the entry holds a live connection.
func (s Slot) Occupied() bool {
	return s.Fd != Free
}

// Table maps live connections to small integer indices.
// It is not safe for concurrent use; the event loop owns it.
type Table struct {
	entries   []Slot
	byFd      map[int]int
	highWater int
	count     int
}

// NewTable creates a table with the given capacity.
func NewTable(capacity int) (*Table, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("slots: capacity %d: %w", capacity, api.ErrInvalidArgument)
	}
	t := &Table{
		entries:   make([]Slot, capacity),
		byFd:      make(map[int]int, capacity),
		highWater: -1,
	}
	for i := range t.entries {
		t.entries[i] = Slot{Index: i, Fd: Free}
	}
	return t, nil
}

// Insert stores fd in the first free entry.
func (t *Table) Insert(fd int, peer string) (int, error) {
	if fd < 0 {
		return -1, fmt.Errorf("slots: descriptor %d: %w", fd, api.ErrInvalidArgument)
	}
	if _, dup := t.byFd[fd]; dup {
		return -1, fmt.Errorf("slots: descriptor %d already registered: %w", fd, api.ErrInvalidArgument)
	}
	for i := range t.entries {
		if t.entries[i].Fd != Free {
			continue
		}
		t.entries[i].Fd = fd
		t.entries[i].Peer = peer
		t.byFd[fd] = i
		t.count++
		if i > t.highWater {
			t.highWater = i
		}
		return i, nil
	}
	return -1, api.ErrTableFull
}

// Release frees the entry at index and returns what it held.
func (t *Table) Release(index int) (Slot, bool) {
	if index < 0 || index >= len(t.entries) || t.entries[index].Fd == Free {
		return Slot{}, false
	}
	old := t.entries[index]
	delete(t.byFd, old.Fd)
	t.entries[index] = Slot{Index: index, Fd: Free}
	t.count--
	if index == t.highWater {
		for t.highWater >= 0 && t.entries[t.highWater].Fd == Free {
			t.highWater--
		}
	}
	return old, true
}

// Get returns the entry at index.
func (t *Table) Get(index int) (Slot, bool) {
	if index < 0 || index >= len(t.entries) {
		return Slot{}, false
	}
	s := t.entries[index]
	return s, s.Fd != Free
}

// Lookup finds the index holding fd.
func (t *Table) Lookup(fd int) (int, bool) {
	i, ok := t.byFd[fd]
	return i, ok
}

// HighWater is the largest occupied index, -1 when empty.
func (t *Table) HighWater() int {
	return t.highWater
}

// Len is the number of occupied entries.
func (t *Table) Len() int {
	return t.count
}

// Cap is the fixed capacity.
func (t *Table) Cap() int {
	return len(t.entries)
}

// Range calls fn for each occupied entry in ascending index order up to
// the high-water index. It stops when fn returns false. Entries released
// by fn are skipped if not yet visited.
func (t *Table) Range(fn func(Slot) bool) {
	for i := 0; i <= t.highWater && i < len(t.entries); i++ {
		s := t.entries[i]
		if s.Fd == Free {
			continue
		}
		if !fn(s) {
			return
		}
	}
}
