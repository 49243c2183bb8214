//go:build darwin || freebsd || netbsd || openbsd || dragonfly

// File: reactor/reactor_poll.go
// Author: momentics <momentics@gmail.com>
//
// poll(2)-based reactor for platforms without epoll. The watch set is
// copied into a fresh pollfd array on every Wait, the same way a select
// loop rebuilds its read set from the master set.

package reactor

import (
	"fmt"
	"slices"

	"github.com/momentics/hioload-relay/api"
	"golang.org/x/sys/unix"
)

type pollReactor struct {
	interest map[int]api.EventMask
	fds      []unix.PollFd
	closed   bool
}

// New constructs the platform reactor.
func New() (api.Reactor, error) {
	return &pollReactor{interest: make(map[int]api.EventMask)}, nil
}

func (r *pollReactor) Add(fd int, mask api.EventMask) error {
	if r.closed {
		return api.ErrClosed
	}
	if _, ok := r.interest[fd]; ok {
		return fmt.Errorf("poll add fd %d: %w", fd, api.ErrInvalidArgument)
	}
	r.interest[fd] = mask
	return nil
}

func (r *pollReactor) Modify(fd int, mask api.EventMask) error {
	if _, ok := r.interest[fd]; !ok {
		return fmt.Errorf("poll modify fd %d: %w", fd, api.ErrInvalidArgument)
	}
	r.interest[fd] = mask
	return nil
}

func (r *pollReactor) Remove(fd int) error {
	delete(r.interest, fd)
	return nil
}

func (r *pollReactor) Wait(events []api.Event, timeoutMs int) (int, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("poll wait: empty event buffer: %w", api.ErrInvalidArgument)
	}
	if r.closed {
		return 0, api.ErrClosed
	}
	r.fds = r.fds[:0]
	for fd, mask := range r.interest {
		var ev int16
		if mask&api.EventRead != 0 {
			ev |= unix.POLLIN
		}
		if mask&api.EventWrite != 0 {
			ev |= unix.POLLOUT
		}
		r.fds = append(r.fds, unix.PollFd{Fd: int32(fd), Events: ev})
	}
	slices.SortFunc(r.fds, func(a, b unix.PollFd) int { return int(a.Fd) - int(b.Fd) })

	if timeoutMs < 0 {
		timeoutMs = -1
	}
	if _, err := unix.Poll(r.fds, timeoutMs); err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("poll wait: %w", err)
	}
	n := 0
	for _, p := range r.fds {
		if p.Revents == 0 {
			continue
		}
		if n == len(events) {
			break
		}
		var mask api.EventMask
		if p.Revents&unix.POLLIN != 0 {
			mask |= api.EventRead
		}
		if p.Revents&unix.POLLOUT != 0 {
			mask |= api.EventWrite
		}
		if p.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			mask |= api.EventError
		}
		events[n] = api.Event{Fd: int(p.Fd), Mask: mask}
		n++
	}
	return n, nil
}

func (r *pollReactor) Close() error {
	r.closed = true
	clear(r.interest)
	return nil
}
