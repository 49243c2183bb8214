//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-relay/api"
	"golang.org/x/sys/unix"
)

// epollReactor is a level-triggered epoll reactor.
type epollReactor struct {
	epfd int
	raw  []unix.EpollEvent
}

// New constructs the platform reactor.
func New() (api.Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollReactor{epfd: epfd}, nil
}

func toEpoll(mask api.EventMask) uint32 {
	var ev uint32
	if mask&api.EventRead != 0 {
		ev |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if mask&api.EventWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func fromEpoll(ev uint32) api.EventMask {
	var mask api.EventMask
	if ev&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
		mask |= api.EventRead
	}
	if ev&unix.EPOLLOUT != 0 {
		mask |= api.EventWrite
	}
	if ev&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		mask |= api.EventError
	}
	return mask
}

// Add registers fd with epoll.
func (r *epollReactor) Add(fd int, mask api.EventMask) error {
	ev := unix.EpollEvent{Events: toEpoll(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Modify replaces the interest set of fd.
func (r *epollReactor) Modify(fd int, mask api.EventMask) error {
	ev := unix.EpollEvent{Events: toEpoll(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

// Remove unregisters fd.
func (r *epollReactor) Remove(fd int) error {
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Wait blocks for readiness. timeoutMs < 0 means block infinitely.
func (r *epollReactor) Wait(events []api.Event, timeoutMs int) (int, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("epoll wait: empty event buffer: %w", api.ErrInvalidArgument)
	}
	if cap(r.raw) < len(events) {
		r.raw = make([]unix.EpollEvent, len(events))
	}
	raw := r.raw[:len(events)]
	if timeoutMs < 0 {
		timeoutMs = -1
	}
	n, err := unix.EpollWait(r.epfd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil // interrupted by signal, normal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		events[i] = api.Event{Fd: int(raw[i].Fd), Mask: fromEpoll(raw[i].Events)}
	}
	return n, nil
}

// Close releases the epoll file descriptor.
func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
