//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

// internal/transport/transport_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stubs for platforms without a raw socket implementation.

package transport

import (
	"fmt"
	"net"

	"github.com/momentics/hioload-relay/api"
)

func Listen(ListenConfig) (*Listener, error) {
	return nil, fmt.Errorf("cannot create socket: %w", api.ErrNotSupported)
}

func Accept(int) (int, *net.TCPAddr, error) { return -1, nil, api.ErrNotSupported }
func Read(int, []byte) (int, error)        { return 0, api.ErrNotSupported }
func Write(int, []byte) (int, error)       { return 0, api.ErrNotSupported }
func Close(int) error                      { return api.ErrNotSupported }
func SetSendBuffer(int, int) error         { return api.ErrNotSupported }

func NewReserve() (*Reserve, error) {
	return nil, fmt.Errorf("open reserve: %w", api.ErrNotSupported)
}

func (r *Reserve) Shed(int) (*net.TCPAddr, error) { return nil, api.ErrNotSupported }
func (r *Reserve) Close() error                   { return api.ErrNotSupported }

func NewWaker() (*Waker, error) {
	return nil, fmt.Errorf("pipe: %w", api.ErrNotSupported)
}

func (w *Waker) Wake() error  { return api.ErrNotSupported }
func (w *Waker) Drain()       {}
func (w *Waker) Close() error { return api.ErrNotSupported }
