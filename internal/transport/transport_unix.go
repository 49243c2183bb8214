//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// internal/transport/transport_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unix implementation on top of golang.org/x/sys/unix.

package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Listen creates, binds and listens on an IPv4 TCP socket.
// Every step is wrapped with the name of the failing call.
func Listen(cfg ListenConfig) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot create socket: %w", err)
	}
	unix.CloseOnExec(fd)

	if cfg.ReuseAddr {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("setsockopt: %w", err)
		}
	}

	sa := &unix.SockaddrInet4{Port: cfg.Port}
	if ip4 := cfg.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	} else if cfg.IP != nil && !cfg.IP.IsUnspecified() {
		unix.Close(fd)
		return nil, fmt.Errorf("bind error: %s is not an IPv4 address", cfg.IP)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind error: %w", err)
	}

	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen error: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set nonblock: %w", err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	return &Listener{Fd: fd, Addr: tcpAddr(bound)}, nil
}

// Accept takes one pending connection off the listen queue and makes it
// non-blocking. It returns ErrWouldBlock when the queue is empty.
func Accept(lfd int) (int, *net.TCPAddr, error) {
	for {
		nfd, sa, err := unix.Accept(lfd)
		switch err {
		case nil:
		case unix.EINTR:
			continue
		case unix.EAGAIN, unix.ECONNABORTED:
			return -1, nil, ErrWouldBlock
		case unix.EMFILE, unix.ENFILE:
			return -1, nil, fmt.Errorf("accept: %w: %w", ErrNoDescriptors, err)
		default:
			return -1, nil, fmt.Errorf("accept error: %w", err)
		}
		unix.CloseOnExec(nfd)
		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			return -1, nil, fmt.Errorf("set nonblock: %w", err)
		}
		return nfd, tcpAddr(sa), nil
	}
}

// Read reads once from fd. A zero count with nil error is an orderly close.
func Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrWouldBlock
		default:
			return 0, err
		}
	}
}

// Write writes as much of p as the socket accepts right now.
// A short count with ErrWouldBlock means the send buffer is full.
func Write(fd int, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.Write(fd, p[written:])
		if n > 0 {
			written += n
		}
		switch err {
		case nil:
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return written, ErrWouldBlock
		default:
			return written, err
		}
	}
	return written, nil
}

// Close closes fd.
func Close(fd int) error {
	return unix.Close(fd)
}

// SetSendBuffer sets SO_SNDBUF on fd. The kernel may round the value.
func SetSendBuffer(fd, bytes int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, bytes); err != nil {
		return fmt.Errorf("setsockopt SO_SNDBUF: %w", err)
	}
	return nil
}

// NewReserve opens the spare descriptor.
func NewReserve() (*Reserve, error) {
	fd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open reserve: %w", err)
	}
	return &Reserve{fd: fd}, nil
}

// Shed releases the spare descriptor, accepts one pending connection on lfd
// and closes it at once, then takes the spare back. It returns the dropped
// peer, or nil when nothing was pending. An accept failure is returned after
// the spare is restored; a failure to restore it leaves Shed unusable.
func (r *Reserve) Shed(lfd int) (*net.TCPAddr, error) {
	if r.fd >= 0 {
		unix.Close(r.fd)
		r.fd = -1
	}
	var (
		peer      *net.TCPAddr
		acceptErr error
	)
	for {
		nfd, sa, err := unix.Accept(lfd)
		switch err {
		case nil:
			unix.Close(nfd)
			peer = tcpAddr(sa)
		case unix.EINTR:
			continue
		case unix.EAGAIN, unix.ECONNABORTED:
		default:
			acceptErr = fmt.Errorf("accept error: %w", err)
		}
		break
	}
	fd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return peer, fmt.Errorf("reopen reserve: %w", err)
	}
	r.fd = fd
	return peer, acceptErr
}

// Close releases the spare descriptor.
func (r *Reserve) Close() error {
	if r.fd < 0 {
		return nil
	}
	err := unix.Close(r.fd)
	r.fd = -1
	return err
}

// NewWaker creates a non-blocking self-pipe.
func NewWaker() (*Waker, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("set nonblock: %w", err)
		}
	}
	return &Waker{r: p[0], w: p[1]}, nil
}

// Wake makes the read end readable. Safe for concurrent use.
func (w *Waker) Wake() error {
	_, err := unix.Write(w.w, []byte{1})
	if err == unix.EAGAIN {
		return nil // already pending
	}
	return err
}

// Drain empties the pipe.
func (w *Waker) Drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close closes both ends.
func (w *Waker) Close() error {
	err := unix.Close(w.r)
	if werr := unix.Close(w.w); err == nil {
		err = werr
	}
	return err
}

func tcpAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IPv4(a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3]), Port: a.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, a.Addr[:])
		return &net.TCPAddr{IP: ip, Port: a.Port}
	default:
		return &net.TCPAddr{}
	}
}
