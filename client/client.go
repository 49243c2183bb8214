// File: client/client.go
// Package client provides the duplex relay client: one connection, a send
// path fed by user input and a receive path rendering server frames, running
// concurrently so neither direction waits on the other.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/pool"
	"github.com/momentics/hioload-relay/protocol"
)

// ClosingNotice is rendered when the server side of the connection drops.
const ClosingNotice = "Connection closed. Please press any key and enter to close the application."

// ClientConfig holds the server endpoint.
type ClientConfig struct {
	Host string // host name or IPv4 address
	Port int    // 0 = protocol.DefaultPort
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithLogger routes client diagnostics.
func WithLogger(l api.Logger) ClientOption {
	return func(c *Client) {
		if l == nil {
			l = api.NopLogger{}
		}
		c.log = l
	}
}

// WithDialer replaces the dialer used by Dial.
func WithDialer(d *net.Dialer) ClientOption {
	return func(c *Client) {
		c.dialer = d
	}
}

// Client is one relay session.
type Client struct {
	conn     net.Conn
	alive    *Liveness
	tx       *pool.FramePool
	rx       *pool.FramePool
	log      api.Logger
	dialer   *net.Dialer
	quitting atomic.Bool
	started  atomic.Bool
}

func newClient(opts []ClientOption) *Client {
	c := &Client{
		alive:  NewLiveness(),
		tx:     pool.NewFramePool(protocol.ClientFrameSize),
		rx:     pool.NewFramePool(protocol.ServerFrameSize),
		log:    log.New(os.Stderr, "", 0),
		dialer: &net.Dialer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to the relay server over IPv4. There is no retry; a
// failure wraps api.ErrConnect.
func Dial(ctx context.Context, cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	c := newClient(opts)
	port := cfg.Port
	if port == 0 {
		port = protocol.DefaultPort
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d: %w", api.ErrConnect, port, api.ErrInvalidArgument)
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	conn, err := c.dialer.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrConnect, err)
	}
	c.conn = conn
	return c, nil
}

// New wraps an established connection.
func New(conn net.Conn, opts ...ClientOption) *Client {
	c := newClient(opts)
	c.conn = conn
	return c
}

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Liveness exposes the session latch.
func (c *Client) Liveness() *Liveness {
	return c.alive
}

// Close ends the session without rendering the closing notice.
func (c *Client) Close() error {
	c.quitting.Store(true)
	return c.conn.Close()
}
