// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"net"

	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/protocol"
)

// FullPolicy decides what happens when a connection arrives while every
// slot is taken.
type FullPolicy int

const (
	// OnFullReject closes the new connection and keeps serving.
	OnFullReject FullPolicy = iota
	// OnFullExit makes Run return api.ErrTableFull.
	OnFullExit
)

func (p FullPolicy) String() string {
	switch p {
	case OnFullReject:
		return "reject"
	case OnFullExit:
		return "exit"
	default:
		return "unknown"
	}
}

// ParseFullPolicy parses "reject" or "exit".
func ParseFullPolicy(s string) (FullPolicy, error) {
	switch s {
	case "reject":
		return OnFullReject, nil
	case "exit":
		return OnFullExit, nil
	}
	return 0, fmt.Errorf("full policy %q: %w", s, api.ErrInvalidArgument)
}

// Config holds all server-side configuration parameters.
type Config struct {
	ListenIP    string     // IPv4 bind address, "" = any
	Port        int        // TCP port, 0 = ephemeral
	ListenQueue int        // pending connection queue
	ReuseAddr   bool       // SO_REUSEADDR on the listening socket
	MaxClients  int        // slot table capacity
	MaxBacklog  int        // frames queued for a peer that stopped reading
	SendBuffer  int        // SO_SNDBUF for accepted sockets, 0 = kernel default
	EventBatch  int        // readiness events taken per wait
	OnFull      FullPolicy // capacity exhaustion policy
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenIP:    "",
		Port:        protocol.DefaultPort,
		ListenQueue: 5,
		ReuseAddr:   true,
		MaxClients:  protocol.DefaultMaxClients,
		MaxBacklog:  64,
		EventBatch:  128,
		OnFull:      OnFullReject,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range: %w", c.Port, api.ErrInvalidArgument)
	case c.MaxClients <= 0:
		return fmt.Errorf("max clients %d: %w", c.MaxClients, api.ErrInvalidArgument)
	case !protocol.LabelFits(c.MaxClients - 1):
		return fmt.Errorf("max clients %d: label exceeds %d bytes: %w",
			c.MaxClients, protocol.LabelBudget, api.ErrInvalidArgument)
	case c.MaxBacklog <= 0:
		return fmt.Errorf("max backlog %d: %w", c.MaxBacklog, api.ErrInvalidArgument)
	case c.SendBuffer < 0:
		return fmt.Errorf("send buffer %d: %w", c.SendBuffer, api.ErrInvalidArgument)
	case c.EventBatch <= 0:
		return fmt.Errorf("event batch %d: %w", c.EventBatch, api.ErrInvalidArgument)
	case c.OnFull != OnFullReject && c.OnFull != OnFullExit:
		return fmt.Errorf("full policy %d: %w", c.OnFull, api.ErrInvalidArgument)
	}
	if c.ListenIP != "" {
		ip := net.ParseIP(c.ListenIP)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("listen address %q is not IPv4: %w", c.ListenIP, api.ErrInvalidArgument)
		}
	}
	return nil
}

func (c *Config) snapshot() map[string]any {
	return map[string]any{
		"listen_ip":    c.ListenIP,
		"port":         c.Port,
		"listen_queue": c.ListenQueue,
		"max_clients":  c.MaxClients,
		"max_backlog":  c.MaxBacklog,
		"send_buffer":  c.SendBuffer,
		"event_batch":  c.EventBatch,
		"on_full":      c.OnFull.String(),
	}
}
