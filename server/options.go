// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "github.com/momentics/hioload-relay/api"

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger routes connection notices and per-connection errors.
func WithLogger(l api.Logger) ServerOption {
	return func(s *Server) {
		if l == nil {
			l = api.NopLogger{}
		}
		s.log = l
	}
}

// WithControl replaces the control adapter that collects metrics.
func WithControl(c api.Control) ServerOption {
	return func(s *Server) {
		s.control = c
	}
}

// WithMaxClients overrides the slot table capacity.
func WithMaxClients(n int) ServerOption {
	return func(s *Server) {
		s.cfg.MaxClients = n
	}
}

// WithMaxBacklog overrides how many frames may queue for a slow peer.
func WithMaxBacklog(n int) ServerOption {
	return func(s *Server) {
		s.cfg.MaxBacklog = n
	}
}

// WithSendBuffer sets SO_SNDBUF on every accepted connection.
func WithSendBuffer(bytes int) ServerOption {
	return func(s *Server) {
		s.cfg.SendBuffer = bytes
	}
}

// WithFullPolicy sets the capacity exhaustion policy.
func WithFullPolicy(p FullPolicy) ServerOption {
	return func(s *Server) {
		s.cfg.OnFull = p
	}
}
