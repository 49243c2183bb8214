// File: api/logger.go
// Package api defines Logger interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Logger receives connection notices and per-connection errors.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Printf(string, ...any) {}
