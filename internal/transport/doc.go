// Package transport
// Author: momentics <momentics@gmail.com>
//
// Raw non-blocking TCP primitives used by the relay event loop:
// listening socket setup, accept, read, write, close and a self-pipe
// used to wake a blocked reactor from another goroutine.
// Platform specific code lives in transport_unix.go; other platforms get
// stubs returning api.ErrNotSupported.
package transport
