// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, effective configuration and debug introspection layer
// for hioload-relay.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads
//   - Counters and gauges for the relay event loop
//   - Debug probes evaluated on demand
//
// The event loop is the only writer; readers may be any goroutine.
package control
