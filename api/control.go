// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control exposes effective config, runtime metrics and debug probes.
type Control interface {
	GetConfig() map[string]any
	SetConfig(cfg map[string]any)
	SetMetric(key string, value any)
	AddMetric(key string, delta int64)
	Stats() map[string]any
	RegisterDebugProbe(name string, fn func() any)
}
