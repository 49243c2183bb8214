// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package pool

import "sync"

// ObjectPool is a generic object pool.
type ObjectPool[T any] interface {
	Get() T
	Put(T)
}

// SyncPool wraps sync.Pool for generic usage.
type SyncPool[T any] struct {
	pool *sync.Pool
}

// NewSyncPool creates a new SyncPool with a creator function.
func NewSyncPool[T any](creator func() T) *SyncPool[T] {
	return &SyncPool[T]{
		pool: &sync.Pool{New: func() any { return creator() }},
	}
}

// Get returns a pooled object or a fresh one from the creator. Objects come
// back as they were Put; clearing them is the caller's job (FramePool zeroes
// frames on both sides).
func (sp *SyncPool[T]) Get() T {
	return sp.pool.Get().(T)
}

// Put hands obj back for reuse. The caller must not touch it afterwards.
func (sp *SyncPool[T]) Put(obj T) {
	sp.pool.Put(obj)
}
