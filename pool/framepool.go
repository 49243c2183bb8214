// File: pool/framepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync/atomic"

// FramePool hands out zeroed byte slices of one fixed size.
// It is safe for concurrent use.
type FramePool struct {
	objs   ObjectPool[*[]byte]
	size   int
	allocs atomic.Int64
	inUse  atomic.Int64
}

// FramePoolStats aggregates allocation/reuse counters.
type FramePoolStats struct {
	Size   int
	Allocs int64
	InUse  int64
}

// NewFramePool creates a pool of size-byte frames.
func NewFramePool(size int) *FramePool {
	fp := &FramePool{size: size}
	fp.objs = NewSyncPool(func() *[]byte {
		fp.allocs.Add(1)
		b := make([]byte, size)
		return &b
	})
	return fp
}

// Size returns the frame length.
func (fp *FramePool) Size() int {
	return fp.size
}

// Get returns a zeroed frame of Size bytes.
func (fp *FramePool) Get() []byte {
	fp.inUse.Add(1)
	return (*fp.objs.Get())[:fp.size]
}

// Put zeroes the frame and returns it to the pool. buf must come from Get;
// if it was resliced below Size capacity it is still released from InUse
// but dropped instead of reused. The caller must not touch buf afterwards.
func (fp *FramePool) Put(buf []byte) {
	fp.inUse.Add(-1)
	if cap(buf) < fp.size {
		return
	}
	buf = buf[:fp.size]
	clear(buf)
	fp.objs.Put(&buf)
}

// Stats exposes counters for observability.
func (fp *FramePool) Stats() FramePoolStats {
	return FramePoolStats{
		Size:   fp.size,
		Allocs: fp.allocs.Load(),
		InUse:  fp.inUse.Load(),
	}
}
