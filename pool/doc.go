// Package pool
// Author: momentics <momentics@gmail.com>
//
// Buffer pooling for hioload-relay.
// Frames handed out by FramePool are always fully zeroed, which is what keeps
// fixed-size transmission units free of residual bytes from earlier messages.
package pool
