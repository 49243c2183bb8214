// File: protocol/frame_codec.go
// Package protocol implements the fixed-size frame codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Every encoder zero-fills the whole destination first, so a shorter
// message can never carry trailing bytes of a previous, longer one.

package protocol

import (
	"bytes"
	"errors"
	"strconv"
)

var (
	ErrShortBuffer   = errors.New("protocol: destination shorter than frame size")
	ErrLabelTooLarge = errors.New("protocol: origin label exceeds label budget")
)

// Label returns the origin label prepended to forwarded text.
func Label(slot int) string {
	return "Client " + strconv.Itoa(slot) + ": "
}

// LabelFits reports whether the label of slot fits LabelBudget.
func LabelFits(slot int) bool {
	return slot >= 0 && len(Label(slot)) <= LabelBudget
}

// Text returns the displayable part of a received unit: everything before
// the first NUL byte.
func Text(frame []byte) []byte {
	if i := bytes.IndexByte(frame, 0); i >= 0 {
		return frame[:i]
	}
	return frame
}

func zero(b []byte) {
	clear(b)
}

// EncodeClientFrame writes line into dst as a ClientFrameSize unit.
// Lines longer than MaxLineLen are truncated; the caller splits input so
// that never happens. Returns the unit length.
func EncodeClientFrame(dst, line []byte) (int, error) {
	if len(dst) < ClientFrameSize {
		return 0, ErrShortBuffer
	}
	frame := dst[:ClientFrameSize]
	zero(frame)
	if len(line) > MaxLineLen {
		line = line[:MaxLineLen]
	}
	copy(frame, line)
	return ClientFrameSize, nil
}

// EncodeForward writes "Client <origin>: " + payload into dst as a
// ServerFrameSize unit. payload is cut at its first NUL and truncated to
// the space left after the label. Returns the unit length.
func EncodeForward(dst []byte, origin int, payload []byte) (int, error) {
	if len(dst) < ServerFrameSize {
		return 0, ErrShortBuffer
	}
	if !LabelFits(origin) {
		return 0, ErrLabelTooLarge
	}
	frame := dst[:ServerFrameSize]
	zero(frame)
	n := copy(frame, Label(origin))
	text := Text(payload)
	// keep the trailing NUL so receivers always find a terminator
	room := ServerFrameSize - 1 - n
	if len(text) > room {
		text = text[:room]
	}
	copy(frame[n:], text)
	return ServerFrameSize, nil
}
