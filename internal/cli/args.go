// Package cli
// Author: momentics <momentics@gmail.com>
//
// Positional argument handling shared by the relay binaries.

package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/momentics/hioload-relay/protocol"
)

// ErrUsage reports a wrong argument count or form.
var ErrUsage = errors.New("usage")

// ParsePort parses a TCP port argument.
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("%w: invalid port %q", ErrUsage, s)
	}
	return p, nil
}

// ServerArgs parses "[port]".
func ServerArgs(args []string) (int, error) {
	switch len(args) {
	case 0:
		return protocol.DefaultPort, nil
	case 1:
		return ParsePort(args[0])
	default:
		return 0, ErrUsage
	}
}

// ClientArgs parses "host [port]".
func ClientArgs(args []string) (string, int, error) {
	switch len(args) {
	case 1:
		return args[0], protocol.DefaultPort, nil
	case 2:
		port, err := ParsePort(args[1])
		return args[0], port, err
	default:
		return "", 0, ErrUsage
	}
}
