// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Relay wire constants

package protocol

const (
	// DefaultPort is used when no port argument is given.
	DefaultPort = 7000

	// ClientFrameSize is the fixed unit a client sends per line.
	ClientFrameSize = 1024

	// LabelBudget is the room reserved in a forward frame for the origin label.
	LabelBudget = 30

	// ServerFrameSize is the fixed unit the server forwards to each peer.
	ServerFrameSize = ClientFrameSize + LabelBudget

	// MaxLineLen is the longest line carried by one client frame; longer
	// input is split across frames. The last byte stays NUL.
	MaxLineLen = ClientFrameSize - 1

	// DefaultMaxClients is the historic select(2) FD_SETSIZE.
	DefaultMaxClients = 1024
)
