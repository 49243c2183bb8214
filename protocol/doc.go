// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the relay wire convention shared by server and client.
//
// There is no header, length prefix or version. Each transmission unit is a
// fixed-size, zero-padded byte block and is displayed as one event:
//   - client to server: ClientFrameSize bytes holding one input line
//   - server to client: ServerFrameSize bytes holding "Client <N>: " + line
//
// Receivers stop reading the text of a unit at the first NUL byte.
package protocol
