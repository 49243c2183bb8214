// File: client/duplex.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Send and receive paths of a session.

package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/momentics/hioload-relay/protocol"
)

var errAlreadyStarted = errors.New("client: session already running")

// Run drives the session until the server goes away (nil), input ends
// (nil), ctx is done (ctx.Err()) or a send fails. It closes the connection
// and waits for the receive path before returning. out is written only by
// the receive path.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if !c.started.CompareAndSwap(false, true) {
		return errAlreadyStarted
	}
	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		c.receive(out)
	}()

	err := c.send(ctx, in)
	c.Close()
	<-recvDone
	return err
}

// receive renders every server unit as one display event. Any read error,
// EOF included, ends the path and brings the latch down.
func (c *Client) receive(out io.Writer) {
	frame := c.rx.Get()
	defer c.rx.Put(frame)
	for {
		n, err := io.ReadFull(c.conn, frame)
		if n > 0 {
			if _, werr := out.Write(protocol.Text(frame[:n])); werr != nil {
				c.log.Printf("render: %v", werr)
			}
		}
		if err != nil {
			if !c.quitting.Load() {
				fmt.Fprint(out, ClosingNotice)
			}
			c.alive.Down()
			return
		}
	}
}

// send transmits input lines while the latch is up. Waiting for input is
// cancellable: lines arrive through a channel fed by another goroutine.
func (c *Client) send(ctx context.Context, in io.Reader) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go feed(in, lines, readErr, stop)

	frame := c.tx.Get()
	defer c.tx.Put(frame)
	for {
		select {
		case <-c.alive.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		case line := <-lines:
			n, err := protocol.EncodeClientFrame(frame, line)
			if err != nil {
				return err
			}
			if _, err := c.conn.Write(frame[:n]); err != nil {
				if !c.alive.Alive() {
					return nil
				}
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

// feed splits input into lines of at most protocol.MaxLineLen bytes,
// newline included; longer lines continue in the next chunk.
func feed(in io.Reader, lines chan<- []byte, errc chan<- error, stop <-chan struct{}) {
	br := bufio.NewReaderSize(in, protocol.MaxLineLen)
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 {
			line := append([]byte(nil), chunk...)
			select {
			case lines <- line:
			case <-stop:
				return
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			errc <- err
			return
		}
	}
}
