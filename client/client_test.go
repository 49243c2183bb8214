package client_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/client"
	"github.com/momentics/hioload-relay/protocol"
)

const waitTimeout = 5 * time.Second

// syncBuffer is an io.Writer safe to inspect while the receive path writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) waitFor(t *testing.T, sub string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if strings.Contains(b.String(), sub) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output %q never contained %q", b.String(), sub)
}

// session dials a loopback listener and returns both ends.
func session(t *testing.T) (*client.Client, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()
	port := ln.Addr().(*net.TCPAddr).Port
	c, err := client.Dial(context.Background(), client.ClientConfig{Host: "127.0.0.1", Port: port},
		client.WithLogger(api.NopLogger{}))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	peer, ok := <-accepted
	if !ok {
		t.Fatal("accept failed")
	}
	t.Cleanup(func() { peer.Close() })
	return c, peer
}

func forward(t *testing.T, conn net.Conn, origin int, text string) {
	t.Helper()
	frame := make([]byte, protocol.ServerFrameSize)
	protocol.EncodeForward(frame, origin, []byte(text))
	if _, err := conn.Write(frame); err != nil {
		t.Fatal(err)
	}
}

func runAsync(c *client.Client, ctx context.Context, in io.Reader, out io.Writer) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx, in, out) }()
	return errc
}

func wait(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestSendPathWritesFixedFrames(t *testing.T) {
	c, peer := session(t)
	out := &syncBuffer{}
	err := c.Run(context.Background(), strings.NewReader("hello\nworld\n"), out)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	peer.SetReadDeadline(time.Now().Add(waitTimeout))
	data, err := io.ReadAll(peer)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2*protocol.ClientFrameSize {
		t.Fatalf("server got %d bytes, want %d", len(data), 2*protocol.ClientFrameSize)
	}
	if got := string(protocol.Text(data[:protocol.ClientFrameSize])); got != "hello\n" {
		t.Errorf("frame 1 = %q", got)
	}
	if got := string(protocol.Text(data[protocol.ClientFrameSize:])); got != "world\n" {
		t.Errorf("frame 2 = %q", got)
	}
	if strings.Contains(out.String(), client.ClosingNotice) {
		t.Error("closing notice rendered after a local quit")
	}
}

func TestLongLineIsSplit(t *testing.T) {
	c, peer := session(t)
	line := strings.Repeat("a", 1500) + "\n"
	if err := c.Run(context.Background(), strings.NewReader(line), io.Discard); err != nil {
		t.Fatal(err)
	}
	peer.SetReadDeadline(time.Now().Add(waitTimeout))
	data, _ := io.ReadAll(peer)
	if len(data) != 2*protocol.ClientFrameSize {
		t.Fatalf("server got %d bytes", len(data))
	}
	first := protocol.Text(data[:protocol.ClientFrameSize])
	second := protocol.Text(data[protocol.ClientFrameSize:])
	if len(first) != protocol.MaxLineLen || string(first)+string(second) != line {
		t.Fatalf("split %d + %d bytes does not rebuild the line", len(first), len(second))
	}
}

func TestReceiveWhileInputPending(t *testing.T) {
	c, peer := session(t)
	inR, inW := io.Pipe()
	defer inW.Close()
	out := &syncBuffer{}
	errc := runAsync(c, context.Background(), inR, out)

	forward(t, peer, 3, "hi there\n")
	out.waitFor(t, "Client 3: hi there\n")

	peer.Close()
	if err := wait(t, errc); err != nil {
		t.Fatalf("Run() = %v, want nil after server close", err)
	}
	if !strings.HasSuffix(out.String(), client.ClosingNotice) {
		t.Errorf("output %q lacks the closing notice", out.String())
	}
	if c.Liveness().Alive() {
		t.Error("liveness still up after server close")
	}
}

func TestInputStillFlowsWhileReceiving(t *testing.T) {
	c, peer := session(t)
	inR, inW := io.Pipe()
	out := &syncBuffer{}
	errc := runAsync(c, context.Background(), inR, out)

	forward(t, peer, 0, "incoming\n")
	out.waitFor(t, "Client 0: incoming\n")

	go inW.Write([]byte("outgoing\n"))
	frame := make([]byte, protocol.ClientFrameSize)
	peer.SetReadDeadline(time.Now().Add(waitTimeout))
	if _, err := io.ReadFull(peer, frame); err != nil {
		t.Fatal(err)
	}
	if got := string(protocol.Text(frame)); got != "outgoing\n" {
		t.Fatalf("server got %q", got)
	}
	inW.Close()
	if err := wait(t, errc); err != nil {
		t.Fatal(err)
	}
}

func TestContextCancelEndsSession(t *testing.T) {
	c, _ := session(t)
	inR, inW := io.Pipe()
	defer inW.Close()
	ctx, cancel := context.WithCancel(context.Background())
	errc := runAsync(c, ctx, inR, io.Discard)
	cancel()
	if err := wait(t, errc); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
}

func TestDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = client.Dial(context.Background(), client.ClientConfig{Host: "127.0.0.1", Port: port})
	if !errors.Is(err, api.ErrConnect) {
		t.Fatalf("Dial() = %v, want ErrConnect", err)
	}
	_, err = client.Dial(context.Background(), client.ClientConfig{Host: "127.0.0.1", Port: 70000})
	if !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("Dial() bad port = %v", err)
	}
}

func TestRunTwice(t *testing.T) {
	c, _ := session(t)
	if err := c.Run(context.Background(), strings.NewReader(""), io.Discard); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if err := c.Run(context.Background(), strings.NewReader(""), io.Discard); err == nil {
		t.Error("second Run() succeeded")
	}
}
