package cli_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-relay/internal/cli"
	"github.com/momentics/hioload-relay/protocol"
)

func TestServerArgs(t *testing.T) {
	if p, err := cli.ServerArgs(nil); err != nil || p != protocol.DefaultPort {
		t.Errorf("no args: %d, %v", p, err)
	}
	if p, err := cli.ServerArgs([]string{"7100"}); err != nil || p != 7100 {
		t.Errorf("port arg: %d, %v", p, err)
	}
	for _, bad := range [][]string{{"x"}, {"0"}, {"65536"}, {"1", "2"}} {
		if _, err := cli.ServerArgs(bad); !errors.Is(err, cli.ErrUsage) {
			t.Errorf("%v: err = %v", bad, err)
		}
	}
}

func TestClientArgs(t *testing.T) {
	host, port, err := cli.ClientArgs([]string{"localhost"})
	if err != nil || host != "localhost" || port != protocol.DefaultPort {
		t.Errorf("host only: %s %d %v", host, port, err)
	}
	host, port, err = cli.ClientArgs([]string{"10.0.0.1", "9000"})
	if err != nil || host != "10.0.0.1" || port != 9000 {
		t.Errorf("host port: %s %d %v", host, port, err)
	}
	if _, _, err := cli.ClientArgs(nil); !errors.Is(err, cli.ErrUsage) {
		t.Errorf("no args: %v", err)
	}
	if _, _, err := cli.ClientArgs([]string{"h", "p"}); !errors.Is(err, cli.ErrUsage) {
		t.Errorf("bad port: %v", err)
	}
}
