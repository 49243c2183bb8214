package client_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/momentics/hioload-relay/client"
)

func TestLivenessTransitionsOnce(t *testing.T) {
	l := client.NewLiveness()
	if !l.Alive() {
		t.Fatal("new latch must be alive")
	}
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Down() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("%d callers performed the transition, want 1", wins.Load())
	}
	if l.Alive() {
		t.Error("latch still alive")
	}
	select {
	case <-l.Done():
	default:
		t.Error("Done not closed")
	}
}
