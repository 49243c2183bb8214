package control_test

import (
	"sync"
	"testing"

	"github.com/momentics/hioload-relay/control"
)

func TestMetricsAddConcurrent(t *testing.T) {
	mr := control.NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				mr.Add("frames", 1)
			}
		}()
	}
	wg.Wait()
	if got := mr.GetSnapshot()["frames"]; got != int64(800) {
		t.Fatalf("frames = %v, want 800", got)
	}
	if mr.Updated().IsZero() {
		t.Error("Updated not tracked")
	}
}

func TestConfigSnapshotIsCopy(t *testing.T) {
	cs := control.NewConfigStore()
	cs.SetConfig(map[string]any{"max_clients": 4})
	snap := cs.GetSnapshot()
	snap["max_clients"] = 99
	if cs.GetSnapshot()["max_clients"] != 4 {
		t.Error("snapshot aliases the store")
	}
}

func TestDebugProbes(t *testing.T) {
	dp := control.NewDebugProbes()
	control.RegisterPlatformProbes(dp)
	dp.RegisterProbe("answer", func() any { return 42 })
	state := dp.DumpState()
	if state["answer"] != 42 {
		t.Errorf("answer = %v", state["answer"])
	}
	if _, ok := state["platform.cpus"]; !ok {
		t.Error("platform probes missing")
	}
}

func TestDebugProbePanicAndUnregister(t *testing.T) {
	dp := control.NewDebugProbes()
	dp.RegisterProbe("bad", func() any { panic("boom") })
	dp.RegisterProbe("good", func() any { return "ok" })

	state := dp.DumpState()
	if _, ok := state["bad"].(error); !ok {
		t.Errorf("bad = %v, want error value", state["bad"])
	}
	if state["good"] != "ok" {
		t.Errorf("good = %v", state["good"])
	}

	dp.UnregisterProbe("bad")
	if names := dp.Names(); len(names) != 1 || names[0] != "good" {
		t.Errorf("Names = %v", names)
	}
}
