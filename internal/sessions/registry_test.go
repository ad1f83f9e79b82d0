package sessions

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestLoopEndsWhenStepReturnsTrue(t *testing.T) {
	r := newTestRegistry()
	var ticks atomic.Int64

	if err := r.Start("s1", time.Millisecond, func(tick uint64) bool {
		ticks.Add(1)
		return tick >= 3
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return !r.Running("s1") })
	if got := ticks.Load(); got != 3 {
		t.Fatalf("expected 3 ticks, got %d", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	if err := r.Start("s1", time.Millisecond, func(uint64) bool { return false }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start("s1", time.Millisecond, func(uint64) bool { return false }); err == nil {
		t.Fatalf("duplicate start must fail")
	}

	if !r.Stop("s1") {
		t.Fatalf("first stop should report a running loop")
	}
	if r.Stop("s1") {
		t.Fatalf("second stop must be a no-op")
	}
	if r.Len() != 0 {
		t.Fatalf("registry not empty after stop")
	}
}

func TestStopFromInsideStep(t *testing.T) {
	r := newTestRegistry()
	var ticks atomic.Int64

	if err := r.Start("s1", time.Millisecond, func(uint64) bool {
		ticks.Add(1)
		r.Stop("s1")
		return true
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return ticks.Load() == 1 && !r.Running("s1") })
	time.Sleep(10 * time.Millisecond)
	if ticks.Load() != 1 {
		t.Fatalf("loop kept running after stopping itself")
	}
}

func TestStopAllWaits(t *testing.T) {
	r := newTestRegistry()
	var running atomic.Int64
	for _, id := range []string{"a", "b", "c"} {
		if err := r.Start(id, time.Millisecond, func(uint64) bool {
			running.Store(1)
			return false
		}); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	waitFor(t, func() bool { return running.Load() == 1 })

	r.StopAll()
	if r.Len() != 0 {
		t.Fatalf("expected no loops after StopAll")
	}
}
