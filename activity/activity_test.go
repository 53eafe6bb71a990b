package activity

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunnable struct {
	initCalls     atomic.Int32
	stepCalls     atomic.Int32
	finalizeCalls atomic.Int32
}

func (r *countingRunnable) Init() error                  { r.initCalls.Add(1); return nil }
func (r *countingRunnable) Step(ctx context.Context) error { r.stepCalls.Add(1); return nil }
func (r *countingRunnable) Finalize() error               { r.finalizeCalls.Add(1); return nil }

func TestSequentialSingleShotRunsExactlyOnce(t *testing.T) {
	r := &countingRunnable{}
	a := NewSequential("a", Periodic, time.Millisecond, true, nil)
	a.Add(r)

	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.stepCalls.Load() != 1 {
		t.Fatalf("stepCalls = %d, want 1", r.stepCalls.Load())
	}
	if r.initCalls.Load() != 1 || r.finalizeCalls.Load() != 1 {
		t.Fatalf("init/finalize = %d/%d, want 1/1", r.initCalls.Load(), r.finalizeCalls.Load())
	}
}

func TestParallelPeriodicStopsPromptly(t *testing.T) {
	r := &countingRunnable{}
	a := NewParallel("p", Periodic, 5*time.Millisecond, false, nil)
	a.Add(r)

	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	a.Join()

	if a.IsActive() {
		t.Fatal("activity should be inactive after Join")
	}
	if r.stepCalls.Load() == 0 {
		t.Fatal("expected at least one step before stopping")
	}
}

func TestParallelTriggeredCoalescesPendingTriggers(t *testing.T) {
	gate := make(chan struct{})
	r := &blockingRunnable{gate: gate}
	a := NewParallel("t", Triggered, 0, false, nil)
	a.Add(r)

	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	a.Trigger()
	time.Sleep(10 * time.Millisecond) // let the first tick enter the blocking step
	a.Trigger()
	a.Trigger()
	a.Trigger()
	close(gate)

	time.Sleep(20 * time.Millisecond)
	a.Stop()
	a.Join()

	if got := r.stepCalls.Load(); got != 2 {
		t.Fatalf("stepCalls = %d, want 2 (one in-flight tick + one coalesced wake)", got)
	}
}

type blockingRunnable struct {
	gate      chan struct{}
	once      atomic.Bool
	stepCalls atomic.Int32
}

func (r *blockingRunnable) Init() error { return nil }
func (r *blockingRunnable) Step(ctx context.Context) error {
	if r.once.CompareAndSwap(false, true) {
		<-r.gate
	}
	r.stepCalls.Add(1)
	return nil
}
func (r *blockingRunnable) Finalize() error { return nil }
