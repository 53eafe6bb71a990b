// Package activity implements the two scheduling units that drive task
// engines: SequentialActivity, which uses the calling thread, and
// ParallelActivity, which owns a dedicated goroutine. Both share the
// {start, stop, join, trigger, is_periodic, is_active} contract and run
// their bound runnables, in registration order, once per tick.
package activity

import (
	"context"
	"log/slog"
	"time"
)

// Mode selects how an activity schedules its ticks.
type Mode int

const (
	// Periodic fires once every Period.
	Periodic Mode = iota
	// Triggered fires once per call to Trigger, coalescing any triggers
	// that arrive while a tick is already running.
	Triggered
)

func (m Mode) String() string {
	if m == Triggered {
		return "triggered"
	}
	return "periodic"
}

// Runnable is the capability an activity needs from each bound unit of
// work: the engine package's Engine satisfies this directly.
type Runnable interface {
	Init() error
	Step(ctx context.Context) error
	Finalize() error
}

// Activity is the common contract shared by SequentialActivity and
// ParallelActivity.
type Activity interface {
	Start() error
	Stop() error
	Join()
	Trigger()
	IsPeriodic() bool
	IsActive() bool
}

// condTimeout bounds how long a periodic wait blocks before re-checking
// the stop flag, implementing the condvar-with-short-timeouts redesign:
// stop can preempt a waiting activity within this bound rather than only
// at the end of the full period.
const condTimeout = 50 * time.Millisecond

func runAll(ctx context.Context, logger *slog.Logger, runnables []Runnable) {
	for _, r := range runnables {
		if err := r.Step(ctx); err != nil {
			logger.Warn("runnable step returned an error", slog.Any("error", err))
		}
	}
}

func initAll(runnables []Runnable) error {
	for _, r := range runnables {
		if err := r.Init(); err != nil {
			return err
		}
	}
	return nil
}

func finalizeAll(runnables []Runnable, logger *slog.Logger) {
	for _, r := range runnables {
		if err := r.Finalize(); err != nil {
			logger.Warn("runnable finalize returned an error", slog.Any("error", err))
		}
	}
}
