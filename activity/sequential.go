package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cocomr/coco/cocoerr"
)

// SequentialActivity uses the calling thread: Start blocks inside the
// activity loop until Stop is called, which is the intended shape for a
// process's main thread (e.g. a UI event loop driving the runtime inline).
type SequentialActivity struct {
	name       string
	mode       Mode
	period     time.Duration
	singleShot bool
	logger     *slog.Logger

	runnables []Runnable

	mu      sync.Mutex
	cond    *sync.Cond
	active  bool
	stopped bool
	pending int
}

// NewSequential creates a SequentialActivity. period is ignored in
// Triggered mode.
func NewSequential(name string, mode Mode, period time.Duration, singleShot bool, logger *slog.Logger) *SequentialActivity {
	if logger == nil {
		logger = slog.Default()
	}
	a := &SequentialActivity{
		name:       name,
		mode:       mode,
		period:     period,
		singleShot: singleShot,
		logger:     logger.With(slog.String("activity", name)),
	}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// Add registers a runnable to be stepped, in registration order, once per
// tick. Assembly calls this before the first Start.
func (a *SequentialActivity) Add(r Runnable) {
	a.runnables = append(a.runnables, r)
}

func (a *SequentialActivity) IsPeriodic() bool { return a.mode == Periodic }

func (a *SequentialActivity) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Start runs initAll once, then blocks in the tick loop until Stop is
// called (or, in single-shot mode, after exactly one tick).
func (a *SequentialActivity) Start() error {
	a.mu.Lock()
	if a.active {
		a.mu.Unlock()
		return cocoerr.New("SequentialActivity.Start", cocoerr.KindAlreadyRunning, nil).
			WithContext(map[string]any{"activity": a.name})
	}
	a.active = true
	a.stopped = false
	a.mu.Unlock()

	if err := initAll(a.runnables); err != nil {
		a.mu.Lock()
		a.active = false
		a.mu.Unlock()
		return err
	}

	ctx := context.Background()
	if a.mode == Triggered {
		a.triggeredLoop(ctx)
	} else {
		a.periodicLoop(ctx)
	}

	finalizeAll(a.runnables, a.logger)
	a.mu.Lock()
	a.active = false
	a.mu.Unlock()
	return nil
}

func (a *SequentialActivity) periodicLoop(ctx context.Context) {
	next := time.Now()
	for {
		a.mu.Lock()
		if a.stopped {
			a.mu.Unlock()
			return
		}
		a.mu.Unlock()

		next = next.Add(a.period)
		if !a.sleepUntil(next) {
			return
		}

		runAll(ctx, a.logger, a.runnables)
		if a.singleShot {
			return
		}
	}
}

// sleepUntil waits in short increments so a concurrent Stop call is
// observed within condTimeout instead of only at the end of the full
// period. Returns false if Stop fired while waiting.
func (a *SequentialActivity) sleepUntil(deadline time.Time) bool {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			a.mu.Lock()
			stopped := a.stopped
			a.mu.Unlock()
			return !stopped
		}
		wait := remaining
		if wait > condTimeout {
			wait = condTimeout
		}
		time.Sleep(wait)

		a.mu.Lock()
		stopped := a.stopped
		a.mu.Unlock()
		if stopped {
			return false
		}
	}
}

func (a *SequentialActivity) triggeredLoop(ctx context.Context) {
	for {
		a.mu.Lock()
		for a.pending == 0 && !a.stopped {
			a.cond.Wait()
		}
		if a.stopped {
			a.mu.Unlock()
			return
		}
		a.pending = 0
		a.mu.Unlock()

		runAll(ctx, a.logger, a.runnables)
		if a.singleShot {
			return
		}
	}
}

// Stop sets the stop flag and, in Triggered mode, posts a trigger to
// unblock the condition wait. Calling Stop on an inactive activity is a
// no-op, matching the contract's idempotence requirement.
func (a *SequentialActivity) Stop() error {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	a.mu.Unlock()
	a.cond.Broadcast()
	return nil
}

// Join is a no-op: Start already blocks the calling thread for the
// activity's entire lifetime, so by the time a caller could reach Join,
// control has already returned via Stop.
func (a *SequentialActivity) Join() {}

// Trigger increments the pending count and wakes the triggered-mode wait.
// It is a no-op in Periodic mode.
func (a *SequentialActivity) Trigger() {
	if a.mode != Triggered {
		return
	}
	a.mu.Lock()
	a.pending++
	a.mu.Unlock()
	a.cond.Broadcast()
}
