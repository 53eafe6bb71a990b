package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cocomr/coco/cocoerr"
)

// ParallelActivity allocates one goroutine at Start, standing in for the
// dedicated OS thread the original design owns per activity. Periodic and
// triggered modes match SequentialActivity's semantics; the difference is
// that Start returns immediately and Join waits for the loop to exit.
type ParallelActivity struct {
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
	done    chan struct{}
}

// NewParallel creates a ParallelActivity. period is ignored in Triggered
// mode.
func NewParallel(name string, mode Mode, period time.Duration, singleShot bool, logger *slog.Logger) *ParallelActivity {
	if logger == nil {
		logger = slog.Default()
	}
	a := &ParallelActivity{
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
func (a *ParallelActivity) Add(r Runnable) {
	a.runnables = append(a.runnables, r)
}

func (a *ParallelActivity) IsPeriodic() bool { return a.mode == Periodic }

func (a *ParallelActivity) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Start runs initAll synchronously (so a configuration error surfaces to
// the caller immediately), then launches the tick loop on its own
// goroutine and returns.
func (a *ParallelActivity) Start() error {
	a.mu.Lock()
	if a.active {
		a.mu.Unlock()
		return cocoerr.New("ParallelActivity.Start", cocoerr.KindAlreadyRunning, nil).
			WithContext(map[string]any{"activity": a.name})
	}
	a.active = true
	a.stopped = false
	a.done = make(chan struct{})
	a.mu.Unlock()

	if err := initAll(a.runnables); err != nil {
		a.mu.Lock()
		a.active = false
		a.mu.Unlock()
		return err
	}

	go a.run()
	return nil
}

func (a *ParallelActivity) run() {
	ctx := context.Background()
	if a.mode == Triggered {
		a.triggeredLoop(ctx)
	} else {
		a.periodicLoop(ctx)
	}
	finalizeAll(a.runnables, a.logger)

	a.mu.Lock()
	a.active = false
	done := a.done
	a.mu.Unlock()
	close(done)
}

func (a *ParallelActivity) periodicLoop(ctx context.Context) {
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

func (a *ParallelActivity) sleepUntil(deadline time.Time) bool {
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

func (a *ParallelActivity) triggeredLoop(ctx context.Context) {
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

// Stop sets the stop flag under the lock, signals the condition variable
// to unblock a triggered-mode wait, and returns without waiting for the
// goroutine to exit — callers that need that use Join. Calling Stop on an
// inactive activity is a no-op.
func (a *ParallelActivity) Stop() error {
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

// Join waits for the activity's goroutine to exit.
func (a *ParallelActivity) Join() {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Trigger increments the pending count and wakes the triggered-mode wait,
// coalescing any triggers that arrive while a tick is already in flight.
// It is a no-op in Periodic mode.
func (a *ParallelActivity) Trigger() {
	if a.mode != Triggered {
		return
	}
	a.mu.Lock()
	a.pending++
	a.mu.Unlock()
	a.cond.Broadcast()
}
