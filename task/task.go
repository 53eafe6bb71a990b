package task

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/cocomr/coco/cocoerr"
)

// Component is the set of virtual lifecycle hooks a concrete task type
// implements. init runs once, directly, on the assembly thread before any
// activity starts. on_config and on_update run on the task's activity
// thread, driven by its execution engine.
type Component interface {
	// Init runs exactly once, before the task's activity is started.
	Init(t *Task) error
	// OnConfig runs once, the first time the task transitions out of
	// Init, and moves the task to Fatal if it returns an error.
	OnConfig(t *Task) error
	// OnUpdate runs once per engine step while the task is Running.
	OnUpdate(t *Task) error
	// OnAborted runs when the task moves to Fatal, carrying the error
	// that caused the transition (nil if Fail was called explicitly).
	OnAborted(t *Task, err error)
}

// NopComponent is a Component whose hooks all succeed and do nothing,
// embeddable by components that only need a subset of the lifecycle.
type NopComponent struct{}

func (NopComponent) Init(*Task) error       { return nil }
func (NopComponent) OnConfig(*Task) error   { return nil }
func (NopComponent) OnUpdate(*Task) error   { return nil }
func (NopComponent) OnAborted(*Task, error) {}

// Activity is the capability a Task needs from its bound scheduling unit:
// enough to forward start/stop/trigger without the task package depending
// on the activity package's concrete types.
type Activity interface {
	Start() error
	Stop() error
	Trigger()
}

// Task extends Service with identity, a lifecycle state, and bindings to
// an execution engine and an activity. Identity is (TypeName, InstanceName).
type Task struct {
	*Service

	typeName     string
	instanceName string
	component    Component
	logger       *slog.Logger

	mu       sync.Mutex
	state    State
	activity Activity
	pending  []pendingCall
}

// New creates a task of the given registered type and instance name,
// wrapping component. Its Service namespace starts empty; callers add
// attributes/ports/operations before assembly wires connections.
func New(typeName, instanceName string, component Component, logger *slog.Logger) *Task {
	if logger == nil {
		logger = slog.Default()
	}
	return &Task{
		Service:      NewService(instanceName),
		typeName:     typeName,
		instanceName: instanceName,
		component:    component,
		logger:       logger.With(slog.String("task_type", typeName), slog.String("task_instance", instanceName)),
		state:        Init,
	}
}

func (t *Task) TypeName() string     { return t.typeName }
func (t *Task) InstanceName() string { return t.instanceName }
func (t *Task) Logger() *slog.Logger { return t.logger }

// QualifiedPrefix is the owner_instance_name half of a port's qualified
// name, matching the port package's own QualifiedName composition.
func (t *Task) QualifiedPrefix() string { return t.instanceName }

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// BindActivity attaches the activity that will drive this task's engine.
// Assembly calls this once per task, before any activity starts.
func (t *Task) BindActivity(a Activity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activity = a
}

// Activity returns the task's bound activity, or nil if none has been
// bound yet. Assembly uses this to compare two connected tasks' activity
// bindings when validating an UNSYNC connection's activity-boundary rule.
func (t *Task) Activity() Activity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activity
}

// RunInit invokes the component's one-time Init hook. Assembly calls this
// directly, on the assembly thread, before starting any activity.
func (t *Task) RunInit() error {
	return t.component.Init(t)
}

// Start forwards to the bound activity. For a task coming from Init, the
// activity's first Init call (via the engine) runs on_config and, on
// success, folds the INIT->STOPPED->RUNNING transition into one step since
// nothing observes the intermediate STOPPED tick before a first start.
// Restarting a previously-stopped task skips on_config and simply resumes.
// Starting a task that is already running, or whose activity is already
// active, is logged and ignored: Start returns nil.
func (t *Task) Start() error {
	t.mu.Lock()
	activity := t.activity
	state := t.state
	t.mu.Unlock()

	if activity == nil {
		return cocoerr.New("Task.Start", cocoerr.KindActivityNotBound, nil).
			WithContext(map[string]any{"task": t.instanceName})
	}
	if state == Running {
		t.logger.Info("start ignored: task is already running")
		return nil
	}
	if state == Fatal {
		return cocoerr.New("Task.Start", cocoerr.KindConfigurationError, nil).
			WithContext(map[string]any{"task": t.instanceName, "reason": "task is in FATAL state"})
	}
	if err := activity.Start(); err != nil {
		if errors.Is(err, &cocoerr.Error{Kind: cocoerr.KindAlreadyRunning}) {
			t.logger.Info("start ignored: activity is already running")
			return nil
		}
		return err
	}
	return nil
}

// Stop forwards to the bound activity and moves a Running task back to
// Stopped. Calling Stop on an already-inactive task is idempotent.
func (t *Task) Stop() error {
	t.mu.Lock()
	activity := t.activity
	t.mu.Unlock()

	if activity == nil {
		return nil
	}
	if err := activity.Stop(); err != nil {
		return err
	}

	t.mu.Lock()
	if t.state == Running {
		t.state = Stopped
	}
	t.mu.Unlock()
	return nil
}

// TriggerActivity forwards to the owning activity's trigger, waking a
// triggered-mode activity for one extra pass.
func (t *Task) TriggerActivity() {
	t.mu.Lock()
	activity := t.activity
	t.mu.Unlock()
	if activity != nil {
		activity.Trigger()
	}
}

// EnqueueOperation looks up name among the task's operations and pushes a
// deferred invocation into its pending queue, to be run by the engine in
// FIFO order immediately before the task's next on_update.
func (t *Task) EnqueueOperation(name string, args ...any) error {
	op, ok := t.GetOperation(name)
	if !ok {
		return cocoerr.New("Task.EnqueueOperation", cocoerr.KindUnknownComponent, cocoerr.ErrOperationNotFound).
			WithContext(map[string]any{"task": t.instanceName, "operation": name})
	}
	t.mu.Lock()
	t.pending = append(t.pending, pendingCall{op: op, args: args})
	t.mu.Unlock()
	return nil
}

// DrainPending runs every pending deferred operation in FIFO order,
// capturing the current queue under the lock and invoking handlers
// outside it so a handler enqueueing a new operation cannot deadlock.
// Called by the execution engine at the start of each step, before
// on_update, per the engine contract.
func (t *Task) DrainPending() {
	t.mu.Lock()
	calls := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, c := range calls {
		if _, err := c.op.Invoke(c.args...); err != nil {
			t.logger.Warn("deferred operation failed", slog.String("operation", c.op.Name()), slog.Any("error", err))
		}
	}
}

// RunConfig invokes on_config exactly once, the first time a task leaves
// Init, and otherwise just flips Stopped to Running. Called by the
// execution engine's Init, itself invoked only by the task's activity.
func (t *Task) RunConfig() error {
	t.mu.Lock()
	switch t.state {
	case Init:
		t.mu.Unlock()
		err := t.component.OnConfig(t)
		t.mu.Lock()
		if err != nil {
			t.state = Fatal
			t.mu.Unlock()
			t.component.OnAborted(t, err)
			return cocoerr.New("Task.RunConfig", cocoerr.KindConfigurationError, err).
				WithContext(map[string]any{"task": t.instanceName})
		}
		t.state = Running
		t.mu.Unlock()
		return nil
	case Stopped:
		t.state = Running
		t.mu.Unlock()
		return nil
	case Running:
		t.mu.Unlock()
		return cocoerr.New("Task.RunConfig", cocoerr.KindAlreadyRunning, nil).
			WithContext(map[string]any{"task": t.instanceName})
	default: // Fatal
		t.mu.Unlock()
		return cocoerr.New("Task.RunConfig", cocoerr.KindConfigurationError, nil).
			WithContext(map[string]any{"task": t.instanceName, "reason": "task is in FATAL state"})
	}
}

// RunUpdate invokes on_update. A returned error moves the task to Fatal
// and runs on_aborted, matching the state machine's "on error" edge.
func (t *Task) RunUpdate() error {
	if err := t.component.OnUpdate(t); err != nil {
		t.Fail(err)
		return err
	}
	return nil
}

// Fail moves the task directly to Fatal from any state and runs
// on_aborted with err (which may be nil, for an externally-requested
// abort rather than a hook failure).
func (t *Task) Fail(err error) {
	t.mu.Lock()
	t.state = Fatal
	t.mu.Unlock()
	t.logger.Error("task moved to FATAL", slog.Any("error", err))
	t.component.OnAborted(t, err)
}
