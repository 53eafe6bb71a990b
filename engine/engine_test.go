package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/cocomr/coco/task"
)

type stepComponent struct {
	updates int
	failOn  int
}

func (c *stepComponent) Init(*task.Task) error    { return nil }
func (c *stepComponent) OnConfig(*task.Task) error { return nil }
func (c *stepComponent) OnUpdate(*task.Task) error {
	c.updates++
	if c.failOn != 0 && c.updates == c.failOn {
		return errors.New("forced failure")
	}
	return nil
}
func (c *stepComponent) OnAborted(*task.Task, error) {}

type noopActivity struct{}

func (noopActivity) Start() error { return nil }
func (noopActivity) Stop() error  { return nil }
func (noopActivity) Trigger()     {}

func TestStepNoOpUntilRunning(t *testing.T) {
	comp := &stepComponent{}
	tk := task.New("echo", "e1", comp, nil)
	e := New(tk)

	if err := e.Step(context.Background()); err != nil {
		t.Fatalf("step on INIT task: %v", err)
	}
	if comp.updates != 0 {
		t.Fatalf("updates = %d, want 0 before the task is running", comp.updates)
	}
}

func TestStepDrivesUpdateWhileRunning(t *testing.T) {
	comp := &stepComponent{}
	tk := task.New("echo", "e1", comp, nil)
	tk.BindActivity(noopActivity{})
	if err := e2Init(tk); err != nil {
		t.Fatalf("init: %v", err)
	}
	e := New(tk)

	for i := 0; i < 3; i++ {
		if err := e.Step(context.Background()); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if comp.updates != 3 {
		t.Fatalf("updates = %d, want 3", comp.updates)
	}
}

func TestStepPropagatesUpdateErrorAndStopsStepping(t *testing.T) {
	comp := &stepComponent{failOn: 2}
	tk := task.New("echo", "e1", comp, nil)
	tk.BindActivity(noopActivity{})
	e2Init(tk)
	e := New(tk)

	e.Step(context.Background())
	if err := e.Step(context.Background()); err == nil {
		t.Fatal("second step should surface the forced on_update failure")
	}
	if tk.State() != task.Fatal {
		t.Fatalf("state = %v, want Fatal", tk.State())
	}
	if err := e.Step(context.Background()); err != nil {
		t.Fatalf("stepping a Fatal task should be a silent no-op, got %v", err)
	}
	if comp.updates != 2 {
		t.Fatalf("updates = %d, want 2 (no further update once Fatal)", comp.updates)
	}
}

// e2Init drives the task directly to Running the way a bound activity's
// first Init call would, without depending on the activity package.
func e2Init(tk *task.Task) error {
	return New(tk).Init()
}
