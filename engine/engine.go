// Package engine implements the execution engine that drives exactly one
// task through its lifecycle hooks, invoked only by that task's activity.
package engine

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cocomr/coco/task"
)

var tracer = otel.Tracer("github.com/cocomr/coco/engine")

// Engine drives a single Task through init/step/finalize. It holds no
// state of its own beyond the task reference: all lifecycle state lives
// on the Task, so an Engine is safe to recreate from a Task at any time.
type Engine struct {
	task *task.Task
}

// New wraps t in an Engine, satisfying the activity package's Runnable
// contract (Init/Step/Finalize).
func New(t *task.Task) *Engine {
	return &Engine{task: t}
}

// Task returns the engine's bound task.
func (e *Engine) Task() *task.Task { return e.task }

// Init runs the task's on_config, exactly once across the task's
// lifetime, folding the INIT->STOPPED->RUNNING transition into one call
// the first time it is invoked, and simply resuming on a restart.
func (e *Engine) Init() error {
	return e.task.RunConfig()
}

// Step drains the task's pending deferred operations in FIFO order and
// then calls on_update exactly once, but only while the task is Running —
// an activity that steps a Stopped or Fatal task is a no-op, not an error,
// since stop() and failure are both expected to quiesce a runnable without
// the activity needing to track which.
func (e *Engine) Step(ctx context.Context) error {
	if e.task.State() != task.Running {
		return nil
	}

	ctx, span := tracer.Start(ctx, "engine.step",
		trace.WithAttributes(
			attribute.String("coco.task.type", e.task.TypeName()),
			attribute.String("coco.task.instance", e.task.InstanceName()),
			attribute.String("coco.engine.trace_id", uuid.NewString()),
		))
	defer span.End()
	_ = ctx

	e.task.DrainPending()
	if err := e.task.RunUpdate(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Finalize is a reserved cleanup hook; it currently does nothing, matching
// the contract's explicit "no-op reserved for cleanup" note.
func (e *Engine) Finalize() error {
	return nil
}
