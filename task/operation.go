package task

// Handler is the typed callable an Operation wraps. It may be invoked
// synchronously from any thread, or enqueued on a task's pending queue for
// deferred invocation inside that task's next engine step.
type Handler func(args ...any) (any, error)

// Operation is a named, invocable piece of task behavior distinct from the
// attribute/port data path — the thing a peer, a test, or a deferred call
// actually runs.
type Operation struct {
	name    string
	handler Handler
}

// NewOperation wraps handler under name.
func NewOperation(name string, handler Handler) *Operation {
	return &Operation{name: name, handler: handler}
}

func (o *Operation) Name() string { return o.name }

// Invoke calls the operation's handler synchronously.
func (o *Operation) Invoke(args ...any) (any, error) {
	return o.handler(args...)
}

// pendingCall is a deferred operation invocation sitting in a task's queue,
// captured at enqueue_operation time and run in FIFO order by the engine
// immediately before the next on_update.
type pendingCall struct {
	op   *Operation
	args []any
}
