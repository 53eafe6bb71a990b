// Package cocoerr defines the structured error type and error kinds used
// throughout the coco runtime, and the sentinel errors components can
// compare against with errors.Is.
package cocoerr

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error by the failure mode described in the runtime's
// error handling design.
type Kind string

const (
	// KindUnknownComponent means a descriptor referenced a task type that
	// was never registered.
	KindUnknownComponent Kind = "unknown_component"
	// KindLibraryLoadError means a shared library failed to open or did
	// not expose the registry accessor symbol.
	KindLibraryLoadError Kind = "library_load_error"
	// KindDuplicateName means an attribute, port, or operation name
	// collided with an existing one on the same task.
	KindDuplicateName Kind = "duplicate_name"
	// KindPortTypeMismatch means two ports were wired with different type
	// tags.
	KindPortTypeMismatch Kind = "port_type_mismatch"
	// KindMissingEndpoint means a connection's src or dest could not be
	// resolved to a task/port pair.
	KindMissingEndpoint Kind = "missing_endpoint"
	// KindInvalidPolicy means a connection policy tuple was malformed
	// (e.g. LOCK_FREE with DATA, or buffer_size < 1).
	KindInvalidPolicy Kind = "invalid_policy"
	// KindChannelFull marks a full BUFFER connection rejecting a write.
	// It is never wrapped into a propagated *Error — per the error
	// handling design this is a policy outcome the writer observes as
	// port.SomeDropped, not a failure — but the Kind exists for parity
	// with spec.md §7's error-kind taxonomy and for any caller that wants
	// to classify a dropped write programmatically.
	KindChannelFull Kind = "channel_full"
	// KindActivityNotBound means start was called on a task that has no
	// activity assigned. Stop on such a task returns nil.
	KindActivityNotBound Kind = "activity_not_bound"
	// KindAlreadyRunning means start was called on an activity that is
	// already active.
	KindAlreadyRunning Kind = "already_running"
	// KindConfigurationError means on_config returned an error, moving
	// the task to FATAL.
	KindConfigurationError Kind = "configuration_error"
	// KindInternal covers invariant violations that should never surface
	// to a well-formed descriptor.
	KindInternal Kind = "internal"
)

// Sentinel errors, usable with errors.Is.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrPortNotFound      = errors.New("port not found")
	ErrAttributeNotFound = errors.New("attribute not found")
	ErrOperationNotFound = errors.New("operation not found")
	ErrAlreadyConnected  = errors.New("output and input are already connected")
	ErrConnectionInUse   = errors.New("endpoint still has a connection; disconnect first")
)

// Error is coco's structured error type. It wraps an underlying error with
// the operation that failed and a Kind for programmatic dispatch, following
// the same shape as a plain wrapped-error type but with a stable Kind field
// callers can match on without string comparison.
type Error struct {
	// Op is the operation that failed, e.g. "Registry.Create", "Task.AddPort".
	Op string
	// Kind categorizes the failure.
	Kind Kind
	// Err is the underlying error, if any.
	Err error
	// Context carries debugging details (task name, port name, ...).
	Context map[string]any
}

// New builds an *Error with the given operation, kind, and wrapped error.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("coco: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("coco: %s (%s): %v %v", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("coco: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap supports errors.Is/errors.As against the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches target either by Kind (when target is a *Error with a Kind
// set) or by delegating to the wrapped error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			return t.Op == "" || e.Op == t.Op
		}
	}
	return errors.Is(e.Err, target)
}

// WithContext returns a copy of e with ctx merged into Context.
func (e *Error) WithContext(ctx map[string]any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	for k, v := range ctx {
		cp.Context[k] = v
	}
	return &cp
}
