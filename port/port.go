package port

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/cocomr/coco/cocoerr"
)

// Port is the type-erased identity shared by every input and output port,
// regardless of its element type. Task/registry/assembly code that never
// needs to read or write through a port — only to look it up, describe it,
// or wire it — programs against this interface.
type Port interface {
	// QualifiedName is owner_instance_name + "_" + local_name, the
	// identity used for wiring.
	QualifiedName() string
	LocalName() string
	Direction() Direction
	IsEvent() bool
	// TypeTag identifies the port's element type; two ports may only be
	// connected when their TypeTag is equal.
	TypeTag() reflect.Type
	// ConnectionCount reports how many connections currently terminate
	// at this port.
	ConnectionCount() int
}

// Output is the type-erased capability of an output port needed by
// assembly-time wiring, which discovers ports by name from a registry
// and does not know the concrete element type at the call site.
type Output interface {
	Port
	// connectTo is unexported: only package port may dispatch a connect,
	// after it has confirmed (via a type assertion against the concrete
	// Input implementation) that both ends share an element type. External
	// callers use the Wire function below.
	connectTo(in Input, policy Policy) (Connection, error)
}

// Input is the type-erased capability of an input port needed by
// assembly-time wiring.
type Input interface {
	Port
	// SetTrigger registers the callback invoked when a connection into
	// this port transitions from empty/stale to holding data, if the
	// port is event-triggered. Assembly calls this once, after creating
	// the port's owning task's activity binding.
	SetTrigger(fn func())
}

// Connection is the type-erased handle to a single (output, input) wiring,
// returned by Wire/Connect. It belongs jointly to the two ports whose
// lifetime bounds it.
type Connection interface {
	Policy() Policy
	IsEvent() bool
	OutputName() string
	InputName() string
	// Disconnect removes this connection from both endpoints. Per the
	// data model, deleting either endpoint requires first calling this.
	Disconnect()
}

// Wire connects out to in using policy, after validating that they share
// an element type. This is the entry point assembly code uses, since it
// only holds Output/Input interface values discovered by name.
func Wire(out Output, in Input, policy Policy) (Connection, error) {
	if out.TypeTag() != in.TypeTag() {
		return nil, cocoerr.New("port.Wire", cocoerr.KindPortTypeMismatch,
			fmt.Errorf("output %s is %s, input %s is %s",
				out.QualifiedName(), out.TypeTag(), in.QualifiedName(), in.TypeTag()))
	}
	return out.connectTo(in, policy)
}

// OutputPort is a typed, directional endpoint that fans a written value
// out to every connection wired to it.
type OutputPort[T any] struct {
	owner string
	local string
	mu    sync.RWMutex
	conns []*connection[T]
	hooks Hooks
}

// NewOutputPort creates an output port owned by ownerInstanceName with
// local name local.
func NewOutputPort[T any](ownerInstanceName, local string, hooks Hooks) *OutputPort[T] {
	return &OutputPort[T]{owner: ownerInstanceName, local: local, hooks: hooks}
}

func (o *OutputPort[T]) QualifiedName() string { return o.owner + "_" + o.local }
func (o *OutputPort[T]) LocalName() string     { return o.local }
func (o *OutputPort[T]) Direction() Direction  { return DirectionOutput }
func (o *OutputPort[T]) IsEvent() bool         { return false }
func (o *OutputPort[T]) TypeTag() reflect.Type { return typeTagOf[T]() }

func (o *OutputPort[T]) ConnectionCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.conns)
}

func (o *OutputPort[T]) connectTo(inAny Input, policy Policy) (Connection, error) {
	in, ok := inAny.(*InputPort[T])
	if !ok {
		return nil, cocoerr.New("port.Wire", cocoerr.KindPortTypeMismatch,
			fmt.Errorf("input %s is not compatible with output %s", inAny.QualifiedName(), o.QualifiedName()))
	}
	return Connect(o, in, policy)
}

// Write delivers v into every outgoing connection, independently applying
// each connection's policy, and returns the aggregate status.
func (o *OutputPort[T]) Write(v T) WriteResult {
	o.mu.RLock()
	conns := make([]*connection[T], len(o.conns))
	copy(conns, o.conns)
	o.mu.RUnlock()

	if len(conns) == 0 {
		return NoneConnected
	}

	allOK := true
	for _, c := range conns {
		changed, dropped := c.ch.write(v)
		if dropped {
			allOK = false
			o.hooks.observeWrite(false)
			continue
		}
		o.hooks.observeWrite(true)
		if changed && c.in.event {
			if trig := c.in.loadTrigger(); trig != nil {
				trig()
			}
		}
	}
	if allOK {
		return AllOK
	}
	return SomeDropped
}

// InputPort is a typed, directional endpoint that drains values from one
// or more incoming connections.
type InputPort[T any] struct {
	owner   string
	local   string
	event   bool
	mu      sync.RWMutex
	conns   []*connection[T]
	rr      int
	trigMu  sync.Mutex
	trigger func()
}

// NewInputPort creates an input port owned by ownerInstanceName with local
// name local. event marks it as triggering its owning task's activity on
// delivery.
func NewInputPort[T any](ownerInstanceName, local string, event bool) *InputPort[T] {
	return &InputPort[T]{owner: ownerInstanceName, local: local, event: event}
}

func (in *InputPort[T]) QualifiedName() string { return in.owner + "_" + in.local }
func (in *InputPort[T]) LocalName() string     { return in.local }
func (in *InputPort[T]) Direction() Direction   { return DirectionInput }
func (in *InputPort[T]) IsEvent() bool          { return in.event }
func (in *InputPort[T]) TypeTag() reflect.Type  { return typeTagOf[T]() }

func (in *InputPort[T]) ConnectionCount() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.conns)
}

func (in *InputPort[T]) SetTrigger(fn func()) {
	in.trigMu.Lock()
	defer in.trigMu.Unlock()
	in.trigger = fn
}

func (in *InputPort[T]) loadTrigger() func() {
	in.trigMu.Lock()
	defer in.trigMu.Unlock()
	return in.trigger
}

// Read drains from incoming connections in round-robin order until one
// yields data.
func (in *InputPort[T]) Read() (T, ReadStatus) {
	in.mu.Lock()
	conns := in.conns
	start := in.rr
	n := len(conns)
	if n == 0 {
		in.mu.Unlock()
		var zero T
		return zero, NoData
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		v, status := conns[idx].ch.read()
		if status != NoData {
			in.rr = (idx + 1) % n
			in.mu.Unlock()
			return v, status
		}
	}
	in.rr = start
	in.mu.Unlock()
	var zero T
	return zero, NoData
}

// ReadAll drains every incoming connection once, in order, invoking sink
// for each value that was available. It never collapses fan-in: a port
// with three ready connections calls sink three times.
func (in *InputPort[T]) ReadAll(sink func(T)) {
	in.mu.RLock()
	conns := make([]*connection[T], len(in.conns))
	copy(conns, in.conns)
	in.mu.RUnlock()

	for _, c := range conns {
		if v, status := c.ch.read(); status == NewData {
			sink(v)
		}
	}
}

// connection is the concrete, typed implementation backing Connection.
type connection[T any] struct {
	out    *OutputPort[T]
	in     *InputPort[T]
	policy Policy
	ch     channel[T]
}

// Connect wires out to in under policy. It is the typed counterpart to
// Wire, usable directly by component code that knows T at compile time.
func Connect[T any](out *OutputPort[T], in *InputPort[T], policy Policy) (Connection, error) {
	if err := policy.Validate(); err != nil {
		return nil, cocoerr.New("port.Connect", cocoerr.KindInvalidPolicy, err)
	}

	out.mu.Lock()
	defer out.mu.Unlock()
	in.mu.Lock()
	defer in.mu.Unlock()

	for _, c := range out.conns {
		if c.in == in {
			return nil, cocoerr.New("port.Connect", cocoerr.KindInvalidPolicy, cocoerr.ErrAlreadyConnected)
		}
	}

	c := &connection[T]{out: out, in: in, policy: policy, ch: newChannel[T](policy)}
	out.conns = append(out.conns, c)
	in.conns = append(in.conns, c)
	return c, nil
}

func (c *connection[T]) Policy() Policy      { return c.policy }
func (c *connection[T]) IsEvent() bool       { return c.in.event }
func (c *connection[T]) OutputName() string  { return c.out.QualifiedName() }
func (c *connection[T]) InputName() string   { return c.in.QualifiedName() }

func (c *connection[T]) Disconnect() {
	c.out.mu.Lock()
	c.out.conns = removeConn(c.out.conns, c)
	c.out.mu.Unlock()

	c.in.mu.Lock()
	c.in.conns = removeConn(c.in.conns, c)
	c.in.mu.Unlock()
}

func removeConn[T any](conns []*connection[T], target *connection[T]) []*connection[T] {
	out := conns[:0]
	for _, c := range conns {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

func typeTagOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
