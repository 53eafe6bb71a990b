// Package port implements coco's typed port and connection subsystem:
// directional, typed endpoints joined by policy-parameterized channels
// with pluggable delivery and concurrency disciplines.
package port

import "fmt"

// Direction is the flow direction of a Port.
type Direction int

const (
	// DirectionInput marks an InputPort.
	DirectionInput Direction = iota
	// DirectionOutput marks an OutputPort.
	DirectionOutput
)

func (d Direction) String() string {
	if d == DirectionInput {
		return "input"
	}
	return "output"
}

// DataPolicy selects the delivery discipline of a connection.
type DataPolicy int

const (
	// DATA keeps only the latest value; a write overwrites it.
	DATA DataPolicy = iota
	// BUFFER is a bounded FIFO that drops new values once full.
	BUFFER
	// CIRCULAR_BUFFER is a bounded FIFO that overwrites the oldest value
	// once full.
	CIRCULAR_BUFFER
)

func (d DataPolicy) String() string {
	switch d {
	case DATA:
		return "DATA"
	case BUFFER:
		return "BUFFER"
	case CIRCULAR_BUFFER:
		return "CIRCULAR_BUFFER"
	default:
		return "UNKNOWN"
	}
}

// LockPolicy selects the connection's concurrency discipline.
type LockPolicy int

const (
	// UNSYNC performs no synchronization; the caller asserts single
	// threaded access.
	UNSYNC LockPolicy = iota
	// LOCKED guards every operation with a mutex.
	LOCKED
	// LOCK_FREE uses a bounded single-producer/single-consumer queue.
	// Only valid with BUFFER or CIRCULAR_BUFFER.
	LOCK_FREE
)

func (l LockPolicy) String() string {
	switch l {
	case UNSYNC:
		return "UNSYNC"
	case LOCKED:
		return "LOCKED"
	case LOCK_FREE:
		return "LOCK_FREE"
	default:
		return "UNKNOWN"
	}
}

// Transport is reserved for future out-of-process connections. Only LOCAL
// is in scope for this runtime.
type Transport int

const (
	LOCAL Transport = iota
)

func (t Transport) String() string { return "LOCAL" }

// Policy is the full parameterization of a connection, as specified by the
// application descriptor.
type Policy struct {
	Data       DataPolicy
	Lock       LockPolicy
	Transport  Transport
	BufferSize int
}

// Validate checks the invariants from the wiring rules: buffer_size >= 1
// for the buffer variants, and LOCK_FREE only paired with a buffer variant.
func (p Policy) Validate() error {
	switch p.Data {
	case DATA, BUFFER, CIRCULAR_BUFFER:
	default:
		return fmt.Errorf("unknown data policy %d", p.Data)
	}
	switch p.Lock {
	case UNSYNC, LOCKED, LOCK_FREE:
	default:
		return fmt.Errorf("unknown lock policy %d", p.Lock)
	}
	if p.Data != DATA && p.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be >= 1 for %s, got %d", p.Data, p.BufferSize)
	}
	if p.Lock == LOCK_FREE && p.Data == DATA {
		return fmt.Errorf("LOCK_FREE is not valid with DATA policy")
	}
	return nil
}

// ReadStatus is the outcome of InputPort.read.
type ReadStatus int

const (
	// NoData means nothing was available on any incoming connection.
	NoData ReadStatus = iota
	// NewData means the returned value had not previously been observed
	// on this port.
	NewData
	// OldData means the DATA slot's latest value was already consumed.
	OldData
)

func (r ReadStatus) String() string {
	switch r {
	case NoData:
		return "NO_DATA"
	case NewData:
		return "NEW_DATA"
	case OldData:
		return "OLD_DATA"
	default:
		return "UNKNOWN"
	}
}

// WriteResult is the aggregate outcome of OutputPort.write across all of
// an output port's outgoing connections.
type WriteResult int

const (
	// NoneConnected means the output port has no outgoing connections.
	NoneConnected WriteResult = iota
	// AllOK means every outgoing connection accepted the value.
	AllOK
	// SomeDropped means at least one outgoing BUFFER connection was full
	// and dropped the value.
	SomeDropped
)

func (w WriteResult) String() string {
	switch w {
	case NoneConnected:
		return "none-connected"
	case AllOK:
		return "all-ok"
	case SomeDropped:
		return "some-dropped"
	default:
		return "unknown"
	}
}
