package port

import (
	"sync"
	"sync/atomic"
)

// channel is the internal delivery primitive behind a Connection. Exactly
// one channel[T] backs every connection, chosen at construction time from
// the connection's Policy and never switched afterward — the concurrency
// discipline is resolved once, not re-decided per operation.
type channel[T any] interface {
	// write delivers v. changed reports whether the channel's observable
	// state advanced (a DATA slot went from stale to fresh, or a queue
	// went from empty to non-empty) — the signal a connection uses to
	// decide whether to trigger an event destination. dropped reports
	// whether v was rejected by a full BUFFER.
	write(v T) (changed, dropped bool)
	// read drains the next value per the policy's semantics.
	read() (T, ReadStatus)
}

// newChannel builds the channel implementation for a validated Policy.
func newChannel[T any](p Policy) channel[T] {
	switch p.Data {
	case DATA:
		return newDataSlot[T](p.Lock == LOCKED)
	case BUFFER, CIRCULAR_BUFFER:
		overwrite := p.Data == CIRCULAR_BUFFER
		if p.Lock == LOCK_FREE {
			return newRingChannel[T](p.BufferSize, overwrite)
		}
		return newQueueChannel[T](p.BufferSize, overwrite, p.Lock == LOCKED)
	default:
		panic("port: unreachable data policy")
	}
}

// dataSlot implements the DATA policy: a single-slot latest value.
// Locking is a no-op when locked is false (UNSYNC); the caller asserts
// single-threaded access in that mode.
type dataSlot[T any] struct {
	mu     sync.Mutex
	locked bool
	value  T
	fresh  bool
}

func newDataSlot[T any](locked bool) *dataSlot[T] {
	return &dataSlot[T]{locked: locked}
}

func (s *dataSlot[T]) write(v T) (changed, dropped bool) {
	if s.locked {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	s.value = v
	wasFresh := s.fresh
	s.fresh = true
	return !wasFresh, false
}

func (s *dataSlot[T]) read() (T, ReadStatus) {
	if s.locked {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if !s.fresh {
		var zero T
		return zero, OldData
	}
	s.fresh = false
	return s.value, NewData
}

// queueChannel implements BUFFER (overwrite=false, drop the new value once
// full) and CIRCULAR_BUFFER (overwrite=true, drop the oldest value once
// full) using a plain slice-backed FIFO. Locking is a no-op when locked is
// false.
type queueChannel[T any] struct {
	mu        sync.Mutex
	locked    bool
	overwrite bool
	capacity  int
	items     []T
}

func newQueueChannel[T any](capacity int, overwrite, locked bool) *queueChannel[T] {
	return &queueChannel[T]{
		locked:    locked,
		overwrite: overwrite,
		capacity:  capacity,
		items:     make([]T, 0, capacity),
	}
}

func (q *queueChannel[T]) write(v T) (changed, dropped bool) {
	if q.locked {
		q.mu.Lock()
		defer q.mu.Unlock()
	}
	wasEmpty := len(q.items) == 0
	if len(q.items) < q.capacity {
		q.items = append(q.items, v)
		return wasEmpty, false
	}
	if !q.overwrite {
		return false, true
	}
	// CIRCULAR_BUFFER: pop oldest, then enqueue.
	copy(q.items, q.items[1:])
	q.items[len(q.items)-1] = v
	return false, false
}

func (q *queueChannel[T]) read() (T, ReadStatus) {
	if q.locked {
		q.mu.Lock()
		defer q.mu.Unlock()
	}
	if len(q.items) == 0 {
		var zero T
		return zero, NoData
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, NewData
}

// ringChannel is a bounded single-producer/single-consumer lock-free queue,
// valid only for BUFFER/CIRCULAR_BUFFER per the policy rules. head/tail are
// monotonically increasing counters, masked to index a buffer whose size is
// the capacity rounded up to a power of two; a single writer
// goroutine and a single reader goroutine may operate on it concurrently
// without a mutex.
type ringChannel[T any] struct {
	overwrite bool
	capacity  uint64
	mask      uint64
	buf       []T
	head      atomic.Uint64 // next slot to read
	tail      atomic.Uint64 // next slot to write
}

func newRingChannel[T any](capacity int, overwrite bool) *ringChannel[T] {
	size := nextPowerOfTwo(capacity)
	return &ringChannel[T]{
		overwrite: overwrite,
		capacity:  uint64(capacity),
		mask:      uint64(size - 1),
		buf:       make([]T, size),
	}
}

func nextPowerOfTwo(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (r *ringChannel[T]) len() uint64 {
	return r.tail.Load() - r.head.Load()
}

func (r *ringChannel[T]) write(v T) (changed, dropped bool) {
	wasEmpty := r.len() == 0
	if r.len() >= r.capacity {
		if !r.overwrite {
			return false, true
		}
		// Drop the oldest by advancing head; single-consumer invariant
		// means no concurrent reader can be mid-read of that slot.
		r.head.Add(1)
	}
	tail := r.tail.Load()
	r.buf[tail&r.mask] = v
	r.tail.Add(1)
	return wasEmpty, false
}

func (r *ringChannel[T]) read() (T, ReadStatus) {
	head := r.head.Load()
	if r.tail.Load() == head {
		var zero T
		return zero, NoData
	}
	v := r.buf[head&r.mask]
	r.head.Add(1)
	return v, NewData
}
