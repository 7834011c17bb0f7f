// Package ring implements the fixed-capacity single-producer single-consumer
// queue backing the engine buffers. One slot is always kept unoccupied to
// distinguish full from empty, so a ring of n slots stores at most n-1
// elements. A push against a full ring stores nothing and changes nothing;
// only the boolean result tells the producer.
//
// There are no locks and no blocking. Exactly one goroutine may push and
// exactly one may pop; the head and tail indices are published atomically so
// element writes are visible to the other side under the Go memory model.
package ring

import (
	"fmt"
	"sync/atomic"
)

type Buffer[T any] struct {
	buf  []T
	head atomic.Uint32 // slot of the newest element; producer-owned
	tail atomic.Uint32 // slot of the last consumed element; consumer-owned
}

// New allocates a ring with the given number of physical slots. Usable
// capacity is size-1. Panics if size < 2, which could store nothing.
func New[T any](size int) *Buffer[T] {
	if size < 2 {
		panic(fmt.Sprintf("ring: size %d too small, need at least 2 slots", size))
	}
	return &Buffer[T]{buf: make([]T, size)}
}

// Push appends v and reports whether it was stored. Must be called only from
// the single producer.
func (b *Buffer[T]) Push(v T) bool {
	next := b.head.Load() + 1
	if next >= uint32(len(b.buf)) {
		next = 0
	}
	if next == b.tail.Load() {
		return false
	}
	b.buf[next] = v
	b.head.Store(next)
	return true
}

// Pop removes and returns the oldest element. Must be called only from the
// single consumer.
func (b *Buffer[T]) Pop() (T, bool) {
	var zero T
	tail := b.tail.Load()
	if b.head.Load() == tail {
		return zero, false
	}
	next := tail + 1
	if next >= uint32(len(b.buf)) {
		next = 0
	}
	v := b.buf[next]
	b.tail.Store(next)
	return v, true
}

// Len reports the number of stored elements. Exact from the producer or
// consumer goroutine; a point-in-time estimate from anywhere else.
func (b *Buffer[T]) Len() int {
	head, tail := b.head.Load(), b.tail.Load()
	if head >= tail {
		return int(head - tail)
	}
	return len(b.buf) - int(tail-head)
}

// Cap reports the usable capacity, one fewer than the physical slot count.
func (b *Buffer[T]) Cap() int { return len(b.buf) - 1 }
