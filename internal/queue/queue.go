// Package queue provides the pending-request buffer between the event
// intake and the queue processor.
//
// Single producer (intake), single consumer (processor). Enqueue and
// DequeueUpTo each take the lock once, so a drain is one indivisible step
// relative to the producer and FIFO order is preserved under racing appends.
package queue

import (
	"sync"
)

// Queue is a FIFO buffer that automatically doubles its capacity when it
// reaches 70% full. Enqueue never blocks and never fails while the queue
// is open; DequeueUpTo never blocks.
type Queue[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalEnqueued int64
	totalDequeued int64
	resizeCount   int
}

// New creates a queue with the given initial capacity.
func New[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Queue[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
	}
}

// Enqueue appends an item to the tail. Grows the queue if at 70% capacity.
// Returns false if the queue is closed.
func (q *Queue[T]) Enqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	// Grow at or above 70% occupancy after adding this item
	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalEnqueued++

	return true
}

// DequeueUpTo removes and returns the first min(max, len) items in arrival
// order. Returns nil if the queue is empty. Never blocks.
func (q *Queue[T]) DequeueUpTo(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	n := q.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = q.buf[q.head]
		var zero T
		q.buf[q.head] = zero // Clear reference for GC
		q.head = (q.head + 1) % q.capacity
		q.count--
		q.totalDequeued++
	}

	return result
}

// Close closes the queue. After closing, Enqueue returns false; items
// already buffered remain available to DequeueUpTo.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Len returns the current number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the current capacity.
func (q *Queue[T]) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Count:         q.count,
		Capacity:      q.capacity,
		TotalEnqueued: q.totalEnqueued,
		TotalDequeued: q.totalDequeued,
		ResizeCount:   q.resizeCount,
	}
}

// Stats contains queue statistics.
type Stats struct {
	Count         int
	Capacity      int
	TotalEnqueued int64
	TotalDequeued int64
	ResizeCount   int
}

// grow doubles the queue capacity. Must be called with lock held.
func (q *Queue[T]) grow() {
	newCapacity := q.capacity * 2
	newBuf := make([]T, newCapacity)

	if q.count > 0 {
		if q.head < q.tail {
			// Contiguous: [head...tail)
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = newCapacity
	q.resizeCount++
}
