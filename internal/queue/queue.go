// Package queue provides an unbounded, ordered queue with channel-based
// receive, used between the telnet session and its collaborators.
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push once the queue has been closed by its
// producer or detached by its consumer.
var ErrClosed = errors.New("queue: closed")

// Queue is a single-producer/single-consumer FIFO with no capacity limit.
// Push never blocks; a stalled consumer lets the backlog grow without bound.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	gone   bool

	notify chan struct{}
	done   chan struct{}
	out    chan T

	detachOnce sync.Once
}

// New creates a queue and starts its delivery goroutine.
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan T),
	}
	go q.run()
	return q
}

// Push appends v. It fails only after Close or Detach.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed || q.gone {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Close marks the end of input. Items already queued are still delivered,
// after which Out is closed.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Detach is called by the consumer when it stops receiving. Pending items
// are discarded and further Push calls fail.
func (q *Queue[T]) Detach() {
	q.detachOnce.Do(func() {
		q.mu.Lock()
		q.gone = true
		q.items = nil
		q.mu.Unlock()
		close(q.done)
	})
}

// Out returns the receive side. It is closed once the queue is closed and
// drained, or detached.
func (q *Queue[T]) Out() <-chan T { return q.out }

// Len returns the number of items waiting for delivery.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) run() {
	defer close(q.out)

	for {
		v, ok, closed := q.next()
		if !ok {
			if closed {
				return
			}
			select {
			case <-q.notify:
				continue
			case <-q.done:
				return
			}
		}

		select {
		case q.out <- v:
		case <-q.done:
			return
		}
	}
}

func (q *Queue[T]) next() (v T, ok, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.gone {
		return v, false, true
	}
	if len(q.items) == 0 {
		return v, false, q.closed
	}
	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true, false
}
