// Package broadcast provides a bounded fan-out channel with independent
// subscriber cursors. Values represent current intent rather than an
// event log, so a slow subscriber loses the oldest buffered values and is
// told how many it missed instead of ever blocking the sender.
package broadcast

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultCapacity is the per-subscriber buffer depth.
const DefaultCapacity = 16

// ErrClosed is returned by Recv after the hub shuts down and all
// buffered values have been drained.
var ErrClosed = errors.New("broadcast: hub closed")

// LagError reports that a subscriber fell behind and missed values. The
// subscriber remains usable; the next Recv resumes with the oldest value
// still buffered.
type LagError struct {
	Missed uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("broadcast: subscriber lagged, missed %d values", e.Missed)
}

// Hub fans values out to all current subscribers.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[string]*Subscriber[T]
	closed bool
}

// New creates an empty hub.
func New[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[string]*Subscriber[T])}
}

// Subscribe registers a new subscriber with the default buffer depth.
// The subscriber only sees values sent after this call.
func (h *Hub[T]) Subscribe() *Subscriber[T] {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &Subscriber[T]{
		hub: h,
		id:  uuid.NewString(),
		ch:  make(chan T, DefaultCapacity),
	}
	if h.closed {
		close(s.ch)
		return s
	}
	h.subs[s.id] = s
	return s
}

// Send delivers v to every subscriber and returns the number of
// subscribers that received it without dropping. Send never blocks: a
// full subscriber buffer drops its oldest value to make room.
func (h *Hub[T]) Send(v T) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0
	}
	delivered := 0
	for _, s := range h.subs {
		if s.push(v) {
			delivered++
		}
	}
	return delivered
}

// Close shuts down the hub. Subscribers drain their buffers and then
// receive ErrClosed.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		close(s.ch)
		delete(h.subs, id)
	}
}

// Subscriber is one independent cursor into the hub's stream.
type Subscriber[T any] struct {
	hub     *Hub[T]
	id      string
	ch      chan T
	pushMu  sync.Mutex
	dropped atomic.Uint64
}

// push enqueues v, evicting the oldest buffered value when full.
// Reports whether the value was enqueued without dropping another.
// Called with the hub lock held.
func (s *Subscriber[T]) push(v T) bool {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	select {
	case s.ch <- v:
		return true
	default:
	}
	// Buffer full: evict the oldest. A concurrent Recv may win the race
	// for it, in which case the retry below succeeds anyway.
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.ch <- v:
	default:
		s.dropped.Add(1)
	}
	return false
}

// Recv returns the next value. If the subscriber missed values since the
// previous Recv, it returns a *LagError first and resumes with the
// oldest surviving value on the following call. Returns ErrClosed once
// the hub is closed and the buffer is drained.
func (s *Subscriber[T]) Recv() (T, error) {
	var zero T
	if n := s.dropped.Swap(0); n > 0 {
		return zero, &LagError{Missed: n}
	}
	v, ok := <-s.ch
	if !ok {
		return zero, ErrClosed
	}
	return v, nil
}

// Chan exposes the subscriber's buffer for use in select loops. Callers
// using Chan directly should still call Recv afterwards, or check
// Lagged, to observe drop notifications.
func (s *Subscriber[T]) Chan() <-chan T {
	return s.ch
}

// Lagged returns the number of values missed since the last check and
// resets the counter.
func (s *Subscriber[T]) Lagged() uint64 {
	return s.dropped.Swap(0)
}

// Unsubscribe removes the subscriber from the hub. Safe to call more
// than once.
func (s *Subscriber[T]) Unsubscribe() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if _, ok := s.hub.subs[s.id]; ok {
		delete(s.hub.subs, s.id)
		close(s.ch)
	}
}
