package util

import (
	"sync"
)

// AtomicEvent keeps the latest value handed to Send and signals its
// arrival on a channel with room for one notification. Senders never
// block; a reader that falls behind only ever sees the newest value.
type AtomicEvent[T any] struct {
	mu     sync.Mutex
	value  T
	notify chan struct{}
}

func NewAtomicEvent[T any]() *AtomicEvent[T] {
	return &AtomicEvent[T]{
		notify: make(chan struct{}, 1),
	}
}

// Send replaces the stored value and raises the notification unless one
// is already pending.
func (ae *AtomicEvent[T]) Send(event T) {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	ae.value = event
	select {
	case ae.notify <- struct{}{}:
	default:
	}
}

func (ae *AtomicEvent[T]) Channel() <-chan struct{} {
	return ae.notify
}

func (ae *AtomicEvent[T]) Value() T {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	return ae.value
}

// HasPending reports an unconsumed notification without consuming it.
func (ae *AtomicEvent[T]) HasPending() bool {
	return len(ae.notify) > 0
}
