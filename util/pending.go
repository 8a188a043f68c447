package util

import (
	"sync"
)

// Pending is a single value slot written from anywhere and consumed once
// by its owner. An empty slot holds the sentinel. Set overwrites a value
// that was not yet taken.
type Pending[T comparable] struct {
	mu       sync.Mutex
	value    T
	sentinel T
}

func NewPending[T comparable](sentinel T) *Pending[T] {
	return &Pending[T]{value: sentinel, sentinel: sentinel}
}

func (p *Pending[T]) Set(v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
}

// Take returns the pending value and clears the slot back to the
// sentinel. ok is false if nothing was pending.
func (p *Pending[T]) Take() (v T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v = p.value
	if v == p.sentinel {
		return v, false
	}
	p.value = p.sentinel
	return v, true
}

// Clear drops a pending value.
func (p *Pending[T]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = p.sentinel
}

// Peek returns the slot content without consuming it.
func (p *Pending[T]) Peek() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}
