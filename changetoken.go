package vfskit

import (
	"sync"
	"sync/atomic"
)

// ChangeToken signals a single change. Once changed it stays changed;
// callers ask the file system for a fresh token to keep watching.
type ChangeToken interface {
	// HasChanged reports whether the change has happened.
	HasChanged() bool

	// RegisterChangeCallback registers callback to run on change. It returns
	// a function that unregisters it.
	RegisterChangeCallback(callback func()) (unregister func())
}

// CallbackChangeToken is a ChangeToken that runs callbacks when signalled.
type CallbackChangeToken struct {
	mu        sync.Mutex
	changed   atomic.Bool
	callbacks map[int]func()
	next      int
}

// NewCallbackChangeToken creates an unsignalled token.
func NewCallbackChangeToken() *CallbackChangeToken {
	return &CallbackChangeToken{callbacks: make(map[int]func())}
}

func (t *CallbackChangeToken) HasChanged() bool {
	return t.changed.Load()
}

func (t *CallbackChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	t.mu.Lock()
	if t.changed.Load() {
		t.mu.Unlock()
		callback()
		return func() {}
	}
	id := t.next
	t.next++
	t.callbacks[id] = callback
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.callbacks, id)
		t.mu.Unlock()
	}
}

// SignalChange marks the token changed and runs the registered callbacks once.
func (t *CallbackChangeToken) SignalChange() {
	if t.changed.Swap(true) {
		return
	}
	t.mu.Lock()
	callbacks := make([]func(), 0, len(t.callbacks))
	for _, cb := range t.callbacks {
		callbacks = append(callbacks, cb)
	}
	clear(t.callbacks)
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}
