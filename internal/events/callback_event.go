package events

import (
	"sync"
)

// CallbackEvent provides pub/sub behavior with type-safe callbacks.
// Callbacks run synchronously on the notifying goroutine.
type CallbackEvent[T any] struct {
	mu        sync.RWMutex
	listeners map[uint64]func(T)
	nextID    uint64
	replay    replay[T]
}

// NewCallbackEvent creates a new CallbackEvent.
// If sendLastEventOnListen is true, new listeners are called immediately with
// the most recent value, provided Notify has run at least once.
func NewCallbackEvent[T any](sendLastEventOnListen bool) *CallbackEvent[T] {
	return &CallbackEvent[T]{
		listeners: make(map[uint64]func(T)),
		replay:    replay[T]{enabled: sendLastEventOnListen},
	}
}

// Listen registers callback and returns a function that removes it.
// The returned function is safe to call more than once.
func (e *CallbackEvent[T]) Listen(callback func(T)) func() {
	if callback == nil {
		panic("callback cannot be nil")
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = callback
	last, ok := e.replay.pending()
	e.mu.Unlock()

	// outside the lock so the callback may Notify or unregister
	if ok {
		callback(last)
	}

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Notify calls every registered callback with value.
func (e *CallbackEvent[T]) Notify(value T) {
	e.mu.Lock()
	e.replay.record(value)
	callbacks := make([]func(T), 0, len(e.listeners))
	for _, cb := range e.listeners {
		callbacks = append(callbacks, cb)
	}
	e.mu.Unlock()

	for _, cb := range callbacks {
		cb(value)
	}
}

// Forget drops the remembered value so later listeners start empty.
func (e *CallbackEvent[T]) Forget() {
	e.mu.Lock()
	e.replay.clear()
	e.mu.Unlock()
}

// ListenerCount returns the current number of registered listeners.
func (e *CallbackEvent[T]) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
