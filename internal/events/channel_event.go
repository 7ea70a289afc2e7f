package events

import (
	"sync"
)

// ChannelEvent provides pub/sub behavior using channels.
// Sends never block: a listener whose channel is full misses that value.
type ChannelEvent[T any] struct {
	mu       sync.RWMutex
	channels map[uint64]chan<- T
	nextID   uint64
	replay   replay[T]
}

// NewChannelEvent creates a new ChannelEvent.
// If sendLastEventOnListen is true, new listeners receive the most recent
// value straight away, provided Notify has run at least once.
func NewChannelEvent[T any](sendLastEventOnListen bool) *ChannelEvent[T] {
	return &ChannelEvent[T]{
		channels: make(map[uint64]chan<- T),
		replay:   replay[T]{enabled: sendLastEventOnListen},
	}
}

// Listen registers ch and returns a function that removes it.
func (e *ChannelEvent[T]) Listen(ch chan<- T) func() {
	if ch == nil {
		panic("channel cannot be nil")
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.channels[id] = ch
	last, ok := e.replay.pending()
	e.mu.Unlock()

	if ok {
		trySend(ch, last)
	}

	return func() {
		e.mu.Lock()
		delete(e.channels, id)
		e.mu.Unlock()
	}
}

// Notify sends value to every registered channel.
func (e *ChannelEvent[T]) Notify(value T) {
	e.mu.Lock()
	e.replay.record(value)
	channels := make([]chan<- T, 0, len(e.channels))
	for _, ch := range e.channels {
		channels = append(channels, ch)
	}
	e.mu.Unlock()

	for _, ch := range channels {
		trySend(ch, value)
	}
}

// ListenerCount returns the current number of registered listeners.
func (e *ChannelEvent[T]) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.channels)
}

func trySend[T any](ch chan<- T, value T) {
	select {
	case ch <- value:
	default:
	}
}
