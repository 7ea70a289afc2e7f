package events

// replay remembers the most recent notification so late listeners can be
// brought up to date. It is not safe on its own; callers hold their lock.
type replay[T any] struct {
	enabled bool
	last    T
	has     bool
}

func (r *replay[T]) record(value T) {
	if !r.enabled {
		return
	}
	r.last = value
	r.has = true
}

// pending returns the value a new listener should receive, if any.
func (r *replay[T]) pending() (T, bool) {
	if !r.enabled || !r.has {
		var zero T
		return zero, false
	}
	return r.last, true
}

func (r *replay[T]) clear() {
	var zero T
	r.last = zero
	r.has = false
}
