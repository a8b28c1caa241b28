package utils

import "sync"

// StateHolder is a mutable state container that notifies subscribers
// synchronously whenever the value changes and replays the last value to
// every new subscriber.
type StateHolder[T any] struct {
	mu        sync.Mutex
	value     T
	hasValue  bool
	listeners map[int]func(T)
	nextID    int
}

func NewStateHolder[T any]() *StateHolder[T] {
	return &StateHolder[T]{listeners: make(map[int]func(T))}
}

// Set stores a new value and notifies all current subscribers.
func (h *StateHolder[T]) Set(v T) {
	h.mu.Lock()
	h.value = v
	h.hasValue = true
	fns := make([]func(T), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	// Listeners run outside the lock so they may re-enter the holder.
	for _, fn := range fns {
		fn(v)
	}
}

// Get returns the last value set, if any.
func (h *StateHolder[T]) Get() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value, h.hasValue
}

// Subscribe registers a listener and immediately replays the last value to
// it. The returned function removes the subscription.
func (h *StateHolder[T]) Subscribe(fn func(T)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	replay := h.hasValue
	v := h.value
	h.mu.Unlock()

	if replay {
		fn(v)
	}
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}
