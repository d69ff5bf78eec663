// Package observe provides a typed observable value.
//
// Subscribers receive the current value immediately and every later update
// in commit order until they unsubscribe.
package observe

import "sync"

// Value holds a value of type T and notifies subscribers when it changes.
// Callbacks run synchronously on the goroutine calling Set and must not call
// Set on the same Value.
type Value[T any] struct {
	mu      sync.Mutex // Serializes Set and delivery
	current T
	nextID  int
	subs    map[int]func(T)
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set stores val and delivers it to every subscriber.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = val
	for _, fn := range v.subs {
		fn(val)
	}
}

// Update applies fn to the current value and publishes the result.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = fn(v.current)
	for _, sub := range v.subs {
		sub(v.current)
	}
	return v.current
}

// Subscribe registers fn, calls it with the current value, and returns a
// function that removes the subscription.
func (v *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	fn(v.current)

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

// Chan delivers updates to a buffered channel. When the reader falls behind,
// older undelivered values are dropped in favor of the newest one.
// The returned stop function unsubscribes and closes the channel.
func Chan[T any](v *Value[T]) (<-chan T, func()) {
	ch := make(chan T, 1)
	var mu sync.Mutex
	closed := false
	unsubscribe := v.Subscribe(func(val T) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- val:
		default:
			// Replace the stale value
			select {
			case <-ch:
			default:
			}
			ch <- val
		}
	})
	return ch, func() {
		unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}
