// Package observable holds the value containers the editor bridge publishes
// to and reads from: the recommendation list, the content mirror and the
// focused candidate.
package observable

import "sync"

// Store is an observable value owned by someone else.
type Store[T any] interface {
	Get() T
	Set(value T)
	// Subscribe calls fn with the current value right away and again after
	// every Set.
	Subscribe(fn func(T)) *Subscription
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// NewSubscription wraps cancel so that it runs at most once.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Cancel stops delivery. Safe to call more than once and on nil.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Join returns a subscription that cancels every one of subs.
func Join(subs ...*Subscription) *Subscription {
	return NewSubscription(func() {
		for _, sub := range subs {
			sub.Cancel()
		}
	})
}

// Value is an in-memory Store.
type Value[T any] struct {
	mu        sync.Mutex
	value     T
	nextID    uint64
	observers map[uint64]func(T)
	order     []uint64
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		value:     initial,
		observers: make(map[uint64]func(T)),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set replaces the value and notifies observers in subscription order.
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	observers := v.snapshot()
	v.mu.Unlock()

	for _, fn := range observers {
		fn(value)
	}
}

// Update sets the value to fn(current).
func (v *Value[T]) Update(fn func(T) T) {
	v.Set(fn(v.Get()))
}

// Subscribe implements Store.
func (v *Value[T]) Subscribe(fn func(T)) *Subscription {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.observers[id] = fn
	v.order = append(v.order, id)
	current := v.value
	v.mu.Unlock()

	fn(current)

	return NewSubscription(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.observers, id)
		for i, other := range v.order {
			if other == id {
				v.order = append(v.order[:i], v.order[i+1:]...)
				break
			}
		}
	})
}

// snapshot must be called with v.mu held.
func (v *Value[T]) snapshot() []func(T) {
	observers := make([]func(T), 0, len(v.order))
	for _, id := range v.order {
		observers = append(observers, v.observers[id])
	}
	return observers
}
