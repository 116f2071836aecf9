// Package observe provides the per-event-kind subscriber registry used
// by the derivation engine and the connection manager.
package observe

import "sync"

// Registry is one event kind's subscriber list. Multiple observers may
// register; each Subscribe returns its own cancel func so callers can
// unregister without affecting anyone else.
type Registry[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{subs: make(map[int]func(T))}
}

func (r *Registry[T]) Subscribe(fn func(T)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *Registry[T]) Publish(v T) {
	r.mu.Lock()
	fns := make([]func(T), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	// Called outside the lock so an observer may unsubscribe itself.
	for _, fn := range fns {
		fn(v)
	}
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
