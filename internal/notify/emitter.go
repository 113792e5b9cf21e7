package notify

import (
	"reflect"
	"sync"
)

// Listener receives notification events. Callbacks are expected to be cheap
// state updates; fan-out applies no back-pressure.
type Listener func(Event)

// Subscription is the explicit handle returned by Subscribe. Unsubscribing
// twice is harmless.
type Subscription struct {
	id int
	e  *Emitter
}

func (s *Subscription) Unsubscribe() {
	if s == nil || s.e == nil {
		return
	}
	s.e.remove(s.id)
}

type entry struct {
	id  int
	ptr uintptr
	fn  Listener
}

// Emitter fans events out to subscribers in registration order. It also
// carries reference-identity Register/Unregister for callers that hold a
// stable function value; duplicate registration of the same reference is a
// no-op.
type Emitter struct {
	mu   sync.Mutex
	subs []entry
	next int
}

func NewEmitter() *Emitter { return &Emitter{} }

// Subscribe adds a listener and returns its handle.
func (e *Emitter) Subscribe(fn Listener) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.subs = append(e.subs, entry{id: e.next, fn: fn})
	return &Subscription{id: e.next, e: e}
}

// Register adds a listener keyed by its function reference. Registering the
// same reference again does nothing, so an event is delivered to it exactly
// once. The key is the code pointer: two distinct closures built from the
// same function literal collide and the second registration is dropped. Use
// Subscribe when such listeners must stay separate.
func (e *Emitter) Register(fn Listener) {
	if fn == nil {
		return
	}
	ptr := reflect.ValueOf(fn).Pointer()
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.subs {
		if s.ptr != 0 && s.ptr == ptr {
			return
		}
	}
	e.next++
	e.subs = append(e.subs, entry{id: e.next, ptr: ptr, fn: fn})
}

// Unregister removes a listener previously added with Register.
func (e *Emitter) Unregister(fn Listener) {
	if fn == nil {
		return
	}
	ptr := reflect.ValueOf(fn).Pointer()
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.ptr != 0 && s.ptr == ptr {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers the event to every listener, outside the lock.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	snapshot := make([]Listener, len(e.subs))
	for i, s := range e.subs {
		snapshot[i] = s.fn
	}
	e.mu.Unlock()
	for _, fn := range snapshot {
		fn(ev)
	}
}

// Len reports the number of active listeners.
func (e *Emitter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (e *Emitter) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}
