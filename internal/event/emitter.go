package event

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// Emitter — decouples the editor and services from their observers
// ─────────────────────────────────────────────────────────────

// Emitter publishes named events to whoever is listening.
// The editor and services receive this interface instead of a concrete
// UI or transport, which makes them independently testable with a mock emitter.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, string, any) {}

// Handler receives one event from a Bus.
type Handler func(ctx context.Context, event string, data any)

// Bus fans events out to any number of subscribers, in subscription order.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs []subscription
}

type subscription struct {
	id int
	h  Handler
}

// Subscribe registers h and returns a func that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.subs = append(b.subs, subscription{id: id, h: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit delivers the event to every subscriber. Handlers run outside the lock
// so they may subscribe, unsubscribe or emit themselves.
func (b *Bus) Emit(ctx context.Context, event string, data any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.h(ctx, event, data)
	}
}

// MockEmitter is a test-friendly Emitter that records all calls.
// It is safe for concurrent use since saves report from a background goroutine.
type MockEmitter struct {
	mu     sync.Mutex
	events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, EmittedEvent{Event: event, Data: data})
}

// Events returns a copy of everything recorded so far.
func (m *MockEmitter) Events() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmittedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Named returns the recorded events called name, oldest first.
func (m *MockEmitter) Named(name string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event called name.
func (m *MockEmitter) Last(name string) (EmittedEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Event == name {
			return m.events[i], true
		}
	}
	return EmittedEvent{}, false
}

func (m *MockEmitter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
