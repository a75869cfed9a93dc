package event_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketpages/internal/event"
)

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &event.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	events := m.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "test:event", events[0].Event)
	assert.Nil(t, events[1].Data)
}

func TestMockEmitter_LastAndNamed(t *testing.T) {
	m := &event.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "a", "first")
	m.Emit(ctx, "b", "second")
	m.Emit(ctx, "a", "third")

	last, ok := m.Last("a")
	require.True(t, ok)
	assert.Equal(t, "third", last.Data)
	assert.Len(t, m.Named("a"), 2)

	_, ok = m.Last("missing")
	assert.False(t, ok)

	m.Reset()
	assert.Empty(t, m.Events())
}

func TestMockEmitter_Concurrent(t *testing.T) {
	m := &event.MockEmitter{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Emit(context.Background(), "tick", j)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, m.Events(), 400)
}

// ─────────────────────────────────────────────────────────────
// Bus tests
// ─────────────────────────────────────────────────────────────

func TestBus_FanOutInOrder(t *testing.T) {
	var bus event.Bus
	var got []string

	bus.Subscribe(func(_ context.Context, name string, _ any) { got = append(got, "first:"+name) })
	bus.Subscribe(func(_ context.Context, name string, _ any) { got = append(got, "second:"+name) })

	bus.Emit(context.Background(), "page:changed", nil)
	assert.Equal(t, []string{"first:page:changed", "second:page:changed"}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	var bus event.Bus
	calls := 0
	unsub := bus.Subscribe(func(context.Context, string, any) { calls++ })

	bus.Emit(context.Background(), "x", nil)
	unsub()
	unsub()
	bus.Emit(context.Background(), "x", nil)

	assert.Equal(t, 1, calls)
}

func TestBus_HandlerMayEmit(t *testing.T) {
	var bus event.Bus
	var seen []string
	bus.Subscribe(func(ctx context.Context, name string, _ any) {
		seen = append(seen, name)
		if name == "outer" {
			bus.Emit(ctx, "inner", nil)
		}
	})

	bus.Emit(context.Background(), "outer", nil)
	assert.Equal(t, []string{"outer", "inner"}, seen)
}

func TestNop(t *testing.T) {
	var e event.Emitter = event.Nop{}
	e.Emit(context.Background(), "ignored", 1)
}
