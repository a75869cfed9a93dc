package editor_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pocketpages/internal/domain"
	"pocketpages/internal/editor"
	"pocketpages/internal/event"
)

// ─────────────────────────────────────────────────────────────
// fakeClock — timers fire only when the test advances time
// ─────────────────────────────────────────────────────────────

type fakeClock struct {
	mu         sync.Mutex
	now        time.Time
	timers     []*fakeTimer
	ignoreStop bool // Stop reports failure and the timer still fires, like a lost race
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) editor.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.clock.ignoreStop || t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves time forward and runs every timer that came due, in due order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due, keep []*fakeTimer
	for _, t := range c.timers {
		switch {
		case t.done:
		case !t.at.After(now):
			t.done = true
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	c.timers = keep
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// ─────────────────────────────────────────────────────────────
// memStore — in-memory domain.PageStore
// ─────────────────────────────────────────────────────────────

type memStore struct {
	mu       sync.Mutex
	pages    map[string]*domain.Page
	saves    []*domain.Page
	saveErr  error
	getErr   error
	saveHook func(p *domain.Page)
}

func newMemStore() *memStore {
	return &memStore{pages: make(map[string]*domain.Page)}
}

func (s *memStore) put(p *domain.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[p.ID] = p.Clone()
}

func (s *memStore) get(id string) *domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[id].Clone()
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func (s *memStore) lastSave() *domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return nil
	}
	return s.saves[len(s.saves)-1].Clone()
}

func (s *memStore) failSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *memStore) GetPage(_ context.Context, id string) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.pages[id]
	if !ok {
		return nil, fmt.Errorf("get page %s: %w", id, domain.ErrPageNotFound)
	}
	return p.Clone(), nil
}

func (s *memStore) SavePage(_ context.Context, p *domain.Page) error {
	s.mu.Lock()
	hook := s.saveHook
	if s.saveErr != nil {
		err := s.saveErr
		s.mu.Unlock()
		return err
	}
	s.saves = append(s.saves, p.Clone())
	s.pages[p.ID] = p.Clone()
	s.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	return nil
}

func (s *memStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return domain.ErrPageNotFound
	}
	now := time.Now()
	p.IsDeleted = true
	p.DeletedAt = &now
	return nil
}

func (s *memStore) Restore(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return domain.ErrPageNotFound
	}
	p.IsDeleted = false
	p.DeletedAt = nil
	p.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) Purge(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[id]; !ok {
		return domain.ErrPageNotFound
	}
	delete(s.pages, id)
	return nil
}

func (s *memStore) list(deleted bool) []domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Page
	for _, p := range s.pages {
		if p.IsDeleted == deleted {
			out = append(out, *p.Clone())
		}
	}
	return out
}

func (s *memStore) ListActive(context.Context) ([]domain.Page, error) {
	out := s.list(false)
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *memStore) ListDeleted(context.Context) ([]domain.Page, error) {
	out := s.list(true)
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.After(*out[j].DeletedAt) })
	return out, nil
}

func (s *memStore) PurgeDeletedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, p := range s.pages {
		if p.IsDeleted && p.DeletedAt != nil && p.DeletedAt.Before(cutoff) {
			delete(s.pages, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) Close() error { return nil }

// ─────────────────────────────────────────────────────────────
// fixtures
// ─────────────────────────────────────────────────────────────

const testDelay = 2 * time.Second

type fixture struct {
	ed    *editor.Editor
	store *memStore
	clock *fakeClock
	em    *event.MockEmitter
}

func newFixture(t *testing.T, opts ...editor.Option) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore(), clock: newFakeClock(), em: &event.MockEmitter{}}
	all := append([]editor.Option{
		editor.WithClock(f.clock),
		editor.WithEmitter(f.em),
		editor.WithDelay(testDelay),
	}, opts...)
	f.ed = editor.New(f.store, all...)
	t.Cleanup(func() { f.ed.Close(context.Background()) })
	return f
}

// open stores a page whose blocks hold the given texts, loads it and forgets the load events.
func (f *fixture) open(t *testing.T, title string, texts ...string) *domain.Page {
	t.Helper()
	p := domain.NewPage()
	p.Title = title
	p.Blocks = p.Blocks[:0]
	for _, s := range texts {
		b := domain.NewBlock(domain.BlockTypeText)
		b.Content = s
		p.Blocks = append(p.Blocks, b)
	}
	if len(p.Blocks) == 0 {
		p.Blocks = append(p.Blocks, domain.NewBlock(domain.BlockTypeText))
	}
	f.store.put(p)
	require.NoError(t, f.ed.LoadPage(context.Background(), p.ID))
	f.em.Reset()
	return p
}

// settle lets both debounce timers fire and waits for the resulting writes.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	f.clock.Advance(testDelay)
	f.sync(t)
}

func (f *fixture) sync(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.ed.Sync(ctx))
}

func contents(p *domain.Page) []string {
	out := make([]string, len(p.Blocks))
	for i, b := range p.Blocks {
		out[i] = b.Content
	}
	return out
}
