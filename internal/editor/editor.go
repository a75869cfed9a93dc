// Package editor holds the page editing engine: the current page, the edit
// operations on it, debounced undo checkpoints and debounced autosave.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pocketpages/internal/domain"
	"pocketpages/internal/event"
)

var (
	// ErrPageUnavailable wraps load failures: the page is missing or the store failed.
	ErrPageUnavailable = errors.New("page unavailable")
	ErrNoPage          = errors.New("no page open")
	ErrClosed          = errors.New("editor closed")
)

// DefaultDelay is the quiet period after which an edit streak is committed and autosaved.
const DefaultDelay = 2000 * time.Millisecond

type Option func(*Editor)

// WithDelay sets the debounce delay of both the history and autosave timers.
func WithDelay(d time.Duration) Option {
	return func(e *Editor) {
		if d > 0 {
			e.delay = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(e *Editor) { e.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Editor) { e.log = l.With().Str("component", "editor").Logger() }
}

func WithEmitter(em event.Emitter) Option {
	return func(e *Editor) { e.emitter = em }
}

// WithHistoryLimit caps the undo stack; the oldest checkpoint is dropped first. 0 means unlimited.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) { e.limit = n }
}

// Editor owns at most one open page. All methods are safe for concurrent use,
// but edits are meant to arrive from one logical owner, one at a time.
// Events are emitted after the internal lock is released, so handlers may
// call back into the Editor.
type Editor struct {
	store   domain.PageStore
	emitter event.Emitter
	log     zerolog.Logger
	clock   Clock
	delay   time.Duration
	limit   int
	writer  *saveQueue

	mu        sync.Mutex
	current   *domain.Page
	lastSaved *domain.Page
	history   *History
	commit    debouncer
	autosave  debouncer
	cursor    *CursorSignal
	restoring bool
	closed    bool
}

func New(store domain.PageStore, opts ...Option) *Editor {
	e := &Editor{
		store:   store,
		emitter: event.Nop{},
		log:     zerolog.Nop(),
		clock:   realClock{},
		delay:   DefaultDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.history = NewHistory(e.limit)
	e.commit = debouncer{clock: e.clock, delay: e.delay}
	e.autosave = debouncer{clock: e.clock, delay: e.delay}
	e.writer = newSaveQueue(store, e.saveDone)
	return e
}

// ── Page lifecycle ──────────────────────────────────────────

// LoadPage makes the stored page id current and clears history.
// On failure no page is open and the error wraps ErrPageUnavailable.
func (e *Editor) LoadPage(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.mu.Unlock()

	p, err := e.store.GetPage(ctx, id)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.saveUnsavedLocked()
	e.resetLocked()
	if err != nil {
		e.current = nil
		out := []emission{e.pageChangedLocked(), e.availabilityLocked()}
		e.mu.Unlock()
		e.dispatch(out)
		e.log.Warn().Err(err).Str("page", id).Msg("load page failed")
		return fmt.Errorf("load page %s: %w: %w", id, ErrPageUnavailable, err)
	}
	e.current = p
	e.lastSaved = p.Clone()
	out := []emission{e.pageChangedLocked(), e.availabilityLocked()}
	e.mu.Unlock()

	e.dispatch(out)
	e.log.Debug().Str("page", id).Int("blocks", len(p.Blocks)).Msg("page loaded")
	return nil
}

// CreateNewPage persists a fresh page with one empty TEXT block, waits for the
// write and makes it current.
func (e *Editor) CreateNewPage(ctx context.Context) (*domain.Page, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	p := domain.NewPage()
	now := e.clock.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	for i := range p.Blocks {
		p.Blocks[i].CreatedAt, p.Blocks[i].UpdatedAt = now, now
	}
	e.saveUnsavedLocked()
	done := make(chan error, 1)
	e.writer.enqueue(p.Clone(), done)
	e.mu.Unlock()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	e.mu.Lock()
	e.resetLocked()
	if err != nil {
		e.current = nil
	} else {
		e.current = p
		e.lastSaved = p.Clone()
	}
	out := []emission{e.pageChangedLocked(), e.availabilityLocked()}
	e.mu.Unlock()
	e.dispatch(out)

	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	e.log.Debug().Str("page", p.ID).Msg("page created")
	return p.Clone(), nil
}

// SoftDeleteCurrent flushes the open page, closes it and moves it to the trash.
// If the store rejects the delete the page stays closed but untouched in storage.
func (e *Editor) SoftDeleteCurrent(ctx context.Context) error {
	if err := e.FlushAndSave(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return ErrNoPage
	}
	id := e.current.ID
	e.resetLocked()
	e.current = nil
	out := []emission{e.pageChangedLocked(), e.availabilityLocked()}
	e.mu.Unlock()
	e.dispatch(out)

	// Writes queued before the page was closed must land before the delete.
	if err := e.Sync(ctx); err != nil {
		return err
	}
	if err := e.store.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	e.log.Info().Str("page", id).Msg("page moved to trash")
	return nil
}

// Close cancels both timers and waits for queued writes, bounded by ctx.
// Edits not yet autosaved are dropped; call FlushAndSave first to keep them.
func (e *Editor) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.commit.stop()
	e.autosave.stop()
	e.mu.Unlock()

	return e.writer.close(ctx)
}

// ── Edits ───────────────────────────────────────────────────

func (e *Editor) UpdateTitle(text string) {
	e.mutate(func(p *domain.Page) bool {
		if p.Title == text {
			return false
		}
		p.Title = text
		return true
	})
}

// UpdateBlockContent replaces the text of the block at position. Stale
// positions are ignored.
func (e *Editor) UpdateBlockContent(position int, text string) {
	now := e.clock.Now()
	e.mutate(func(p *domain.Page) bool {
		if !p.ValidPosition(position) || p.Blocks[position].Content == text {
			return false
		}
		p.Blocks[position].Content = text
		p.Blocks[position].UpdatedAt = now
		return true
	})
}

func (e *Editor) UpdateTodoCheckbox(position int, checked bool) {
	now := e.clock.Now()
	e.mutate(func(p *domain.Page) bool {
		if !p.ValidPosition(position) || p.Blocks[position].Completed() == checked {
			return false
		}
		b := &p.Blocks[position]
		if b.Properties == nil {
			b.Properties = domain.Properties{}
		}
		b.Properties[domain.PropertyCompleted] = checked
		b.UpdatedAt = now
		return true
	})
}

// AddBlock inserts an empty block of type t right after position, or at the
// end when position is negative or past the last block.
func (e *Editor) AddBlock(position int, t domain.BlockType) {
	now := e.clock.Now()
	e.mutate(func(p *domain.Page) bool {
		at := position + 1
		if position < 0 || at > len(p.Blocks) {
			at = len(p.Blocks)
		}
		b := domain.NewBlock(t)
		b.CreatedAt, b.UpdatedAt = now, now
		p.Blocks = append(p.Blocks, domain.Block{})
		copy(p.Blocks[at+1:], p.Blocks[at:])
		p.Blocks[at] = b
		return true
	})
}

// DeleteBlock removes the block at position unless it is the last one left.
func (e *Editor) DeleteBlock(position int) {
	e.mutate(func(p *domain.Page) bool {
		if !p.ValidPosition(position) || len(p.Blocks) <= 1 {
			return false
		}
		removed := p.Blocks[position].ID
		p.Blocks = append(p.Blocks[:position], p.Blocks[position+1:]...)
		if p.FocusedBlockID != nil && *p.FocusedBlockID == removed {
			p.FocusedBlockID = nil
			p.FocusedBlockCursorPosition = domain.NoCursor
		}
		return true
	})
}

// UpdateCursorState stamps the current page with cursor positions. It is not
// an edit: no history entry, no timer restart.
func (e *Editor) UpdateCursorState(titlePos int, focusedBlockID *string, blockPos int) {
	e.mu.Lock()
	if e.closed || e.current == nil {
		e.mu.Unlock()
		return
	}
	next := e.current.Clone()
	next.TitleCursorPosition = titlePos
	next.FocusedBlockID = nil
	if focusedBlockID != nil {
		next.FocusedBlockID = domain.StringPtr(*focusedBlockID)
	}
	next.FocusedBlockCursorPosition = blockPos
	if next.Equal(e.current) {
		e.mu.Unlock()
		return
	}
	e.current = next
	out := []emission{e.pageChangedLocked()}
	e.mu.Unlock()
	e.dispatch(out)
}

// mutate applies fn to a copy of the current page. fn reports whether it
// changed anything; when it did not, nothing else happens.
func (e *Editor) mutate(fn func(p *domain.Page) bool) {
	e.mu.Lock()
	if e.closed || e.current == nil || e.restoring {
		e.mu.Unlock()
		return
	}
	next := e.current.Clone()
	if !fn(next) {
		e.mu.Unlock()
		return
	}
	out := e.stateChangedLocked(next)
	e.mu.Unlock()
	e.dispatch(out)
}

func (e *Editor) stateChangedLocked(next *domain.Page) []emission {
	prev := e.current
	e.history.Capture(prev)
	e.current = next

	e.commit.schedule(e.commitFired)
	e.autosave.schedule(e.autosaveFired)

	out := []emission{e.pageChangedLocked()}
	if diff := domain.DiffBlocks(prev.Blocks, next.Blocks); !diff.Empty() {
		out = append(out, emission{EventBlocksChanged, diff})
	}
	return append(out, e.availabilityLocked())
}

// ── History ─────────────────────────────────────────────────

// Undo reverts the edit streak in progress, or else the last committed
// checkpoint. It reports whether anything changed.
func (e *Editor) Undo() bool {
	return e.restore(e.history.Undo)
}

// Redo re-applies the most recently undone state.
func (e *Editor) Redo() bool {
	return e.restore(e.history.Redo)
}

func (e *Editor) restore(step func(current *domain.Page) (*domain.Page, bool)) bool {
	e.mu.Lock()
	if e.closed || e.current == nil || e.restoring {
		e.mu.Unlock()
		return false
	}
	prev := e.current
	target, ok := step(prev)
	if !ok {
		e.mu.Unlock()
		return false
	}

	e.restoring = true
	e.current = target
	sig := CursorSignal{Position: target.FocusedBlockCursorPosition}
	if target.FocusedBlockID != nil {
		sig.BlockID = domain.StringPtr(*target.FocusedBlockID)
	}
	e.cursor = &sig

	e.commit.stop()
	e.autosave.stop()
	e.history.DiscardPending()
	e.enqueueSaveLocked(nil)

	out := []emission{e.pageChangedLocked()}
	if diff := domain.DiffBlocks(prev.Blocks, target.Blocks); !diff.Empty() {
		out = append(out, emission{EventBlocksChanged, diff})
	}
	out = append(out, emission{EventCursorRestore, sig}, e.availabilityLocked())
	e.mu.Unlock()

	// Observers re-render the restored page while restoring is set, so the
	// edits their widgets echo back are dropped instead of starting a streak.
	e.dispatch(out)

	e.mu.Lock()
	e.restoring = false
	e.mu.Unlock()
	return true
}

// FlushAndSave commits the streak in progress and persists the current page,
// waiting for the write. Call it before the page goes out of view.
func (e *Editor) FlushAndSave(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.current == nil {
		e.mu.Unlock()
		return ErrNoPage
	}
	e.commit.stop()
	e.autosave.stop()
	e.history.Commit()
	done := make(chan error, 1)
	e.enqueueSaveLocked(done)
	out := []emission{e.availabilityLocked()}
	e.mu.Unlock()
	e.dispatch(out)

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("flush page: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sync waits until every write queued so far has been attempted.
func (e *Editor) Sync(ctx context.Context) error {
	done := make(chan error, 1)
	e.writer.enqueue(nil, done)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ── Timer callbacks ─────────────────────────────────────────

func (e *Editor) commitFired(gen uint64) {
	e.mu.Lock()
	if e.closed || !e.commit.claim(gen) {
		e.mu.Unlock()
		return
	}
	e.history.Commit()
	out := []emission{e.availabilityLocked()}
	e.mu.Unlock()
	e.dispatch(out)
}

func (e *Editor) autosaveFired(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !e.autosave.claim(gen) || e.current == nil {
		return
	}
	e.enqueueSaveLocked(nil)
}

// ── Persistence ─────────────────────────────────────────────

// enqueueSaveLocked queues a copy of the current page stamped with the save time.
// The in-memory page keeps its own UpdatedAt.
func (e *Editor) enqueueSaveLocked(done chan error) {
	snap := e.current.Clone()
	snap.UpdatedAt = e.clock.Now()
	e.writer.enqueue(snap, done)
}

// saveUnsavedLocked persists edits still waiting on the autosave timer,
// before the current page is replaced.
func (e *Editor) saveUnsavedLocked() {
	if e.current != nil && e.autosave.pending() {
		e.enqueueSaveLocked(nil)
	}
}

func (e *Editor) saveDone(p *domain.Page, err error) {
	ctx := context.Background()
	if err != nil {
		e.log.Error().Err(err).Str("page", p.ID).Msg("save page failed")
		e.emitter.Emit(ctx, EventPageSaveFailed, SaveFailure{PageID: p.ID, Err: err})
		return
	}
	e.mu.Lock()
	e.lastSaved = p
	e.mu.Unlock()
	e.log.Debug().Str("page", p.ID).Msg("page saved")
	e.emitter.Emit(ctx, EventPageSaved, p.ID)
}

// ── Accessors ───────────────────────────────────────────────

// Current returns a copy of the open page, or nil.
func (e *Editor) Current() *domain.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

// LastSaved returns a copy of the last page this editor wrote successfully, or loaded.
func (e *Editor) LastSaved() *domain.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSaved.Clone()
}

func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

func (e *Editor) HistoryState() HistoryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return HistoryState{
		Pending:   e.history.HasPending(),
		UndoDepth: e.history.UndoDepth(),
		RedoDepth: e.history.RedoDepth(),
		CanUndo:   e.history.CanUndo(),
		CanRedo:   e.history.CanRedo(),
	}
}

// ConsumeCursorRestore returns the last cursor signal once, then clears it.
func (e *Editor) ConsumeCursorRestore() (CursorSignal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cursor == nil {
		return CursorSignal{}, false
	}
	sig := *e.cursor
	e.cursor = nil
	return sig, true
}

func (e *Editor) Delay() time.Duration { return e.delay }

// ── helpers ─────────────────────────────────────────────────

func (e *Editor) resetLocked() {
	e.commit.stop()
	e.autosave.stop()
	e.history.Clear()
	e.cursor = nil
}

func (e *Editor) pageChangedLocked() emission {
	return emission{EventPageChanged, e.current.Clone()}
}

func (e *Editor) availabilityLocked() emission {
	return emission{EventHistoryAvailability, Availability{
		CanUndo: e.history.CanUndo(),
		CanRedo: e.history.CanRedo(),
	}}
}

func (e *Editor) dispatch(out []emission) {
	ctx := context.Background()
	for _, ev := range out {
		e.emitter.Emit(ctx, ev.name, ev.data)
	}
}
