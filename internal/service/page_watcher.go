package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"pocketpages/internal/domain"
	"pocketpages/internal/event"
)

// EventExternalChange fires when another process changed the open page.
// Payload: the stored *domain.Page.
const EventExternalChange = "page:external-change"

// OpenPage is the part of the editor the watcher reads.
type OpenPage interface {
	Current() *domain.Page
	LastSaved() *domain.Page
}

// PageVersioner reports a cheap version stamp of a stored page.
type PageVersioner interface {
	PageVersion(ctx context.Context, id string) (time.Time, error)
}

// PageWatcher detects writes to the open page made by another process,
// e.g. the MCP server editing the same database. It reacts to file events on
// the database directory and also polls, since not every filesystem delivers events.
type PageWatcher struct {
	store    domain.PageStore
	versions PageVersioner
	page     OpenPage
	emitter  event.Emitter
	log      zerolog.Logger
	dir      string
	interval time.Duration

	mu      sync.Mutex
	pageID  string
	version time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPageWatcher creates a watcher. dir is the database directory to watch
// for file events; "" means poll only.
func NewPageWatcher(store domain.PageStore, versions PageVersioner, page OpenPage, dir string, interval time.Duration, emitter event.Emitter, log zerolog.Logger) *PageWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if emitter == nil {
		emitter = event.Nop{}
	}
	return &PageWatcher{
		store:    store,
		versions: versions,
		page:     page,
		emitter:  emitter,
		log:      log.With().Str("component", "watcher").Logger(),
		dir:      dir,
		interval: interval,
	}
}

// Start begins watching. Stop (or cancelling ctx) ends it.
func (w *PageWatcher) Start(ctx context.Context) error {
	var fw *fsnotify.Watcher
	if w.dir != "" {
		var err error
		fw, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := fw.Add(w.dir); err != nil {
			fw.Close()
			return fmt.Errorf("watch %s: %w", w.dir, err)
		}
	}

	w.mu.Lock()
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stop, done := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.loop(ctx, fw, stop, done)
	return nil
}

// Stop terminates the loop and waits for it to exit.
func (w *PageWatcher) Stop() {
	w.mu.Lock()
	stop, done := w.stopCh, w.doneCh
	w.stopCh, w.doneCh = nil, nil
	w.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (w *PageWatcher) loop(ctx context.Context, fw *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var events chan fsnotify.Event
	var errs chan error
	if fw != nil {
		defer fw.Close()
		events, errs = fw.Events, fw.Errors
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if isDatabaseFile(ev.Name) {
					w.Check(ctx)
				}
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.log.Warn().Err(err).Msg("watcher error")
		case <-ticker.C:
			w.Check(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func isDatabaseFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".db") || strings.HasSuffix(base, ".db-wal")
}

// Check compares the stored open page against what this process last saw and
// emits EventExternalChange when someone else rewrote it.
func (w *PageWatcher) Check(ctx context.Context) {
	cur := w.page.Current()
	if cur == nil {
		w.mu.Lock()
		w.pageID = ""
		w.mu.Unlock()
		return
	}

	v, err := w.versions.PageVersion(ctx, cur.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrPageNotFound) {
			w.log.Debug().Err(err).Str("page", cur.ID).Msg("version check failed")
		}
		return
	}

	w.mu.Lock()
	if w.pageID != cur.ID {
		w.pageID = cur.ID
		w.version = v
		w.mu.Unlock()
		return
	}
	changed := !v.Equal(w.version)
	w.version = v
	w.mu.Unlock()
	if !changed {
		return
	}

	stored, err := w.store.GetPage(ctx, cur.ID)
	if err != nil {
		w.log.Debug().Err(err).Str("page", cur.ID).Msg("reload failed")
		return
	}
	// Our own autosaves bump the version too.
	if sameContent(stored, cur) || sameContent(stored, w.page.LastSaved()) {
		return
	}
	w.log.Info().Str("page", cur.ID).Msg("page changed outside this editor")
	w.emitter.Emit(ctx, EventExternalChange, stored)
}

func sameContent(a, b *domain.Page) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || a.Title != b.Title || a.IsDeleted != b.IsDeleted || len(a.Blocks) != len(b.Blocks) {
		return false
	}
	return domain.DiffBlocks(a.Blocks, b.Blocks).Empty()
}
