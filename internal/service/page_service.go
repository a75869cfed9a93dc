package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"pocketpages/internal/domain"
	"pocketpages/internal/event"
)

// EventPagesChanged fires after any library change (create, trash, restore, purge).
// Its payload is the affected page id, or "" for bulk operations.
const EventPagesChanged = "pages:changed"

// ─────────────────────────────────────────────────────────────
// Page Service — the page library outside the open editor
// ─────────────────────────────────────────────────────────────

// PageService lists pages and moves them between the library and the trash.
// Editing the open page is the editor's job; this is the sidebar and trash view.
type PageService struct {
	store   domain.PageStore
	emitter event.Emitter
	log     zerolog.Logger
}

// NewPageService creates a PageService.
func NewPageService(store domain.PageStore, emitter event.Emitter, log zerolog.Logger) *PageService {
	if emitter == nil {
		emitter = event.Nop{}
	}
	return &PageService{
		store:   store,
		emitter: emitter,
		log:     log.With().Str("component", "pages").Logger(),
	}
}

// ── Queries ────────────────────────────────────────────────

func (s *PageService) ListActive(ctx context.Context) ([]domain.Page, error) {
	pages, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

func (s *PageService) ListTrash(ctx context.Context) ([]domain.Page, error) {
	pages, err := s.store.ListDeleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	return pages, nil
}

func (s *PageService) Get(ctx context.Context, id string) (*domain.Page, error) {
	return s.store.GetPage(ctx, id)
}

// Search returns active pages whose title or block text contains query, case-insensitively.
func (s *PageService) Search(ctx context.Context, query string) ([]domain.Page, error) {
	pages, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return pages, nil
	}
	var out []domain.Page
	for _, p := range pages {
		if matches(p, q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func matches(p domain.Page, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) {
		return true
	}
	for _, b := range p.Blocks {
		if strings.Contains(strings.ToLower(b.Content), q) {
			return true
		}
	}
	return false
}

// ── Lifecycle ──────────────────────────────────────────────

// Create stores a new page with one empty TEXT block.
func (s *PageService) Create(ctx context.Context, title string) (*domain.Page, error) {
	p := domain.NewPage()
	p.Title = title
	if err := s.store.SavePage(ctx, p); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.changed(ctx, p.ID)
	return p, nil
}

func (s *PageService) MoveToTrash(ctx context.Context, id string) error {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("trash page: %w", err)
	}
	s.log.Info().Str("page", id).Msg("page moved to trash")
	s.changed(ctx, id)
	return nil
}

func (s *PageService) Restore(ctx context.Context, id string) error {
	if err := s.store.Restore(ctx, id); err != nil {
		return fmt.Errorf("restore page: %w", err)
	}
	s.log.Info().Str("page", id).Msg("page restored")
	s.changed(ctx, id)
	return nil
}

// Purge deletes a page permanently, trashed or not.
func (s *PageService) Purge(ctx context.Context, id string) error {
	if err := s.store.Purge(ctx, id); err != nil {
		return fmt.Errorf("purge page: %w", err)
	}
	s.log.Info().Str("page", id).Msg("page purged")
	s.changed(ctx, id)
	return nil
}

// EmptyTrash purges every trashed page and returns how many were removed.
func (s *PageService) EmptyTrash(ctx context.Context) (int, error) {
	trash, err := s.ListTrash(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range trash {
		if err := s.store.Purge(ctx, p.ID); err != nil {
			return n, fmt.Errorf("empty trash: %w", err)
		}
		n++
	}
	if n > 0 {
		s.log.Info().Int("pages", n).Msg("trash emptied")
		s.changed(ctx, "")
	}
	return n, nil
}

func (s *PageService) changed(ctx context.Context, id string) {
	s.emitter.Emit(ctx, EventPagesChanged, id)
}
