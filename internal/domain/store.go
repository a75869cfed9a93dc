package domain

import (
	"context"
	"errors"
	"time"
)

// ErrPageNotFound is returned by a PageStore when no page has the requested id.
var ErrPageNotFound = errors.New("page not found")

// PageStore is the durable home of pages, keyed by page id.
type PageStore interface {
	GetPage(ctx context.Context, id string) (*Page, error)
	// SavePage upserts p, replacing any stored page and its blocks entirely.
	SavePage(ctx context.Context, p *Page) error
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	Purge(ctx context.Context, id string) error
	// ListActive returns pages not in the trash, most recently updated first.
	ListActive(ctx context.Context) ([]Page, error)
	// ListDeleted returns trashed pages, most recently deleted first.
	ListDeleted(ctx context.Context) ([]Page, error)
	// PurgeDeletedBefore permanently removes pages trashed before cutoff.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}
