package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pocketpages/internal/domain"
)

// PageStore implements domain.PageStore on a SQL database.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

var _ domain.PageStore = (*PageStore)(nil)

var pageColumns = []string{
	"id", "title", "created_at", "updated_at", "is_deleted", "deleted_at", "parent_id",
	"is_public", "tags_json", "cloud_id", "last_synced_at", "needs_sync",
	"title_cursor", "focused_block_id", "focused_block_cursor",
}

var blockColumns = []string{
	"page_id", "id", "sort_order", "type", "content", "properties_json", "children_json",
	"created_at", "updated_at", "needs_sync",
}

var pageSelect = `SELECT ` + strings.Join(pageColumns, ", ") + ` FROM pages`

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Close closes the underlying database.
func (s *PageStore) Close() error {
	return s.db.Close()
}

// GetPage loads one page with its blocks, deleted or not.
func (s *PageStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	row := s.db.conn.QueryRowContext(ctx, s.db.rebind(pageSelect+` WHERE id = ?`), id)
	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get page %s: %w", id, domain.ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}

	blocks, err := s.loadBlocks(ctx, `SELECT `+strings.Join(blockColumns, ", ")+` FROM blocks WHERE page_id = ? ORDER BY sort_order ASC`, id)
	if err != nil {
		return nil, err
	}
	p.Blocks = blocks[id]
	if p.Blocks == nil {
		p.Blocks = []domain.Block{}
	}
	return p, nil
}

// SavePage upserts the page row and replaces its blocks in one transaction.
func (s *PageStore) SavePage(ctx context.Context, p *domain.Page) error {
	if p == nil {
		return fmt.Errorf("save page: nil page")
	}
	tags, err := json.Marshal(nonNilTags(p.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	upsert := `INSERT INTO pages (` + strings.Join(pageColumns, ", ") + `) VALUES (` + placeholders(len(pageColumns)) + `)` +
		s.db.upsertClause("id", pageColumns)
	_, err = tx.ExecContext(ctx, s.db.rebind(upsert),
		p.ID, p.Title, p.CreatedAt.UTC(), p.UpdatedAt.UTC(), p.IsDeleted, nullTime(p.DeletedAt), nullString(p.ParentID),
		p.IsPublic, string(tags), nullString(p.CloudID), nullTime(p.LastSyncedAt), p.NeedsSync,
		p.TitleCursorPosition, nullString(p.FocusedBlockID), p.FocusedBlockCursorPosition,
	)
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM blocks WHERE page_id = ?`), p.ID); err != nil {
		return fmt.Errorf("delete blocks: %w", err)
	}

	insert := s.db.rebind(`INSERT INTO blocks (` + strings.Join(blockColumns, ", ") + `) VALUES (` + placeholders(len(blockColumns)) + `)`)
	for i, b := range p.Blocks {
		props, err := json.Marshal(nonNilProperties(b.Properties))
		if err != nil {
			return fmt.Errorf("encode block %s properties: %w", b.ID, err)
		}
		children, err := json.Marshal(nonNilBlocks(b.Children))
		if err != nil {
			return fmt.Errorf("encode block %s children: %w", b.ID, err)
		}
		_, err = tx.ExecContext(ctx, insert,
			p.ID, b.ID, i, string(b.Type), b.Content, string(props), string(children),
			b.CreatedAt.UTC(), b.UpdatedAt.UTC(), b.NeedsSync,
		)
		if err != nil {
			return fmt.Errorf("insert block %s: %w", b.ID, err)
		}
	}

	return tx.Commit()
}

// SoftDelete moves a page to the trash.
func (s *PageStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx,
		s.db.rebind(`UPDATE pages SET is_deleted = ?, deleted_at = ? WHERE id = ?`),
		true, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("soft delete page: %w", err)
	}
	return requireAffected(res, id)
}

// Restore takes a page out of the trash and bumps its updated time.
func (s *PageStore) Restore(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx,
		s.db.rebind(`UPDATE pages SET is_deleted = ?, deleted_at = NULL, updated_at = ? WHERE id = ?`),
		false, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("restore page: %w", err)
	}
	return requireAffected(res, id)
}

// Purge removes a page and its blocks permanently.
func (s *PageStore) Purge(ctx context.Context, id string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM blocks WHERE page_id = ?`), id); err != nil {
		return fmt.Errorf("delete blocks: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM pages WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("purge page: %w", err)
	}
	if err := requireAffected(res, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListActive returns non-deleted pages, most recently updated first.
func (s *PageStore) ListActive(ctx context.Context) ([]domain.Page, error) {
	return s.listPages(ctx, false, `updated_at DESC`)
}

// ListDeleted returns trashed pages, most recently deleted first.
func (s *PageStore) ListDeleted(ctx context.Context) ([]domain.Page, error) {
	return s.listPages(ctx, true, `deleted_at DESC`)
}

// PurgeDeletedBefore permanently removes trashed pages deleted before cutoff.
func (s *PageStore) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		s.db.rebind(`SELECT id, deleted_at FROM pages WHERE is_deleted = ?`), true)
	if err != nil {
		return 0, fmt.Errorf("list trash: %w", err)
	}
	var expired []string
	for rows.Next() {
		var id string
		var deletedAt sql.NullTime
		if err := rows.Scan(&id, &deletedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan trash: %w", err)
		}
		if deletedAt.Valid && deletedAt.Time.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	purged := 0
	for _, id := range expired {
		if err := s.Purge(ctx, id); err != nil {
			if errors.Is(err, domain.ErrPageNotFound) {
				continue
			}
			return purged, err
		}
		purged++
	}
	return purged, nil
}

// PageVersion returns the stored updated time of a page, used to detect writes by other processes.
func (s *PageStore) PageVersion(ctx context.Context, id string) (time.Time, error) {
	var t time.Time
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(`SELECT updated_at FROM pages WHERE id = ?`), id).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("page version %s: %w", id, domain.ErrPageNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("page version: %w", err)
	}
	return t, nil
}

func (s *PageStore) listPages(ctx context.Context, deleted bool, order string) ([]domain.Page, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		s.db.rebind(pageSelect+` WHERE is_deleted = ? ORDER BY `+order), deleted)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	// Collect pages and close rows before loading blocks: with a single
	// SQLite connection, a nested query would deadlock.
	pages := []domain.Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	blocks, err := s.loadBlocks(ctx,
		`SELECT `+qualified("b", blockColumns)+` FROM blocks b JOIN pages p ON p.id = b.page_id WHERE p.is_deleted = ? ORDER BY b.page_id, b.sort_order ASC`,
		deleted)
	if err != nil {
		return nil, err
	}
	for i := range pages {
		pages[i].Blocks = blocks[pages[i].ID]
		if pages[i].Blocks == nil {
			pages[i].Blocks = []domain.Block{}
		}
	}
	return pages, nil
}

// loadBlocks runs a block query and groups the result by page id, preserving order.
func (s *PageStore) loadBlocks(ctx context.Context, query string, args ...any) (map[string][]domain.Block, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Block)
	for rows.Next() {
		var (
			pageID, typ, props, children string
			order                        int
			b                            domain.Block
		)
		if err := rows.Scan(&pageID, &b.ID, &order, &typ, &b.Content, &props, &children,
			&b.CreatedAt, &b.UpdatedAt, &b.NeedsSync); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		b.Type = domain.BlockType(typ)
		b.Properties = domain.Properties{}
		if props != "" {
			if err := json.Unmarshal([]byte(props), &b.Properties); err != nil {
				return nil, fmt.Errorf("decode block %s properties: %w", b.ID, err)
			}
		}
		b.Children = []domain.Block{}
		if children != "" {
			if err := json.Unmarshal([]byte(children), &b.Children); err != nil {
				return nil, fmt.Errorf("decode block %s children: %w", b.ID, err)
			}
		}
		out[pageID] = append(out[pageID], b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(r rowScanner) (*domain.Page, error) {
	var (
		p                          domain.Page
		deletedAt, lastSynced      sql.NullTime
		parentID, cloudID, focusID sql.NullString
		tags                       string
	)
	err := r.Scan(&p.ID, &p.Title, &p.CreatedAt, &p.UpdatedAt, &p.IsDeleted, &deletedAt, &parentID,
		&p.IsPublic, &tags, &cloudID, &lastSynced, &p.NeedsSync,
		&p.TitleCursorPosition, &focusID, &p.FocusedBlockCursorPosition)
	if err != nil {
		return nil, err
	}
	p.DeletedAt = timePtr(deletedAt)
	p.LastSyncedAt = timePtr(lastSynced)
	p.ParentID = stringPtr(parentID)
	p.CloudID = stringPtr(cloudID)
	p.FocusedBlockID = stringPtr(focusID)
	p.Tags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &p, nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("page %s: %w", id, domain.ErrPageNotFound)
	}
	return nil
}

func qualified(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nonNilTags(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}

func nonNilProperties(p domain.Properties) domain.Properties {
	if p == nil {
		return domain.Properties{}
	}
	return p
}

func nonNilBlocks(b []domain.Block) []domain.Block {
	if b == nil {
		return []domain.Block{}
	}
	return b
}
