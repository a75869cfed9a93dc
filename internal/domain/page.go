package domain

import (
	"time"

	"github.com/google/uuid"
)

// NoCursor marks an absent cursor position.
const NoCursor = -1

// Page is one document: a title plus an ordered list of blocks.
// Values are treated as immutable snapshots; mutate a Clone, never a shared page.
type Page struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Blocks       []Block    `json:"blocks"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	IsDeleted    bool       `json:"isDeleted"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	ParentID     *string    `json:"parentId,omitempty"`
	IsPublic     bool       `json:"isPublic"`
	Tags         []string   `json:"tags"`
	CloudID      *string    `json:"cloudId,omitempty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	NeedsSync    bool       `json:"needsSync"`

	// Cursor state captured with the snapshot so undo/redo can restore focus.
	TitleCursorPosition        int     `json:"titleCursorPosition"`
	FocusedBlockID             *string `json:"focusedBlockId,omitempty"`
	FocusedBlockCursorPosition int     `json:"focusedBlockCursorPosition"`
}

// NewPage returns an untitled page holding one empty TEXT block.
func NewPage() *Page {
	now := time.Now()
	return &Page{
		ID:                         uuid.New().String(),
		Blocks:                     []Block{NewBlock(BlockTypeText)},
		CreatedAt:                  now,
		UpdatedAt:                  now,
		Tags:                       []string{},
		TitleCursorPosition:        NoCursor,
		FocusedBlockCursorPosition: NoCursor,
	}
}

// Clone returns a deep copy of p. Nil in, nil out.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	out := *p
	if p.Blocks != nil {
		out.Blocks = make([]Block, len(p.Blocks))
		for i, b := range p.Blocks {
			out.Blocks[i] = b.Clone()
		}
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	out.DeletedAt = cloneTime(p.DeletedAt)
	out.LastSyncedAt = cloneTime(p.LastSyncedAt)
	out.ParentID = cloneString(p.ParentID)
	out.CloudID = cloneString(p.CloudID)
	out.FocusedBlockID = cloneString(p.FocusedBlockID)
	return &out
}

// Equal compares two pages structurally, cursor fields included.
func (p *Page) Equal(o *Page) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.ID != o.ID || p.Title != o.Title || p.IsDeleted != o.IsDeleted || p.IsPublic != o.IsPublic || p.NeedsSync != o.NeedsSync {
		return false
	}
	if !p.CreatedAt.Equal(o.CreatedAt) || !p.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	if !timePtrEqual(p.DeletedAt, o.DeletedAt) || !timePtrEqual(p.LastSyncedAt, o.LastSyncedAt) {
		return false
	}
	if !stringPtrEqual(p.ParentID, o.ParentID) || !stringPtrEqual(p.CloudID, o.CloudID) {
		return false
	}
	if p.TitleCursorPosition != o.TitleCursorPosition ||
		p.FocusedBlockCursorPosition != o.FocusedBlockCursorPosition ||
		!stringPtrEqual(p.FocusedBlockID, o.FocusedBlockID) {
		return false
	}
	if len(p.Tags) != len(o.Tags) {
		return false
	}
	for i := range p.Tags {
		if p.Tags[i] != o.Tags[i] {
			return false
		}
	}
	if len(p.Blocks) != len(o.Blocks) {
		return false
	}
	for i := range p.Blocks {
		if !p.Blocks[i].Equal(o.Blocks[i]) {
			return false
		}
	}
	return true
}

// BlockIndex returns the position of the block with the given id, or -1.
func (p *Page) BlockIndex(id string) int {
	for i, b := range p.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// ValidPosition reports whether pos addresses an existing block.
func (p *Page) ValidPosition(pos int) bool {
	return pos >= 0 && pos < len(p.Blocks)
}

// StringPtr is a convenience for optional string fields.
func StringPtr(s string) *string { return &s }

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
